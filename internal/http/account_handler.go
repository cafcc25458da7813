package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

type accountService interface {
	CreateAccount(ctx context.Context, params application.CreateAccountParams) (persistence.Account, error)
	GetAccount(ctx context.Context, principal application.Principal, id string) (persistence.Account, error)
	ListAccounts(ctx context.Context, principal application.Principal) ([]persistence.Account, error)
	DisableAccount(ctx context.Context, principal application.Principal, id string) error
}

type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

// Create handles student self-signup and staff-initiated account creation.
// An anonymous caller carries a zero principal; the service enforces that
// staff accounts come from staff principals.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode account request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "email", req.Email, "role", req.Role)

	account, err := h.service.CreateAccount(r.Context(), application.CreateAccountParams{
		Principal: principal,
		Input: application.AccountInput{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Role:        persistence.AccountRole(req.Role),
			Password:    req.Password,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create account", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("account_id", account.ID).InfoContext(r.Context(), "account created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, accountView(account))
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "account_id", id)

	account, err := h.service.GetAccount(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load account", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, accountView(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List")

	accounts, err := h.service.ListAccounts(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list accounts", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]accountDTO, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, accountView(account))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

func (h *AccountHandler) Disable(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Disable", "account_id", id)

	if err := h.service.DisableAccount(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to disable account", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "account disabled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type accountRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

type accountDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
}

func accountView(account persistence.Account) accountDTO {
	return accountDTO{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
		Disabled:    account.Disabled,
		CreatedAt:   account.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
