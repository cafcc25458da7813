package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

type registrationService interface {
	Register(ctx context.Context, params application.RegisterParams) (persistence.Registration, error)
	CancelRegistration(ctx context.Context, params application.CancelRegistrationParams) error
	GetRegistration(ctx context.Context, principal application.Principal, id string) (persistence.Registration, error)
	ListRegistrations(ctx context.Context, params application.ListRegistrationsParams) ([]persistence.Registration, error)
}

type RegistrationHandler struct {
	service   registrationService
	responder responder
	logger    *slog.Logger
}

func NewRegistrationHandler(service registrationService, logger *slog.Logger) *RegistrationHandler {
	base := defaultLogger(logger)
	return &RegistrationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RegistrationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RegistrationHandler", operation, attrs...)
}

func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid registration date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	start, err := calendar.ParseTimeOfDay(req.Start)
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid registration start", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "office_hour_id", req.OfficeHourID, "date", date.String())

	registration, err := h.service.Register(r.Context(), application.RegisterParams{
		Principal: principal,
		Input: application.RegisterInput{
			OfficeHourID:    req.OfficeHourID,
			Date:            date,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Topics:          req.Topics,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to register", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("registration_id", registration.ID).InfoContext(r.Context(), "registration created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, registrationView(registration))
}

func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "registration_id", id)

	registration, err := h.service.GetRegistration(r.Context(), principal, id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load registration", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, registrationView(registration))
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListRegistrationsParams{
		Principal:    principal,
		OfficeHourID: query.Get("office_hour_id"),
		AccountID:    query.Get("account_id"),
		ActiveOnly:   query.Get("active") == "true",
	}
	date, err := optionalDateParam(r, "date")
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid registration date filter", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	params.Date = date

	logger := h.log(r.Context(), "List")

	registrations, err := h.service.ListRegistrations(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list registrations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]registrationDTO, 0, len(registrations))
	for _, registration := range registrations {
		views = append(views, registrationView(registration))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "registration_id", id)

	if err := h.service.CancelRegistration(r.Context(), application.CancelRegistrationParams{
		Principal:      principal,
		RegistrationID: id,
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to cancel registration", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registration cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type registrationRequest struct {
	OfficeHourID    string   `json:"office_hour_id"`
	Date            string   `json:"date"`
	Start           string   `json:"start"`
	DurationMinutes int      `json:"duration_minutes"`
	Topics          []string `json:"topics"`
}

type registrationDTO struct {
	ID                 string   `json:"id"`
	OfficeHourID       string   `json:"office_hour_id"`
	AccountID          string   `json:"account_id"`
	Date               string   `json:"date"`
	Start              string   `json:"start"`
	End                string   `json:"end"`
	Topics             []string `json:"topics"`
	CancelledByStudent bool     `json:"cancelled_by_student"`
	CancelledByStaff   bool     `json:"cancelled_by_staff"`
}

func registrationView(registration persistence.Registration) registrationDTO {
	return registrationDTO{
		ID:                 registration.ID,
		OfficeHourID:       registration.OfficeHourID,
		AccountID:          registration.AccountID,
		Date:               registration.Date.String(),
		Start:              registration.Start.UTC().Format(time.RFC3339),
		End:                registration.End.UTC().Format(time.RFC3339),
		Topics:             registration.Topics,
		CancelledByStudent: registration.CancelledByStudent,
		CancelledByStaff:   registration.CancelledByStaff,
	}
}
