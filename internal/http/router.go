package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers and middleware into the route table. Session
// enforces authentication on protected routes; Optional attaches a principal
// when one is available but lets anonymous requests through (used for student
// self-signup). Middleware wraps the whole router, outermost first.
type RouterConfig struct {
	Auth          *AuthHandler
	Accounts      *AccountHandler
	Courses       *CourseHandler
	OfficeHours   *OfficeHourHandler
	Registrations *RegistrationHandler
	Session       func(http.Handler) http.Handler
	Optional      func(http.Handler) http.Handler
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := func(h http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return h
		}
		return cfg.Session(h)
	}
	optional := func(h http.HandlerFunc) http.Handler {
		if cfg.Optional == nil {
			return h
		}
		return cfg.Optional(h)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Accounts != nil {
		createAccount := optional(cfg.Accounts.Create)
		listAccounts := guard(cfg.Accounts.List)
		mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				createAccount.ServeHTTP(w, r)
			case http.MethodGet:
				listAccounts.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		accountByID := guard(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/accounts/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Accounts.Get(w, r, id)
			case http.MethodDelete:
				cfg.Accounts.Disable(w, r, id)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
		mux.Handle("/accounts/", accountByID)
	}

	if cfg.Courses != nil {
		courseCollection := guard(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Courses.List(w, r)
			case http.MethodPost:
				cfg.Courses.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.Handle("/courses", courseCollection)

		courseByID := guard(func(w http.ResponseWriter, r *http.Request) {
			id, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/courses/"), "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			switch rest {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Courses.Get(w, r, id)
				case http.MethodPut:
					cfg.Courses.Update(w, r, id)
				case http.MethodDelete:
					cfg.Courses.Delete(w, r, id)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "occurrences":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Courses.ListOccurrences(w, r, id)
			case "office-hours":
				if cfg.OfficeHours == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.OfficeHours.ListForCourse(w, r, id)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/courses/", func(w http.ResponseWriter, r *http.Request) {
			// The feed is consumed by calendar clients that cannot attach a
			// session token, so it stays outside the session guard.
			id, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/courses/"), "/")
			if id != "" && rest == "calendar.ics" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Courses.CalendarFeed(w, r, id)
				return
			}
			courseByID.ServeHTTP(w, r)
		})
	}

	if cfg.OfficeHours != nil {
		createOfficeHour := guard(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.OfficeHours.Create(w, r)
		})
		mux.Handle("/office-hours", createOfficeHour)

		officeHourByID := guard(func(w http.ResponseWriter, r *http.Request) {
			id, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/office-hours/"), "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			switch rest {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.OfficeHours.Get(w, r, id)
				case http.MethodPut:
					cfg.OfficeHours.Update(w, r, id)
				case http.MethodDelete:
					cfg.OfficeHours.Delete(w, r, id)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "slots":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.OfficeHours.Slots(w, r, id)
			case "cancellations":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.OfficeHours.CancelOccurrence(w, r, id)
			default:
				http.NotFound(w, r)
			}
		})
		mux.Handle("/office-hours/", officeHourByID)
	}

	if cfg.Registrations != nil {
		registrationCollection := guard(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Registrations.List(w, r)
			case http.MethodPost:
				cfg.Registrations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.Handle("/registrations", registrationCollection)

		registrationByID := guard(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/registrations/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet:
				cfg.Registrations.Get(w, r, id)
			case http.MethodDelete:
				cfg.Registrations.Cancel(w, r, id)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
		mux.Handle("/registrations/", registrationByID)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
