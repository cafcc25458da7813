package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/scheduler"
)

type officeHourService interface {
	CreateOfficeHour(ctx context.Context, params application.CreateOfficeHourParams) (persistence.OfficeHour, error)
	UpdateOfficeHour(ctx context.Context, params application.UpdateOfficeHourParams) (persistence.OfficeHour, error)
	GetOfficeHour(ctx context.Context, id string) (persistence.OfficeHour, error)
	ListOfficeHours(ctx context.Context, courseID string) ([]persistence.OfficeHour, error)
	AvailableSlots(ctx context.Context, officeHourID string, date calendar.Date) ([]scheduler.Slot, error)
	CancelOccurrence(ctx context.Context, params application.CancelOccurrenceParams) error
	DeleteOfficeHour(ctx context.Context, params application.DeleteOfficeHourParams) error
}

type OfficeHourHandler struct {
	service   officeHourService
	courses   courseService
	responder responder
	logger    *slog.Logger
}

func NewOfficeHourHandler(service officeHourService, courses courseService, logger *slog.Logger) *OfficeHourHandler {
	base := defaultLogger(logger)
	return &OfficeHourHandler{service: service, courses: courses, responder: newResponder(base), logger: base}
}

func (h *OfficeHourHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "OfficeHourHandler", operation, attrs...)
}

func (h *OfficeHourHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req officeHourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode office hour request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid office hour payload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "course_id", input.CourseID)

	officeHour, err := h.service.CreateOfficeHour(r.Context(), application.CreateOfficeHourParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	view, err := h.officeHourView(r.Context(), officeHour)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to render office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("office_hour_id", officeHour.ID).InfoContext(r.Context(), "office hour created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, view)
}

func (h *OfficeHourHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req officeHourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode office hour request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid office hour payload", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "office_hour_id", id)

	officeHour, err := h.service.UpdateOfficeHour(r.Context(), application.UpdateOfficeHourParams{
		Principal:    principal,
		OfficeHourID: id,
		Input:        input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	view, err := h.officeHourView(r.Context(), officeHour)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to render office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "office hour updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

func (h *OfficeHourHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Get", "office_hour_id", id)

	officeHour, err := h.service.GetOfficeHour(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	view, err := h.officeHourView(r.Context(), officeHour)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to render office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

func (h *OfficeHourHandler) ListForCourse(w http.ResponseWriter, r *http.Request, courseID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ListForCourse", "course_id", courseID)

	officeHours, err := h.service.ListOfficeHours(r.Context(), courseID)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list office hours", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]officeHourDTO, 0, len(officeHours))
	for _, officeHour := range officeHours {
		view, err := h.officeHourView(r.Context(), officeHour)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to render office hour", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		views = append(views, view)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

// Slots reports the free slots of one occurrence, identified by the date
// query parameter.
func (h *OfficeHourHandler) Slots(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.log(r.Context(), "Slots", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid slot date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Slots", "office_hour_id", id, "date", date.String())

	slots, err := h.service.AvailableSlots(r.Context(), id, date)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to compute slots", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slotDTO{
			Start: slot.Start.UTC().Format(time.RFC3339),
			End:   slot.End.UTC().Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

// CancelOccurrence cancels one occurrence date and staff-cancels every
// registration riding on it.
func (h *OfficeHourHandler) CancelOccurrence(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req cancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CancelOccurrence", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode cancellation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		h.log(r.Context(), "CancelOccurrence", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid cancellation date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CancelOccurrence", "office_hour_id", id, "date", date.String())

	if err := h.service.CancelOccurrence(r.Context(), application.CancelOccurrenceParams{
		Principal:    principal,
		OfficeHourID: id,
		Date:         date,
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to cancel occurrence", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "occurrence cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *OfficeHourHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "office_hour_id", id)

	if err := h.service.DeleteOfficeHour(r.Context(), application.DeleteOfficeHourParams{
		Principal:    principal,
		OfficeHourID: id,
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete office hour", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "office hour deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// officeHourView renders an office hour with its instants translated back to
// wall-clock readings in the course timezone.
func (h *OfficeHourHandler) officeHourView(ctx context.Context, officeHour persistence.OfficeHour) (officeHourDTO, error) {
	loc := time.UTC
	if h.courses != nil {
		course, err := h.courses.GetCourse(ctx, officeHour.CourseID)
		if err != nil {
			return officeHourDTO{}, err
		}
		loc, err = time.LoadLocation(course.Timezone)
		if err != nil {
			return officeHourDTO{}, err
		}
	}

	cancelled := make([]string, 0, len(officeHour.CancelledOn))
	for _, date := range officeHour.CancelledOn {
		cancelled = append(cancelled, date.String())
	}

	return officeHourDTO{
		ID:             officeHour.ID,
		CourseID:       officeHour.CourseID,
		HostIDs:        officeHour.HostIDs,
		Location:       officeHour.Location,
		Recurring:      officeHour.Recurring,
		StartDate:      calendar.DateOf(officeHour.Start, loc).String(),
		EndDate:        calendar.DateOf(officeHour.End, loc).String(),
		StartTime:      calendar.TimeOfDayOf(officeHour.Start, loc).String(),
		EndTime:        calendar.TimeOfDayOf(officeHour.End, loc).String(),
		Weekdays:       calendar.WeekdayNames(officeHour.Weekdays),
		CancelledDates: cancelled,
		TimePerStudent: officeHour.TimePerStudent,
	}, nil
}

type officeHourRequest struct {
	CourseID       string   `json:"course_id"`
	HostIDs        []string `json:"host_ids"`
	Location       string   `json:"location"`
	Recurring      bool     `json:"recurring"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Weekdays       []string `json:"weekdays"`
	TimePerStudent int      `json:"time_per_student_minutes"`
}

func (req officeHourRequest) toInput() (application.OfficeHourInput, error) {
	startDate, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return application.OfficeHourInput{}, errors.New("start_date must be formatted as YYYY-MM-DD")
	}
	endDate, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		return application.OfficeHourInput{}, errors.New("end_date must be formatted as YYYY-MM-DD")
	}
	startTime, err := calendar.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return application.OfficeHourInput{}, errors.New("start_time must be formatted as HH:MM")
	}
	endTime, err := calendar.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return application.OfficeHourInput{}, errors.New("end_time must be formatted as HH:MM")
	}
	weekdays, err := calendar.ParseWeekdays(req.Weekdays)
	if err != nil {
		return application.OfficeHourInput{}, err
	}

	return application.OfficeHourInput{
		CourseID:       req.CourseID,
		HostIDs:        req.HostIDs,
		Location:       req.Location,
		Recurring:      req.Recurring,
		StartDate:      startDate,
		EndDate:        endDate,
		StartTime:      startTime,
		EndTime:        endTime,
		Weekdays:       weekdays,
		TimePerStudent: req.TimePerStudent,
	}, nil
}

type officeHourDTO struct {
	ID             string   `json:"id"`
	CourseID       string   `json:"course_id"`
	HostIDs        []string `json:"host_ids"`
	Location       string   `json:"location"`
	Recurring      bool     `json:"recurring"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Weekdays       []string `json:"weekdays"`
	CancelledDates []string `json:"cancelled_dates"`
	TimePerStudent int      `json:"time_per_student_minutes"`
}

type cancellationRequest struct {
	Date string `json:"date"`
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
