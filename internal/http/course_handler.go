package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/ical"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

type courseService interface {
	CreateCourse(ctx context.Context, params application.CreateCourseParams) (persistence.Course, error)
	UpdateCourse(ctx context.Context, params application.UpdateCourseParams) (persistence.Course, error)
	GetCourse(ctx context.Context, id string) (persistence.Course, error)
	ListCourses(ctx context.Context) ([]persistence.Course, error)
	DeleteCourse(ctx context.Context, params application.DeleteCourseParams) error
}

type occurrenceLister interface {
	ListOccurrences(ctx context.Context, params application.ListOccurrencesParams) ([]application.OccurrenceView, error)
}

type CourseHandler struct {
	service     courseService
	occurrences occurrenceLister
	responder   responder
	logger      *slog.Logger
	now         func() time.Time
}

func NewCourseHandler(service courseService, occurrences occurrenceLister, logger *slog.Logger) *CourseHandler {
	base := defaultLogger(logger)
	return &CourseHandler{
		service:     service,
		occurrences: occurrences,
		responder:   newResponder(base),
		logger:      base,
		now:         time.Now,
	}
}

func (h *CourseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CourseHandler", operation, attrs...)
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode course request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "code", req.Code)

	course, err := h.service.CreateCourse(r.Context(), application.CreateCourseParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create course", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("course_id", course.ID).InfoContext(r.Context(), "course created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, courseView(course))
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode course request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "course_id", id)

	course, err := h.service.UpdateCourse(r.Context(), application.UpdateCourseParams{
		Principal: principal,
		CourseID:  id,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update course", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "course updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courseView(course))
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Get", "course_id", id)

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load course", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, courseView(course))
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list courses", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]courseDTO, 0, len(courses))
	for _, course := range courses {
		views = append(views, courseView(course))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "course_id", id)

	if err := h.service.DeleteCourse(r.Context(), application.DeleteCourseParams{
		Principal: principal,
		CourseID:  id,
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete course", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "course deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListOccurrences expands every office hour of the course into concrete
// occurrences, optionally bounded by from/to query dates.
func (h *CourseHandler) ListOccurrences(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.occurrences == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := application.ListOccurrencesParams{CourseID: id}
	from, err := optionalDateParam(r, "from")
	if err != nil {
		h.log(r.Context(), "ListOccurrences", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid occurrence bound", "param", "from", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	to, err := optionalDateParam(r, "to")
	if err != nil {
		h.log(r.Context(), "ListOccurrences", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid occurrence bound", "param", "to", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	params.From = from
	params.To = to

	logger := h.log(r.Context(), "ListOccurrences", "course_id", id)

	occurrences, err := h.occurrences.ListOccurrences(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list occurrences", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	views := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		views = append(views, occurrenceView(occurrence))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, views)
}

// CalendarFeed renders the course's occurrences as an iCalendar document so
// students can subscribe from their calendar client.
func (h *CourseHandler) CalendarFeed(w http.ResponseWriter, r *http.Request, id string) {
	if h == nil || h.service == nil || h.occurrences == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "CalendarFeed", "course_id", id)

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load course for feed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	occurrences, err := h.occurrences.ListOccurrences(r.Context(), application.ListOccurrencesParams{CourseID: id})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to expand occurrences for feed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events := make([]ical.Event, 0, len(occurrences))
	for _, occurrence := range occurrences {
		events = append(events, ical.Event{
			UID:      fmt.Sprintf("%s-%s@hourly", occurrence.OfficeHourID, occurrence.Date),
			Summary:  fmt.Sprintf("%s office hours", course.Code),
			Location: occurrence.Location,
			Start:    occurrence.Start,
			End:      occurrence.End,
		})
	}

	rendered := ical.Render(ical.Feed{
		Name:   fmt.Sprintf("%s office hours", course.Name),
		Events: events,
	}, h.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rendered)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar feed", "error", err)
	}
}

func optionalDateParam(r *http.Request, name string) (*calendar.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	date, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

type courseRequest struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Timezone      string `json:"timezone"`
	SlotDurations []int  `json:"slot_durations"`
}

func (req courseRequest) toInput() application.CourseInput {
	return application.CourseInput{
		Name:          req.Name,
		Code:          req.Code,
		Timezone:      req.Timezone,
		SlotDurations: req.SlotDurations,
	}
}

type courseDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Timezone      string `json:"timezone"`
	SlotDurations []int  `json:"slot_durations"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func courseView(course persistence.Course) courseDTO {
	return courseDTO{
		ID:            course.ID,
		Name:          course.Name,
		Code:          course.Code,
		Timezone:      course.Timezone,
		SlotDurations: course.SlotDurations,
		CreatedAt:     course.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     course.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type occurrenceDTO struct {
	OfficeHourID   string   `json:"office_hour_id"`
	CourseID       string   `json:"course_id"`
	Date           string   `json:"date"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Location       string   `json:"location"`
	HostIDs        []string `json:"host_ids"`
	TimePerStudent int      `json:"time_per_student_minutes"`
}

func occurrenceView(occurrence application.OccurrenceView) occurrenceDTO {
	return occurrenceDTO{
		OfficeHourID:   occurrence.OfficeHourID,
		CourseID:       occurrence.CourseID,
		Date:           occurrence.Date.String(),
		Start:          occurrence.Start.UTC().Format(time.RFC3339),
		End:            occurrence.End.UTC().Format(time.RFC3339),
		Location:       occurrence.Location,
		HostIDs:        occurrence.HostIDs,
		TimePerStudent: occurrence.TimePerStudent,
	}
}
