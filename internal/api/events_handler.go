package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/courtbook/courtbook/internal/auth"
	"github.com/courtbook/courtbook/internal/event"
	"github.com/courtbook/courtbook/internal/mailer"
	"github.com/go-chi/chi/v5"
)

// EventRegistry is the event service surface the handlers need. It exists to
// allow testing without a real database.
type EventRegistry interface {
	Create(ctx context.Context, in event.CreateEventInput) (*event.Event, error)
	GetByID(ctx context.Context, id string) (*event.Event, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]*event.Event, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, eventID, userName string, role event.Role) (bool, error)
	Stats(ctx context.Context, userName string) (*event.Stats, error)
}

// Notifier enqueues a notification job; it must never block.
type Notifier interface {
	Enqueue(job mailer.Job) bool
}

// eventsHandler groups the event registry HTTP handlers.
type eventsHandler struct {
	events   EventRegistry
	notifier Notifier
}

func newEventsHandler(events EventRegistry, notifier Notifier) *eventsHandler {
	return &eventsHandler{events: events, notifier: notifier}
}

// dateFormat is the wire format for event dates.
const dateFormat = "2006-01-02"

type eventResponse struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	Name        string    `json:"name"`
	Creator     string    `json:"creator"`
	Attendees   []string  `json:"attendees"`
	Substitutes []string  `json:"substitutes"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEventResponse(e *event.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Date:        e.Date.Format(dateFormat),
		StartTime:   e.StartTime,
		Name:        e.Name,
		Creator:     e.Creator,
		Attendees:   e.Attendees,
		Substitutes: e.Substitutes,
		CreatedAt:   e.CreatedAt,
	}
}

// ListUpcoming handles GET /api/v1/events. Past events are retained in the
// store but never surfaced here.
func (h *eventsHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	today := truncateToDate(time.Now())

	events, err := h.events.ListUpcoming(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}

	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": out})
}

// Create handles POST /api/v1/events. The acting user becomes the creator and
// the only seeded attendee; a notification job is enqueued fire-and-forget, so
// creation succeeds regardless of dispatch outcome.
func (h *eventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var req struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		Name      string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "date must be formatted YYYY-MM-DD")
		return
	}

	e, err := h.events.Create(r.Context(), event.CreateEventInput{
		Date:      date,
		StartTime: req.StartTime,
		Name:      req.Name,
		Creator:   u.Name,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create event")
		return
	}

	if h.notifier != nil {
		h.notifier.Enqueue(mailer.Job{
			EventName: e.Name,
			Date:      e.Date,
			StartTime: e.StartTime,
			Creator:   e.Creator,
		})
	}

	auditLog(r, "create", "event", e.ID, "event_name", e.Name, "date", e.Date.Format(dateFormat))
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// Get handles GET /api/v1/events/{id}.
func (h *eventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load event")
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// Delete handles DELETE /api/v1/events/{id}. A missing id is treated as
// already satisfied.
func (h *eventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.events.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete event")
		return
	}

	auditLog(r, "delete", "event", id)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleAttend handles POST /api/v1/events/{id}/attend.
func (h *eventsHandler) ToggleAttend(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, event.RoleAttendee)
}

// ToggleSubstitute handles POST /api/v1/events/{id}/substitute.
func (h *eventsHandler) ToggleSubstitute(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, event.RoleSubstitute)
}

func (h *eventsHandler) toggle(w http.ResponseWriter, r *http.Request, role event.Role) {
	u := auth.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	signedUp, err := h.events.Toggle(r.Context(), id, u.Name, role)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to toggle signup")
		return
	}

	auditLog(r, "toggle_signup", "event", id, "role", string(role), "signed_up", signedUp)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":  id,
		"role":      role,
		"signed_up": signedUp,
	})
}

// Stats handles GET /api/v1/stats.
func (h *eventsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	stats, err := h.events.Stats(r.Context(), u.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func isValidationError(err error) bool {
	return errors.Is(err, event.ErrNameRequired) ||
		errors.Is(err, event.ErrDateRequired) ||
		errors.Is(err, event.ErrStartTimeRequired) ||
		errors.Is(err, event.ErrRoleInvalid)
}

// truncateToDate strips the time-of-day component in local time.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
