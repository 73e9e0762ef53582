package event

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Validation and lookup errors returned by the Service layer.
var (
	ErrNotFound          = errors.New("event not found")
	ErrNameRequired      = errors.New("name is required")
	ErrDateRequired      = errors.New("date is required")
	ErrStartTimeRequired = errors.New("start time is required")
	ErrRoleInvalid       = errors.New("role must be one of: attendee, substitute")
)

// Registry is the store surface the Service needs. It exists to allow testing
// without a real database.
type Registry interface {
	Create(ctx context.Context, in CreateEventInput) (*Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]*Event, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, eventID, userName string, role Role) (bool, error)
	Stats(ctx context.Context, userName string) (*Stats, error)
}

// Service provides validated business logic over the event Store.
type Service struct {
	store Registry
}

// NewService creates a new Service wrapping the given store.
func NewService(store Registry) *Service {
	return &Service{store: store}
}

// Create validates the input and creates the event with the creator seeded as
// its only attendee.
func (s *Service) Create(ctx context.Context, in CreateEventInput) (*Event, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if in.Date.IsZero() {
		return nil, ErrDateRequired
	}
	if strings.TrimSpace(in.StartTime) == "" {
		return nil, ErrStartTimeRequired
	}
	return s.store.Create(ctx, in)
}

// GetByID returns a single event with its signup lists, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Event, error) {
	return s.store.GetByID(ctx, id)
}

// ListUpcoming returns events on or after the given date, ascending.
func (s *Service) ListUpcoming(ctx context.Context, from time.Time) ([]*Event, error) {
	return s.store.ListUpcoming(ctx, from)
}

// Delete removes an event; a missing id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Toggle flips the acting user's signup for the given role and reports the
// resulting membership.
func (s *Service) Toggle(ctx context.Context, eventID, userName string, role Role) (bool, error) {
	if !role.Valid() {
		return false, ErrRoleInvalid
	}
	return s.store.Toggle(ctx, eventID, userName, role)
}

// Stats returns the aggregate counts for the given acting user.
func (s *Service) Stats(ctx context.Context, userName string) (*Stats, error) {
	return s.store.Stats(ctx, userName)
}
