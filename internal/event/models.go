package event

import "time"

// Role is a signup role on an event.
type Role string

const (
	RoleAttendee   Role = "attendee"
	RoleSubstitute Role = "substitute"
)

// Valid reports whether the role is one of the known signup roles.
func (r Role) Valid() bool {
	return r == RoleAttendee || r == RoleSubstitute
}

// Event is a scheduled game session. Creator is a snapshot of the creating
// user's name at creation time, deliberately not a foreign key. Attendees and
// Substitutes are loaded from the signups relation, ordered by signup time.
type Event struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	Name        string    `json:"name"`
	Creator     string    `json:"creator"`
	Attendees   []string  `json:"attendees"`
	Substitutes []string  `json:"substitutes"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateEventInput holds the fields required to create an event.
type CreateEventInput struct {
	Date      time.Time
	StartTime string
	Name      string
	Creator   string
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	EventsThisWeek  int64  `json:"events_this_week"`
	EventsThisMonth int64  `json:"events_this_month"`
	EventsThisYear  int64  `json:"events_this_year"`
	MyAttendance    int64  `json:"my_attendance"`
	TopCreator      string `json:"top_creator"`
	TopCreatorCount int64  `json:"top_creator_count"`
}
