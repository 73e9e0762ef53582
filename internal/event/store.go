package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for events and signups.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const eventColumns = `id, date, start_time, name, creator, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Date, &e.StartTime, &e.Name, &e.Creator, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Attendees = []string{}
	e.Substitutes = []string{}
	return &e, nil
}

// Create inserts a new event and seeds a single attendee signup for the
// creator, in one transaction.
func (s *Store) Create(ctx context.Context, in CreateEventInput) (*Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := scanEvent(tx.QueryRow(ctx,
		`INSERT INTO events (date, start_time, name, creator)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+eventColumns,
		in.Date, in.StartTime, in.Name, in.Creator,
	))
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO signups (event_id, user_name, role) VALUES ($1, $2, $3)`,
		e.ID, in.Creator, RoleAttendee,
	)
	if err != nil {
		return nil, fmt.Errorf("seeding creator signup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing event: %w", err)
	}

	e.Attendees = []string{in.Creator}
	return e, nil
}

// ListUpcoming returns all events with date >= from, ordered by date
// ascending, with their signup lists attached.
func (s *Store) ListUpcoming(ctx context.Context, from time.Time) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE date >= $1 ORDER BY date ASC, created_at ASC`,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	index := make(map[string]*Event)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
		index[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	if len(events) == 0 {
		return events, nil
	}

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err := s.attachSignups(ctx, ids, index); err != nil {
		return nil, err
	}

	return events, nil
}

// GetByID retrieves a single event with its signup lists. Returns ErrNotFound
// when no event has the given id.
func (s *Store) GetByID(ctx context.Context, id string) (*Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting event: %w", err)
	}

	if err := s.attachSignups(ctx, []string{e.ID}, map[string]*Event{e.ID: e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) attachSignups(ctx context.Context, ids []string, index map[string]*Event) error {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, user_name, role FROM signups
		 WHERE event_id = ANY($1) ORDER BY created_at ASC`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("loading signups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, userName string
		var role Role
		if err := rows.Scan(&eventID, &userName, &role); err != nil {
			return fmt.Errorf("scanning signup: %w", err)
		}
		e, ok := index[eventID]
		if !ok {
			continue
		}
		switch role {
		case RoleAttendee:
			e.Attendees = append(e.Attendees, userName)
		case RoleSubstitute:
			e.Substitutes = append(e.Substitutes, userName)
		}
	}
	return rows.Err()
}

// Delete removes an event by id. Deleting a nonexistent id is a silent no-op.
// Signups go with it via ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return nil
}

// Toggle flips the signup of userName on the given event for the given role:
// present becomes absent, absent becomes present. It returns whether the user
// is signed up after the call. A missing event returns ErrNotFound.
func (s *Store) Toggle(ctx context.Context, eventID, userName string, role Role) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists string
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("checking event: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM signups WHERE event_id = $1 AND user_name = $2 AND role = $3`,
		eventID, userName, role,
	)
	if err != nil {
		return false, fmt.Errorf("removing signup: %w", err)
	}

	joined := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO signups (event_id, user_name, role) VALUES ($1, $2, $3)`,
			eventID, userName, role,
		)
		if err != nil {
			return false, fmt.Errorf("adding signup: %w", err)
		}
		joined = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing toggle: %w", err)
	}
	return joined, nil
}

// Stats computes the aggregate counts for the stats endpoint. Week boundaries
// follow PostgreSQL's date_trunc, i.e. ISO weeks starting Monday.
func (s *Store) Stats(ctx context.Context, userName string) (*Stats, error) {
	st := &Stats{}

	err := s.pool.QueryRow(ctx, `SELECT
		COUNT(*) FILTER (WHERE date >= date_trunc('week', CURRENT_DATE)::date
			AND date < (date_trunc('week', CURRENT_DATE) + interval '1 week')::date),
		COUNT(*) FILTER (WHERE date >= date_trunc('month', CURRENT_DATE)::date
			AND date < (date_trunc('month', CURRENT_DATE) + interval '1 month')::date),
		COUNT(*) FILTER (WHERE date >= date_trunc('year', CURRENT_DATE)::date
			AND date < (date_trunc('year', CURRENT_DATE) + interval '1 year')::date)
	FROM events`).Scan(&st.EventsThisWeek, &st.EventsThisMonth, &st.EventsThisYear)
	if err != nil {
		return nil, fmt.Errorf("querying event counts: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM signups WHERE user_name = $1 AND role = $2`,
		userName, RoleAttendee,
	).Scan(&st.MyAttendance)
	if err != nil {
		return nil, fmt.Errorf("querying attendance count: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT creator, COUNT(*) FROM events
		 GROUP BY creator ORDER BY COUNT(*) DESC, creator ASC LIMIT 1`,
	).Scan(&st.TopCreator, &st.TopCreatorCount)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("querying top creator: %w", err)
	}

	return st, nil
}
