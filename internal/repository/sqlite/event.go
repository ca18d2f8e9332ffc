package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

var _ repository.EventRepository = (*DB)(nil)

// CreateEvent inserts a new event.
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	event.ID = xid.New().String()
	event.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, author_id, title, starts_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.AuthorID, event.Title, event.StartsAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event: %w", err)
	}

	return nil
}

// GetEventByID retrieves a single event.
func (db *DB) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	event := &model.Event{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, author_id, title, starts_at, created_at FROM events WHERE id = ?`, id,
	).Scan(&event.ID, &event.AuthorID, &event.Title, &event.StartsAt, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event: %w", err)
	}

	return event, nil
}

// CreateRSVP records the user's RSVP. The composite primary key makes a
// repeat RSVP a zero-row insert (created=false).
func (db *DB) CreateRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_rsvps (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("event", eventID)
		}
		return false, fmt.Errorf("sqlite: inserting rsvp: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rsvp insert: %w", err)
	}

	return affected > 0, nil
}

// DeleteRSVP withdraws an RSVP; withdrawing one never made is a no-op.
func (db *DB) DeleteRSVP(ctx context.Context, eventID, userID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM event_rsvps WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting rsvp: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rsvp delete: %w", err)
	}

	return affected > 0, nil
}
