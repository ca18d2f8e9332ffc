package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

const notificationColumns = `id, recipient_id, type, actor_id, entity_type,
	entity_id, entity_title, read, created_at`

// CreateNotification inserts a notification record.
//
// actor_id is stored as NULL (not empty string) for contact form submissions
// so the actor-resolving join can't accidentally match a user with an empty ID.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	n.CreatedAt = time.Now()

	var actorID sql.NullString
	if n.ActorID != "" {
		actorID = sql.NullString{String: n.ActorID, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.RecipientID,
		n.Type,
		actorID,
		n.Entity.Type,
		n.Entity.ID,
		n.Entity.Title,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}

	return nil
}

// ListForUser returns the user's social notifications, newest first.
// Contact form submissions live in a separate inbox and are excluded here.
func (db *DB) ListForUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Notification, error) {
	return db.queryNotifications(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = ? AND type != ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, model.NotifContactSubmission, opts.Limit, opts.Offset,
	)
}

// ListContactInbox returns only contact form submissions, newest first.
func (db *DB) ListContactInbox(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Notification, error) {
	return db.queryNotifications(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = ? AND type = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, model.NotifContactSubmission, opts.Limit, opts.Offset,
	)
}

// UnreadCount counts unread social notifications for the badge.
// Contact submissions are excluded — they have their own inbox view.
func (db *DB) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications
		 WHERE recipient_id = ? AND read = 0 AND type != ?`,
		userID, model.NotifContactSubmission,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification to read. Unread → read is one-directional;
// marking an already-read (or missing) notification is a harmless no-op.
func (db *DB) MarkRead(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread notification for the user. Idempotent:
// running it when everything is already read updates zero rows.
func (db *DB) MarkAllRead(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0`,
		userID)
	if err != nil {
		return fmt.Errorf("sqlite: marking all notifications read: %w", err)
	}
	return nil
}

func (db *DB) queryNotifications(ctx context.Context, query string, args ...any) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying notifications: %w", err)
	}
	defer rows.Close()

	notifs := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var actorID sql.NullString
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&actorID,
			&n.Entity.Type,
			&n.Entity.ID,
			&n.Entity.Title,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification: %w", err)
		}
		n.ActorID = actorID.String
		notifs = append(notifs, n)
	}

	return notifs, rows.Err()
}
