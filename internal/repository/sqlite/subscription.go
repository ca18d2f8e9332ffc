package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

var _ repository.SubscriptionRepository = (*DB)(nil)

// CreateSubscription inserts a watch edge from a user to a content item.
// The (user_id, content_id) primary key enforces at most one subscription
// per pair; a duplicate insert affects zero rows and returns created=false.
func (db *DB) CreateSubscription(ctx context.Context, sub *model.Subscription) (bool, error) {
	sub.CreatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscriptions
			(user_id, content_id, content_type, author_id, title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.ContentID, sub.ContentType, sub.AuthorID, sub.Title, sub.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("sqlite: subscribing unknown user %s: %w", sub.UserID, err)
		}
		return false, fmt.Errorf("sqlite: creating subscription: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription insert: %w", err)
	}

	return affected > 0, nil
}

// DeleteSubscription removes the watch edge. Removing a missing edge is a
// no-op, not an error.
func (db *DB) DeleteSubscription(ctx context.Context, userID, contentID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = ? AND content_id = ?`,
		userID, contentID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting subscription: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription delete: %w", err)
	}

	return affected > 0, nil
}

// IsSubscribed reports whether the user is watching the content item.
func (db *DB) IsSubscribed(ctx context.Context, userID, contentID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE user_id = ? AND content_id = ?`,
		userID, contentID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking subscription: %w", err)
	}
	return count > 0, nil
}

// SubscriptionsForUser lists everything the user is watching, newest first.
func (db *DB) SubscriptionsForUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, content_id, content_type, author_id, title, created_at
		 FROM subscriptions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.UserID, &s.ContentID, &s.ContentType, &s.AuthorID, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning subscription: %w", err)
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}
