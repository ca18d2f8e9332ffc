package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

var _ repository.ConnectionRepository = (*DB)(nil)

// CreateFollow records the edge follower → followee and bumps both users'
// counters, all inside one transaction.
//
// WHY A TRANSACTION?
// A follow touches three rows: the edge, the follower's following_count and
// the followee's follower_count. If the process dies between two of those
// writes, the graph and the counters disagree forever. BEGIN/COMMIT makes
// the three writes an all-or-nothing unit.
//
// WHY INSERT OR IGNORE?
// The composite primary key on (follower_id, followee_id) means a duplicate
// follow — a double-click, a retried request — inserts zero rows. We read
// RowsAffected and skip the counter updates entirely, so counters can only
// move when the edge actually changed. created=false tells the service layer
// not to emit a duplicate notification either.
func (db *DB) CreateFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning follow transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO connections (follower_id, followee_id) VALUES (?, ?)`,
		followerID, followeeID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("user", followeeID)
		}
		return false, fmt.Errorf("sqlite: inserting follow edge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow insert: %w", err)
	}
	if affected == 0 {
		// Already following — nothing changed, nothing to commit.
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET following_count = following_count + 1 WHERE id = ?`,
		followerID,
	); err != nil {
		return false, fmt.Errorf("sqlite: incrementing following count: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET follower_count = follower_count + 1 WHERE id = ?`,
		followeeID,
	); err != nil {
		return false, fmt.Errorf("sqlite: incrementing follower count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing follow: %w", err)
	}

	return true, nil
}

// DeleteFollow is the inverse of CreateFollow. Removing an edge that was
// never there is a no-op: zero rows deleted, counters untouched,
// removed=false — not an error.
func (db *DB) DeleteFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning unfollow transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM connections WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting follow edge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow delete: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	// MAX(..., 0) guards against a counter drifting negative if the row was
	// ever touched outside this code path.
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET following_count = MAX(following_count - 1, 0) WHERE id = ?`,
		followerID,
	); err != nil {
		return false, fmt.Errorf("sqlite: decrementing following count: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET follower_count = MAX(follower_count - 1, 0) WHERE id = ?`,
		followeeID,
	); err != nil {
		return false, fmt.Errorf("sqlite: decrementing follower count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing unfollow: %w", err)
	}

	return true, nil
}

// IsFollowing reports whether the edge follower → followee exists.
func (db *DB) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connections WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow edge: %w", err)
	}
	return count > 0, nil
}

// Followers returns the public cards of everyone following userID,
// most recent follow first.
func (db *DB) Followers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return db.querySummaries(ctx,
		`SELECT u.id, u.username, u.display_name, u.avatar_url
		 FROM connections c JOIN users u ON u.id = c.follower_id
		 WHERE c.followee_id = ?
		 ORDER BY c.created_at DESC`,
		userID,
	)
}

// Following returns the public cards of everyone userID follows,
// most recent follow first.
func (db *DB) Following(ctx context.Context, userID string) ([]model.UserSummary, error) {
	return db.querySummaries(ctx,
		`SELECT u.id, u.username, u.display_name, u.avatar_url
		 FROM connections c JOIN users u ON u.id = c.followee_id
		 WHERE c.follower_id = ?
		 ORDER BY c.created_at DESC`,
		userID,
	)
}

// FollowingIDs returns just the followee IDs — the feed aggregator's input.
func (db *DB) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT followee_id FROM connections WHERE follower_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing following ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning following id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SuggestedUsers returns up to limit users the given user does not already
// follow (and is not), most-followed first, newest account breaking ties.
// "Most followed" is a best-effort ranking — any reasonable non-followed,
// non-self set satisfies the contract.
func (db *DB) SuggestedUsers(ctx context.Context, userID string, limit int) ([]model.UserSummary, error) {
	return db.querySummaries(ctx,
		`SELECT u.id, u.username, u.display_name, u.avatar_url
		 FROM users u
		 WHERE u.id != ?
		   AND u.id NOT IN (SELECT followee_id FROM connections WHERE follower_id = ?)
		 ORDER BY u.follower_count DESC, u.created_at DESC
		 LIMIT ?`,
		userID, userID, limit,
	)
}

func (db *DB) querySummaries(ctx context.Context, query string, args ...any) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying user summaries: %w", err)
	}
	defer rows.Close()

	users := []model.UserSummary{}
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user summary: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
