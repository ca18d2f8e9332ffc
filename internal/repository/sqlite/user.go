package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` makes the compiler verify that *Y implements X.
// If a method is missing, the build fails here instead of at a distant
// call site. One line per interface the DB implements.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, github_id, display_name,
	bio, avatar_url, follower_count, following_count, created_at, updated_at`

// CreateUser inserts a new user account.
//
// ID GENERATION WITH xid:
// xid produces 20-char, URL-safe, creation-time-sortable IDs — nicer than
// UUIDs for anything that ends up in a URL.
//
// A UNIQUE violation on username or email is reported as apperror.Conflict
// so the handler can answer 409 instead of 500.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.DisplayName,
		user.Bio,
		user.AvatarURL,
		user.FollowerCount,
		user.FollowingCount,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// Upsert creates or refreshes a user keyed by GitHub ID — the OAuth
// sign-in path. On first login a fresh account is created; on later logins
// the avatar and display name are refreshed from GitHub.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	existing := &model.User{}
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID)
	err := scanUser(row, existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return db.CreateUser(ctx, user)
	case err != nil:
		return fmt.Errorf("sqlite: looking up user by github id: %w", err)
	}

	// Refresh mutable profile fields, keep everything else (id, username,
	// counters) exactly as stored.
	existing.DisplayName = user.DisplayName
	existing.AvatarURL = user.AvatarURL
	if user.Email != "" {
		existing.Email = user.Email
	}
	existing.UpdatedAt = time.Now()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET display_name = ?, avatar_url = ?, email = ?, updated_at = ?
		 WHERE id = ?`,
		existing.DisplayName, existing.AvatarURL, existing.Email, existing.UpdatedAt, existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: refreshing user: %w", err)
	}

	*user = *existing
	return nil
}

// GetUserByID retrieves a single user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a single user by their unique username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserWhere(ctx, "username = ?", username)
}

// GetUserByEmail retrieves a single user by email (for password login).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserWhere(ctx, "email = ?", email)
}

func (db *DB) getUserWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)

	if err := scanUser(row, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return user, nil
}

// GetUsersByID batch-resolves users in a single query. The result map only
// contains IDs that still exist — callers use this to drop references to
// deleted accounts (e.g. notification actors) instead of rendering nulls.
func (db *DB) GetUsersByID(ctx context.Context, ids []string) (map[string]*model.User, error) {
	result := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: batch getting users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user := &model.User{}
		if err := scanUser(rows, user); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		result[user.ID] = user
	}

	return result, rows.Err()
}

// UpdateProfile saves the mutable profile fields (username, display name,
// bio, avatar). Counters are owned by the connection store and are not
// written here.
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, display_name = ?, bio = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username, user.DisplayName, user.Bio, user.AvatarURL, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: updating profile: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// Links returns the user's outbound links in display order.
func (db *DB) Links(ctx context.Context, userID string) ([]model.Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT position, title, url FROM user_links
		 WHERE user_id = ? ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing links: %w", err)
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		var l model.Link
		if err := rows.Scan(&l.Position, &l.Title, &l.URL); err != nil {
			return nil, fmt.Errorf("sqlite: scanning link: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

// ReplaceLinks swaps the user's entire link list in one transaction.
// Whole-list replacement keeps positions dense and sidesteps per-row
// reordering logic — link lists are short (a handful of entries).
func (db *DB) ReplaceLinks(ctx context.Context, userID string, links []model.Link) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning links transaction: %w", err)
	}
	// Rollback is a no-op after Commit succeeds.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_links WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: clearing links: %w", err)
	}

	for i, l := range links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_links (user_id, position, title, url) VALUES (?, ?, ?, ?)`,
			userID, i, l.Title, l.URL,
		); err != nil {
			return fmt.Errorf("sqlite: inserting link %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing links: %w", err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows, so one scan helper
// serves single-row and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner, user *model.User) error {
	return s.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GitHubID,
		&user.DisplayName,
		&user.Bio,
		&user.AvatarURL,
		&user.FollowerCount,
		&user.FollowingCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// isUniqueViolation detects SQLite's UNIQUE constraint error. The pure-Go
// driver doesn't export a typed error for this, so we match the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
