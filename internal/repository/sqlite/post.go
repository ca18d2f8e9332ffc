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

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, author_id, body, privacy, like_count, created_at`

// CreatePost inserts a new post.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.Body, post.Privacy, post.LikeCount, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetPostByID retrieves a single post.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id,
	).Scan(&post.ID, &post.AuthorID, &post.Body, &post.Privacy, &post.LikeCount, &post.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post: %w", err)
	}

	return post, nil
}

// DeletePost removes a post. Likes go with it via ON DELETE CASCADE.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking post delete: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// ListByAuthors returns the newest posts whose author is in authorIDs,
// capped at limit. One call per author batch — the feed aggregator issues
// these concurrently and merges the results.
func (db *DB) ListByAuthors(ctx context.Context, authorIDs []string, limit int) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}

	args := make([]any, 0, len(authorIDs)+1)
	for _, id := range authorIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE author_id IN (`+placeholders(len(authorIDs))+`)
		 ORDER BY created_at DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts by authors: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Body, &p.Privacy, &p.LikeCount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// CreateLike inserts the like edge and bumps like_count in one transaction —
// the same discipline as follow counters. created=false for a duplicate like.
func (db *DB) CreateLike(ctx context.Context, postID, userID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning like transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)`,
		postID, userID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("post", postID)
		}
		return false, fmt.Errorf("sqlite: inserting like: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like insert: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, postID,
	); err != nil {
		return false, fmt.Errorf("sqlite: incrementing like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing like: %w", err)
	}

	return true, nil
}

// DeleteLike removes the like edge; unliking something never liked is a no-op.
func (db *DB) DeleteLike(ctx context.Context, postID, userID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning unlike transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`,
		postID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting like: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like delete: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET like_count = MAX(like_count - 1, 0) WHERE id = ?`, postID,
	); err != nil {
		return false, fmt.Errorf("sqlite: decrementing like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing unlike: %w", err)
	}

	return true, nil
}

// LikedSet reports which of postIDs the user has liked. One query for the
// whole page of posts — the feed join uses this to set IsLiked without an
// N+1 lookup per post.
func (db *DB) LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	args := make([]any, 0, len(postIDs)+1)
	args = append(args, userID)
	for _, id := range postIDs {
		args = append(args, id)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT post_id FROM post_likes
		 WHERE user_id = ? AND post_id IN (`+placeholders(len(postIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying liked set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning liked post id: %w", err)
		}
		liked[id] = true
	}

	return liked, rows.Err()
}
