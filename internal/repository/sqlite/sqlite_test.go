package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/bydbio/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Fast (no disk I/O), isolated (each test gets its own database), and clean
// (destroyed when the connection closes).
//
// newTestDB is a test helper. The `t.Helper()` call makes Go report failures
// at the CALLER's line number, which keeps test output readable.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user with the given username and fails the test on error.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

// createTestPost creates a post for the author and fails the test on error.
func createTestPost(t *testing.T, db *DB, authorID, body string, privacy model.Privacy) *model.Post {
	t.Helper()
	post := &model.Post{
		AuthorID: authorID,
		Body:     body,
		Privacy:  privacy,
	}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

// follow creates the edge and fails the test on error.
func follow(t *testing.T, db *DB, followerID, followeeID string) {
	t.Helper()
	if _, err := db.CreateFollow(context.Background(), followerID, followeeID); err != nil {
		t.Fatalf("failed to follow: %v", err)
	}
}

// backdatePost shifts a post's created_at so ordering tests don't depend on
// sub-millisecond timestamp resolution.
func backdatePost(t *testing.T, db *DB, postID string, ago time.Duration) {
	t.Helper()
	_, err := db.conn.Exec(
		`UPDATE posts SET created_at = ? WHERE id = ?`,
		time.Now().Add(-ago), postID,
	)
	if err != nil {
		t.Fatalf("failed to backdate post: %v", err)
	}
}
