// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/bydbio/internal/model"
)

// ListOptions carries pagination parameters for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts, profiles and link lists.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	Upsert(ctx context.Context, user *model.User) error // by GitHub ID, for OAuth sign-in
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUsersByID batch-resolves users. Missing IDs are silently absent from
	// the result — callers that care must check membership.
	GetUsersByID(ctx context.Context, ids []string) (map[string]*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	Links(ctx context.Context, userID string) ([]model.Link, error)
	ReplaceLinks(ctx context.Context, userID string, links []model.Link) error
}

// ConnectionRepository owns the follow graph: the edge table plus the
// denormalized counters on both endpoints.
type ConnectionRepository interface {
	// CreateFollow inserts the edge and bumps both counters in one
	// transaction. Returns created=false (and changes nothing) when the edge
	// already exists, so a double-click can never double-increment.
	CreateFollow(ctx context.Context, followerID, followeeID string) (created bool, err error)
	// DeleteFollow removes the edge and decrements both counters in one
	// transaction. Removing a missing edge is a no-op (removed=false).
	DeleteFollow(ctx context.Context, followerID, followeeID string) (removed bool, err error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]model.UserSummary, error)
	Following(ctx context.Context, userID string) ([]model.UserSummary, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	// SuggestedUsers returns up to limit users excluding userID and anyone
	// userID already follows, most-followed first.
	SuggestedUsers(ctx context.Context, userID string, limit int) ([]model.UserSummary, error)
}

// SubscriptionRepository owns per-content-item watch edges.
type SubscriptionRepository interface {
	// CreateSubscription returns created=false when the (user, content) pair
	// is already subscribed.
	CreateSubscription(ctx context.Context, sub *model.Subscription) (created bool, err error)
	DeleteSubscription(ctx context.Context, userID, contentID string) (removed bool, err error)
	IsSubscribed(ctx context.Context, userID, contentID string) (bool, error)
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.Subscription, error)
}

// NotificationRepository stores notification records and their read state.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// ListForUser returns social notifications (contact submissions excluded),
	// newest first.
	ListForUser(ctx context.Context, userID string, opts ListOptions) ([]model.Notification, error)
	// ListContactInbox returns only contact form submissions, newest first.
	ListContactInbox(ctx context.Context, userID string, opts ListOptions) ([]model.Notification, error)
	// UnreadCount counts unread social notifications; contact submissions are
	// excluded from the badge.
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// PostRepository stores posts and like edges.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	// ListByAuthors returns the newest posts whose author is in authorIDs,
	// capped at limit. This is the feed aggregator's batch query.
	ListByAuthors(ctx context.Context, authorIDs []string, limit int) ([]model.Post, error)
	// CreateLike / DeleteLike flip the like edge and maintain like_count in
	// the same transaction, mirroring the follow counter discipline.
	CreateLike(ctx context.Context, postID, userID string) (created bool, err error)
	DeleteLike(ctx context.Context, postID, userID string) (removed bool, err error)
	// LikedSet reports which of postIDs the user has liked, as a membership set.
	LikedSet(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

// EventRepository stores events and RSVP edges.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	CreateRSVP(ctx context.Context, eventID, userID string) (created bool, err error)
	DeleteRSVP(ctx context.Context, eventID, userID string) (removed bool, err error)
}
