package model

import "time"

// Privacy controls who may see a post in listings and feeds.
type Privacy string

const (
	// PrivacyPublic — visible to everyone.
	PrivacyPublic Privacy = "public"
	// PrivacyFollowers — visible to the author and the author's followers.
	PrivacyFollowers Privacy = "followers"
	// PrivacyPrivate — visible to the author only.
	PrivacyPrivate Privacy = "private"
)

// ValidPrivacy reports whether p is one of the known privacy levels.
func ValidPrivacy(p Privacy) bool {
	switch p {
	case PrivacyPublic, PrivacyFollowers, PrivacyPrivate:
		return true
	}
	return false
}

// Post is a piece of content published by a user.
//
// LikeCount is denormalized the same way user follower counts are: maintained
// in the transaction that flips the like edge, never recomputed at read time.
type Post struct {
	ID        string    `json:"id"        db:"id"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	Body      string    `json:"body"      db:"body"`
	Privacy   Privacy   `json:"privacy"   db:"privacy"`
	LikeCount int       `json:"likeCount" db:"like_count"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// FeedItem is a request-scoped projection: a post joined with its author's
// public card and decorated with the viewer's like state. It is never
// persisted — the feed is recomputed on every request.
type FeedItem struct {
	Post    Post        `json:"post"`
	Author  UserSummary `json:"author"`
	IsLiked bool        `json:"isLiked"`
}

// FeedPage is the result of one feed aggregation.
//
// Degraded reports that one or more author batches failed to load and the
// page was assembled from the batches that survived. Callers can surface it
// as a "some posts may be missing" banner instead of an error page.
type FeedPage struct {
	Items    []FeedItem `json:"items"`
	Degraded bool       `json:"degraded"`
}
