// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account and its public profile.
//
// Identity can come from two places: email+password registration, or GitHub
// OAuth. We always generate our own internal string ID (xid) so our primary
// keys are never tied to a third party's numbering scheme.
//
// WHY DENORMALIZED COUNTERS?
// FollowerCount and FollowingCount could be computed with COUNT(*) over the
// connections table on every profile view, but profile views vastly outnumber
// follow/unfollow writes. We maintain the counters inside the same transaction
// that touches the edge, so they can never drift from the edge table.
type User struct {
	ID             string    `json:"id"             db:"id"`
	Username       string    `json:"username"       db:"username"` // unique, URL-safe
	Email          string    `json:"email"          db:"email"`
	PasswordHash   string    `json:"-"              db:"password_hash"` // never serialized
	GitHubID       int64     `json:"-"              db:"github_id"`     // 0 when not linked
	DisplayName    string    `json:"displayName"    db:"display_name"`
	Bio            string    `json:"bio"            db:"bio"`
	AvatarURL      string    `json:"avatarUrl"      db:"avatar_url"`
	FollowerCount  int       `json:"followerCount"  db:"follower_count"`
	FollowingCount int       `json:"followingCount" db:"following_count"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// Summary is the public slice of a User that other users are allowed to see.
// Follower lists, notification actors and feed authors all resolve to this —
// never to a full User, which carries the email and password hash.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is a user's public card: enough to render an avatar + name link.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Link is one entry in a user's ordered list of outbound links.
// Position is the 0-based display order; the repository rewrites the whole
// list on update, so positions are always dense.
type Link struct {
	Position int    `json:"position" db:"position"`
	Title    string `json:"title"    db:"title"`
	URL      string `json:"url"      db:"url"`
}
