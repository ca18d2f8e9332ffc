package model

import "time"

// ContentType enumerates the kinds of content items a user can watch.
// An unrecognized type is a validation error, never silently ignored.
type ContentType string

const (
	ContentJobs       ContentType = "jobs"
	ContentListings   ContentType = "listings"
	ContentOffers     ContentType = "offers"
	ContentEvents     ContentType = "events"
	ContentPromoPages ContentType = "promo_pages"
)

// ValidContentType reports whether t is one of the known content types.
func ValidContentType(t ContentType) bool {
	switch t {
	case ContentJobs, ContentListings, ContentOffers, ContentEvents, ContentPromoPages:
		return true
	}
	return false
}

// Subscription is a directed edge from a user to a specific content item —
// "watching" a job posting rather than following its author.
//
// AuthorID is carried on the edge so the new-subscriber notification can be
// addressed without re-fetching the content item; Title is cached for the
// same reason (display in the notification list).
type Subscription struct {
	UserID      string      `json:"userId"      db:"user_id"`
	ContentID   string      `json:"contentId"   db:"content_id"`
	ContentType ContentType `json:"contentType" db:"content_type"`
	AuthorID    string      `json:"authorId"    db:"author_id"`
	Title       string      `json:"title"       db:"title"`
	CreatedAt   time.Time   `json:"createdAt"   db:"created_at"`
}
