package model

import "time"

// Event is a content item users can RSVP to.
type Event struct {
	ID        string    `json:"id"        db:"id"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	Title     string    `json:"title"     db:"title"`
	StartsAt  time.Time `json:"startsAt"  db:"starts_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
