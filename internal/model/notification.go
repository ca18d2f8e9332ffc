package model

import "time"

// NotificationType tags what happened. The set is closed: the repository
// rejects anything not listed here.
type NotificationType string

const (
	// NotifNewFollower — someone followed the recipient.
	NotifNewFollower NotificationType = "new_follower"
	// NotifNewLike — someone liked one of the recipient's posts.
	NotifNewLike NotificationType = "new_like"
	// NotifEventRSVP — someone RSVP'd to one of the recipient's events.
	NotifEventRSVP NotificationType = "event_rsvp"
	// NotifNewContentFollower — someone subscribed to one of the recipient's
	// content items (job, listing, offer, event, promo page).
	NotifNewContentFollower NotificationType = "new_content_follower"
	// NotifContactSubmission — an unauthenticated visitor sent the recipient
	// a message through the profile contact form. Carries no actor and is
	// kept out of the social notification list and the unread badge; it only
	// shows up in the dedicated contact inbox.
	NotifContactSubmission NotificationType = "contact_form_submission"
)

// ValidNotificationType reports whether t belongs to the closed set.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotifNewFollower, NotifNewLike, NotifEventRSVP,
		NotifNewContentFollower, NotifContactSubmission:
		return true
	}
	return false
}

// Entity is an optional reference carried by a notification for deep-linking:
// "someone liked ⟨your post⟩" needs to know which post.
type Entity struct {
	Type  string `json:"type,omitempty"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// Notification is addressed to exactly one recipient.
//
// ActorID is empty for contact form submissions (the sender is anonymous).
// Read is one-directional: once true it never goes back to false, and there
// is no delete path — notifications only accumulate.
type Notification struct {
	ID          string           `json:"id"          db:"id"`
	RecipientID string           `json:"recipientId" db:"recipient_id"`
	Type        NotificationType `json:"type"        db:"type"`
	ActorID     string           `json:"actorId,omitempty" db:"actor_id"`
	Entity      Entity           `json:"entity,omitempty"`
	Read        bool             `json:"read"        db:"read"`
	CreatedAt   time.Time        `json:"createdAt"   db:"created_at"`
}

// NotificationWithActor pairs a notification with its actor's public card,
// ready for display. Notifications whose actor account has since been deleted
// are filtered out before this struct is ever built.
type NotificationWithActor struct {
	Notification Notification `json:"notification"`
	Actor        UserSummary  `json:"actor"`
}
