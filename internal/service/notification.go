// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Every service receives repository INTERFACES (not the concrete sqlite.DB),
// so tests can substitute in-memory fakes and the services never import SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// ErrNotifyFailed marks an operation whose primary effect succeeded but whose
// follow-up notification could not be recorded. A follow that lands while its
// new_follower notification fails is still a follow — callers must NOT roll
// back the primary effect, but they get to know the notification was lost.
var ErrNotifyFailed = errors.New("notification delivery failed")

// Notifier is the slice of NotificationService the other services depend on.
// Depending on the one-method interface (not the whole service) keeps the
// emitters trivially fakeable in tests.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, typ model.NotificationType, actorID string, entity model.Entity) error
}

// Pagination defaults for notification lists.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NotificationService records and reads notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		logger:        logger,
	}
}

var _ Notifier = (*NotificationService)(nil)

// Notify records a notification addressed to recipientID.
//
// The type must belong to the closed enum; contact form submissions are the
// only type allowed to omit the actor. Failures are returned to the caller —
// never swallowed — so the triggering action can decide what to surface.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, typ model.NotificationType, actorID string, entity model.Entity) error {
	if recipientID == "" {
		return apperror.ValidationFailed("recipientId", "notification recipient is required")
	}
	if !model.ValidNotificationType(typ) {
		return apperror.ValidationFailed("type", fmt.Sprintf("unknown notification type %q", typ))
	}
	if actorID == "" && typ != model.NotifContactSubmission {
		return apperror.ValidationFailed("actorId", fmt.Sprintf("notification type %q requires an actor", typ))
	}

	n := &model.Notification{
		RecipientID: recipientID,
		Type:        typ,
		ActorID:     actorID,
		Entity:      entity,
	}

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Error("failed to record notification",
			slog.String("recipientID", recipientID),
			slog.String("type", string(typ)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("recording notification: %w", err)
	}

	return nil
}

// ListWithActors returns the user's social notifications joined with each
// actor's public card, newest first.
//
// Actor resolution is batched: one query for all distinct actor IDs on the
// page, not a lookup per notification. A notification whose actor account
// has been deleted is dropped from the result — rendering "null followed
// you" helps nobody.
func (s *NotificationService) ListWithActors(ctx context.Context, userID string, limit, offset int) ([]model.NotificationWithActor, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	notifs, err := s.notifications.ListForUser(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	actorIDs := make([]string, 0, len(notifs))
	seen := map[string]bool{}
	for _, n := range notifs {
		if n.ActorID != "" && !seen[n.ActorID] {
			seen[n.ActorID] = true
			actorIDs = append(actorIDs, n.ActorID)
		}
	}

	actors, err := s.users.GetUsersByID(ctx, actorIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving notification actors: %w", err)
	}

	result := make([]model.NotificationWithActor, 0, len(notifs))
	for _, n := range notifs {
		actor, ok := actors[n.ActorID]
		if !ok {
			// Deleted account — drop the entry rather than render null fields.
			continue
		}
		result = append(result, model.NotificationWithActor{
			Notification: n,
			Actor:        actor.Summary(),
		})
	}

	return result, nil
}

// ContactInbox returns the user's contact form submissions, newest first.
// These never appear in ListWithActors or the unread badge.
func (s *NotificationService) ContactInbox(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	notifs, err := s.notifications.ListContactInbox(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing contact inbox: %w", err)
	}
	return notifs, nil
}

// UnreadCount returns the badge number: unread social notifications only.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification to read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "notification ID is required")
	}
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread notification for the user. Idempotent.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// SubmitContact records a contact form submission from an unauthenticated
// visitor to the profile owner. There is no actor — the sender identifies
// themselves only by the name and email typed into the form, which travel in
// the entity title.
func (s *NotificationService) SubmitContact(ctx context.Context, recipientUsername, senderName, senderEmail, message string) error {
	senderName = strings.TrimSpace(senderName)
	message = strings.TrimSpace(message)

	if senderName == "" {
		return apperror.ValidationFailed("name", "sender name is required")
	}
	if message == "" {
		return apperror.ValidationFailed("message", "message is required")
	}

	recipient, err := s.users.GetUserByUsername(ctx, recipientUsername)
	if err != nil {
		return err
	}

	entity := model.Entity{
		Type:  "contact",
		Title: fmt.Sprintf("%s <%s>: %s", senderName, strings.TrimSpace(senderEmail), message),
	}

	if err := s.Notify(ctx, recipient.ID, model.NotifContactSubmission, "", entity); err != nil {
		return err
	}

	s.logger.Info("contact form submitted",
		slog.String("recipientID", recipient.ID),
		slog.String("sender", senderName),
	)
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
