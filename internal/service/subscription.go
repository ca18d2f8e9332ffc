package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// SubscriptionService manages per-content-item subscriptions ("watch this
// job listing / event / offer for updates").
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	notifier      Notifier
	logger        *slog.Logger
}

func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		users:         users,
		notifier:      notifier,
		logger:        logger,
	}
}

// Toggle flips userID's subscription to a content item.
//
// Subscribing notifies the content's author with new_content_follower —
// unless the subscriber IS the author, who doesn't need to hear about
// their own interest. Unsubscribing is always silent. Like Follow, the
// subscription write and the notification are separate effects: a failed
// notification leaves the subscription in place and surfaces as
// ErrNotifyFailed.
func (s *SubscriptionService) Toggle(ctx context.Context, userID string, sub model.Subscription) (subscribed bool, err error) {
	if !model.ValidContentType(sub.ContentType) {
		return false, apperror.ValidationFailed("contentType", fmt.Sprintf("unknown content type %q", sub.ContentType))
	}
	if sub.ContentID == "" {
		return false, apperror.ValidationFailed("contentId", "content ID is required")
	}

	sub.UserID = userID

	existing, err := s.subscriptions.IsSubscribed(ctx, userID, sub.ContentID)
	if err != nil {
		return false, fmt.Errorf("checking subscription: %w", err)
	}

	if existing {
		if _, err := s.subscriptions.DeleteSubscription(ctx, userID, sub.ContentID); err != nil {
			return false, fmt.Errorf("deleting subscription: %w", err)
		}
		s.logger.Info("subscription removed",
			slog.String("userID", userID),
			slog.String("contentID", sub.ContentID),
		)
		return false, nil
	}

	created, err := s.subscriptions.CreateSubscription(ctx, &sub)
	if err != nil {
		return false, fmt.Errorf("creating subscription: %w", err)
	}
	s.logger.Info("subscription created",
		slog.String("userID", userID),
		slog.String("contentID", sub.ContentID),
		slog.String("contentType", string(sub.ContentType)),
	)

	// Races: another request may have created the row between our check and
	// the insert. INSERT OR IGNORE absorbs it; only the winner notifies.
	if !created || sub.AuthorID == "" || sub.AuthorID == userID {
		return true, nil
	}

	entity := model.Entity{Type: string(sub.ContentType), ID: sub.ContentID, Title: sub.Title}
	if err := s.notifier.Notify(ctx, sub.AuthorID, model.NotifNewContentFollower, userID, entity); err != nil {
		s.logger.Warn("subscription recorded but notification failed",
			slog.String("userID", userID),
			slog.String("authorID", sub.AuthorID),
			slog.String("error", err.Error()),
		)
		return true, fmt.Errorf("%w: %s", ErrNotifyFailed, err)
	}

	return true, nil
}

// ListForUser returns everything userID is subscribed to, newest first.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	subs, err := s.subscriptions.SubscriptionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, nil
}
