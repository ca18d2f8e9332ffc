package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// DefaultSuggestedLimit caps the suggested-users list when the caller
// doesn't ask for a specific size.
const DefaultSuggestedLimit = 10

// ConnectionService owns the follow graph business rules.
//
// The repository guarantees the hard invariants (edge uniqueness, counters
// moving in lockstep with edges, atomically); this layer adds the softer
// rules: no self-follows, notification fan-out on new edges, and profile
// snapshot publication so watchers see counter changes.
type ConnectionService struct {
	connections repository.ConnectionRepository
	users       repository.UserRepository
	notifier    Notifier
	watch       *ProfileWatch // may be nil when nothing watches profiles
	logger      *slog.Logger
}

// NewConnectionService creates a ConnectionService. watch may be nil.
func NewConnectionService(
	connections repository.ConnectionRepository,
	users repository.UserRepository,
	notifier Notifier,
	watch *ProfileWatch,
	logger *slog.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		users:       users,
		notifier:    notifier,
		watch:       watch,
		logger:      logger,
	}
}

// Follow records followerID → followeeID.
//
// Self-follows are rejected before any write. A repeat follow is a silent
// no-op: the edge already exists, counters don't move, and no duplicate
// notification goes out.
//
// NOTIFICATION FAILURE SEMANTICS:
// The follow and its new_follower notification are independent side effects,
// not one transaction. If the notification write fails AFTER the edge landed,
// we do not undo the follow; we return an error wrapping ErrNotifyFailed so
// the caller knows the state it's in. errors.Is(err, ErrNotifyFailed) == true
// means "followed, but the followee wasn't told".
func (s *ConnectionService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return apperror.ValidationFailed("followeeId", "you cannot follow yourself")
	}
	if followerID == "" || followeeID == "" {
		return apperror.ValidationFailed("followeeId", "both user IDs are required")
	}

	follower, err := s.users.GetUserByID(ctx, followerID)
	if err != nil {
		return err
	}

	created, err := s.connections.CreateFollow(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("creating follow: %w", err)
	}
	if !created {
		return nil // already following — double-clicks are harmless
	}

	s.logger.Info("user followed",
		slog.String("followerID", followerID),
		slog.String("followeeID", followeeID),
	)

	s.publishProfiles(ctx, followerID, followeeID)

	entity := model.Entity{Type: "user", ID: followerID, Title: follower.Username}
	if err := s.notifier.Notify(ctx, followeeID, model.NotifNewFollower, followerID, entity); err != nil {
		s.logger.Warn("follow recorded but notification failed",
			slog.String("followerID", followerID),
			slog.String("followeeID", followeeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %s", ErrNotifyFailed, err)
	}

	return nil
}

// Unfollow removes the edge. Unfollowing someone never followed is a no-op,
// and unfollows never notify anyone.
func (s *ConnectionService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return apperror.ValidationFailed("followeeId", "you cannot unfollow yourself")
	}

	removed, err := s.connections.DeleteFollow(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("deleting follow: %w", err)
	}
	if !removed {
		return nil
	}

	s.logger.Info("user unfollowed",
		slog.String("followerID", followerID),
		slog.String("followeeID", followeeID),
	)

	s.publishProfiles(ctx, followerID, followeeID)
	return nil
}

// Followers returns the public cards of everyone following userID.
func (s *ConnectionService) Followers(ctx context.Context, userID string) ([]model.UserSummary, error) {
	followers, err := s.connections.Followers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing followers: %w", err)
	}
	return followers, nil
}

// Following returns the public cards of everyone userID follows.
func (s *ConnectionService) Following(ctx context.Context, userID string) ([]model.UserSummary, error) {
	following, err := s.connections.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing following: %w", err)
	}
	return following, nil
}

// FollowingIDs returns just the IDs userID follows — the feed's author set.
func (s *ConnectionService) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.connections.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing following ids: %w", err)
	}
	return ids, nil
}

// SuggestedUsers returns up to limit users to follow, excluding self and
// anyone already followed.
func (s *ConnectionService) SuggestedUsers(ctx context.Context, userID string, limit int) ([]model.UserSummary, error) {
	if limit <= 0 {
		limit = DefaultSuggestedLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	users, err := s.connections.SuggestedUsers(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing suggested users: %w", err)
	}
	return users, nil
}

// publishProfiles pushes fresh snapshots of both endpoints to any watchers,
// so live profile views see follower counters move. Best-effort: a read
// failure here only costs the push, never the follow itself.
func (s *ConnectionService) publishProfiles(ctx context.Context, userIDs ...string) {
	if s.watch == nil {
		return
	}
	for _, id := range userIDs {
		user, err := s.users.GetUserByID(ctx, id)
		if err != nil {
			s.logger.Warn("skipping profile snapshot publish",
				slog.String("userID", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.watch.Publish(*user)
	}
}
