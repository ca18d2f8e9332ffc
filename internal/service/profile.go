package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

const (
	// MaxBioLength bounds the profile bio.
	MaxBioLength = 500
	// MaxProfileLinks bounds the link list on a profile page.
	MaxProfileLinks = 20
)

// Profile is a user card assembled for the profile page: the user record,
// their link list, and the viewer's relationship to them.
type Profile struct {
	User        *model.User  `json:"user"`
	Links       []model.Link `json:"links"`
	IsFollowing bool         `json:"isFollowing"`
}

// ProfileService assembles and edits profile pages. Profile edits fan out to
// ProfileWatch so live viewers see changes without polling.
type ProfileService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	watch       *ProfileWatch
	logger      *slog.Logger
}

func NewProfileService(
	users repository.UserRepository,
	connections repository.ConnectionRepository,
	watch *ProfileWatch,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:       users,
		connections: connections,
		watch:       watch,
		logger:      logger,
	}
}

// GetByUsername assembles the profile page for a username. viewerID may be
// empty for anonymous visitors, in which case IsFollowing is always false.
func (s *ProfileService) GetByUsername(ctx context.Context, viewerID, username string) (*Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	links, err := s.users.Links(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing profile links: %w", err)
	}

	profile := &Profile{User: user, Links: links}
	if viewerID != "" && viewerID != user.ID {
		following, err := s.connections.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("checking follow state: %w", err)
		}
		profile.IsFollowing = following
	}
	return profile, nil
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
}

// Update edits userID's own profile and publishes the new snapshot to
// watchers.
func (s *ProfileService) Update(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	upd.DisplayName = strings.TrimSpace(upd.DisplayName)
	upd.Bio = strings.TrimSpace(upd.Bio)
	if len(upd.Bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio", fmt.Sprintf("bio cannot exceed %d characters", MaxBioLength))
	}
	if upd.AvatarURL != "" {
		if _, err := url.ParseRequestURI(upd.AvatarURL); err != nil {
			return nil, apperror.ValidationFailed("avatarUrl", "avatar URL is not a valid URL")
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = upd.DisplayName
	user.Bio = upd.Bio
	if upd.AvatarURL != "" {
		user.AvatarURL = upd.AvatarURL
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	if s.watch != nil {
		s.watch.Publish(*user)
	}
	return user, nil
}

// ReplaceLinks swaps userID's entire link list in one shot, in the order
// given. The profile editor sends the full list on every save.
func (s *ProfileService) ReplaceLinks(ctx context.Context, userID string, links []model.Link) ([]model.Link, error) {
	if len(links) > MaxProfileLinks {
		return nil, apperror.ValidationFailed("links", fmt.Sprintf("at most %d links allowed", MaxProfileLinks))
	}
	for i := range links {
		links[i].Position = i
		links[i].Title = strings.TrimSpace(links[i].Title)
		if links[i].Title == "" {
			return nil, apperror.ValidationFailed("links", "every link needs a title")
		}
		if _, err := url.ParseRequestURI(links[i].URL); err != nil {
			return nil, apperror.ValidationFailed("links", fmt.Sprintf("link %q has an invalid URL", links[i].Title))
		}
	}

	if err := s.users.ReplaceLinks(ctx, userID, links); err != nil {
		return nil, fmt.Errorf("replacing links: %w", err)
	}
	return links, nil
}
