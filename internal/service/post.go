package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// MaxPostLength bounds the post body.
const MaxPostLength = 5000

// PostService owns post CRUD, the privacy gate, and likes.
type PostService struct {
	posts       repository.PostRepository
	connections repository.ConnectionRepository
	notifier    Notifier
	logger      *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	connections repository.ConnectionRepository,
	notifier Notifier,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:       posts,
		connections: connections,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create validates and stores a new post for authorID.
func (s *PostService) Create(ctx context.Context, authorID string, body string, privacy model.Privacy) (*model.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "post body cannot be empty")
	}
	if len(body) > MaxPostLength {
		return nil, apperror.ValidationFailed("body", fmt.Sprintf("post body cannot exceed %d characters", MaxPostLength))
	}
	if privacy == "" {
		privacy = model.PrivacyPublic
	}
	if !model.ValidPrivacy(privacy) {
		return nil, apperror.ValidationFailed("privacy", fmt.Sprintf("unknown privacy level %q", privacy))
	}

	post := &model.Post{
		AuthorID: authorID,
		Body:     body,
		Privacy:  privacy,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("postID", post.ID),
		slog.String("authorID", authorID),
		slog.String("privacy", string(privacy)),
	)
	return post, nil
}

// Get fetches a post, enforcing its privacy against the viewer. viewerID may
// be empty for anonymous readers.
//
// PRIVACY GATE:
//   - public:    anyone
//   - followers: the author and the author's followers
//   - private:   the author only
//
// Hidden posts read as not-found, not forbidden, so the response doesn't
// leak that the post exists.
func (s *PostService) Get(ctx context.Context, viewerID, postID string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	visible, err := s.visibleTo(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperror.NotFound("post", postID)
	}
	return post, nil
}

// Delete removes a post. Only the author may delete it.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return apperror.Forbidden("you can only delete your own posts")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted",
		slog.String("postID", postID),
		slog.String("userID", userID),
	)
	return nil
}

// ToggleLike flips userID's like on a post. Liking notifies the author with
// new_like unless the liker is the author. Unliking is silent.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (liked bool, err error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return false, err
	}
	visible, err := s.visibleTo(ctx, userID, post)
	if err != nil {
		return false, err
	}
	if !visible {
		return false, apperror.NotFound("post", postID)
	}

	likedSet, err := s.posts.LikedSet(ctx, userID, []string{postID})
	if err != nil {
		return false, fmt.Errorf("checking like: %w", err)
	}

	if likedSet[postID] {
		if _, err := s.posts.DeleteLike(ctx, postID, userID); err != nil {
			return false, fmt.Errorf("deleting like: %w", err)
		}
		return false, nil
	}

	created, err := s.posts.CreateLike(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("creating like: %w", err)
	}

	if !created || post.AuthorID == userID {
		return true, nil
	}

	entity := model.Entity{Type: "post", ID: post.ID, Title: excerpt(post.Body, 80)}
	if err := s.notifier.Notify(ctx, post.AuthorID, model.NotifNewLike, userID, entity); err != nil {
		s.logger.Warn("like recorded but notification failed",
			slog.String("userID", userID),
			slog.String("postID", postID),
			slog.String("error", err.Error()),
		)
		return true, fmt.Errorf("%w: %s", ErrNotifyFailed, err)
	}

	return true, nil
}

func (s *PostService) visibleTo(ctx context.Context, viewerID string, post *model.Post) (bool, error) {
	switch post.Privacy {
	case model.PrivacyPublic:
		return true, nil
	case model.PrivacyPrivate:
		return viewerID == post.AuthorID, nil
	case model.PrivacyFollowers:
		if viewerID == post.AuthorID {
			return true, nil
		}
		if viewerID == "" {
			return false, nil
		}
		following, err := s.connections.IsFollowing(ctx, viewerID, post.AuthorID)
		if err != nil {
			return false, fmt.Errorf("checking follow for privacy: %w", err)
		}
		return following, nil
	default:
		return false, nil
	}
}

// excerpt trims s to at most n bytes on a rune boundary, appending an
// ellipsis when truncated.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
