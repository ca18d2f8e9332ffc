package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

const (
	// DefaultFeedChunkSize is how many followed authors each backend query
	// covers. SQLite handles large IN lists fine, but the chunked shape keeps
	// query plans predictable and bounds the damage of any single failure.
	DefaultFeedChunkSize = 30

	// FeedChunkFetchLimit caps the posts pulled per chunk. Each chunk is
	// already sorted newest-first by the repository, so anything past this
	// many can never make the final page.
	FeedChunkFetchLimit = 50

	// FeedPageSize is the size of the assembled feed page.
	FeedPageSize = 50
)

// FeedService assembles a user's home feed with fan-out-on-read: split the
// followed-author set into chunks, query each chunk concurrently, then merge.
//
// A failed chunk does not fail the feed. Surviving chunks are merged and the
// page is marked Degraded so the client can say "some posts may be missing"
// instead of showing an error. Only when EVERY chunk fails does the call
// return an error.
type FeedService struct {
	posts       repository.PostRepository
	connections repository.ConnectionRepository
	users       repository.UserRepository
	chunkSize   int
	logger      *slog.Logger
}

func NewFeedService(
	posts repository.PostRepository,
	connections repository.ConnectionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		posts:       posts,
		connections: connections,
		users:       users,
		chunkSize:   DefaultFeedChunkSize,
		logger:      logger,
	}
}

// SetChunkSize overrides the fan-out chunk size. For tests.
func (s *FeedService) SetChunkSize(n int) {
	if n > 0 {
		s.chunkSize = n
	}
}

// Home builds the feed page for userID: posts by followed authors plus the
// user's own, newest first, at most FeedPageSize items.
func (s *FeedService) Home(ctx context.Context, userID string) (model.FeedPage, error) {
	followingIDs, err := s.connections.FollowingIDs(ctx, userID)
	if err != nil {
		return model.FeedPage{}, fmt.Errorf("listing followed authors: %w", err)
	}

	// The user's own posts belong in their feed too.
	authorIDs := append(followingIDs, userID)

	posts, degraded, err := s.fetchChunked(ctx, authorIDs)
	if err != nil {
		return model.FeedPage{}, err
	}

	posts = dedupePosts(posts)
	posts = s.filterVisible(ctx, userID, followingIDs, posts)

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if len(posts) > FeedPageSize {
		posts = posts[:FeedPageSize]
	}

	items, err := s.join(ctx, userID, posts)
	if err != nil {
		return model.FeedPage{}, err
	}

	return model.FeedPage{Items: items, Degraded: degraded}, nil
}

// fetchChunked splits authorIDs into chunks and queries them concurrently.
// Returns the surviving posts and whether any chunk was lost.
func (s *FeedService) fetchChunked(ctx context.Context, authorIDs []string) ([]model.Post, bool, error) {
	chunks := chunkIDs(authorIDs, s.chunkSize)
	if len(chunks) == 0 {
		return nil, false, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		posts    []model.Post
		failures int
		lastErr  error
	)

	for _, chunk := range chunks {
		wg.Add(1)
		go func(ids []string) {
			defer wg.Done()
			chunkPosts, err := s.posts.ListByAuthors(ctx, ids, FeedChunkFetchLimit)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				s.logger.Warn("feed chunk failed",
					slog.Int("chunkAuthors", len(ids)),
					slog.String("error", err.Error()),
				)
				return
			}
			posts = append(posts, chunkPosts...)
		}(chunk)
	}
	wg.Wait()

	if failures == len(chunks) {
		return nil, false, fmt.Errorf("fetching feed: all %d chunks failed: %w", len(chunks), lastErr)
	}
	return posts, failures > 0, nil
}

// filterVisible drops posts the viewer may not see. Inside the feed the
// viewer follows every author by construction, so followers-only posts from
// followed authors pass; private posts pass only for the viewer's own.
func (s *FeedService) filterVisible(ctx context.Context, viewerID string, followingIDs []string, posts []model.Post) []model.Post {
	followed := make(map[string]bool, len(followingIDs))
	for _, id := range followingIDs {
		followed[id] = true
	}

	visible := posts[:0]
	for _, p := range posts {
		switch p.Privacy {
		case model.PrivacyPublic:
			visible = append(visible, p)
		case model.PrivacyFollowers:
			if p.AuthorID == viewerID || followed[p.AuthorID] {
				visible = append(visible, p)
			}
		case model.PrivacyPrivate:
			if p.AuthorID == viewerID {
				visible = append(visible, p)
			}
		}
	}
	return visible
}

// join attaches author cards and the viewer's like marks to the final page.
// Posts whose author has since been deleted are dropped rather than shown
// with a hole where the byline goes.
func (s *FeedService) join(ctx context.Context, viewerID string, posts []model.Post) ([]model.FeedItem, error) {
	if len(posts) == 0 {
		return []model.FeedItem{}, nil
	}

	authorIDs := make([]string, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	authors, err := s.users.GetUsersByID(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving feed authors: %w", err)
	}
	liked, err := s.posts.LikedSet(ctx, viewerID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving feed likes: %w", err)
	}

	items := make([]model.FeedItem, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			continue
		}
		items = append(items, model.FeedItem{
			Post:    p,
			Author:  author.Summary(),
			IsLiked: liked[p.ID],
		})
	}
	return items, nil
}

func dedupePosts(posts []model.Post) []model.Post {
	seen := make(map[string]bool, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
