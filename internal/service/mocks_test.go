package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Each fake implements one repository interface with maps and slices.
// Instead of talking to SQLite, tests get microsecond-fast storage they can
// inspect directly, and error injection hooks (the fail* fields) to simulate
// conditions that are hard to trigger with a real database.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- users ---

type fakeUserRepo struct {
	users  map[string]*model.User // by ID
	links  map[string][]model.Link
	nextID int
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]*model.User),
		links: make(map[string][]model.Link),
	}
}

// addUser seeds a user and returns its ID.
func (f *fakeUserRepo) addUser(username string) string {
	f.nextID++
	id := fmt.Sprintf("user-%d", f.nextID)
	f.users[id] = &model.User{
		ID:          id,
		Username:    username,
		DisplayName: username,
		CreatedAt:   time.Now(),
	}
	return id
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
		if user.Email != "" && u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID != 0 && u.GitHubID == user.GitHubID {
			u.Email = user.Email
			u.DisplayName = user.DisplayName
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetUsersByID(_ context.Context, ids []string) (map[string]*model.User, error) {
	result := make(map[string]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			copied := *u
			result[id] = &copied
		}
	}
	return result, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	*stored = *user
	return nil
}

func (f *fakeUserRepo) Links(_ context.Context, userID string) ([]model.Link, error) {
	return append([]model.Link(nil), f.links[userID]...), nil
}

func (f *fakeUserRepo) ReplaceLinks(_ context.Context, userID string, links []model.Link) error {
	f.links[userID] = append([]model.Link(nil), links...)
	return nil
}

// --- connections ---

type fakeConnectionRepo struct {
	users *fakeUserRepo // counters live on the user records
	edges map[string]bool
}

var _ repository.ConnectionRepository = (*fakeConnectionRepo)(nil)

func newFakeConnectionRepo(users *fakeUserRepo) *fakeConnectionRepo {
	return &fakeConnectionRepo{users: users, edges: make(map[string]bool)}
}

func edgeKey(followerID, followeeID string) string {
	return followerID + "→" + followeeID
}

func (f *fakeConnectionRepo) CreateFollow(_ context.Context, followerID, followeeID string) (bool, error) {
	if _, ok := f.users.users[followeeID]; !ok {
		return false, apperror.NotFound("user", followeeID)
	}
	key := edgeKey(followerID, followeeID)
	if f.edges[key] {
		return false, nil
	}
	f.edges[key] = true
	f.users.users[followerID].FollowingCount++
	f.users.users[followeeID].FollowerCount++
	return true, nil
}

func (f *fakeConnectionRepo) DeleteFollow(_ context.Context, followerID, followeeID string) (bool, error) {
	key := edgeKey(followerID, followeeID)
	if !f.edges[key] {
		return false, nil
	}
	delete(f.edges, key)
	f.users.users[followerID].FollowingCount--
	f.users.users[followeeID].FollowerCount--
	return true, nil
}

func (f *fakeConnectionRepo) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	return f.edges[edgeKey(followerID, followeeID)], nil
}

func (f *fakeConnectionRepo) Followers(_ context.Context, userID string) ([]model.UserSummary, error) {
	var result []model.UserSummary
	for id, u := range f.users.users {
		if f.edges[edgeKey(id, userID)] {
			result = append(result, u.Summary())
		}
	}
	sortSummaries(result)
	return result, nil
}

func (f *fakeConnectionRepo) Following(_ context.Context, userID string) ([]model.UserSummary, error) {
	var result []model.UserSummary
	for id, u := range f.users.users {
		if f.edges[edgeKey(userID, id)] {
			result = append(result, u.Summary())
		}
	}
	sortSummaries(result)
	return result, nil
}

func (f *fakeConnectionRepo) FollowingIDs(_ context.Context, userID string) ([]string, error) {
	var ids []string
	for id := range f.users.users {
		if f.edges[edgeKey(userID, id)] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeConnectionRepo) SuggestedUsers(_ context.Context, userID string, limit int) ([]model.UserSummary, error) {
	var result []model.UserSummary
	for id, u := range f.users.users {
		if id == userID || f.edges[edgeKey(userID, id)] {
			continue
		}
		result = append(result, u.Summary())
	}
	sortSummaries(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sortSummaries(s []model.UserSummary) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}

// --- subscriptions ---

type fakeSubscriptionRepo struct {
	subs map[string]*model.Subscription // userID+contentID
}

var _ repository.SubscriptionRepository = (*fakeSubscriptionRepo)(nil)

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*model.Subscription)}
}

func subKey(userID, contentID string) string { return userID + "|" + contentID }

func (f *fakeSubscriptionRepo) CreateSubscription(_ context.Context, sub *model.Subscription) (bool, error) {
	key := subKey(sub.UserID, sub.ContentID)
	if _, ok := f.subs[key]; ok {
		return false, nil
	}
	sub.CreatedAt = time.Now()
	stored := *sub
	f.subs[key] = &stored
	return true, nil
}

func (f *fakeSubscriptionRepo) DeleteSubscription(_ context.Context, userID, contentID string) (bool, error) {
	key := subKey(userID, contentID)
	if _, ok := f.subs[key]; !ok {
		return false, nil
	}
	delete(f.subs, key)
	return true, nil
}

func (f *fakeSubscriptionRepo) IsSubscribed(_ context.Context, userID, contentID string) (bool, error) {
	_, ok := f.subs[subKey(userID, contentID)]
	return ok, nil
}

func (f *fakeSubscriptionRepo) SubscriptionsForUser(_ context.Context, userID string) ([]model.Subscription, error) {
	var result []model.Subscription
	for _, s := range f.subs {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ContentID < result[j].ContentID })
	return result, nil
}

// --- notifications ---

type fakeNotificationRepo struct {
	notifications []*model.Notification
	nextID        int
	failCreate    error // when set, CreateNotification returns this
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	n.ID = fmt.Sprintf("notif-%d", f.nextID)
	n.CreatedAt = time.Now()
	stored := *n
	f.notifications = append(f.notifications, &stored)
	return nil
}

func (f *fakeNotificationRepo) ListForUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.Notification, error) {
	return f.list(userID, opts, false), nil
}

func (f *fakeNotificationRepo) ListContactInbox(_ context.Context, userID string, opts repository.ListOptions) ([]model.Notification, error) {
	return f.list(userID, opts, true), nil
}

func (f *fakeNotificationRepo) list(userID string, opts repository.ListOptions, contact bool) []model.Notification {
	var result []model.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- { // newest first
		n := f.notifications[i]
		if n.RecipientID != userID {
			continue
		}
		if (n.Type == model.NotifContactSubmission) != contact {
			continue
		}
		result = append(result, *n)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.RecipientID == userID && !n.Read && n.Type != model.NotifContactSubmission {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id string) error {
	for _, n := range f.notifications {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for _, n := range f.notifications {
		if n.RecipientID == userID {
			n.Read = true
		}
	}
	return nil
}

// --- posts ---

type fakePostRepo struct {
	posts      map[string]*model.Post
	likes      map[string]bool // postID|userID
	nextID     int
	failAuthor string // ListByAuthors fails when its batch contains this author
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts: make(map[string]*model.Post),
		likes: make(map[string]bool),
	}
}

// addPost seeds a post with an explicit creation time and returns its ID.
func (f *fakePostRepo) addPost(authorID string, privacy model.Privacy, createdAt time.Time) string {
	f.nextID++
	id := fmt.Sprintf("post-%d", f.nextID)
	f.posts[id] = &model.Post{
		ID:        id,
		AuthorID:  authorID,
		Body:      "post " + id,
		Privacy:   privacy,
		CreatedAt: createdAt,
	}
	return id
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *model.Post) error {
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.CreatedAt = time.Now()
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) ListByAuthors(_ context.Context, authorIDs []string, limit int) ([]model.Post, error) {
	inBatch := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		if f.failAuthor != "" && id == f.failAuthor {
			return nil, fmt.Errorf("fake: injected chunk failure")
		}
		inBatch[id] = true
	}

	var result []model.Post
	for _, p := range f.posts {
		if inBatch[p.AuthorID] {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func likeKey(postID, userID string) string { return postID + "|" + userID }

func (f *fakePostRepo) CreateLike(_ context.Context, postID, userID string) (bool, error) {
	post, ok := f.posts[postID]
	if !ok {
		return false, apperror.NotFound("post", postID)
	}
	key := likeKey(postID, userID)
	if f.likes[key] {
		return false, nil
	}
	f.likes[key] = true
	post.LikeCount++
	return true, nil
}

func (f *fakePostRepo) DeleteLike(_ context.Context, postID, userID string) (bool, error) {
	key := likeKey(postID, userID)
	if !f.likes[key] {
		return false, nil
	}
	delete(f.likes, key)
	if post, ok := f.posts[postID]; ok {
		post.LikeCount--
	}
	return true, nil
}

func (f *fakePostRepo) LikedSet(_ context.Context, userID string, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, postID := range postIDs {
		if f.likes[likeKey(postID, userID)] {
			result[postID] = true
		}
	}
	return result, nil
}

// --- events ---

type fakeEventRepo struct {
	events map[string]*model.Event
	rsvps  map[string]bool // eventID|userID
	nextID int
}

var _ repository.EventRepository = (*fakeEventRepo)(nil)

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[string]*model.Event),
		rsvps:  make(map[string]bool),
	}
}

func (f *fakeEventRepo) CreateEvent(_ context.Context, event *model.Event) error {
	f.nextID++
	event.ID = fmt.Sprintf("event-%d", f.nextID)
	event.CreatedAt = time.Now()
	stored := *event
	f.events[event.ID] = &stored
	return nil
}

func (f *fakeEventRepo) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	result := *e
	return &result, nil
}

func (f *fakeEventRepo) CreateRSVP(_ context.Context, eventID, userID string) (bool, error) {
	key := eventID + "|" + userID
	if f.rsvps[key] {
		return false, nil
	}
	f.rsvps[key] = true
	return true, nil
}

func (f *fakeEventRepo) DeleteRSVP(_ context.Context, eventID, userID string) (bool, error) {
	key := eventID + "|" + userID
	if !f.rsvps[key] {
		return false, nil
	}
	delete(f.rsvps, key)
	return true, nil
}

// --- notifier ---

// recordingNotifier captures emitted notifications for assertions, and can
// be told to fail so tests can exercise the ErrNotifyFailed path.
type recordingNotifier struct {
	sent []sentNotification
	fail error
}

type sentNotification struct {
	RecipientID string
	Type        model.NotificationType
	ActorID     string
	Entity      model.Entity
}

var _ Notifier = (*recordingNotifier)(nil)

func (r *recordingNotifier) Notify(_ context.Context, recipientID string, typ model.NotificationType, actorID string, entity model.Entity) error {
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, sentNotification{
		RecipientID: recipientID,
		Type:        typ,
		ActorID:     actorID,
		Entity:      entity,
	})
	return nil
}

// requireSent asserts exactly n notifications went out.
func (r *recordingNotifier) requireSent(t *testing.T, n int) {
	t.Helper()
	if len(r.sent) != n {
		t.Fatalf("notifications sent = %d, want %d", len(r.sent), n)
	}
}
