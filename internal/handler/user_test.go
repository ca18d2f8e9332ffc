package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/service"
)

func TestUserHandler_GetProfile(t *testing.T) {
	t.Run("anonymous viewer", func(t *testing.T) {
		api := newTestAPI(t)
		alice, _ := api.register("alice")

		rr := api.do(http.MethodGet, "/api/users/alice", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var profile service.Profile
		decodeBody(t, rr, &profile)
		assert.Equal(t, alice.ID, profile.User.ID)
		assert.False(t, profile.IsFollowing)
	})

	t.Run("viewer who follows sees isFollowing", func(t *testing.T) {
		api := newTestAPI(t)
		alice, _ := api.register("alice")
		_, bobCookie := api.register("bob")
		api.follow(bobCookie, alice.ID)

		rr := api.do(http.MethodGet, "/api/users/alice", bobCookie, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var profile service.Profile
		decodeBody(t, rr, &profile)
		assert.True(t, profile.IsFollowing)
		assert.Equal(t, 1, profile.User.FollowerCount)
	})

	t.Run("unknown username", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(http.MethodGet, "/api/users/ghost", nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	api := newTestAPI(t)
	_, cookie := api.register("alice")

	rr := api.do(http.MethodPut, "/api/me/profile", cookie, map[string]string{
		"displayName": "Alice L.",
		"bio":         "links below",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var user model.User
	decodeBody(t, rr, &user)
	assert.Equal(t, "Alice L.", user.DisplayName)
	assert.Equal(t, "links below", user.Bio)

	// The change must be visible on the public profile too.
	rr = api.do(http.MethodGet, "/api/users/alice", nil, nil)
	var profile service.Profile
	decodeBody(t, rr, &profile)
	assert.Equal(t, "Alice L.", profile.User.DisplayName)
}

func TestUserHandler_ReplaceLinks(t *testing.T) {
	api := newTestAPI(t)
	_, cookie := api.register("alice")

	rr := api.do(http.MethodPut, "/api/me/links", cookie, []map[string]string{
		{"title": "Blog", "url": "https://blog.example.com"},
		{"title": "Shop", "url": "https://shop.example.com"},
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var links []model.Link
	decodeBody(t, rr, &links)
	if assert.Len(t, links, 2) {
		assert.Equal(t, 0, links[0].Position)
		assert.Equal(t, "Blog", links[0].Title)
		assert.Equal(t, 1, links[1].Position)
	}

	t.Run("rejects bad url", func(t *testing.T) {
		rr := api.do(http.MethodPut, "/api/me/links", cookie, []map[string]string{
			{"title": "Oops", "url": "not a url"},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUserHandler_FollowGraph(t *testing.T) {
	t.Run("follow notifies and shows up in lists", func(t *testing.T) {
		api := newTestAPI(t)
		alice, aliceCookie := api.register("alice")
		bob, bobCookie := api.register("bob")

		rr := api.do(http.MethodPost, "/api/users/"+alice.ID+"/follow", bobCookie, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var result map[string]bool
		decodeBody(t, rr, &result)
		assert.True(t, result["following"])

		// Alice's follower list now contains bob.
		rr = api.do(http.MethodGet, "/api/users/"+alice.ID+"/followers", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var followers []model.UserSummary
		decodeBody(t, rr, &followers)
		if assert.Len(t, followers, 1) {
			assert.Equal(t, bob.ID, followers[0].ID)
		}

		// Bob's following list contains alice.
		rr = api.do(http.MethodGet, "/api/users/"+bob.ID+"/following", nil, nil)
		var following []model.UserSummary
		decodeBody(t, rr, &following)
		if assert.Len(t, following, 1) {
			assert.Equal(t, alice.ID, following[0].ID)
		}

		// Alice got a new_follower notification.
		rr = api.do(http.MethodGet, "/api/notifications/unread", aliceCookie, nil)
		var unread map[string]int
		decodeBody(t, rr, &unread)
		assert.Equal(t, 1, unread["unread"])
	})

	t.Run("cannot follow yourself", func(t *testing.T) {
		api := newTestAPI(t)
		alice, cookie := api.register("alice")

		rr := api.do(http.MethodPost, "/api/users/"+alice.ID+"/follow", cookie, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unfollow is idempotent", func(t *testing.T) {
		api := newTestAPI(t)
		alice, _ := api.register("alice")
		_, bobCookie := api.register("bob")
		api.follow(bobCookie, alice.ID)

		for range 2 {
			rr := api.do(http.MethodDelete, "/api/users/"+alice.ID+"/follow", bobCookie, nil)
			assert.Equal(t, http.StatusOK, rr.Code)
		}

		rr := api.do(http.MethodGet, "/api/users/"+alice.ID+"/followers", nil, nil)
		var followers []model.UserSummary
		decodeBody(t, rr, &followers)
		assert.Empty(t, followers)
	})

	t.Run("repeat follow does not renotify", func(t *testing.T) {
		api := newTestAPI(t)
		alice, aliceCookie := api.register("alice")
		_, bobCookie := api.register("bob")

		api.follow(bobCookie, alice.ID)
		api.follow(bobCookie, alice.ID)

		rr := api.do(http.MethodGet, "/api/notifications/unread", aliceCookie, nil)
		var unread map[string]int
		decodeBody(t, rr, &unread)
		assert.Equal(t, 1, unread["unread"])
	})
}

func TestUserHandler_Suggested(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.register("alice")
	_, bobCookie := api.register("bob")
	carol, _ := api.register("carol")

	api.follow(bobCookie, alice.ID)

	rr := api.do(http.MethodGet, "/api/users/suggested", bobCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var suggested []model.UserSummary
	decodeBody(t, rr, &suggested)

	// Carol is suggested; alice (already followed) and bob (self) are not.
	if assert.Len(t, suggested, 1) {
		assert.Equal(t, carol.ID, suggested[0].ID)
	}
}
