package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bydbio/internal/model"
)

func TestSubscriptionHandler_Toggle(t *testing.T) {
	t.Run("subscribe notifies the content author", func(t *testing.T) {
		api := newTestAPI(t)
		alice, aliceCookie := api.register("alice")
		bob, bobCookie := api.register("bob")

		rr := api.do(http.MethodPost, "/api/subscriptions/toggle", bobCookie, map[string]string{
			"contentId":   "job-1",
			"contentType": "jobs",
			"authorId":    alice.ID,
			"title":       "Backend Engineer",
		})
		assert.Equal(t, http.StatusOK, rr.Code)

		var result map[string]bool
		decodeBody(t, rr, &result)
		assert.True(t, result["subscribed"])

		rr = api.do(http.MethodGet, "/api/notifications", aliceCookie, nil)
		var list []model.NotificationWithActor
		decodeBody(t, rr, &list)
		if assert.Len(t, list, 1) {
			assert.Equal(t, model.NotifNewContentFollower, list[0].Notification.Type)
			assert.Equal(t, bob.ID, list[0].Actor.ID)
			assert.Equal(t, "job-1", list[0].Notification.Entity.ID)
			assert.Equal(t, "jobs", list[0].Notification.Entity.Type)
		}
	})

	t.Run("second toggle unsubscribes silently", func(t *testing.T) {
		api := newTestAPI(t)
		alice, aliceCookie := api.register("alice")
		_, bobCookie := api.register("bob")

		body := map[string]string{
			"contentId":   "offer-9",
			"contentType": "offers",
			"authorId":    alice.ID,
			"title":       "Spring discount",
		}
		api.do(http.MethodPost, "/api/subscriptions/toggle", bobCookie, body)
		rr := api.do(http.MethodPost, "/api/subscriptions/toggle", bobCookie, body)
		assert.Equal(t, http.StatusOK, rr.Code)

		var result map[string]bool
		decodeBody(t, rr, &result)
		assert.False(t, result["subscribed"])

		// One notification from the original subscribe, none from the toggle off.
		rr = api.do(http.MethodGet, "/api/notifications/unread", aliceCookie, nil)
		var unread map[string]int
		decodeBody(t, rr, &unread)
		assert.Equal(t, 1, unread["unread"])
	})

	t.Run("unknown content type rejected", func(t *testing.T) {
		api := newTestAPI(t)
		_, cookie := api.register("alice")

		rr := api.do(http.MethodPost, "/api/subscriptions/toggle", cookie, map[string]string{
			"contentId":   "x-1",
			"contentType": "podcasts",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSubscriptionHandler_List(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.register("alice")
	_, bobCookie := api.register("bob")

	for _, sub := range []map[string]string{
		{"contentId": "job-1", "contentType": "jobs", "authorId": alice.ID, "title": "Backend Engineer"},
		{"contentId": "event-2", "contentType": "events", "authorId": alice.ID, "title": "Launch party"},
	} {
		rr := api.do(http.MethodPost, "/api/subscriptions/toggle", bobCookie, sub)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := api.do(http.MethodGet, "/api/subscriptions", bobCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var subs []model.Subscription
	decodeBody(t, rr, &subs)
	assert.Len(t, subs, 2)

	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ContentID)
	}
	assert.ElementsMatch(t, []string{"job-1", "event-2"}, ids)
}
