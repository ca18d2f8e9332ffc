package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/bydbio/internal/apperror"
	"github.com/sakif/bydbio/internal/model"
)

func newSubscriptionFixture(t *testing.T) (*SubscriptionService, *fakeUserRepo, *fakeSubscriptionRepo, *recordingNotifier) {
	t.Helper()
	users := newFakeUserRepo()
	subs := newFakeSubscriptionRepo()
	notifier := &recordingNotifier{}
	svc := NewSubscriptionService(subs, users, notifier, testLogger())
	return svc, users, subs, notifier
}

func TestToggle_SubscribeNotifiesAuthor(t *testing.T) {
	svc, users, _, notifier := newSubscriptionFixture(t)
	alice := users.addUser("alice")
	bob := users.addUser("bob")

	subscribed, err := svc.Toggle(context.Background(), alice, model.Subscription{
		ContentID:   "job-1",
		ContentType: model.ContentJobs,
		AuthorID:    bob,
		Title:       "Backend Engineer",
	})
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !subscribed {
		t.Error("Toggle() = false, want subscribed")
	}

	notifier.requireSent(t, 1)
	sent := notifier.sent[0]
	if sent.RecipientID != bob {
		t.Errorf("recipient = %q, want author %q", sent.RecipientID, bob)
	}
	if sent.Type != model.NotifNewContentFollower {
		t.Errorf("type = %q, want %q", sent.Type, model.NotifNewContentFollower)
	}
	if sent.Entity.ID != "job-1" || sent.Entity.Type != "jobs" {
		t.Errorf("entity = %+v, want jobs/job-1", sent.Entity)
	}
}

func TestToggle_UnsubscribeIsSilent(t *testing.T) {
	svc, users, subs, notifier := newSubscriptionFixture(t)
	alice := users.addUser("alice")
	bob := users.addUser("bob")

	sub := model.Subscription{ContentID: "offer-9", ContentType: model.ContentOffers, AuthorID: bob}
	if _, err := svc.Toggle(context.Background(), alice, sub); err != nil {
		t.Fatalf("setup: Toggle() error = %v", err)
	}

	subscribed, err := svc.Toggle(context.Background(), alice, sub)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if subscribed {
		t.Error("second Toggle() = true, want unsubscribed")
	}

	if isSub, _ := subs.IsSubscribed(context.Background(), alice, "offer-9"); isSub {
		t.Error("subscription should be gone after the second toggle")
	}

	// Only the subscribe notified.
	notifier.requireSent(t, 1)
}

func TestToggle_SelfSubscriptionDoesNotNotify(t *testing.T) {
	svc, users, _, notifier := newSubscriptionFixture(t)
	bob := users.addUser("bob")

	subscribed, err := svc.Toggle(context.Background(), bob, model.Subscription{
		ContentID:   "promo-3",
		ContentType: model.ContentPromoPages,
		AuthorID:    bob,
	})
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !subscribed {
		t.Error("Toggle() = false, want subscribed")
	}
	notifier.requireSent(t, 0)
}

func TestToggle_UnknownContentType(t *testing.T) {
	svc, users, _, _ := newSubscriptionFixture(t)
	alice := users.addUser("alice")

	_, err := svc.Toggle(context.Background(), alice, model.Subscription{
		ContentID:   "x",
		ContentType: "podcasts",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestToggle_MissingContentID(t *testing.T) {
	svc, users, _, _ := newSubscriptionFixture(t)
	alice := users.addUser("alice")

	_, err := svc.Toggle(context.Background(), alice, model.Subscription{
		ContentType: model.ContentEvents,
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestToggle_NotificationFailureKeepsSubscription(t *testing.T) {
	svc, users, subs, notifier := newSubscriptionFixture(t)
	alice := users.addUser("alice")
	bob := users.addUser("bob")
	notifier.fail = errors.New("notification store down")

	subscribed, err := svc.Toggle(context.Background(), alice, model.Subscription{
		ContentID:   "listing-7",
		ContentType: model.ContentListings,
		AuthorID:    bob,
	})
	if !errors.Is(err, ErrNotifyFailed) {
		t.Fatalf("error = %v, want ErrNotifyFailed", err)
	}
	if !subscribed {
		t.Error("Toggle() = false, want subscribed despite notification failure")
	}
	if isSub, _ := subs.IsSubscribed(context.Background(), alice, "listing-7"); !isSub {
		t.Error("subscription must survive the notification failure")
	}
}

func TestListForUser(t *testing.T) {
	svc, users, _, _ := newSubscriptionFixture(t)
	alice := users.addUser("alice")
	bob := users.addUser("bob")

	for _, contentID := range []string{"job-1", "job-2"} {
		if _, err := svc.Toggle(context.Background(), alice, model.Subscription{
			ContentID:   contentID,
			ContentType: model.ContentJobs,
			AuthorID:    bob,
		}); err != nil {
			t.Fatalf("setup: Toggle(%s) error = %v", contentID, err)
		}
	}

	list, err := svc.ListForUser(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListForUser() returned %d subscriptions, want 2", len(list))
	}
}
