package service

import (
	"testing"

	"github.com/sakif/bydbio/internal/model"
)

func TestProfileWatch_DeliversSnapshot(t *testing.T) {
	watch := NewProfileWatch()
	ch, cancel := watch.Subscribe("user-1")
	defer cancel()

	watch.Publish(model.User{ID: "user-1", DisplayName: "Alice"})

	select {
	case got := <-ch:
		if got.DisplayName != "Alice" {
			t.Errorf("DisplayName = %q, want Alice", got.DisplayName)
		}
	default:
		t.Fatal("expected a snapshot on the channel")
	}
}

func TestProfileWatch_IgnoresOtherUsers(t *testing.T) {
	watch := NewProfileWatch()
	ch, cancel := watch.Subscribe("user-1")
	defer cancel()

	watch.Publish(model.User{ID: "user-2"})

	select {
	case got := <-ch:
		t.Fatalf("received snapshot %+v for a user we don't watch", got)
	default:
	}
}

// TestProfileWatch_LatestWins pins the delivery contract: a slow reader
// never sees a backlog, only the most recent snapshot.
func TestProfileWatch_LatestWins(t *testing.T) {
	watch := NewProfileWatch()
	ch, cancel := watch.Subscribe("user-1")
	defer cancel()

	watch.Publish(model.User{ID: "user-1", FollowerCount: 1})
	watch.Publish(model.User{ID: "user-1", FollowerCount: 2})
	watch.Publish(model.User{ID: "user-1", FollowerCount: 3})

	got := <-ch
	if got.FollowerCount != 3 {
		t.Errorf("FollowerCount = %d, want latest snapshot (3)", got.FollowerCount)
	}

	select {
	case stale := <-ch:
		t.Fatalf("received a second snapshot %+v, want none buffered", stale)
	default:
	}
}

func TestProfileWatch_MultipleSubscribers(t *testing.T) {
	watch := NewProfileWatch()
	ch1, cancel1 := watch.Subscribe("user-1")
	defer cancel1()
	ch2, cancel2 := watch.Subscribe("user-1")
	defer cancel2()

	watch.Publish(model.User{ID: "user-1", FollowerCount: 7})

	for i, ch := range []<-chan model.User{ch1, ch2} {
		select {
		case got := <-ch:
			if got.FollowerCount != 7 {
				t.Errorf("subscriber %d: FollowerCount = %d, want 7", i, got.FollowerCount)
			}
		default:
			t.Errorf("subscriber %d: no snapshot delivered", i)
		}
	}
}

func TestProfileWatch_CancelClosesChannel(t *testing.T) {
	watch := NewProfileWatch()
	ch, cancel := watch.Subscribe("user-1")

	cancel()
	cancel() // safe to call twice

	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	if watch.Watchers("user-1") != 0 {
		t.Errorf("Watchers = %d after cancel, want 0", watch.Watchers("user-1"))
	}

	// Publishing after cancellation must not panic.
	watch.Publish(model.User{ID: "user-1"})
}
