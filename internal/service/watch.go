package service

import (
	"sync"

	"github.com/sakif/bydbio/internal/model"
)

// ProfileWatch is an in-process hub for live profile updates. A watcher
// subscribes to one user's profile and receives a fresh snapshot whenever
// that profile changes — edits, follower counter moves, and so on.
//
// DELIVERY CONTRACT: latest-wins. Every subscriber channel is buffered with
// capacity one; if a snapshot is still sitting unread when the next one
// arrives, the stale one is dropped and replaced. A watcher that reads
// slowly always gets the newest state, never a backlog, and a publisher
// never blocks on a slow watcher.
type ProfileWatch struct {
	mu      sync.Mutex
	watched map[string]map[*profileSub]struct{} // userID → subscribers
}

type profileSub struct {
	ch chan model.User
}

func NewProfileWatch() *ProfileWatch {
	return &ProfileWatch{
		watched: make(map[string]map[*profileSub]struct{}),
	}
}

// Subscribe registers a watcher on userID's profile. The returned channel
// delivers snapshots until cancel is called; cancel closes the channel and
// is safe to call more than once.
func (w *ProfileWatch) Subscribe(userID string) (<-chan model.User, func()) {
	sub := &profileSub{ch: make(chan model.User, 1)}

	w.mu.Lock()
	subs, ok := w.watched[userID]
	if !ok {
		subs = make(map[*profileSub]struct{})
		w.watched[userID] = subs
	}
	subs[sub] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			if subs, ok := w.watched[userID]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(w.watched, userID)
				}
			}
			w.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish fans a profile snapshot out to that user's watchers. Non-blocking:
// a full subscriber buffer has its stale snapshot replaced with this one.
func (w *ProfileWatch) Publish(user model.User) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for sub := range w.watched[user.ID] {
		select {
		case sub.ch <- user:
		default:
			// Buffer full: evict the stale snapshot, then deliver this one.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- user:
			default:
			}
		}
	}
}

// Watchers reports how many subscriptions are active for userID.
func (w *ProfileWatch) Watchers(userID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched[userID])
}
