package store

import (
	"context"
	"sync"

	"github.com/lostintravel/travelsync/internal/destination"
)

// favoritesHub fans the current favorites list out to subscribers.
// Channels are buffered with capacity one and coalesce: a slow subscriber
// always sees the latest snapshot, never a backlog.
type favoritesHub struct {
	mu   sync.Mutex
	subs map[chan []destination.Destination]struct{}
}

func newFavoritesHub() *favoritesHub {
	return &favoritesHub{subs: make(map[chan []destination.Destination]struct{})}
}

// subscribe registers a new watcher primed with the initial snapshot.
// Priming happens before registration so the first delivery can never be
// reordered behind a concurrent broadcast.
func (h *favoritesHub) subscribe(initial []destination.Destination) chan []destination.Destination {
	ch := make(chan []destination.Destination, 1)
	ch <- initial
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *favoritesHub) unsubscribe(ch chan []destination.Destination) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *favoritesHub) broadcast(favs []destination.Destination) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		// Drop the stale snapshot, if any, then deliver the new one.
		select {
		case <-ch:
		default:
		}
		ch <- favs
	}
}

// WatchFavorites returns a channel that delivers the full favorites list
// immediately and again after every store mutation. The subscription is
// detached and the channel closed when ctx is canceled.
func (s *Store) WatchFavorites(ctx context.Context) (<-chan []destination.Destination, error) {
	favs, err := s.GetFavorites(ctx)
	if err != nil {
		return nil, err
	}

	ch := s.watchers.subscribe(favs)

	go func() {
		<-ctx.Done()
		s.watchers.unsubscribe(ch)
	}()

	return ch, nil
}

// notifyFavorites re-reads the favorites list and pushes it to all
// watchers. Called after every mutation; a read failure here only skips
// the emission, it never fails the mutation that triggered it.
func (s *Store) notifyFavorites(ctx context.Context) {
	s.watchers.mu.Lock()
	empty := len(s.watchers.subs) == 0
	s.watchers.mu.Unlock()
	if empty {
		return
	}

	favs, err := s.GetFavorites(ctx)
	if err != nil {
		s.log.Warn("favorites watch refresh failed", "err", err)
		return
	}
	s.watchers.broadcast(favs)
}
