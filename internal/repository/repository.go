// Package repository orchestrates the offline-first destination sync:
// per-category fetch-vs-cache decisions, stale fallbacks, and the
// local-wins favorite contract.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lostintravel/travelsync/internal/destination"
)

// searchRemoteThreshold is the local hit count below which an online
// search also queries the remote catalog.
const searchRemoteThreshold = 5

// Store defines the durable cache operations the repository needs.
type Store interface {
	GetCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error)
	GetByID(ctx context.Context, id string) (*destination.Destination, error)
	Search(ctx context.Context, query string) ([]destination.Destination, error)
	UpsertMany(ctx context.Context, ds []destination.Destination) error
	ReplaceCategory(ctx context.Context, cat destination.Category, ds []destination.Destination) error
	SetFavorite(ctx context.Context, id string, fav bool) error
	Clear(ctx context.Context) error
	WatchFavorites(ctx context.Context) (<-chan []destination.Destination, error)
}

// MetaStore defines the cache-freshness bookkeeping.
type MetaStore interface {
	IsExpired(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
}

// Fetcher defines the remote catalog operations.
type Fetcher interface {
	FetchCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error)
	FetchSearch(ctx context.Context, query string) ([]destination.Destination, error)
	FetchByID(ctx context.Context, id string) (*destination.Destination, error)
	PushFavorite(ctx context.Context, id string, fav bool) error
}

// Connectivity is the advisory reachability check polled before each sync
// decision.
type Connectivity interface {
	Available(ctx context.Context) bool
}

// Repository reconciles the remote catalog with the local cache. It holds
// no state beyond its collaborators; every decision is made per call.
type Repository struct {
	store   Store
	meta    MetaStore
	fetcher Fetcher
	net     Connectivity
	log     *slog.Logger
}

// NewRepository constructs a Repository with all required collaborators.
func NewRepository(store Store, meta MetaStore, fetcher Fetcher, net Connectivity, log *slog.Logger) *Repository {
	return &Repository{store: store, meta: meta, fetcher: fetcher, net: net, log: log}
}

// persist saves a freshly fetched category: flagged categories replace
// their flag set atomically, the unscoped catalog plain-upserts. Both
// paths stamp the category's metadata key.
func (r *Repository) persist(ctx context.Context, cat destination.Category, ds []destination.Destination) error {
	var err error
	if cat == destination.All {
		err = r.store.UpsertMany(ctx, ds)
	} else {
		err = r.store.ReplaceCategory(ctx, cat, ds)
	}
	if err != nil {
		return storageErr(err)
	}

	if err := r.meta.Put(ctx, cat.MetadataKey()); err != nil {
		return storageErr(err)
	}
	return nil
}

// fetchAndPersist performs one fetch-and-save cycle for cat and returns
// the fresh list.
func (r *Repository) fetchAndPersist(ctx context.Context, cat destination.Category) ([]destination.Destination, error) {
	fresh, err := r.fetcher.FetchCategory(ctx, cat)
	if err != nil {
		return nil, mapRemote(err)
	}
	if err := r.persist(ctx, cat, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// GetCategory returns the destinations for cat, fetching from the remote
// when the cache is expired and the network is up, and otherwise serving
// the cache. A fetch failure is swallowed whenever a non-empty cached
// fallback exists; the caller cannot tell stale data from fresh.
func (r *Repository) GetCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error) {
	expired, err := r.meta.IsExpired(ctx, cat.MetadataKey())
	if err != nil {
		return nil, storageErr(err)
	}
	online := r.net.Available(ctx)

	if online && expired {
		fresh, fetchErr := r.fetchAndPersist(ctx, cat)
		if fetchErr == nil {
			return fresh, nil
		}
		if e, ok := AsError(fetchErr); ok && e.Kind == Storage {
			return nil, fetchErr
		}

		cached, cacheErr := r.store.GetCategory(ctx, cat)
		if cacheErr != nil {
			return nil, storageErr(cacheErr)
		}
		if len(cached) > 0 {
			r.log.Warn("fetch failed, serving cached data", "category", cat, "err", fetchErr)
			return cached, nil
		}
		return nil, fetchErr
	}

	cached, err := r.store.GetCategory(ctx, cat)
	if err != nil {
		return nil, storageErr(err)
	}

	if len(cached) == 0 && online {
		// Freshness is ignored when there is literally nothing to show.
		return r.fetchAndPersist(ctx, cat)
	}
	if len(cached) == 0 {
		return nil, &Error{Kind: NoCachedData, Err: fmt.Errorf("no cached %s destinations and device is offline", cat)}
	}

	return cached, nil
}

// GetDestinations returns the unscoped catalog.
func (r *Repository) GetDestinations(ctx context.Context) ([]destination.Destination, error) {
	return r.GetCategory(ctx, destination.All)
}

// GetByID returns one destination, serving the cached record when present
// and fetching otherwise. A cache miss while offline is NotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*destination.Destination, error) {
	d, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if d != nil {
		return d, nil
	}

	if !r.net.Available(ctx) {
		return nil, &Error{Kind: NotFound, Err: fmt.Errorf("destination %s not cached and device is offline", id)}
	}

	fetched, err := r.fetcher.FetchByID(ctx, id)
	if err != nil {
		return nil, mapRemote(err)
	}
	if err := r.store.UpsertMany(ctx, []destination.Destination{*fetched}); err != nil {
		return nil, storageErr(err)
	}
	return fetched, nil
}

// Search queries the local cache first and, when online with fewer than
// searchRemoteThreshold local hits, also the remote. Remote results are
// persisted and supersede local ones; a remote failure falls back to any
// local hits before surfacing.
func (r *Repository) Search(ctx context.Context, query string) ([]destination.Destination, error) {
	local, err := r.store.Search(ctx, query)
	if err != nil {
		return nil, storageErr(err)
	}

	if !r.net.Available(ctx) || len(local) >= searchRemoteThreshold {
		return local, nil
	}

	rem, fetchErr := r.fetcher.FetchSearch(ctx, query)
	if fetchErr != nil {
		if len(local) > 0 {
			r.log.Warn("remote search failed, using local results", "query", query, "err", fetchErr)
			return local, nil
		}
		return nil, mapRemote(fetchErr)
	}

	if err := r.persist(ctx, destination.All, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// Refresh fetches cat unconditionally, bypassing the freshness policy.
// It requires connectivity and never masks a failure with cached data.
func (r *Repository) Refresh(ctx context.Context, cat destination.Category) error {
	if !r.net.Available(ctx) {
		return &Error{Kind: Network, Err: errors.New("no internet connection")}
	}

	if _, err := r.fetchAndPersist(ctx, cat); err != nil {
		return err
	}
	return nil
}

// RefreshAll refreshes every category concurrently. The first failure is
// returned; the other categories still run to completion or cancellation.
func (r *Repository) RefreshAll(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, cat := range destination.Categories {
		cat := cat
		g.Go(func() error {
			if err := r.Refresh(gCtx, cat); err != nil {
				return fmt.Errorf("refreshing %s: %w", cat, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// ToggleFavorite flips the favorite flag of id and persists it locally,
// then best-effort pushes the new flag to the remote. The local write is
// authoritative: a remote failure is logged and discarded, never surfaced.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	d, err := r.store.GetByID(ctx, id)
	if err != nil {
		return false, storageErr(err)
	}
	if d == nil {
		return false, &Error{Kind: NotFound, Err: fmt.Errorf("destination %s not found", id)}
	}

	fav := !d.IsFavorite
	if err := r.store.SetFavorite(ctx, id, fav); err != nil {
		return false, storageErr(err)
	}

	if r.net.Available(ctx) {
		if err := r.fetcher.PushFavorite(ctx, id, fav); err != nil {
			r.log.Warn("favorite remote sync failed, local state kept", "id", id, "favorite", fav, "err", err)
		}
	}

	return fav, nil
}

// Favorites returns a live stream of the full favorites list, re-emitted
// after every store mutation until ctx is canceled.
func (r *Repository) Favorites(ctx context.Context) (<-chan []destination.Destination, error) {
	ch, err := r.store.WatchFavorites(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return ch, nil
}

// ClearCache deletes all cached destinations and every category's
// metadata record. Idempotent.
func (r *Repository) ClearCache(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return storageErr(err)
	}
	for _, key := range destination.MetadataKeys() {
		if err := r.meta.Delete(ctx, key); err != nil {
			return storageErr(err)
		}
	}
	return nil
}
