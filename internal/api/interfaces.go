package api

import (
	"context"

	"github.com/lostintravel/travelsync/internal/destination"
)

// SyncRepository defines the synchronizer operations needed by handlers.
type SyncRepository interface {
	GetDestinations(ctx context.Context) ([]destination.Destination, error)
	GetCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error)
	GetByID(ctx context.Context, id string) (*destination.Destination, error)
	Search(ctx context.Context, query string) ([]destination.Destination, error)
	Refresh(ctx context.Context, cat destination.Category) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Favorites(ctx context.Context) (<-chan []destination.Destination, error)
	ClearCache(ctx context.Context) error
}
