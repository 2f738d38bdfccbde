package destination

import "time"

// Destination is a stored travel location record. Core attributes are
// replaced wholesale on every refresh; the category flags and IsFavorite
// are owned by separate write paths and survive refreshes of other
// categories.
type Destination struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url"`
	Rating        float64   `json:"rating"`
	PriceLevel    string    `json:"price_level"`
	Tags          []string  `json:"tags,omitempty"`
	IsFavorite    bool      `json:"is_favorite"`
	IsPopular     bool      `json:"is_popular"`
	IsRecommended bool      `json:"is_recommended"`
	IsFeatured    bool      `json:"is_featured"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Category names a flagged destination subset, each independently cached
// and refreshed. All is the unscoped catalog.
type Category string

const (
	All         Category = "all"
	Popular     Category = "popular"
	Recommended Category = "recommended"
	Featured    Category = "featured"
)

// Categories lists every refreshable category.
var Categories = []Category{All, Popular, Recommended, Featured}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	switch c {
	case All, Popular, Recommended, Featured:
		return true
	}
	return false
}

// MetadataKey returns the cache-metadata key under which this category's
// last refresh time is recorded.
func (c Category) MetadataKey() string {
	switch c {
	case Popular:
		return "popular_destinations"
	case Recommended:
		return "recommended_destinations"
	case Featured:
		return "featured_destinations"
	default:
		return "destinations"
	}
}

// MetadataKeys returns the metadata keys of all categories, in the order
// of Categories. Used when clearing the cache.
func MetadataKeys() []string {
	keys := make([]string, 0, len(Categories))
	for _, c := range Categories {
		keys = append(keys, c.MetadataKey())
	}
	return keys
}
