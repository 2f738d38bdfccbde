package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lostintravel/travelsync/internal/destination"
)

// Querier abstracts the subset of pgxpool.Pool used by Store.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the durable cache for destination records. It is the only
// writer of the destinations table; all mutation goes through its methods,
// and every mutation re-emits the current favorites list to watchers.
type Store struct {
	q   Querier
	log *slog.Logger

	watchers *favoritesHub
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool, log *slog.Logger) *Store {
	return NewStoreWithQuerier(pool, log)
}

// NewStoreWithQuerier constructs a Store with a custom Querier (for tests).
func NewStoreWithQuerier(q Querier, log *slog.Logger) *Store {
	return &Store{q: q, log: log, watchers: newFavoritesHub()}
}

const destinationColumns = `id, name, city, country, description, image_url, rating, price_level, tags,
		is_favorite, is_popular, is_recommended, is_featured, last_updated`

// categoryColumn maps a flagged category to its column. The unscoped All
// category has no flag column.
func categoryColumn(cat destination.Category) (string, bool) {
	switch cat {
	case destination.Popular:
		return "is_popular", true
	case destination.Recommended:
		return "is_recommended", true
	case destination.Featured:
		return "is_featured", true
	}
	return "", false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDestination(row rowScanner) (*destination.Destination, error) {
	var d destination.Destination
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.City,
		&d.Country,
		&d.Description,
		&d.ImageURL,
		&d.Rating,
		&d.PriceLevel,
		&d.Tags,
		&d.IsFavorite,
		&d.IsPopular,
		&d.IsRecommended,
		&d.IsFeatured,
		&d.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) list(ctx context.Context, q string, args ...any) ([]destination.Destination, error) {
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying destinations: %w", err)
	}
	defer rows.Close()

	var results []destination.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning destination row: %w", err)
		}
		results = append(results, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating destination rows: %w", err)
	}

	return results, nil
}

// GetAll returns every stored destination.
func (s *Store) GetAll(ctx context.Context) ([]destination.Destination, error) {
	return s.list(ctx, `SELECT `+destinationColumns+` FROM destinations ORDER BY name`)
}

// GetCategory returns the destinations carrying the given category flag.
// The All category returns the full catalog.
func (s *Store) GetCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error) {
	col, ok := categoryColumn(cat)
	if !ok {
		return s.GetAll(ctx)
	}
	return s.list(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE `+col+` ORDER BY name`)
}

// GetFavorites returns the destinations currently flagged as favorites.
func (s *Store) GetFavorites(ctx context.Context) ([]destination.Destination, error) {
	return s.list(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE is_favorite ORDER BY name`)
}

// GetByID retrieves one destination. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*destination.Destination, error) {
	row := s.q.QueryRow(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE id = $1`, id)

	d, err := scanDestination(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying destination %s: %w", id, err)
	}
	return d, nil
}

// Search matches name, city, and country case-insensitively by substring.
func (s *Store) Search(ctx context.Context, query string) ([]destination.Destination, error) {
	pattern := "%" + query + "%"
	return s.list(ctx, `
		SELECT `+destinationColumns+`
		FROM destinations
		WHERE name ILIKE $1 OR city ILIKE $1 OR country ILIKE $1
		ORDER BY name`, pattern)
}

// execer covers both a pool-level Querier and a pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// upsert inserts or replaces one destination by id. Core attributes are
// replaced wholesale; is_favorite and category flags of existing rows are
// left untouched. When flagCol is non-empty the named flag is additionally
// set true on both insert and update.
func upsert(ctx context.Context, q execer, d destination.Destination, flagCol string) error {
	insertSQL := `
		INSERT INTO destinations (id, name, city, country, description, image_url, rating, price_level, tags, %s last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, %s NOW())
		ON CONFLICT (id) DO UPDATE
		SET name        = EXCLUDED.name,
		    city        = EXCLUDED.city,
		    country     = EXCLUDED.country,
		    description = EXCLUDED.description,
		    image_url   = EXCLUDED.image_url,
		    rating      = EXCLUDED.rating,
		    price_level = EXCLUDED.price_level,
		    tags        = EXCLUDED.tags,
		    %s last_updated = NOW()
	`

	var sql string
	if flagCol == "" {
		sql = fmt.Sprintf(insertSQL, "", "", "")
	} else {
		sql = fmt.Sprintf(insertSQL, flagCol+",", "TRUE,", flagCol+" = TRUE,")
	}

	if _, err := q.Exec(ctx, sql,
		d.ID, d.Name, d.City, d.Country, d.Description, d.ImageURL, d.Rating, d.PriceLevel, d.Tags,
	); err != nil {
		return fmt.Errorf("upserting destination %s: %w", d.ID, err)
	}
	return nil
}

// UpsertMany inserts or replaces the given destinations by id without
// touching any category flag.
func (s *Store) UpsertMany(ctx context.Context, ds []destination.Destination) error {
	for _, d := range ds {
		if err := upsert(ctx, s.q, d, ""); err != nil {
			return err
		}
	}
	s.notifyFavorites(ctx)
	return nil
}

// ReplaceCategory atomically clears the category flag on all rows, then
// upserts ds with that flag set. Both phases run in one transaction so a
// cancellation mid-sequence never leaves the flag cleared with no
// replacement rows.
func (s *Store) ReplaceCategory(ctx context.Context, cat destination.Category, ds []destination.Destination) error {
	col, ok := categoryColumn(cat)
	if !ok {
		return fmt.Errorf("category %q has no flag to replace", cat)
	}

	tx, err := s.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning category replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE destinations SET `+col+` = FALSE WHERE `+col); err != nil {
		return fmt.Errorf("resetting %s flags: %w", cat, err)
	}

	for _, d := range ds {
		if err := upsert(ctx, tx, d, col); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing category replace: %w", err)
	}

	s.notifyFavorites(ctx)
	return nil
}

// SetFavorite updates only the favorite flag of the given destination.
func (s *Store) SetFavorite(ctx context.Context, id string, fav bool) error {
	if _, err := s.q.Exec(ctx, `UPDATE destinations SET is_favorite = $2 WHERE id = $1`, id, fav); err != nil {
		return fmt.Errorf("updating favorite flag for %s: %w", id, err)
	}
	s.notifyFavorites(ctx)
	return nil
}

// Clear deletes all destination rows. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM destinations`); err != nil {
		return fmt.Errorf("clearing destinations: %w", err)
	}
	s.notifyFavorites(ctx)
	return nil
}
