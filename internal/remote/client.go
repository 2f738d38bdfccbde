// Package remote talks to the destination catalog API: one GET per
// category, a single attempt per call, and typed failures so the
// synchronizer can decide between fallback and surfacing.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lostintravel/travelsync/internal/destination"
)

const httpTimeout = 10 * time.Second

// Client fetches destination lists from a single base endpoint.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// dto is the wire shape of one destination record. Category and favorite
// flags never travel on category payloads; they are derived locally.
type dto struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Rating      float64  `json:"rating"`
	PriceLevel  string   `json:"price_level"`
	Tags        []string `json:"tags"`
}

func (d dto) toDomain() destination.Destination {
	return destination.Destination{
		ID:          d.ID,
		Name:        d.Name,
		City:        d.City,
		Country:     d.Country,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Rating:      d.Rating,
		PriceLevel:  d.PriceLevel,
		Tags:        d.Tags,
	}
}

func toDomainList(dtos []dto) []destination.Destination {
	out := make([]destination.Destination, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out
}

// classify turns an http.Client transport error into a typed Kind.
func classify(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: Timeout, Err: err}
	}
	return &Error{Kind: Unreachable, Err: err}
}

// do performs one request and decodes the JSON response into dst.
// A nil dst discards the body.
func (c *Client) do(ctx context.Context, method, rawURL string, body, dst any) error {
	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: Malformed, Err: fmt.Errorf("marshaling request body: %w", err)}
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return &Error{Kind: Unreachable, Err: fmt.Errorf("creating request for %s: %w", rawURL, err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classify(fmt.Errorf("%s %s: %w", method, rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind: Server,
			Code: resp.StatusCode,
			Err:  fmt.Errorf("%s %s returned status %d", method, rawURL, resp.StatusCode),
		}
	}

	if dst == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &Error{Kind: Malformed, Err: fmt.Errorf("decoding response from %s: %w", rawURL, err)}
	}

	return nil
}

func (c *Client) fetchList(ctx context.Context, path string) ([]destination.Destination, error) {
	var raw []dto
	if err := c.do(ctx, http.MethodGet, c.baseURL+path, nil, &raw); err != nil {
		return nil, err
	}
	return toDomainList(raw), nil
}

// FetchAll retrieves the full destination catalog.
func (c *Client) FetchAll(ctx context.Context) ([]destination.Destination, error) {
	return c.fetchList(ctx, "/destinations")
}

// FetchPopular retrieves the popular destinations.
func (c *Client) FetchPopular(ctx context.Context) ([]destination.Destination, error) {
	return c.fetchList(ctx, "/destinations/popular")
}

// FetchRecommended retrieves the recommended destinations.
func (c *Client) FetchRecommended(ctx context.Context) ([]destination.Destination, error) {
	return c.fetchList(ctx, "/destinations/recommended")
}

// FetchFeatured retrieves the featured destinations.
func (c *Client) FetchFeatured(ctx context.Context) ([]destination.Destination, error) {
	return c.fetchList(ctx, "/destinations/featured")
}

// FetchCategory dispatches to the fetch operation for cat.
func (c *Client) FetchCategory(ctx context.Context, cat destination.Category) ([]destination.Destination, error) {
	switch cat {
	case destination.Popular:
		return c.FetchPopular(ctx)
	case destination.Recommended:
		return c.FetchRecommended(ctx)
	case destination.Featured:
		return c.FetchFeatured(ctx)
	default:
		return c.FetchAll(ctx)
	}
}

// FetchSearch retrieves destinations matching query.
func (c *Client) FetchSearch(ctx context.Context, query string) ([]destination.Destination, error) {
	return c.fetchList(ctx, "/destinations/search?query="+url.QueryEscape(query))
}

// FetchByID retrieves a single destination record.
func (c *Client) FetchByID(ctx context.Context, id string) (*destination.Destination, error) {
	var raw dto
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/destinations/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	d := raw.toDomain()
	return &d, nil
}

// PushFavorite reports a favorite flag change to the remote. Best-effort:
// the caller treats the local flag as authoritative and only logs a
// failure here.
func (c *Client) PushFavorite(ctx context.Context, id string, fav bool) error {
	body := map[string]bool{"is_favorite": fav}
	return c.do(ctx, http.MethodPut, c.baseURL+"/destinations/"+url.PathEscape(id)+"/favorite", body, nil)
}
