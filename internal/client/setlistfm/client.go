// Package setlistfm is the client for the concert search provider. It
// shares the retry/backoff transport with the remote gateway and adds the
// provider-specific headers: API key, Accept-Language clamped to the
// provider's supported set, and a client-side rate limit so the unattended
// proximity loop stays inside the provider's request budget.
package setlistfm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/encorehq/encore/internal/client/httpx"
	"golang.org/x/time/rate"
)

const userAgent = "encore/1.0 (+https://github.com/encorehq/encore)"

// SetlistQuery narrows a setlist search. Zero fields are omitted from the
// request.
type SetlistQuery struct {
	ArtistName  string
	CityName    string
	VenueName   string
	StateCode   string
	CountryCode string
	Date        *time.Time
	Page        int
}

// VenueQuery narrows a venue search.
type VenueQuery struct {
	Name      string
	CityName  string
	StateCode string
	Page      int
}

// Client talks to the search provider.
type Client struct {
	baseURL string
	apiKey  string
	locale  string
	hc      *httpx.Client
}

// NewClient builds a Client. preferredLocale is clamped to the provider's
// supported set. When hc is nil a transport with a 2 req/s limiter is used.
func NewClient(baseURL, apiKey, preferredLocale string, hc *httpx.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(nil)
		hc.Limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		locale:  httpx.ClampLocale(preferredLocale),
		hc:      hc,
	}
}

func (c *Client) newRequest(path string, query url.Values) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Language", c.locale)
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("User-Agent", userAgent)
		return req, nil
	}
}

// GetSetlist fetches one setlist by its external id.
func (c *Client) GetSetlist(ctx context.Context, id string) (*Setlist, error) {
	var out Setlist
	if err := c.hc.DoJSON(ctx, c.newRequest("/setlist/"+url.PathEscape(id), nil), &out); err != nil {
		return nil, fmt.Errorf("get setlist %s: %w", id, err)
	}
	return &out, nil
}

// SearchSetlists runs a setlist search. An empty result is not an error.
func (c *Client) SearchSetlists(ctx context.Context, q SetlistQuery) ([]Setlist, error) {
	query := url.Values{}
	query.Set("p", strconv.Itoa(pageOrFirst(q.Page)))
	setIfPresent(query, "artistName", q.ArtistName)
	setIfPresent(query, "cityName", q.CityName)
	setIfPresent(query, "venueName", q.VenueName)
	setIfPresent(query, "stateCode", q.StateCode)
	setIfPresent(query, "countryCode", q.CountryCode)
	if q.Date != nil {
		query.Set("date", q.Date.UTC().Format(eventDateLayout))
	}

	var out listEnvelope
	if err := c.hc.DoJSON(ctx, c.newRequest("/search/setlists", query), &out); err != nil {
		return nil, fmt.Errorf("search setlists: %w", err)
	}
	return out.Setlist, nil
}

// SearchArtists searches artists by name.
func (c *Client) SearchArtists(ctx context.Context, name string, page int) ([]ArtistSummary, error) {
	query := url.Values{}
	query.Set("artistName", name)
	query.Set("p", strconv.Itoa(pageOrFirst(page)))

	var out listEnvelope
	if err := c.hc.DoJSON(ctx, c.newRequest("/search/artists", query), &out); err != nil {
		return nil, fmt.Errorf("search artists: %w", err)
	}
	return out.Artist, nil
}

// SearchVenues searches venues by name or city.
func (c *Client) SearchVenues(ctx context.Context, q VenueQuery) ([]Venue, error) {
	query := url.Values{}
	query.Set("p", strconv.Itoa(pageOrFirst(q.Page)))
	setIfPresent(query, "name", q.Name)
	setIfPresent(query, "cityName", q.CityName)
	setIfPresent(query, "stateCode", q.StateCode)

	var out listEnvelope
	if err := c.hc.DoJSON(ctx, c.newRequest("/search/venues", query), &out); err != nil {
		return nil, fmt.Errorf("search venues: %w", err)
	}
	return out.Venue, nil
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func pageOrFirst(p int) int {
	if p < 1 {
		return 1
	}
	return p
}
