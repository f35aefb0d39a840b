package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/encorehq/encore/internal/client/httpx"
	"github.com/encorehq/encore/internal/common"
)

// NominatimGeocoder implements Geocoder against a Nominatim-compatible HTTP
// endpoint. It rides the shared transport, so rate-limit responses get the
// same bounded retry treatment as the other outbound calls.
type NominatimGeocoder struct {
	baseURL string
	hc      *httpx.Client
}

func NewNominatimGeocoder(baseURL string, hc *httpx.Client) *NominatimGeocoder {
	if hc == nil {
		hc = httpx.NewClient(nil)
	}
	return &NominatimGeocoder{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (g *NominatimGeocoder) newRequest(path string, query url.Values) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

type forwardResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *NominatimGeocoder) Forward(ctx context.Context, address string) (Coordinate, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	var results []forwardResult
	if err := g.hc.DoJSON(ctx, g.newRequest("/search", query), &results); err != nil {
		return Coordinate{}, fmt.Errorf("forward geocode: %w", err)
	}
	if len(results) == 0 {
		return Coordinate{}, fmt.Errorf("%w: no geocode result for %q", common.ErrNotFound, address)
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return Coordinate{}, fmt.Errorf("%w: bad coordinate in geocode result", common.ErrDecoding)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

type reverseResult struct {
	Address struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		County      string `json:"county"`
		State       string `json:"state"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (g *NominatimGeocoder) Reverse(ctx context.Context, c Coordinate) (Place, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	query.Set("format", "json")

	var result reverseResult
	if err := g.hc.DoJSON(ctx, g.newRequest("/reverse", query), &result); err != nil {
		return Place{}, fmt.Errorf("reverse geocode: %w", err)
	}

	a := result.Address
	// prefer the city, fall back to coarser locality levels
	city := a.City
	for _, alt := range []string{a.Town, a.Village, a.County} {
		if city != "" {
			break
		}
		city = alt
	}
	if city == "" && a.State == "" && a.CountryCode == "" {
		return Place{}, fmt.Errorf("%w: no placemark for %.4f,%.4f", common.ErrNotFound, c.Lat, c.Lon)
	}
	return Place{
		City:        city,
		StateCode:   a.State,
		CountryCode: strings.ToUpper(a.CountryCode),
	}, nil
}
