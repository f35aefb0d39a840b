// Package remote is the typed request/response layer over the remote store's
// HTTP API: generic collection verbs (upsert/select/delete/rpc), the auth
// endpoints, and typed wrappers for the collections the client touches.
//
// Retry/backoff for rate-limited responses lives in the shared transport
// (httpx); this package owns request construction and row typing.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/encorehq/encore/internal/client/httpx"
	"github.com/goccy/go-json"
)

// TokenSource supplies the current access token; empty means anonymous.
// *identity.Session satisfies it.
type TokenSource interface {
	AccessToken() string
}

// Filters restricts an operation to rows matching every key/value equality.
type Filters map[string]any

// Query shapes a select call.
type Query struct {
	Filters Filters `json:"filters,omitempty"`
	Order   string  `json:"order,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

// Gateway talks to the remote store.
type Gateway struct {
	baseURL string
	tokens  TokenSource
	hc      *httpx.Client
}

// NewGateway returns a gateway for the store at baseURL. hc may be nil for
// default transport settings.
func NewGateway(baseURL string, tokens TokenSource, hc *httpx.Client) *Gateway {
	if hc == nil {
		hc = httpx.NewClient(nil)
	}
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens, hc: hc}
}

func (g *Gateway) newRequest(path string, query url.Values, payload any) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		u := g.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		var body []byte
		if payload != nil {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding request: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if token := g.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}
}

// Upsert inserts or updates a row in collection, resolving conflicts on the
// given unique key columns.
func (g *Gateway) Upsert(ctx context.Context, collection string, row any, conflictKeys ...string) error {
	query := url.Values{}
	if len(conflictKeys) > 0 {
		query.Set("on_conflict", strings.Join(conflictKeys, ","))
	}
	return g.hc.DoJSON(ctx, g.newRequest("/db/"+collection+"/upsert", query, row), nil)
}

// Select reads rows from collection into out (a pointer to a slice).
func (g *Gateway) Select(ctx context.Context, collection string, q Query, out any) error {
	return g.hc.DoJSON(ctx, g.newRequest("/db/"+collection+"/select", nil, q), out)
}

// Delete removes the rows of collection matching filters. Identity-scoped
// collections require an owner filter; the server rejects the call without
// one.
func (g *Gateway) Delete(ctx context.Context, collection string, filters Filters) error {
	payload := struct {
		Filters Filters `json:"filters"`
	}{Filters: filters}
	return g.hc.DoJSON(ctx, g.newRequest("/db/"+collection+"/delete", nil, payload), nil)
}

// RPC invokes a named server-side procedure, decoding the returned rows
// into out (nil to discard).
func (g *Gateway) RPC(ctx context.Context, proc string, params any, out any) error {
	return g.hc.DoJSON(ctx, g.newRequest("/rpc/"+proc, nil, params), out)
}
