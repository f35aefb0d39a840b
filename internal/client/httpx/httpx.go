// Package httpx is the transport core shared by the remote-store gateway and
// the setlist search client: JSON round-trips with rate-limit aware retries,
// a typed status error, and the Accept-Language clamp required by the
// external API.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/encorehq/encore/internal/common"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// maxRetries is the number of additional attempts after a 429 response.
const maxRetries = 2

// StatusError is a non-2xx response, carrying the status code and the
// best-effort parsed server message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Unwrap maps well-known status codes onto the shared sentinel errors so
// callers can match with errors.Is.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return common.ErrUnauthenticated
	case e.Code == http.StatusNotFound:
		return common.ErrNotFound
	case e.Code == http.StatusConflict:
		return common.ErrConflict
	case e.Code == http.StatusTooManyRequests || e.Code >= 500:
		return common.ErrTransient
	default:
		return nil
	}
}

// errorPayload is the {code,message} shape both the remote store and the
// search provider use for error bodies.
type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client executes JSON requests with the shared retry policy. The zero
// values of Limiter and BackoffBase mean "no client-side rate limit" and
// "1 second" respectively.
type Client struct {
	HTTP        *http.Client
	Limiter     *rate.Limiter
	BackoffBase time.Duration
}

// NewClient returns a Client around h (http.DefaultClient when nil).
func NewClient(h *http.Client) *Client {
	if h == nil {
		h = http.DefaultClient
	}
	return &Client{HTTP: h}
}

// DoJSON executes the request produced by newReq and decodes the 2xx body
// into out (skipped when out is nil).
//
// A 429 is retried up to 2 more times, waiting the server-supplied
// Retry-After when parseable, else an exponential backoff starting at
// BackoffBase and doubling per attempt. Cancellation during the wait aborts
// the loop with common.ErrCancelled. Any other non-2xx status fails
// immediately with a *StatusError. Transport failures wrap
// common.ErrTransient; undecodable 2xx bodies wrap common.ErrDecoding.
//
// newReq is called once per attempt so request bodies are rebuilt instead
// of replayed.
func (c *Client) DoJSON(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error), out any) error {
	for attempt := 0; ; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %w", common.ErrCancelled, err)
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return err
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", common.ErrCancelled, ctx.Err())
			}
			return fmt.Errorf("%w: %w", common.ErrTransient, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("%w: reading body: %w", common.ErrTransient, readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			if wait < 0 {
				base := c.BackoffBase
				if base <= 0 {
					base = time.Second
				}
				wait = base << attempt
			}
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, body)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %w", common.ErrDecoding, err)
		}
		return nil
	}
}

func statusError(code int, body []byte) error {
	var payload errorPayload
	_ = json.Unmarshal(body, &payload)
	return &StatusError{Code: code, Message: payload.Message}
}

// retryAfter parses a Retry-After header in seconds (integer or fractional).
// Returns a negative duration when absent or unparseable.
func retryAfter(h string) time.Duration {
	if h == "" {
		return -1
	}
	secs, err := strconv.ParseFloat(h, 64)
	if err != nil || secs < 0 {
		return -1
	}
	return time.Duration(secs * float64(time.Second))
}

// sleep waits d or until ctx is cancelled, whichever comes first. The wait
// is a timer select, not a blocking sleep, so callers yield during backoff.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", common.ErrCancelled, ctx.Err())
	}
}

// supportedLocales is the fixed set the search provider accepts for
// Accept-Language.
var supportedLocales = map[string]struct{}{
	"en": {}, "de": {}, "es": {}, "fr": {}, "it": {}, "pt": {},
}

// ClampLocale reduces a preferred locale ("de-AT", "fr", ...) to one of the
// supported two-letter codes, falling back to "en".
func ClampLocale(preferred string) string {
	if len(preferred) >= 2 {
		two := []byte{preferred[0] | 0x20, preferred[1] | 0x20}
		if _, ok := supportedLocales[string(two)]; ok {
			return string(two)
		}
	}
	return "en"
}

// IsCancelled reports whether err is a cancellation (direct or wrapped).
func IsCancelled(err error) bool {
	return errors.Is(err, common.ErrCancelled) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
