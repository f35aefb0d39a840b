package proximity

import (
	"bytes"
	"context"
	"net/http"

	"github.com/encorehq/encore/internal/client/httpx"
	"github.com/encorehq/encore/internal/logging"
	"github.com/goccy/go-json"
)

// Notification is a local alert scheduled for immediate delivery.
type Notification struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Notifier delivers notifications. Implementations must tolerate being
// called from the monitoring goroutine.
type Notifier interface {
	ScheduleImmediate(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. Used when no delivery
// endpoint is configured.
type LogNotifier struct {
	Log logging.Logger
}

func (l *LogNotifier) ScheduleImmediate(ctx context.Context, n Notification) error {
	l.Log.Info(ctx, "notification", "id", n.ID, "title", n.Title, "body", n.Body)
	return nil
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint
// (an ntfy-style push relay).
type WebhookNotifier struct {
	Endpoint string
	HC       *httpx.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{Endpoint: endpoint, HC: httpx.NewClient(nil)}
}

func (w *WebhookNotifier) ScheduleImmediate(ctx context.Context, n Notification) error {
	return w.HC.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		body, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil)
}
