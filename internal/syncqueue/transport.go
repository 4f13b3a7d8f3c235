package syncqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-health-vault/models"
)

// HTTPTransportConfig configures the resty-backed replay transport.
type HTTPTransportConfig struct {
	// BaseURL is prepended to relative item URLs; absolute URLs ignore it.
	BaseURL string

	// Timeout bounds a single replay call. Defaults to 15s.
	Timeout time.Duration
}

type httpTransport struct {
	client *resty.Client
}

// NewHTTPTransport constructs the default [Transport]: an HTTP client that
// issues each queued mutation verbatim and treats any non-2xx status as a
// failed attempt.
func NewHTTPTransport(cfg HTTPTransportConfig) Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().SetTimeout(cfg.Timeout)
	if cfg.BaseURL != "" {
		cli.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	}

	return &httpTransport{client: cli}
}

// Replay implements [Transport]. The request is rebuilt from the persisted
// item fields only; no ambient state leaks into the call.
func (t *httpTransport) Replay(ctx context.Context, item models.QueueItem) error {
	req := t.client.R().SetContext(ctx)
	if len(item.Headers) > 0 {
		req.SetHeaders(item.Headers)
	}
	if item.Body != nil {
		req.SetBody(item.Body)
	}

	resp, err := req.Execute(strings.ToUpper(item.Method), item.URL)
	if err != nil {
		return fmt.Errorf("replay request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s", ErrReplayRejected, resp.Status())
	}

	return nil
}
