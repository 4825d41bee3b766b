package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/iohelper"
	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*WebhookHook)(nil)

// WebhookHook POSTs events as JSON to an HTTP endpoint, retrying 5xx
// responses and transport errors with exponential backoff. Deliveries run
// on a worker goroutine fed by a bounded queue; events arriving while the
// queue is full are dropped.
type WebhookHook struct {
	endpoint string
	client   *http.Client
	opts     WebhookOptions
	logger   *slog.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan delivery
	done    chan struct{}
	cancel  context.CancelFunc
	workCtx context.Context
}

type delivery struct {
	eventType events.EventType
	body      []byte
}

// WebhookOptions configures the webhook hook.
type WebhookOptions struct {
	// Headers to include in requests.
	Headers map[string]string

	// Timeout for one delivery attempt (default 10s).
	Timeout time.Duration

	// RetryCount is the number of attempts (default 3).
	RetryCount int

	// Backoff is the first retry delay; it doubles per attempt (default 1s).
	Backoff time.Duration

	// QueueSize is how many events may wait for delivery (default 64).
	QueueSize int

	// DrainTimeout bounds how long Close waits for queued events (default 30s).
	DrainTimeout time.Duration

	// Events limits delivery to these types. Default: complete and error.
	Events []events.EventType

	// Logger receives delivery failures.
	Logger *slog.Logger
}

// NewWebhookHook creates a webhook hook for endpoint and starts its
// delivery worker. Call Close to drain and stop it.
func NewWebhookHook(endpoint string, opts WebhookOptions) *WebhookHook {
	if opts.Timeout == 0 {
		opts.Timeout = duration.WebhookTimeout
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = defaults.WebhookRetries
	}
	if opts.Backoff == 0 {
		opts.Backoff = duration.WebhookBackoff
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.WebhookQueue
	}
	if opts.DrainTimeout == 0 {
		opts.DrainTimeout = duration.WebhookDrain
	}
	if len(opts.Events) == 0 {
		opts.Events = []events.EventType{events.EventTypeComplete, events.EventTypeError}
	}
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = opts.Timeout
	cfg.UserAgent = defaults.UserAgent("webhook")
	// Deliveries outlive the request that started a detached scan, so the
	// worker owns its own context.
	ctx, cancel := context.WithCancel(context.Background())
	h := &WebhookHook{
		endpoint: endpoint,
		client:   httpclient.New(cfg),
		opts:     opts,
		logger:   orDefault(opts.Logger),
		queue:    make(chan delivery, opts.QueueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
		workCtx:  ctx,
	}
	go h.run()
	return h
}

// OnEvent queues the event for delivery and returns immediately. A full
// queue or a closed hook drops the event with a warning.
func (h *WebhookHook) OnEvent(_ context.Context, event events.Event) error {
	body, err := jsonutil.Marshal(event)
	if err != nil {
		h.logger.Warn("webhook: marshal event", slog.String("error", err.Error()))
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		h.logger.Warn("webhook: hook closed, event dropped",
			slog.String("event", string(event.EventType())))
		return nil
	}
	select {
	case h.queue <- delivery{eventType: event.EventType(), body: body}:
	default:
		h.logger.Warn("webhook: queue full, event dropped",
			slog.String("endpoint", h.endpoint),
			slog.String("event", string(event.EventType())))
	}
	return nil
}

// Close stops accepting events and waits for queued deliveries, giving up
// after the drain timeout. It is safe to call more than once.
func (h *WebhookHook) Close() error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()

	timer := time.NewTimer(h.opts.DrainTimeout)
	defer timer.Stop()
	select {
	case <-h.done:
	case <-timer.C:
		h.logger.Warn("webhook: drain timed out", slog.Int("pending", len(h.queue)))
		h.cancel()
		<-h.done
	}
	h.cancel()
	return nil
}

func (h *WebhookHook) run() {
	defer close(h.done)
	for d := range h.queue {
		if h.workCtx.Err() != nil {
			continue
		}
		if err := h.sendWithRetry(h.workCtx, d.eventType, d.body); err != nil {
			h.logger.Warn("webhook: delivery failed",
				slog.String("endpoint", h.endpoint),
				slog.String("event", string(d.eventType)),
				slog.String("error", err.Error()))
		}
	}
}

// EventTypes returns the configured event types.
func (h *WebhookHook) EventTypes() []events.EventType {
	return h.opts.Events
}

func (h *WebhookHook) sendWithRetry(ctx context.Context, eventType events.EventType, body []byte) error {
	var lastErr error
	backoff := h.opts.Backoff

	for attempt := 0; attempt < h.opts.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		retry, err := h.send(ctx, eventType, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

func (h *WebhookHook) send(ctx context.Context, eventType events.EventType, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
	req.Header.Set("X-Bountyscout-Event", string(eventType))
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("client error: %d", resp.StatusCode)
	}
}
