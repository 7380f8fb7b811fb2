package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
)

// PageRenderer yields the mapping table rows of a documentation page.
// Implementations own timeout and retry policy; a failed render is reported
// as an error and treated by callers as "no data".
type PageRenderer interface {
	RenderTable(ctx context.Context, url string) ([]Row, error)
}

// HTMLRenderer fetches pages over HTTP and parses their mapping table.
type HTMLRenderer struct {
	// client performs a single request attempt with a bounded wait.
	client *httpclient.Client

	// backoffPolicy computes the wait before the next attempt.
	backoffPolicy heimdall.Backoff

	// timeout bounds a single request attempt.
	timeout time.Duration

	// retries is the number of additional attempts after a failed request.
	retries int

	// backoff is the constant wait between attempts.
	backoff time.Duration

	// doer optionally replaces the underlying *http.Client.
	doer heimdall.Doer

	userAgent      string
	headers        map[string]string
	maxBodySize    int64
	containerClass string
	logger         *slog.Logger
}

// RendererOption configures an HTMLRenderer.
type RendererOption func(*HTMLRenderer)

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) RendererOption {
	return func(r *HTMLRenderer) {
		r.timeout = d
	}
}

// WithRetries sets how many times a failed request is retried and the wait
// between attempts. Transport errors and 5xx responses are retried; the wait
// ends early when the request context is done.
func WithRetries(n int, backoff time.Duration) RendererOption {
	return func(r *HTMLRenderer) {
		r.retries = n
		r.backoff = backoff
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) RendererOption {
	return func(r *HTMLRenderer) {
		r.userAgent = ua
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) RendererOption {
	return func(r *HTMLRenderer) {
		r.headers = headers
	}
}

// WithMaxBodySize limits how many bytes of a page are read.
func WithMaxBodySize(n int64) RendererOption {
	return func(r *HTMLRenderer) {
		r.maxBodySize = n
	}
}

// WithContainerClass sets the CSS class of the element wrapping the table.
func WithContainerClass(class string) RendererOption {
	return func(r *HTMLRenderer) {
		r.containerClass = class
	}
}

// WithDoer replaces the HTTP client used under the retry layer.
func WithDoer(d heimdall.Doer) RendererOption {
	return func(r *HTMLRenderer) {
		r.doer = d
	}
}

// WithRendererLogger sets the logger.
func WithRendererLogger(logger *slog.Logger) RendererOption {
	return func(r *HTMLRenderer) {
		r.logger = logger
	}
}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer(opts ...RendererOption) *HTMLRenderer {
	r := &HTMLRenderer{
		timeout:        30 * time.Second,
		retries:        2,
		backoff:        2 * time.Second,
		userAgent:      "packmap (+https://github.com/nao1215/packmap)",
		maxBodySize:    10 * 1024 * 1024,
		containerClass: DefaultContainerClass,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.backoffPolicy = heimdall.NewConstantBackoff(r.backoff, r.backoff/4+time.Millisecond)

	// Retries are driven by RenderTable so the wait between attempts can be
	// cut short by the context.
	clientOpts := []httpclient.Option{
		httpclient.WithHTTPTimeout(r.timeout),
		httpclient.WithRetryCount(0),
	}
	if r.doer != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(r.doer))
	}
	r.client = httpclient.NewClient(clientOpts...)

	return r
}

// RenderTable fetches url and returns the rows of its mapping table.
func (r *HTMLRenderer) RenderTable(ctx context.Context, url string) ([]Row, error) {
	for attempt := 0; ; attempt++ {
		rows, retryable, err := r.fetch(ctx, url)
		if err == nil {
			return rows, nil
		}
		if !retryable || attempt >= r.retries || ctx.Err() != nil {
			return nil, err
		}

		wait := r.backoffPolicy.Next(attempt)
		r.logger.Debug("retrying page", "url", url, "attempt", attempt+1, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("failed to fetch %s: %w", url, ctx.Err())
		case <-timer.C:
		}
	}
}

// fetch performs one attempt. retryable reports whether a failed attempt
// may succeed when repeated.
func (r *HTMLRenderer) fetch(ctx context.Context, url string) (rows []Row, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	r.logger.Debug("fetching page", "url", url)

	resp, err := r.client.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, true, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= http.StatusInternalServerError,
			fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	rows, err = ParseTable(io.LimitReader(resp.Body, r.maxBodySize), r.containerClass)
	if err != nil {
		return nil, false, err
	}

	r.logger.Debug("parsed table", "url", url, "rows", len(rows))
	return rows, false, nil
}
