package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/sensorsync/internal/record"
)

// DefaultBatchLimit is the page size requested when none is configured.
const DefaultBatchLimit = 200

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Page is one decoded response from the history endpoint.
// Data is ordered newest first.
type Page struct {
	Data []record.RawSample
}

// Options configures a Client.
type Options struct {
	// BaseURL is the source root, e.g. "https://sensors.example.com/".
	BaseURL string

	// Feed is sent as the feed query parameter.
	Feed string

	// BatchLimit is sent as the limit query parameter. Defaults to DefaultBatchLimit.
	BatchLimit int

	// Timeout bounds each HTTP request. Zero means no client-side timeout.
	Timeout time.Duration

	// Retry controls retries of SOURCE_UNAVAILABLE failures.
	Retry RetryPolicy

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client

	// Logger receives per-request debug logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// RetryPolicy bounds retries of SOURCE_UNAVAILABLE failures.
// The zero value performs a single attempt.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Client issues paginated fetches against the history endpoint.
type Client struct {
	endpoint   *url.URL
	feed       string
	limit      int
	retry      RetryPolicy
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("source: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("source: invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("source: base URL %q must be absolute", opts.BaseURL)
	}
	if opts.Feed == "" {
		return nil, fmt.Errorf("source: feed is required")
	}

	limit := opts.BatchLimit
	if limit == 0 {
		limit = DefaultBatchLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("source: batch limit must be positive, got %d", limit)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:   base.JoinPath("history"),
		feed:       opts.Feed,
		limit:      limit,
		retry:      opts.Retry,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// FetchPage returns the page of samples strictly older than before,
// or the newest page when before is empty.
//
// Returns *Error with ErrCodeSourceUnavailable or ErrCodeMalformedPage.
func (c *Client) FetchPage(ctx context.Context, before string) (Page, error) {
	if c.retry.MaxAttempts <= 1 {
		return c.fetchOnce(ctx, before)
	}

	var page Page
	attempt := 0
	op := func() error {
		attempt++
		p, err := c.fetchOnce(ctx, before)
		if err != nil {
			if !IsUnavailable(err) {
				return backoff.Permanent(err)
			}
			c.logger.Warn("source unavailable, retrying", "before", before, "attempt", attempt, "error", err)
			return err
		}
		page = p
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.retry.MaxAttempts-1)),
		ctx,
	))
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.retry.InitialDelay > 0 {
		b.InitialInterval = c.retry.InitialDelay
	}
	if c.retry.MaxDelay > 0 {
		b.MaxInterval = c.retry.MaxDelay
	}
	// Attempts are bounded by WithMaxRetries, not elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// response mirrors the endpoint body. A nil Data means the field was absent.
type response struct {
	Data *[]record.RawSample `json:"data"`
}

func (c *Client) fetchOnce(ctx context.Context, before string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(before), nil)
	if err != nil {
		return Page{}, &Error{Code: ErrCodeSourceUnavailable, Before: before, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, &Error{Code: ErrCodeSourceUnavailable, Before: before, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &Error{Code: ErrCodeSourceUnavailable, Before: before, Status: resp.StatusCode, Err: err}
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Valid JSON whose data field has the wrong shape.
			return Page{}, &Error{Code: ErrCodeMalformedPage, Before: before, Status: resp.StatusCode, Err: err}
		}
		return Page{}, &Error{Code: ErrCodeSourceUnavailable, Before: before, Status: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	if decoded.Data == nil {
		return Page{}, &Error{
			Code:   ErrCodeMalformedPage,
			Before: before,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("response has no data field: %s", truncate(body, 256)),
		}
	}

	c.logger.Debug("fetched page", "before", before, "samples", len(*decoded.Data), "status", resp.StatusCode)
	return Page{Data: *decoded.Data}, nil
}

func (c *Client) requestURL(before string) string {
	u := *c.endpoint
	q := url.Values{}
	q.Set("feed", c.feed)
	q.Set("limit", strconv.Itoa(c.limit))
	if before != "" {
		q.Set("before_created_at", before)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
