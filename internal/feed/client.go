package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"event-reminders/internal/logger"
	"event-reminders/pkg/models"
)

// APIError represents a non-2xx HTTP response from the feed API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feed API error %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

var _ Source = (*Client)(nil)

// Client polls the feed's events endpoint. Responses are ETag-gated: an
// unchanged poll returns the cached snapshot without a delivery, so
// subscribers only hear about actual changes.
type Client struct {
	http    *http.Client
	baseURL string
	token   string

	mu   sync.Mutex
	etag string
	last []models.Event
}

// NewClient returns a feed client for the API at baseURL, authenticating
// with the bearer token (empty for an open feed).
func NewClient(baseURL, token string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

// SetToken swaps the bearer token and invalidates the cached snapshot.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.etag = ""
	c.last = nil
}

// Snapshot fetches the current full event set.
func (c *Client) Snapshot(ctx context.Context) ([]models.Event, error) {
	events, _, err := c.fetch(ctx)
	return events, err
}

func (c *Client) fetch(ctx context.Context) ([]models.Event, bool, error) {
	defer logger.Timer("feed poll")()

	c.mu.Lock()
	etag, token := c.etag, c.token
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		logger.Debug("feed: not modified")
		c.mu.Lock()
		last := c.last
		c.mu.Unlock()
		return last, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, false, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var events []models.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, false, fmt.Errorf("decode events: %w", err)
	}

	c.mu.Lock()
	c.etag = resp.Header.Get("ETag")
	c.last = events
	c.mu.Unlock()
	logger.Debugf("feed: %d event(s)", len(events))
	return events, true, nil
}

// Subscribe polls every interval and delivers a snapshot to h whenever the
// feed changed (always on the first successful poll). Errors are delivered
// too; the subscriber decides how to react.
func (c *Client) Subscribe(ctx context.Context, every time.Duration, h Handler) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		first := true
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			events, changed, err := c.fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h(nil, err)
			} else if changed || first {
				first = false
				h(events, nil)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return cancel
}
