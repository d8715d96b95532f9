// Package deckclient fetches the daily deck from the deck provider over HTTP.
package deckclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/showdown/internal/domain/model"
	"github.com/okian/showdown/pkg/logger"
	"github.com/okian/showdown/pkg/metrics"
)

// DeckPath is the provider endpoint serving the daily deck.
const DeckPath = "/api/daily-deck"

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client calls GET {base}/api/daily-deck[?date=YYYY-MM-DD].
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// New creates a client for the provider at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the request URL for date. An empty date asks for the latest deck.
func (c *Client) URL(date string) string {
	u := c.baseURL + DeckPath
	if date != "" {
		u += "?" + url.Values{"date": []string{date}}.Encode()
	}
	return u
}

// FetchDeck returns the pairs of the deck for date.
func (c *Client) FetchDeck(ctx context.Context, date string) ([]model.Pair, error) {
	pairs, _, err := c.FetchResolvedDeck(ctx, date)
	return pairs, err
}

// FetchResolvedDeck returns the pairs of the deck for date and the game day
// the provider reported through model.DeckDateHeader, or date when the
// header is absent.
//
// Transport failures wrap model.ErrDeckFetch, non-2xx answers are a
// *model.FetchError, and bodies that are not a JSON array of pairs wrap
// model.ErrMalformedDeck.
func (c *Client) FetchResolvedDeck(ctx context.Context, date string) ([]model.Pair, string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDeckFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	target := c.URL(date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		metrics.RecordDeckFetchError("request")
		return nil, "", fmt.Errorf("%w: build request: %v", model.ErrDeckFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug(ctx, "fetching deck", logger.String("url", target))
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordDeckFetchError("transport")
		return nil, "", fmt.Errorf("%w: %w", model.ErrDeckFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordDeckFetchError("status")
		c.logger.Warn(ctx, "deck provider returned an error",
			logger.Int("status", resp.StatusCode), logger.String("url", target))
		return nil, "", &model.FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordDeckFetchError("read")
		return nil, "", fmt.Errorf("%w: read body: %w", model.ErrDeckFetch, err)
	}

	var pairs []model.Pair
	if err := json.Unmarshal(body, &pairs); err != nil {
		metrics.RecordDeckFetchError("malformed")
		return nil, "", fmt.Errorf("%w: %w", model.ErrMalformedDeck, err)
	}
	resolved := date
	if h := strings.TrimSpace(resp.Header.Get(model.DeckDateHeader)); h != "" {
		resolved = h
	}
	return pairs, resolved, nil
}
