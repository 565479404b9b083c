// Package reader fetches external page content through a reader endpoint
// and caches successful results in a bounded LRU.
package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the in-memory result cache.
const DefaultCacheCapacity = 1000

// Result is the cleaned content returned by the reader endpoint for a URL.
type Result struct {
	URL       string
	Title     string
	Content   string
	FetchedAt time.Time
}

// RetrievalError reports an upstream fetch failure with the status and
// message the reader endpoint returned.
type RetrievalError struct {
	Status  int
	Message string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("reader returned status %d: %s", e.Status, e.Message)
}

// readerResponse is the JSON envelope the reader endpoint returns.
type readerResponse struct {
	Data struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"data"`
}

// Client fetches URLs through a reader endpoint, caching successful results.
//
// The cache is process-wide shared state and safe for concurrent use.
// Concurrent misses for the same URL may each trigger a fetch; the last
// result wins, which is harmless because results for a URL are equivalent.
type Client struct {
	httpClient *http.Client
	endpoint   string
	cache      *lru.Cache[string, *Result]
	logger     *slog.Logger
}

// NewClient creates a fetch client for the given reader endpoint.
// cacheCapacity <= 0 selects DefaultCacheCapacity.
func NewClient(endpoint string, cacheCapacity int, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultCacheCapacity
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, *Result](cacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("create fetch cache: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		cache:      cache,
		logger:     logger,
	}, nil
}

// Fetch returns the reader result for url, serving cache hits without
// network access. Upstream failures surface as *RetrievalError and are
// never cached.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	if cached, ok := c.cache.Get(url); ok {
		c.logger.Debug("fetch cache hit", "url", url)
		return cached, nil
	}

	result, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	c.cache.Add(url, result)
	c.logger.Debug("fetched and cached", "url", url, "size", len(result.Content))
	return result, nil
}

// fetchWithRetry performs the remote fetch with exponential backoff on
// transport errors. Non-200 responses are permanent failures.
func (c *Client) fetchWithRetry(ctx context.Context, url string) (*Result, error) {
	var result *Result

	operation := func() error {
		r, err := c.fetchOnce(ctx, url)
		if err != nil {
			var retrievalErr *RetrievalError
			if errors.As(err, &retrievalErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RetrievalError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed readerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RetrievalError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed reader payload: %v", err)}
	}
	if parsed.Data.Content == "" {
		return nil, &RetrievalError{Status: resp.StatusCode, Message: "reader payload has no content"}
	}

	resultURL := parsed.Data.URL
	if resultURL == "" {
		resultURL = url
	}

	return &Result{
		URL:       resultURL,
		Title:     parsed.Data.Title,
		Content:   parsed.Data.Content,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// CacheLen reports the number of cached results.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}
