// Package vectorsearch is an HTTP JSON client for the external vector
// search service named in §6.3: `search` (synchronous, on the `recall`
// critical path) and `indexMemory` (fire-and-forget, called from
// `remember`). Wrapped in a circuit breaker so a degraded search service
// fails fast instead of holding up every recall.
package vectorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// SearchRequest is the body of a search call (§6.3).
type SearchRequest struct {
	Text       string         `json:"text"`
	Limit      int            `json:"limit"`
	Threshold  float64        `json:"threshold,omitempty"`
	Strategy   string         `json:"strategy,omitempty"`
	Rerank     bool           `json:"rerank,omitempty"`
	RerankTier string         `json:"rerank_tier,omitempty"`
	Collection string         `json:"collection"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Payload       map[string]any `json:"payload"`
	Score         float64        `json:"score"`
	RerankerScore *float64       `json:"reranker_score,omitempty"`
}

// SearchResponse is the full search reply.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	TookMS  int64          `json:"took_ms"`
}

// IndexRequest is the body of an indexMemory call (§6.3).
type IndexRequest struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags,omitempty"`
	Project string   `json:"project,omitempty"`
	OrgID   string   `json:"orgId"`
}

// Client is the external collaborator (§6.3) consumed by internal/memory.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	IndexMemory(ctx context.Context, req IndexRequest) error
}

// HTTPClient implements Client against a real vector search service,
// wrapping every call in a gobreaker.CircuitBreaker so a failing backend
// trips open instead of each caller paying the full timeout.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	cb      *gobreaker.CircuitBreaker
	retry   backoff.BackOff
}

// Config tunes the HTTP client and circuit breaker.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig mirrors the teacher's DefaultCircuitBreakerConfig shape.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          5 * time.Second,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// NewHTTPClient constructs a Client against cfg.
func NewHTTPClient(cfg Config) *HTTPClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vectorsearch",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
	})

	retry := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		hc:      &http.Client{Timeout: cfg.Timeout},
		cb:      cb,
		retry:   retry,
	}
}

// Search issues a synchronous search call through the circuit breaker. It
// never retries: §4.6.2 step 10's local keyword fallback is strictly
// faster and safer than a retry loop inside the request deadline.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	result, err := c.cb.Execute(func() (any, error) {
		return c.doSearch(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("vectorsearch: search: %w", err)
	}
	return result.(*SearchResponse), nil
}

func (c *HTTPClient) doSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(req); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("vectorsearch: search returned status %d", resp.StatusCode)
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IndexMemory is called on remember's fire-and-forget path (§4.6.1 step 4,
// §5 fan-out point 2). Transient failures are retried a bounded number of
// times via backoff since nothing downstream is waiting on this call.
func (c *HTTPClient) IndexMemory(ctx context.Context, req IndexRequest) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, backoff.Retry(func() error {
			return c.doIndex(ctx, req)
		}, backoff.WithContext(c.retry, ctx))
	})
	if err != nil {
		return fmt.Errorf("vectorsearch: indexMemory: %w", err)
	}
	return nil
}

func (c *HTTPClient) doIndex(ctx context.Context, req IndexRequest) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(req); err != nil {
		return backoff.Permanent(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/index", &body)
	if err != nil {
		return backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return err // network errors are retryable
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("vectorsearch: indexMemory returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("vectorsearch: indexMemory returned status %d", resp.StatusCode))
	}
	return nil
}
