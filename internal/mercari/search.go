package mercari

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ksaito/mercari-watcher/internal/metrics"
	domain "github.com/ksaito/mercari-watcher/pkg/types"
)

const (
	defaultEndpoint = "https://api.mercari.jp/v2/entities:search"
	defaultPageSize = 120
)

// HTTPClient implements SearchClient against the Mercari entities:search
// endpoint.
type HTTPClient struct {
	endpoint    string
	pageSize    int
	client      *http.Client
	rateLimiter *RateLimiter
}

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithEndpoint overrides the default search endpoint.
func WithEndpoint(u string) Option {
	return func(c *HTTPClient) {
		c.endpoint = u
	}
}

// WithPageSize overrides the default result page size.
func WithPageSize(n int) Option {
	return func(c *HTTPClient) {
		c.pageSize = n
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// WithRateLimiter injects a rate limiter that bounds per-second and daily
// API calls. When set, every Search() call goes through Wait() first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *HTTPClient) {
		c.rateLimiter = r
	}
}

// NewHTTPClient creates a new Mercari search client.
func NewHTTPClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint: defaultEndpoint,
		pageSize: defaultPageSize,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search implements SearchClient.Search by querying the entities:search
// endpoint and converting the response to domain items.
func (c *HTTPClient) Search(
	ctx context.Context,
	req SearchRequest,
) ([]domain.Item, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.MercariDailyLimitHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.MercariAPICallsTotal.Inc()
		metrics.MercariDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}

	body, err := json.Marshal(c.buildAPIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Platform", "web")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"mercari API error (status %d): %s",
			resp.StatusCode,
			string(respBody),
		)
	}

	var apiResp searchAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	return ToItems(apiResp.Items), nil
}

func (c *HTTPClient) buildAPIRequest(req SearchRequest) searchAPIRequest {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}

	sort := req.Sort
	if sort == "" {
		sort = SortUpdatedTime
	}

	order := req.Order
	if order == "" {
		order = OrderDesc
	}

	return searchAPIRequest{
		PageSize: pageSize,
		SearchCondition: searchCondition{
			Keyword: req.Keyword,
			Sort:    sort,
			Order:   order,
		},
	}
}
