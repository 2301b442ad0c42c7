// Package fedreg fetches executive orders from the Federal Register API.
package fedreg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LegisQA/legisqa-mvp/pkg/fn"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.federalregister.gov/api/v1"

// Config configures the Federal Register client.
type Config struct {
	BaseURL   string
	PerPage   int
	RateLimit rate.Limit // requests per second
	UserAgent string
}

// Client lists and fetches executive orders.
type Client struct {
	baseURL   string
	perPage   int
	userAgent string
	limiter   *rate.Limiter
	http      *http.Client
}

// NewClient creates a Client, filling in defaults for zero-valued config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Limit(1) // the API asks for gentle clients
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "legisqa-scraper/1.0"
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		perPage:   cfg.PerPage,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(cfg.RateLimit, 1),
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ListOrders returns summaries of executive orders signed on or after since
// (YYYY-MM-DD; empty means no lower bound), following pagination.
func (c *Client) ListOrders(ctx context.Context, since string) ([]OrderSummary, error) {
	q := url.Values{}
	q.Set("conditions[type][]", "PRESDOCU")
	q.Set("conditions[presidential_document_type][]", "executive_order")
	q.Set("per_page", fmt.Sprintf("%d", c.perPage))
	for _, f := range []string{"document_number", "title", "signing_date", "raw_text_url", "body_html_url"} {
		q.Add("fields[]", f)
	}
	if since != "" {
		q.Set("conditions[signing_date][gte]", since)
	}

	next := c.baseURL + "/documents.json?" + q.Encode()
	var all []OrderSummary
	for next != "" {
		var page listResponse
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fedreg: list orders: %w", err)
		}
		all = append(all, page.Results...)
		next = page.NextPageURL
	}
	return all, nil
}

// FetchOrder downloads the full text of one executive order.
func (c *Client) FetchOrder(ctx context.Context, summary OrderSummary) (Order, error) {
	if summary.RawTextURL == "" {
		return Order{}, fmt.Errorf("fedreg: %s has no raw text URL", summary.DocumentNumber)
	}
	text, err := c.getText(ctx, summary.RawTextURL)
	if err != nil {
		return Order{}, fmt.Errorf("fedreg: fetch %s: %w", summary.DocumentNumber, err)
	}
	return Order{
		DocumentNumber: summary.DocumentNumber,
		Title:          summary.Title,
		SigningDate:    summary.SigningDate,
		Text:           text,
		FetchedAt:      time.Now().UTC(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) getText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs a rate-limited GET with retries on transient failures.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	result := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[[]byte] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[[]byte](err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fn.Err[[]byte](err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return fn.Err[[]byte](err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fn.Errf[[]byte]("status %d from %s", resp.StatusCode, rawURL)
		}
		body, err := io.ReadAll(resp.Body)
		return fn.FromPair(body, err)
	})
	return result.Unwrap()
}
