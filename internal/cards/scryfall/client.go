package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.scryfall.com"
	rateLimitDelay = 100 * time.Millisecond // 100ms between requests (10 req/sec)
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL      string
	RateInterval time.Duration
	RetryMax     int
	Timeout      time.Duration
	UserAgent    string
}

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	http       *retryablehttp.Client
	downloader *http.Client
	baseURL    string
	userAgent  string
}

// rateLimitedTransport spaces every outgoing attempt, retries included.
type rateLimitedTransport struct {
	Parent  http.RoundTripper
	Limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	return t.Parent.RoundTrip(req)
}

// NewClient creates a new Scryfall API client with default settings.
func NewClient() *Client {
	return NewClientWithOptions(Options{RetryMax: maxRetries})
}

// NewClientWithOptions creates a Scryfall API client.
func NewClientWithOptions(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = rateLimitDelay
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = maxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = requestTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "MTG-Collection/1.0"
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = initialBackoff
	client.RetryWaitMax = maxBackoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = opts.Timeout
	client.HTTPClient.Transport = &rateLimitedTransport{
		Parent:  client.HTTPClient.Transport,
		Limiter: rate.NewLimiter(rate.Every(opts.RateInterval), 1),
	}

	return &Client{
		http:       client,
		downloader: cleanhttp.DefaultPooledClient(),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
	}
}

// GetCard retrieves a card by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	endpoint := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var card Card
	if err := c.doRequest(ctx, endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}

	return &card, nil
}

// GetCardByName retrieves the best fuzzy match for name.
func (c *Client) GetCardByName(ctx context.Context, name string) (*Card, error) {
	params := url.Values{}
	params.Set("fuzzy", name)
	endpoint := fmt.Sprintf("%s/cards/named?%s", c.baseURL, params.Encode())

	var card Card
	if err := c.doRequest(ctx, endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card named %q: %w", name, err)
	}

	return &card, nil
}

// GetCardByExactName retrieves a card by exact name, optionally restricted to a set.
func (c *Client) GetCardByExactName(ctx context.Context, name, set string) (*Card, error) {
	params := url.Values{}
	params.Set("exact", name)
	if set != "" {
		params.Set("set", strings.ToLower(set))
	}
	endpoint := fmt.Sprintf("%s/cards/named?%s", c.baseURL, params.Encode())

	var card Card
	if err := c.doRequest(ctx, endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %q in set %q: %w", name, set, err)
	}

	return &card, nil
}

// GetCardByTCGPlayerID retrieves a card by its TCGplayer product ID.
func (c *Client) GetCardByTCGPlayerID(ctx context.Context, productID int) (*Card, error) {
	endpoint := fmt.Sprintf("%s/cards/tcgplayer/%d", c.baseURL, productID)

	var card Card
	if err := c.doRequest(ctx, endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card by tcgplayer ID %d: %w", productID, err)
	}

	return &card, nil
}

// Autocomplete returns up to 20 card names starting with or containing query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	endpoint := fmt.Sprintf("%s/cards/autocomplete?%s", c.baseURL, params.Encode())

	var catalog Catalog
	if err := c.doRequest(ctx, endpoint, &catalog); err != nil {
		return nil, fmt.Errorf("failed to autocomplete %q: %w", query, err)
	}

	return catalog.Data, nil
}

// GetSet retrieves set information by set code.
func (c *Client) GetSet(ctx context.Context, code string) (*Set, error) {
	endpoint := fmt.Sprintf("%s/sets/%s", c.baseURL, url.PathEscape(strings.ToLower(code)))

	var set Set
	if err := c.doRequest(ctx, endpoint, &set); err != nil {
		return nil, fmt.Errorf("failed to get set %s: %w", code, err)
	}

	return &set, nil
}

// SearchCards performs a full-text search for cards.
func (c *Client) SearchCards(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	endpoint := fmt.Sprintf("%s/cards/search?%s", c.baseURL, params.Encode())

	var result SearchResult
	if err := c.doRequest(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// GetBulkData retrieves bulk data download information.
func (c *Client) GetBulkData(ctx context.Context) (*BulkDataList, error) {
	endpoint := fmt.Sprintf("%s/bulk-data", c.baseURL)

	var bulkData BulkDataList
	if err := c.doRequest(ctx, endpoint, &bulkData); err != nil {
		return nil, fmt.Errorf("failed to get bulk data: %w", err)
	}

	return &bulkData, nil
}

// GetSets retrieves a list of all sets.
func (c *Client) GetSets(ctx context.Context) (*SetList, error) {
	endpoint := fmt.Sprintf("%s/sets", c.baseURL)

	var sets SetList
	if err := c.doRequest(ctx, endpoint, &sets); err != nil {
		return nil, fmt.Errorf("failed to get sets: %w", err)
	}

	return &sets, nil
}

// Download opens a bulk file. The caller must close the returned body.
// Downloads bypass the API rate limiter and request timeout.
func (c *Client) Download(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.downloader.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{URL: uri}
		}
		return nil, fmt.Errorf("download %s: unexpected status %d", uri, resp.StatusCode)
	}

	return resp.Body, nil
}

// doRequest performs a GET with rate limiting and retries, decoding the
// JSON body into result. Once retries are exhausted the last response is
// handled like any other.
func (c *Client) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return nil

	case http.StatusNotFound:
		return &NotFoundError{URL: endpoint}

	default:
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			if apiErr.Status == 0 {
				apiErr.Status = resp.StatusCode
			}
			return &apiErr
		}

		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}
