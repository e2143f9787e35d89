package newsroom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Client talks to the Newsroom HTTP API on behalf of a Session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit paces outgoing requests. Zero or less disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchNewsItems fetches a page of unread news. The zero token starts from
// the beginning.
func (c *Client) FetchNewsItems(ctx context.Context, token PageToken) (*NewsItemsPage, error) {
	var page NewsItemsPage
	if err := c.do(ctx, http.MethodGet, withToken("/news-items", token), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchReadNewsItems fetches a page of already read news.
func (c *Client) FetchReadNewsItems(ctx context.Context, token PageToken) (*NewsItemsPage, error) {
	var page NewsItemsPage
	if err := c.do(ctx, http.MethodGet, withToken("/news-items/read", token), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// MarkAsRead confirms a batch of read items with the server.
func (c *Client) MarkAsRead(ctx context.Context, newsItemIDs []string) error {
	body := MarkAsReadRequest{NewsItemIDs: newsItemIDs}
	return c.do(ctx, http.MethodPost, "/news-items/mark-as-read", body, nil)
}

// SaveNewsItem stars a news item and returns the saved item's ID.
func (c *Client) SaveNewsItem(ctx context.Context, newsItemID string) (string, error) {
	var resp SaveNewsItemResponse
	body := SaveNewsItemRequest{NewsItemID: newsItemID}
	if err := c.do(ctx, http.MethodPost, "/saved-news", body, &resp); err != nil {
		return "", err
	}
	return resp.SavedNewsItemID, nil
}

// DeleteSavedNewsItem removes a star.
func (c *Client) DeleteSavedNewsItem(ctx context.Context, savedNewsItemID string) error {
	return c.do(ctx, http.MethodDelete, "/saved-news/"+url.PathEscape(savedNewsItemID), struct{}{}, nil)
}

// FetchSavedNews fetches a page of saved news using limit/offset paging.
func (c *Client) FetchSavedNews(ctx context.Context, offset, limit int) (*SavedNewsPage, error) {
	query := url.Values{}
	query.Set("fetch_offset", strconv.Itoa(offset))
	query.Set("fetch_limit", strconv.Itoa(limit))

	var page SavedNewsPage
	if err := c.do(ctx, http.MethodGet, "/saved-news?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// withToken appends the continuation token, if any, to endpoint.
func withToken(endpoint string, token PageToken) string {
	if token.IsZero() {
		return endpoint
	}
	query := url.Values{}
	query.Set("fetch_offset", string(token))
	return endpoint + "?" + query.Encode()
}

// do performs an authorized JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	token, ok := c.session.CurrentToken()
	if !ok {
		return ErrSignedOut
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	return c.parseResponse(resp.StatusCode, data, out)
}

// parseResponse maps status codes onto the session callbacks and errors.
func (c *Client) parseResponse(status int, data []byte, out any) error {
	switch {
	case status == http.StatusUnauthorized:
		c.session.OnUnauthorized()
		return ErrUnauthorized
	case status == http.StatusForbidden:
		c.session.OnPendingApproval()
		return ErrPendingApproval
	case status >= 200 && status < 300:
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return &APIError{StatusCode: status, Detail: defaultErrorDetail}
	}
	return &APIError{StatusCode: status, Detail: body.message()}
}
