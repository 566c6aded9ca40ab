package chessclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/Cheese-chess-arena/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client calls the game server's REST API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateGame(ctx context.Context, req chessdto.CreateGameRequest) (*chessdto.CreateGameResponse, error) {
	var resp chessdto.CreateGameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Game fetches the current record. Reads are retried.
func (c *Client) Game(ctx context.Context, id string) (*chessdto.GameRecord, error) {
	var rec chessdto.GameRecord
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id), nil, &rec, true); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Select(ctx context.Context, id, playerID, square string) (*chessdto.SelectResponse, error) {
	q := url.Values{"player": {playerID}, "square": {square}}
	var resp chessdto.SelectResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id)+"/select?"+q.Encode(), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Move submits one move. Moves are never retried blindly; a concurrent_move error is
// returned for the caller to reload.
func (c *Client) Move(ctx context.Context, req chessdto.MoveRequest) (*chessdto.MoveSummary, error) {
	var resp chessdto.MoveSummary
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(req.GameID)+"/moves", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Promote(ctx context.Context, req chessdto.PromotionRequest) (*chessdto.MoveSummary, error) {
	var resp chessdto.MoveSummary
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(req.GameID)+"/promotion", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PGN returns the game in PGN form.
func (c *Client) PGN(ctx context.Context, id string) (string, error) {
	var out string
	err := c.do(ctx, fasthttp.MethodGet, gamePath(id)+"/pgn", nil, true, func(body []byte) error {
		out = string(body)
		return nil
	})
	return out, err
}

// Health probes /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, fasthttp.MethodGet, "/healthz", nil, false, nil)
}

func gamePath(id string) string { return "/api/games/" + url.PathEscape(strings.TrimSpace(id)) }

// APIError is a non-2xx response. Domain carries the server's error body when it had
// one.
type APIError struct {
	Status int
	Domain chessdto.DomainError
	Body   string
}

func (e *APIError) Error() string {
	if e.Domain.Code != "" {
		return fmt.Sprintf("chess api error: status=%d code=%s: %s", e.Status, e.Domain.Code, e.Domain.Message)
	}
	return fmt.Sprintf("chess api error: status=%d body=%s", e.Status, truncate(e.Body, 512))
}

// Code extracts the DomainError code from err, or "".
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Domain.Code
	}
	return ""
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	var decode func([]byte) error
	if out != nil {
		decode = func(body []byte) error {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
	}
	return c.do(ctx, method, path, payload, retry, decode)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, decode func([]byte) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := newAPIError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if decode != nil {
			return decode(resp.Body())
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: string(body)}
	var wrapped struct {
		Error chessdto.DomainError `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil {
		e.Domain = wrapped.Error
	}
	return e
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
