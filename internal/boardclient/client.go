// Package boardclient talks to a running hopboard server: fasthttp for the
// request endpoints and a reconnecting websocket for the event stream.
package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"github.com/valyala/fasthttp"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer. Domain is set when the body decoded as one.
type APIError struct {
	Status int
	Domain *boarddto.DomainError
	Body   string
}

func (e *APIError) Error() string {
	if e.Domain != nil {
		return fmt.Sprintf("hopboard api error: status=%d code=%s: %s", e.Status, e.Domain.Code, e.Domain.Error())
	}
	return fmt.Sprintf("hopboard api error: status=%d body=%s", e.Status, truncate(e.Body, 512))
}

func (c *Client) State(ctx context.Context) (*boarddto.Snapshot, error) {
	var snap boarddto.Snapshot
	if _, err := c.do(ctx, fasthttp.MethodGet, "/state", &snap, true); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) Health(ctx context.Context) (*boarddto.Health, error) {
	var h boarddto.Health
	if _, err := c.do(ctx, fasthttp.MethodGet, "/health", &h, true); err != nil {
		return nil, err
	}
	return &h, nil
}

// Key sends one key press. Key presses are not retried.
func (c *Client) Key(ctx context.Context, key string) (*boarddto.KeyResult, error) {
	var res boarddto.KeyResult
	if _, err := c.do(ctx, fasthttp.MethodPost, "/input/key?k="+url.QueryEscape(key), &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Pick(ctx context.Context, x, y float64) (*boarddto.PickResult, error) {
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(x, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(y, 'f', -1, 64))
	var res boarddto.PickResult
	if _, err := c.do(ctx, fasthttp.MethodGet, "/pick?"+q.Encode(), &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

// PickSquare hovers a square by name, e.g. "e4".
func (c *Client) PickSquare(ctx context.Context, name string) (*boarddto.PickResult, error) {
	q := url.Values{}
	q.Set("square", name)
	var res boarddto.PickResult
	if _, err := c.do(ctx, fasthttp.MethodGet, "/pick?"+q.Encode(), &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Resize(ctx context.Context, w, h int) (*boarddto.ResizeResult, error) {
	path := fmt.Sprintf("/resize?w=%d&h=%d", w, h)
	var res boarddto.ResizeResult
	if _, err := c.do(ctx, fasthttp.MethodPost, path, &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}

// Frame fetches the current frame as PNG bytes.
func (c *Client) Frame(ctx context.Context) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, "/frame.png", nil, true)
}

// do sends one request. out, if set, receives the decoded JSON body; the raw
// body is returned either way.
func (c *Client) do(ctx context.Context, method, path string, out any, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return nil, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		body := append([]byte(nil), resp.Body()...)
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status, Body: string(body)}
			var de boarddto.DomainError
			if json.Unmarshal(body, &de) == nil && de.Code != "" {
				apiErr.Domain = &de
			}
			lastErr = apiErr
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, apiErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
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
	attempt = min(max(attempt, 1), 6)
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
