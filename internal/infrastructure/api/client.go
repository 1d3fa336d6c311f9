package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// TokenSource supplies the bearer credential and refreshes it after a 401.
type TokenSource interface {
	Token() string
	Reauthenticate(ctx context.Context) (string, error)
}

// Client talks to the StudNet REST backend. Every authenticated call is
// retried once after a successful reauthentication when the backend answers
// 401.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	tokens TokenSource

	reads singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// SetTokenSource attaches the credential provider. The provider itself uses
// the client for the auth exchange, hence the late binding.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// shared runs fn once for concurrent callers of the same key. The round trip
// is detached from any single caller so a caller that gives up does not fail
// the others; each caller still returns as soon as its own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	authed bool
	header http.Header
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if c == nil {
		return errors.New("nil api client")
	}

	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		payload = b
	}

	token := ""
	ts := c.tokenSource()
	if r.authed && ts != nil {
		token = ts.Token()
	}

	resp, err := c.send(ctx, r, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && r.authed && ts != nil {
		_ = resp.Body.Close()
		if c.logger != nil {
			c.logger.Printf("[API] Unauthorized, reauthenticating method=%s path=%s", r.method, r.path)
		}
		fresh, rerr := ts.Reauthenticate(ctx)
		if rerr != nil || fresh == "" {
			return &StatusError{Method: r.method, Path: r.path, StatusCode: http.StatusUnauthorized, Message: "reauthentication failed"}
		}
		resp, err = c.send(ctx, r, payload, fresh)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := &StatusError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Message: errorMessage(rb)}
		if c.logger != nil {
			c.logger.Printf("[API] Request failed method=%s path=%s status=%d body=%q", r.method, r.path, resp.StatusCode, strings.TrimSpace(string(rb)))
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, r request, payload []byte, token string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// errorMessage extracts the backend's error text from FastAPI-style
// {"detail": ...} or {"message": ...} bodies.
func errorMessage(body []byte) string {
	var m struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if s, ok := m.Detail.(string); ok && s != "" {
			return s
		}
		if m.Message != "" {
			return m.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
