package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/clubfridge/internal/model"
)

// Client wraps an API with a cached access token.
//
// All calls share one token slot. The slot's mutex is held for the whole
// call, so calls through one Client are serialized and at most one token
// refresh happens at a time.
type Client struct {
	api   API
	creds model.Credentials

	mu    sync.Mutex
	token string // empty when no token is cached
}

// NewClient returns a Client for creds. No request is made until the first
// call.
func NewClient(api API, creds model.Credentials) *Client {
	return &Client{api: api, creds: creds}
}

// Verify acquires and authenticates a fresh token and caches it. It is used
// to check credentials before they are saved.
func (c *Client) Verify(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	c.token = token
	return nil
}

// HasToken reports whether a token is currently cached.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// ListUsers returns all club members.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return authorized(ctx, c, "list users", c.api.ListUsers)
}

// ListArticles returns all articles.
func (c *Client) ListArticles(ctx context.Context) ([]Article, error) {
	return authorized(ctx, c, "list articles", c.api.ListArticles)
}

// AddSale submits one sale.
func (c *Client) AddSale(ctx context.Context, sale NewSale) error {
	_, err := authorized(ctx, c, "add sale", func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, c.api.AddSale(ctx, token, sale)
	})
	return err
}

// acquire requests a new token and authenticates it. Must be called with
// c.mu held.
func (c *Client) acquire(ctx context.Context) (string, error) {
	slog.Debug("requesting new access token")
	token, err := c.api.GetAccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}

	slog.Debug("authenticating access token", "credentials", c.creds)
	if err := c.api.Authenticate(ctx, token, c.creds); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	return token, nil
}

// authorized runs call with the cached token, refreshing the token at most
// once when the service reports ErrUnauthorized.
//
// A failed refresh leaves the slot untouched. If the call is rejected even
// with the fresh token, the slot is cleared so the next call starts with a
// refresh.
func authorized[T any](ctx context.Context, c *Client, op string, call func(context.Context, string) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		result, err := call(ctx, c.token)
		if !IsUnauthorized(err) {
			return result, err
		}
		slog.Debug("cached access token rejected", "op", op)
	}

	token, err := c.acquire(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.token = token

	result, err := call(ctx, token)
	if IsUnauthorized(err) {
		slog.Warn("fresh access token rejected, clearing cached token", "op", op)
		c.token = ""
	}
	return result, err
}
