// Package vereinsflieger is the HTTP transport for the Vereinsflieger REST
// interface. It implements remote.API.
package vereinsflieger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

// DefaultBaseURL is the production REST endpoint.
const DefaultBaseURL = "https://www.vereinsflieger.de/interface/rest/"

// maxBodySize bounds how much of a response is read.
const maxBodySize = 16 << 20

// Client talks to the REST interface. Every request first waits on the
// client's rate limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

var _ remote.API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http = &http.Client{Timeout: d}
	}
}

// WithRateLimit allows at most rps requests per second with a burst of one.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// New returns a client for the REST interface at baseURL. An empty baseURL
// selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccessToken requests a new access token.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	var body struct {
		AccessToken string `json:"accesstoken"`
	}
	if err := c.do(ctx, "get access token", http.MethodGet, "auth/accesstoken", nil, &body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", &remote.NetworkError{Op: "get access token", Err: errors.New("empty access token in response")}
	}
	return body.AccessToken, nil
}

// Authenticate signs the token in with the club credentials. The password
// is sent as its hex encoded MD5 digest.
func (c *Client) Authenticate(ctx context.Context, token string, creds model.Credentials) error {
	sum := md5.Sum([]byte(creds.Password))
	form := url.Values{
		"accesstoken": {token},
		"appkey":      {creds.AppKey},
		"username":    {creds.Username},
		"password":    {hex.EncodeToString(sum[:])},
		"cid":         {strconv.FormatUint(uint64(creds.ClubID), 10)},
	}
	return c.do(ctx, "authenticate", http.MethodPost, "auth/signin", form, nil)
}

// ListUsers returns all users of the club in response order.
func (c *Client) ListUsers(ctx context.Context, token string) ([]remote.User, error) {
	var raw numbered
	if err := c.do(ctx, "list users", http.MethodPost, "user/list", tokenForm(token), &raw); err != nil {
		return nil, err
	}
	entries := decodeEntries[userEntry]("list users", raw)

	users := make([]remote.User, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.toRemote())
	}
	return users, nil
}

// ListArticles returns all articles of the club in response order.
func (c *Client) ListArticles(ctx context.Context, token string) ([]remote.Article, error) {
	var raw numbered
	if err := c.do(ctx, "list articles", http.MethodPost, "articles/list", tokenForm(token), &raw); err != nil {
		return nil, err
	}
	entries := decodeEntries[articleEntry]("list articles", raw)

	articles := make([]remote.Article, 0, len(entries))
	for _, e := range entries {
		articles = append(articles, e.toRemote())
	}
	return articles, nil
}

// AddSale books one sale.
func (c *Client) AddSale(ctx context.Context, token string, sale remote.NewSale) error {
	form := tokenForm(token)
	form.Set("bookingdate", sale.BookingDate)
	form.Set("articleid", sale.ArticleID)
	form.Set("amount", strconv.Itoa(sale.Amount))
	form.Set("memberid", strconv.Itoa(sale.MemberID))
	return c.do(ctx, "add sale", http.MethodPost, "sale/add", form, nil)
}

func tokenForm(token string) url.Values {
	return url.Values{"accesstoken": {token}}
}

// do sends one request and decodes a successful JSON response into out
// (unless out is nil). Failures are mapped to the remote error taxonomy.
func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &remote.NetworkError{Op: op, Err: err}
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &remote.NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	slog.Debug("vereinsflieger request",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := statusError(op, resp.StatusCode, data); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &remote.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError maps a response status to an error, nil for 2xx.
func statusError(op string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, remote.ErrUnauthorized)
	case status >= 400 && status < 500:
		return &remote.ValidationError{Status: status, Message: errorMessage(body)}
	default:
		return &remote.NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", status)}
	}
}

// errorMessage extracts the service's error text from a response body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
