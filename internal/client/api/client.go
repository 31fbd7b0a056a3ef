package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const maxResponseBytes = 4 << 20

// TokenStore is the persistent side of the session. storage.Store implements it.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string, ttl time.Duration) error
	SaveSession(ctx context.Context, token string, user *models.User, ttl time.Duration) error
	SaveUser(ctx context.Context, user *models.User) error
	User(ctx context.Context) (*models.User, error)
	ClearToken(ctx context.Context) error
	ClearSession(ctx context.Context) error
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSessionTTL makes stored tokens expire after d. Zero keeps them forever.
func WithSessionTTL(d time.Duration) Option {
	return func(c *Client) { c.sessionTTL = d }
}

type Client struct {
	baseURL    string
	http       *http.Client
	store      TokenStore
	log        logging.Logger
	metrics    *metrics.Metrics
	sessionTTL time.Duration

	// mu guards the token cache and serializes every write to the store's
	// token so the two never disagree.
	mu     sync.Mutex
	token  string
	loaded bool

	clears singleflight.Group

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int
}

func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 5 * time.Second},
		store:     store,
		log:       logging.NewNop(),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetToken returns the current token, loading it from the store on first use.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenLocked(ctx)
}

func (c *Client) tokenLocked(ctx context.Context) (string, error) {
	if c.loaded {
		return c.token, nil
	}
	token, err := c.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("load token error: %w", err)
	}
	c.token = token
	c.loaded = true
	return token, nil
}

// SetToken persists token and then updates the cache.
func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SaveToken(ctx, token, c.sessionTTL); err != nil {
		return fmt.Errorf("save token error: %w", err)
	}
	c.token = token
	c.loaded = true
	return nil
}

// SetSession persists token and user in one transaction and then updates the cache.
func (c *Client) SetSession(ctx context.Context, token string, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SaveSession(ctx, token, user, c.sessionTTL); err != nil {
		return fmt.Errorf("save session error: %w", err)
	}
	c.token = token
	c.loaded = true
	return nil
}

func (c *Client) ClearToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token error: %w", err)
	}
	c.token = ""
	c.loaded = true
	return nil
}

// ClearSession removes the token and the user snapshot.
func (c *Client) ClearSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearSessionLocked(ctx)
}

func (c *Client) clearSessionLocked(ctx context.Context) error {
	if err := c.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session error: %w", err)
	}
	c.token = ""
	c.loaded = true
	return nil
}

func (c *Client) SaveUser(ctx context.Context, user *models.User) error {
	if err := c.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user error: %w", err)
	}
	return nil
}

// CachedUser returns the user snapshot saved at login, or nil.
func (c *Client) CachedUser(ctx context.Context) (*models.User, error) {
	u, err := c.store.User(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user error: %w", err)
	}
	return u, nil
}

// OnSessionCleared registers fn to run after a 401 cleared the session.
// The returned func removes the registration.
func (c *Client) OnSessionCleared(fn func()) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Client) notifySessionCleared() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// handleUnauthorized clears the session once for a given token. Requests that
// carried an older token, or none, are ignored.
func (c *Client) handleUnauthorized(ctx context.Context, sent string) {
	if sent == "" {
		return
	}
	_, _, _ = c.clears.Do("session", func() (any, error) {
		c.mu.Lock()
		if !c.loaded || c.token != sent {
			c.mu.Unlock()
			return false, nil
		}
		err := c.clearSessionLocked(ctx)
		c.mu.Unlock()
		if err != nil {
			c.log.Error(ctx, "failed to clear session after 401", "error", err)
			return false, err
		}

		c.log.Warn(ctx, "session cleared after unauthorized response")
		if c.metrics != nil {
			c.metrics.SessionClears.Inc()
		}
		c.notifySessionCleared()
		return true, nil
	})
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one request. body is JSON-encoded when non-nil; a successful
// response is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.GetToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request error: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("build request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	label := routeLabel(path)
	c.log.Info(ctx, "api request", "method", method, "path", path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, label, "error", start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Error(ctx, "api request failed", "method", method, "path", path, "error", err)
		return &Error{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(method, label, strconv.Itoa(resp.StatusCode), start)
	c.log.Info(ctx, "api response", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	if err != nil {
		return &Error{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(context.WithoutCancel(ctx), token)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}
		if err := json.Unmarshal(raw, &apiErr.Body); err != nil {
			apiErr.Body = nil
			apiErr.Text = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response error: %w", err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) observe(method, label, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.APIRequests.WithLabelValues(method, label, status).Inc()
	c.metrics.APIDuration.WithLabelValues(method, label).Observe(time.Since(start).Seconds())
}

var idSegment = regexp.MustCompile(`^([0-9]+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)

// routeLabel strips the query and replaces id segments so metric labels stay bounded.
func routeLabel(path string) string {
	path, _, _ = strings.Cut(path, "?")
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if idSegment.MatchString(p) {
			parts[i] = ":id"
		}
	}
	return "/" + strings.TrimLeft(strings.Join(parts, "/"), "/")
}
