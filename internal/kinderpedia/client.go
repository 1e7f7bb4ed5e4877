// Package kinderpedia is a small client for the Kinderpedia parent web API.
package kinderpedia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/models"
)

const (
	DefaultBaseURL = "https://app.kinderpedia.co"
	DefaultAPIKey  = "kinderpedia-parent-web"

	loginPath    = "/api/user/login"
	corePath     = "/api/user/core"
	timelinePath = "/api/timeline/daily?week=%d"
	newsfeedPath = "/api/newsfeed"

	defaultTimeout = 30 * time.Second
)

var (
	// ErrAuth is returned when the service rejects the credentials
	ErrAuth = errors.New("kinderpedia: authentication failed")
	// ErrConnection is returned for transport failures and unexpected statuses
	ErrConnection = errors.New("kinderpedia: connection failed")
)

// Options configures a Client
type Options struct {
	BaseURL  string
	APIKey   string
	Email    string
	Password string
	Timeout  time.Duration
	// HTTPClient overrides the default client, mostly for tests
	HTTPClient *http.Client
}

// Client talks to the Kinderpedia API with a cached session token
type Client struct {
	baseURL    string
	apiKey     string
	email      string
	password   string
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a client; empty options fall back to the defaults
func NewClient(opts Options, logger *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIKey == "" {
		opts.APIKey = DefaultAPIKey
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		email:      opts.Email,
		password:   opts.Password,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type loginResponse struct {
	Token    string `json:"token"`
	ExpireAt int64  `json:"expire_at"`
}

// Login obtains a session token unless the cached one is still valid
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		c.logger.Debug("Reusing cached kinderpedia token")
		return nil
	}

	payload, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return fmt.Errorf("failed to encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debugf("Sending login request to %s", req.URL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login failed with HTTP %d", ErrAuth, resp.StatusCode)
	}

	var data loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("%w: invalid login response: %v", ErrConnection, err)
	}
	if data.Token == "" {
		return fmt.Errorf("%w: missing token", ErrAuth)
	}

	c.token = data.Token
	c.tokenExpiry = tokenExpiry(data)
	c.logger.WithField("expires", c.tokenExpiry).Debug("Kinderpedia login succeeded")
	return nil
}

// tokenExpiry prefers the explicit expire_at field and falls back to the
// token's own exp claim. A token with neither is not reused.
func tokenExpiry(data loginResponse) time.Time {
	if data.ExpireAt > 0 {
		return time.Unix(data.ExpireAt, 0)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(data.Token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// get performs an authenticated GET and returns the raw body
func (c *Client) get(ctx context.Context, path string, child *childHeaders) (json.RawMessage, error) {
	c.mu.Lock()
	if err := c.loginLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	token := c.token
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	req.Header.Set("Cookie", "JWToken="+token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Api-Key", c.apiKey)
	if child != nil {
		req.Header.Set("X-Child-Id", strconv.FormatInt(child.childID, 10))
		req.Header.Set("X-Kindergarten-Id", strconv.FormatInt(child.kindergartenID, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrConnection, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", ErrConnection, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrConnection, path, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: GET %s: response is not JSON", ErrConnection, path)
	}
	return body, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

type childHeaders struct {
	childID        int64
	kindergartenID int64
}

type coreResponse struct {
	Result struct {
		AvailableAccounts []struct {
			ChildID          int64   `json:"child_id"`
			KindergartenID   int64   `json:"kindergarten_id"`
			KindergartenName *string `json:"kindergarten_name"`
			Avatar           string  `json:"avatar"`
			Status           string  `json:"status"`
		} `json:"available_accounts"`
		Children []struct {
			ID        int64   `json:"id"`
			FirstName *string `json:"first_name"`
			LastName  string  `json:"last_name"`
			BirthDate string  `json:"birth_date"`
			Gender    string  `json:"gender"`
		} `json:"children"`
	} `json:"result"`
}

// FetchChildren returns every child with an active account
func (c *Client) FetchChildren(ctx context.Context) ([]models.Child, error) {
	raw, err := c.get(ctx, corePath, nil)
	if err != nil {
		return nil, err
	}

	var core coreResponse
	if err := json.Unmarshal(raw, &core); err != nil {
		return nil, fmt.Errorf("%w: invalid core response: %v", ErrConnection, err)
	}

	byID := make(map[int64]int, len(core.Result.Children))
	for i, ch := range core.Result.Children {
		byID[ch.ID] = i
	}

	children := make([]models.Child, 0, len(core.Result.AvailableAccounts))
	for _, acc := range core.Result.AvailableAccounts {
		if acc.Status != "active" {
			continue
		}
		idx, ok := byID[acc.ChildID]
		if !ok {
			continue
		}
		ch := core.Result.Children[idx]

		children = append(children, models.Child{
			ChildID:          acc.ChildID,
			KindergartenID:   acc.KindergartenID,
			KindergartenName: stringOr(acc.KindergartenName, "Unknown"),
			Avatar:           acc.Avatar,
			FirstName:        stringOr(ch.FirstName, "Unknown"),
			LastName:         ch.LastName,
			BirthDate:        ch.BirthDate,
			Gender:           ch.Gender,
		})
	}

	c.logger.Debugf("Kinderpedia core: %d active children", len(children))
	return children, nil
}

// FetchTimeline returns the raw daily timeline of one week. weekOffset is
// relative to the current week: 0 is this week, -1 last week.
func (c *Client) FetchTimeline(ctx context.Context, childID, kindergartenID int64, weekOffset int) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf(timelinePath, weekOffset), &childHeaders{childID, kindergartenID})
}

// FetchNewsfeed returns the raw newsfeed of one child
func (c *Client) FetchNewsfeed(ctx context.Context, childID, kindergartenID int64) (json.RawMessage, error) {
	return c.get(ctx, newsfeedPath, &childHeaders{childID, kindergartenID})
}

func stringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
