package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// MaxPerPage is the largest page size Strava accepts
const MaxPerPage = 200

// APIError is a non-200 response from Strava
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
	log         zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the authenticated HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter replaces the default rate limiter
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = rl }
}

// WithLogger sets the request logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new Strava API client rooted at baseURL
func NewClient(tokenSource oauth2.TokenSource, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	c := &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		rateLimiter: NewRateLimiter(),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities fetches the athlete's newest activities, newest first
func (c *Client) ListActivities(ctx context.Context, page, perPage int) ([]Activity, error) {
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	params.Set("per_page", strconv.Itoa(perPage))

	body, err := c.getJSON(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var activities []Activity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}
	return activities, nil
}

// LatestActivities fetches up to count of the newest activities, paging as needed
func (c *Client) LatestActivities(ctx context.Context, count int) ([]Activity, error) {
	// Page size stays fixed so pages line up on the server side
	perPage := min(count, MaxPerPage)
	var all []Activity
	for page := 1; len(all) < count; page++ {
		activities, err := c.ListActivities(ctx, page, perPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		all = append(all, activities...)
		if len(activities) < perPage {
			break // Last page
		}
	}
	if len(all) > count {
		all = all[:count]
	}
	return all, nil
}

// GetActivity fetches the full activity detail as raw JSON
func (c *Client) GetActivity(ctx context.Context, activityID int64) (json.RawMessage, error) {
	return c.getJSON(ctx, fmt.Sprintf("/activities/%d", activityID), nil)
}

// GetActivityStreams fetches the activity's streams keyed by type, as raw JSON
func (c *Client) GetActivityStreams(ctx context.Context, activityID int64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("keys", StreamKeys)
	params.Set("key_by_type", "true")
	return c.getJSON(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params)
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	c.log.Debug().Str("url", reqURL).Msg("strava request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON from %s", path)
	}
	return body, nil
}
