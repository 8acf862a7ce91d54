package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound indicates the API answered authoritatively that no record
// exists. It is never worth retrying.
var ErrNotFound = errors.New("tvdb: not found")

// ErrUnavailable indicates a transient failure (timeout, 5xx, rate limit)
// where a later retry may succeed.
var ErrUnavailable = errors.New("tvdb: service unavailable")

// Series is a single series returned from a TVDB search.
type Series struct {
	ID   int64  `json:"tvdb_id,string"`
	Name string `json:"name"`
	Year string `json:"year"`
}

// Episode is one episode of a series.
type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"number"`
	Aired         string `json:"aired"`
}

// Lookuper defines the TVDB operations the matcher depends on.
type Lookuper interface {
	SearchSeries(ctx context.Context, query string) ([]Series, error)
	SeriesEpisodes(ctx context.Context, seriesID int64) ([]Episode, error)
}

// Client talks to the TVDB v4 API. Authentication uses the key-for-token
// login endpoint; the bearer token is acquired lazily on first use and
// refreshed when the API reports it expired.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

var _ Lookuper = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TVDB client.
func New(apiKey, baseURL, language string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tvdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tvdb base url required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchSeries searches TVDB for series matching the query. An empty result
// set is returned as ErrNotFound.
func (c *Client) SearchSeries(ctx context.Context, query string) ([]Series, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "series")

	var payload struct {
		Data []Series `json:"data"`
	}
	if err := c.get(ctx, "/search", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("no series match %q: %w", query, ErrNotFound)
	}
	return payload.Data, nil
}

// SeriesEpisodes fetches the complete default-order episode list for a
// series, walking every page.
func (c *Client) SeriesEpisodes(ctx context.Context, seriesID int64) ([]Episode, error) {
	var episodes []Episode
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))

		var payload struct {
			Data struct {
				Episodes []Episode `json:"episodes"`
			} `json:"data"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}
		path := fmt.Sprintf("/series/%d/episodes/default", seriesID)
		if c.language != "" {
			path = fmt.Sprintf("/series/%d/episodes/default/%s", seriesID, c.language)
		}
		if err := c.get(ctx, path, params, &payload); err != nil {
			return nil, err
		}

		episodes = append(episodes, payload.Data.Episodes...)
		if payload.Links.Next == "" || len(payload.Data.Episodes) == 0 {
			break
		}
	}
	if len(episodes) == 0 {
		return nil, fmt.Errorf("series %d has no episodes: %w", seriesID, ErrNotFound)
	}
	return episodes, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	token, err := c.authToken(ctx, false)
	if err != nil {
		return err
	}

	status, err := c.doGet(ctx, path, params, token, out)
	if err == nil {
		return nil
	}
	if status != http.StatusUnauthorized {
		return err
	}

	// Token expired; log in again and retry once.
	token, err = c.authToken(ctx, true)
	if err != nil {
		return err
	}
	_, err = c.doGet(ctx, path, params, token, out)
	return err
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, token string, out any) (int, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, fmt.Errorf("parse tvdb url: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute tvdb request: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("tvdb %s returned 404: %w", path, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("tvdb %s returned 401", path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("tvdb %s returned %d: %w", path, resp.StatusCode, ErrUnavailable)
	default:
		return resp.StatusCode, fmt.Errorf("tvdb %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode tvdb response: %w", err)
	}
	return resp.StatusCode, nil
}

// authToken returns the cached bearer token, logging in when none is held or
// when force is set.
func (c *Client) authToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !force {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{"apikey": c.apiKey})
	if err != nil {
		return "", fmt.Errorf("encode login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute tvdb login: %w", errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("tvdb login returned %d: %w", resp.StatusCode, ErrUnavailable)
	default:
		return "", fmt.Errorf("tvdb login returned %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.Data.Token == "" {
		return "", errors.New("tvdb login returned empty token")
	}
	c.token = payload.Data.Token
	return c.token, nil
}
