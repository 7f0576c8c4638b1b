// Package musicbrainz provides a rate-limited client for the MusicBrainz
// API, covering the lookups needed to resolve recording and release-group
// ratings.
package musicbrainz

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	baseURL          = "https://musicbrainz.org/ws/2"
	defaultUserAgent = "mbrate/0.1 (https://github.com/llehouerou/mbrate)"

	// MusicBrainz asks for at most one request per second; stay under that
	// with margin, across all operation types.
	rateLimitDur = 1500 * time.Millisecond

	// Retry configuration
	maxAttempts  = 3
	initialDelay = 2 * time.Second
)

// Client provides access to the MusicBrainz API. All remote answers,
// including explicit not-found, are memoized for the client's lifetime so a
// lookup is never re-issued within one run. Instantiate a fresh client per
// run (or per test) for isolated memoization state.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	lastRequest time.Time
	mu          sync.Mutex

	recordingRatings      map[string]*Rating
	releaseByRecording    map[string]string
	releaseGroupByRelease map[string]string
	releaseGroupRatings   map[string]*Rating
	searchResults         map[string]string
}

// NewClient creates a new MusicBrainz API client. The userAgent identifies
// the caller in request headers as the service's usage policy requires; an
// empty string falls back to a generic identification.
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		httpClient:            &http.Client{Timeout: 15 * time.Second},
		userAgent:             userAgent,
		recordingRatings:      make(map[string]*Rating),
		releaseByRecording:    make(map[string]string),
		releaseGroupByRelease: make(map[string]string),
		releaseGroupRatings:   make(map[string]*Rating),
		searchResults:         make(map[string]string),
	}
}

// waitForRateLimit ensures no two outbound calls start less than
// rateLimitDur apart, across all operation types.
func (c *Client) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < rateLimitDur {
		time.Sleep(rateLimitDur - elapsed)
	}
	c.lastRequest = time.Now()
}

// get performs a throttled, retrying GET against an API endpoint and decodes
// the JSON body into out. A 404 is reported as (false, nil): the entity does
// not exist, which is a valid outcome, not an error.
func (c *Client) get(endpoint string, params url.Values, out any) (found bool, err error) {
	params.Set("fmt", "json")
	reqURL := fmt.Sprintf("%s%s?%s", baseURL, endpoint, params.Encode())

	req, err := http.NewRequest(http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff.
// Connection failures, timeouts and 429/503 responses are retried; once
// attempts are exhausted, the last 429/503 response is returned to the caller
// while a transport failure is propagated as an error.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(delay)
			delay *= 2
		}
		c.waitForRateLimit()

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}
