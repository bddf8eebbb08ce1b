// Package geoip resolves IP addresses to locations through an ip-api.com
// compatible service and caches the answers.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
)

// DefaultBaseURL is the public ip-api.com endpoint.
const DefaultBaseURL = "http://ip-api.com"

// ErrLookupFailed is returned when the service answers with a non-success status.
var ErrLookupFailed = errors.New("geoip: lookup failed")

// Client calls GET {baseURL}/json/{ip}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Query    string  `json:"query"`
	Country  string  `json:"country"`
	City     string  `json:"city"`
	Timezone string  `json:"timezone"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	ISP      string  `json:"isp"`
	AS       string  `json:"as"`
}

// Lookup fetches the location of ip. Transport errors, non-2xx responses and
// status != "success" are all returned as errors.
func (c *Client) Lookup(ctx context.Context, ip string) (domain.IPGeolocation, error) {
	endpoint := c.baseURL + "/json/" + url.PathEscape(ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.IPGeolocation{}, fmt.Errorf("geoip: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.IPGeolocation{}, fmt.Errorf("geoip: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.IPGeolocation{}, fmt.Errorf("geoip: unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return domain.IPGeolocation{}, fmt.Errorf("geoip: decode response: %w", err)
	}

	if body.Status != "success" {
		if body.Message != "" {
			return domain.IPGeolocation{}, fmt.Errorf("%w: %s", ErrLookupFailed, body.Message)
		}
		return domain.IPGeolocation{}, ErrLookupFailed
	}

	resolved := body.Query
	if resolved == "" {
		resolved = ip
	}
	return domain.IPGeolocation{
		IP:       resolved,
		Country:  body.Country,
		City:     body.City,
		Timezone: body.Timezone,
		Lat:      body.Lat,
		Lon:      body.Lon,
		ISP:      body.ISP,
		ASN:      body.AS,
	}, nil
}
