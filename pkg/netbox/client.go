// Package netbox is a read-only client for the parts of the NetBox REST API
// popctl needs: devices, interfaces, IP addresses, prefixes and circuit
// terminations.
package netbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neteng-tools/popctl/pkg/util"
)

// ErrNotFound is returned when a lookup by name matches nothing.
var ErrNotFound = fmt.Errorf("netbox: %w", util.ErrNotFound)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netbox %s: HTTP %d: %s", e.URL, e.StatusCode, util.Truncate(strings.TrimSpace(e.Body), 200))
}

// Config holds connection parameters.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Client talks to one NetBox instance.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Client. The base URL is the API root, e.g.
// https://netbox.example.net/api/.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.URL, "/") + "/",
		Token:      cfg.Token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// list fetches every page of endpoint filtered by query. Next links must
// stay on the BaseURL host and are fetched with its scheme; a link seen
// twice is an error.
func list[T any](ctx context.Context, c *Client, endpoint string, query url.Values) ([]T, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("netbox base URL %q: %w", c.BaseURL, err)
	}
	next := c.BaseURL + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		next += "?" + query.Encode()
	}

	var all []T
	seen := make(map[string]bool)
	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("netbox pagination repeats %s", next)
		}
		seen[next] = true

		var p page[T]
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)
		if p.Next == "" {
			break
		}
		if next, err = nextPage(base, p.Next); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// nextPage checks a next link against the API root. NetBox behind a TLS
// proxy reports http links, so the scheme is taken from base.
func nextPage(base *url.URL, link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("netbox next link %q: %w", link, err)
	}
	if !strings.EqualFold(u.Host, base.Host) {
		return "", fmt.Errorf("netbox next link %q leaves %s", link, base.Host)
	}
	u.Scheme = base.Scheme
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("netbox request: %w", err)
	}
	defer resp.Body.Close()

	util.WithOperation("netbox.get").WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debugf("GET %s", rawURL)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("netbox read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("netbox decode %s: %w", rawURL, err)
	}
	return nil
}
