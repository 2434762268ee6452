package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 10 * time.Second

const defaultUserAgent = "commentpulse/1.0 (listing scraper)"

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Client fetches listing pages over HTTP.
type Client struct {
	http *resty.Client
}

// New creates a page fetcher. A zero timeout means DefaultTimeout.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &Client{http: c}
}

// Fetch issues one GET and returns the body. Transport failures (including
// the timeout) are returned as-is; non-2xx answers become a *StatusError.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", pageURL, err)
	}
	if !resp.IsSuccess() {
		return "", &StatusError{URL: pageURL, Code: resp.StatusCode()}
	}
	return resp.String(), nil
}
