package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "jobgrid-importer/1.0"

// Client fetches and normalizes remote feeds with a bounded timeout and an
// identifying client header.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves one feed and normalizes its items. A transport error or a
// non-2xx response is a fetch failure for that feed only; an unrecognizable
// body surfaces as a *ParseError.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]JobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", feedURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", feedURL, err)
	}

	return Normalize(body, feedURL)
}
