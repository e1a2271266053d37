package deepl

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiaoLing0721/deeplx-worker/logcolors"
)

// Client posts emulated requests to the backend JSON-RPC endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a backend client for the given JSON-RPC endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Post sends the rendered body with the fixed header bundle impersonating the
// official iOS client build. A non-empty session adds the dl_session cookie.
// Returns the backend's HTTP status and decompressed response body.
func (c *Client) Post(ctx context.Context, body, session string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", "DeepL-iOS/2.9.1 iOS 16.3.0 (iPhone14,5)")
	req.Header.Set("x-app-os-name", "iOS")
	req.Header.Set("x-app-os-version", "16.3.0")
	req.Header.Set("x-app-device", "iPhone14,5")
	req.Header.Set("x-app-build", "510265")
	req.Header.Set("x-app-version", "2.9.1")
	if session != "" {
		req.Header.Set("Cookie", "dl_session="+session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	log.Debugf("%s Response status %d from %s", logcolors.LogBackend, resp.StatusCode, c.endpoint)

	// Accept-Encoding is set manually, so the transport does not decompress
	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		defer gz.Close()
		reader = gz
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, raw, nil
}
