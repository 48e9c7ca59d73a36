package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/pkg/logger"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	BattleBitServerListURL = "https://publicapi.battlebit.cloud/Servers/GetServerList"
	UserAgent              = "ServerNotifier/1.0"

	// maxListBytes bounds how much of a response body is read
	maxListBytes = 16 << 20
)

// ErrDecode marks a payload that could not be parsed as a server list
var ErrDecode = errors.New("decode server list")

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Status)
}

// BattleBitClient fetches the public server list. Each call is one attempt;
// retrying is the caller's business.
type BattleBitClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewBattleBitClient creates a client for listURL. An empty URL selects the
// public endpoint, a zero timeout selects 10s.
func NewBattleBitClient(listURL string, timeout time.Duration) *BattleBitClient {
	if listURL == "" {
		listURL = BattleBitServerListURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BattleBitClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: listURL,
	}
}

// URL returns the endpoint this client polls
func (c *BattleBitClient) URL() string {
	return c.baseURL
}

// FetchServers performs a single GET of the server list.
func (c *BattleBitClient) FetchServers(ctx context.Context) ([]models.ServerRecord, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	servers, err := DecodeServerList(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetched server list", map[string]interface{}{
		"servers": len(servers),
		"status":  resp.StatusCode,
	})
	return servers, nil
}

// DecodeServerList parses a server list payload. The upstream prefixes its
// UTF-8 body with a byte-order mark and its Content-Type is not trusted, so the
// body is decoded as UTF-8 regardless of headers with any BOM dropped.
func DecodeServerList(r io.Reader) ([]models.ServerRecord, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	var servers []models.ServerRecord
	if err := json.NewDecoder(decoded).Decode(&servers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if servers == nil {
		// a literal null is not a list
		return nil, fmt.Errorf("%w: payload is not an array", ErrDecode)
	}
	return servers, nil
}

// doRequest performs an HTTP request with proper headers
func (c *BattleBitClient) doRequest(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}
