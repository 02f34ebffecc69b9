package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/farxc/movimento_flat/internal/logger"
	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

var RawGithubURL = "https://raw.githubusercontent.com"

const DefaultTimeout = 60 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// New returns a Client for baseURL. An empty baseURL means RawGithubURL and a
// non-positive timeout means DefaultTimeout.
func New(baseURL string, timeout time.Duration, appLogger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = RawGithubURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     appLogger,
	}
}

// URL builds <base>/<owner>/<repo>/<branch>/[<subdir>/]<filename>.
func (c *Client) URL(src types.Source, filename string) string {
	parts := []string{src.Owner, src.Repo, src.Branch}
	if sub := strings.Trim(src.Subdir, "/"); sub != "" {
		parts = append(parts, strings.Split(sub, "/")...)
	}
	parts = append(parts, filename)

	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(parts, "/")
}

// Fetch downloads one file. There is no retry: any failure is returned as a
// *types.TransferError.
func (c *Client) Fetch(ctx context.Context, src types.Source, filename string) ([]byte, error) {
	const component = "Fetcher"
	fileURL := c.URL(src, filename)

	c.logger.Debug(component, "Starting download: file=%s url=%s", filename, fileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, &types.TransferError{URL: fileURL, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(component, "HTTP request failed: file=%s error=%v", filename, err)
		return nil, &types.TransferError{URL: fileURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn(component, "Non-OK HTTP response: file=%s status=%s statusCode=%d", filename, resp.Status, resp.StatusCode)
		return nil, &types.TransferError{URL: fileURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error(component, "Failed to read response body: file=%s error=%v", filename, err)
		return nil, &types.TransferError{URL: fileURL, Err: err}
	}

	c.logger.Info(component, "Download completed: file=%s size=%d bytes", filename, len(body))
	return body, nil
}
