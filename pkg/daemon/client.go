// Package daemon talks to the game-server daemon that owns the server's
// filesystem. The gateway never touches plugin files itself; it asks the
// daemon to pull a URL into the server's plugin directory.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// PluginDirectory is where pulled plugin files land, relative to the server
// root.
const PluginDirectory = "/plugins"

// Client calls the daemon's file API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a daemon client. The timeout bounds the whole pull: the
// daemon downloads in the foreground, so large plugins take real time.
func NewClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PullRequest asks the daemon to download a remote file into a directory on
// a server.
type PullRequest struct {
	// URL is the remote file to fetch.
	URL string `json:"url"`
	// Directory is the target directory relative to the server root.
	Directory string `json:"directory"`
	// UseHeader makes the daemon name the file from the upstream
	// Content-Disposition header instead of the URL path.
	UseHeader bool `json:"use_header"`
	// Foreground blocks the request until the file is fully staged.
	Foreground bool `json:"foreground"`
}

// Pull downloads a remote file onto a server and waits for completion.
func (c *Client) Pull(ctx context.Context, serverID string, req PullRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode pull request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/servers/%s/files/pull", c.baseURL, url.PathEscape(serverID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build pull request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("daemon pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.WithFields(logrus.Fields{
			"server": serverID,
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Daemon rejected file pull")
		return fmt.Errorf("daemon pull failed with status %d", resp.StatusCode)
	}
	return nil
}
