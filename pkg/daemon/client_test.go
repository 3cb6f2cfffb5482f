package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPull(t *testing.T) {
	var got PullRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/servers/abc123/files/pull", r.URL.Path)
		require.Equal(t, "Bearer daemon-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "daemon-token", time.Second, nil)
	err := client.Pull(context.Background(), "abc123", PullRequest{
		URL:        "https://cdn.example.com/plugin.jar",
		Directory:  PluginDirectory,
		UseHeader:  true,
		Foreground: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/plugin.jar", got.URL)
	assert.Equal(t, "/plugins", got.Directory)
	assert.True(t, got.UseHeader)
	assert.True(t, got.Foreground)
}

func TestPullDaemonError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	client := NewClient(server.URL, "t", time.Second, nil)
	err := client.Pull(context.Background(), "abc", PullRequest{URL: "https://example.com/x.jar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "507")
}

func TestPullUnreachableDaemon(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "t", 100*time.Millisecond, nil)
	err := client.Pull(context.Background(), "abc", PullRequest{URL: "https://example.com/x.jar"})
	assert.Error(t, err)
}
