package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHangarSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "25", query.Get("limit"))
		assert.Equal(t, "25", query.Get("offset"))
		assert.Equal(t, "essentials", query.Get("query"))
		w.Write([]byte(`{
			"result": [
				{"name": "EssentialsX", "description": "The essential plugin suite", "avatarUrl": "https://example.com/avatar.png", "namespace": {"owner": "EssentialsX", "slug": "Essentials"}}
			],
			"pagination": {"count": 42}
		}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "essentials", Page: 2, PageSize: 25})
	require.NoError(t, err)

	require.Len(t, result.Plugins, 1)
	assert.Equal(t, 42, result.Total)
	plugin := result.Plugins[0]
	assert.Equal(t, "EssentialsX", plugin.ID)
	assert.Equal(t, "https://hangar.papermc.io/EssentialsX/Essentials", plugin.URL)
	require.NotNil(t, plugin.IconURL)
	assert.Equal(t, "https://example.com/avatar.png", *plugin.IconURL)
}

func TestHangarSearchOmitsEmptyQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["query"]
		assert.False(t, present)
		w.Write([]byte(`{"result": [], "pagination": {"count": 0}}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	_, err := service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
}

func TestHangarSearchFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Plugins)
	assert.Zero(t, result.Total)
}

func TestHangarVersionsFlattenPlatformDownloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/EssentialsX/versions", r.URL.Path)
		w.Write([]byte(`{
			"result": [
				{"name": "2.20.1", "downloads": {
					"PAPER": {"downloadUrl": "https://example.com/paper.jar", "externalUrl": ""}
				}}
			]
		}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	versions, err := service.Versions(context.Background(), "EssentialsX")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "PAPER-2.20.1", versions[0].ID)
	assert.Equal(t, "2.20.1 (PAPER)", versions[0].Name)
	assert.Equal(t, "https://example.com/paper.jar", versions[0].DownloadURL)
}

func TestHangarVersionsFallBackToExternalURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"result": [
				{"name": "1.0", "downloads": {
					"WATERFALL": {"downloadUrl": "", "externalUrl": "https://elsewhere.example.com/plugin.jar"}
				}}
			]
		}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	versions, err := service.Versions(context.Background(), "Example")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "https://elsewhere.example.com/plugin.jar", versions[0].DownloadURL)
}

func TestHangarDownloadURLRoundTrip(t *testing.T) {
	// Version names may contain dashes; only the first one separates the
	// platform component.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/Example/versions/2.0-SNAPSHOT", r.URL.Path)
		w.Write([]byte(`{
			"name": "2.0-SNAPSHOT",
			"downloads": {"PAPER": {"downloadUrl": "https://example.com/snapshot.jar"}}
		}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	url, err := service.DownloadURL(context.Background(), "Example", "PAPER-2.0-SNAPSHOT")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/snapshot.jar", url)
}

func TestHangarDownloadURLMalformedID(t *testing.T) {
	service := NewHangarService(Options{})
	_, err := service.DownloadURL(context.Background(), "Example", "nodash")
	assert.Error(t, err)
}

func TestHangarDownloadURLUnknownPlatform(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "1.0", "downloads": {"PAPER": {"downloadUrl": "https://example.com/x.jar"}}}`))
	}))
	defer server.Close()

	service := NewHangarService(testOptions(server))
	_, err := service.DownloadURL(context.Background(), "Example", "VELOCITY-1.0")
	assert.ErrorIs(t, err, ErrNoDownloadURL)
}
