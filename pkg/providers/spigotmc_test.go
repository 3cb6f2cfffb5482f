package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpigotMCSearchWithQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/resources/worldguard", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "10", query.Get("size"))
		assert.Equal(t, "1", query.Get("page"))
		assert.Equal(t, "-downloads", query.Get("sort"))
		w.Write([]byte(`[
			{"id": 1, "name": "WorldGuard", "tag": "Protect your world", "icon": {"url": "data/resource_icons/1.jpg", "data": ""}, "external": false, "premium": false, "file": {"url": "", "externalUrl": ""}}
		]`))
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "worldguard", Page: 1, PageSize: 10})
	require.NoError(t, err)

	require.Len(t, result.Plugins, 1)
	// Spiget reports no total, so the page stands alone.
	assert.Equal(t, 1, result.Total)

	plugin := result.Plugins[0]
	assert.Equal(t, "1", plugin.ID)
	assert.Equal(t, "https://www.spigotmc.org/resources/1", plugin.URL)
	require.NotNil(t, plugin.IconURL)
	assert.Equal(t, "https://corsproxy.io/?"+url.QueryEscape("https://spigotmc.org/data/resource_icons/1.jpg"), *plugin.IconURL)
	assert.Nil(t, plugin.ExternalURL)
}

func TestSpigotMCSearchEmptyQueryBrowsesFree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/resources/free", r.URL.Path)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Plugins)
}

func TestSpigotMCSearchIconFallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 1, "name": "A", "icon": {"url": "", "data": "data:image/png;base64,xyz"}},
			{"id": 2, "name": "B", "icon": {"url": "", "data": ""}}
		]`))
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "a", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Plugins, 2)

	assert.Equal(t, "https://corsproxy.io/?"+url.QueryEscape("data:image/png;base64,xyz"), *result.Plugins[0].IconURL)
	assert.Equal(t, "https://corsproxy.io/?"+url.QueryEscape("https://static.spigotmc.org/styles/spigot/xenresource/resource_icon.png"), *result.Plugins[1].IconURL)
}

func TestSpigotMCSearchExternalURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 1, "name": "WebHosted", "external": true, "premium": false, "file": {"url": "resources/webhosted.1/download", "externalUrl": "https://example.com/page.html"}},
			{"id": 2, "name": "HangarHosted", "external": true, "premium": false, "file": {"url": "resources/hangarhosted.2/download", "externalUrl": "https://hangar.papermc.io/x/y"}},
			{"id": 3, "name": "PremiumExternal", "external": true, "premium": true, "file": {"url": "resources/premium.3/download", "externalUrl": "https://example.com/buy.html"}},
			{"id": 4, "name": "DirectJar", "external": true, "premium": false, "file": {"url": "resources/direct.4/download", "externalUrl": "https://example.com/direct.jar"}}
		]`))
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "x", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Plugins, 4)

	require.NotNil(t, result.Plugins[0].ExternalURL)
	assert.Equal(t, "https://www.spigotmc.org/resources/webhosted.1/download", *result.Plugins[0].ExternalURL)
	assert.NotNil(t, result.Plugins[1].ExternalURL)
	// Premium pages are paywalls, not download pages.
	assert.Nil(t, result.Plugins[2].ExternalURL)
	// Direct jars can be pulled by the daemon.
	assert.Nil(t, result.Plugins[3].ExternalURL)
}

func TestSpigotMCSearchFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "x", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Plugins)
}

func TestSpigotMCVersionsLatestOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/resources/1/versions/latest", r.URL.Path)
		w.Write([]byte(`{"id": 500, "name": "7.0.9"}`))
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	versions, err := service.Versions(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "500", versions[0].ID)
	assert.Equal(t, "7.0.9", versions[0].Name)
}

func TestSpigotMCVersionsPropagateFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	service := NewSpigotMCService(testOptions(server))
	_, err := service.Versions(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpigotMCDownloadURLFollowsRedirect(t *testing.T) {
	var mux http.ServeMux
	server := httptest.NewServer(&mux)
	defer server.Close()

	mux.HandleFunc("/resources/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "file": {"url": "", "externalUrl": ""}}`))
	})
	mux.HandleFunc("/resources/1/download", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Location", "https://cdn.example.com/plugin.jar")
		w.WriteHeader(http.StatusFound)
	})

	service := NewSpigotMCService(testOptions(server))
	url, err := service.DownloadURL(context.Background(), "1", "500")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/plugin.jar", url)
}

func TestSpigotMCDownloadURLNoRedirect(t *testing.T) {
	var mux http.ServeMux
	server := httptest.NewServer(&mux)
	defer server.Close()

	mux.HandleFunc("/resources/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "file": {"url": "", "externalUrl": ""}}`))
	})
	mux.HandleFunc("/resources/1/download", func(w http.ResponseWriter, r *http.Request) {
		// No Location header means no redirect; the original URL stands.
		w.WriteHeader(http.StatusOK)
	})

	service := NewSpigotMCService(testOptions(server))
	url, err := service.DownloadURL(context.Background(), "1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/resources/1/download"))
}

func TestSpigotMCDownloadURLPrefersExternalFile(t *testing.T) {
	var probed bool
	var mux http.ServeMux
	server := httptest.NewServer(&mux)
	defer server.Close()

	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = true
		w.WriteHeader(http.StatusOK)
	}))
	defer external.Close()

	mux.HandleFunc("/resources/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "file": {"url": "", "externalUrl": "` + external.URL + `/plugin.jar"}}`))
	})

	service := NewSpigotMCService(testOptions(server))
	url, err := service.DownloadURL(context.Background(), "1", "")
	require.NoError(t, err)
	assert.Equal(t, external.URL+"/plugin.jar", url)
	assert.True(t, probed)
}
