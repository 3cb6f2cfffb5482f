package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModrinthSearchFacets(t *testing.T) {
	var gotFacets string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		gotFacets = r.URL.Query().Get("facets")
		assert.Equal(t, "relevance", r.URL.Query().Get("index"))
		w.Write([]byte(`{"hits": [], "total_hits": 0}`))
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	_, err := service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, `[ ["project_type:plugin"],["server_side!=unsupported"] ]`, gotFacets)

	_, err = service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10, MinecraftVersion: "1.21"})
	require.NoError(t, err)
	assert.Equal(t, `[ ["project_type:plugin"],["server_side!=unsupported"],["versions:1.21"] ]`, gotFacets)
}

func TestModrinthSearchWorldEditPage(t *testing.T) {
	type hit struct {
		ProjectID   string `json:"project_id"`
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "worldedit", query.Get("query"))
		assert.Equal(t, "0", query.Get("offset"))
		assert.Equal(t, "10", query.Get("limit"))

		hits := make([]hit, 10)
		for i := range hits {
			hits[i] = hit{
				ProjectID:   fmt.Sprintf("proj-%d", i),
				Slug:        fmt.Sprintf("worldedit-%d", i),
				Title:       fmt.Sprintf("WorldEdit Fork %d", i),
				Description: "In-game map editor",
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": hits, "total_hits": 95})
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Query: "worldedit", Page: 1, PageSize: 10})
	require.NoError(t, err)

	require.Len(t, result.Plugins, 10)
	for _, plugin := range result.Plugins {
		assert.NotEmpty(t, plugin.ID)
		assert.NotEmpty(t, plugin.Name)
	}
	assert.Equal(t, 95, result.Total)

	totalPages := (result.Total + 9) / 10
	assert.Equal(t, 10, totalPages)
	assert.GreaterOrEqual(t, result.Total, len(result.Plugins))
}

func TestModrinthSearchFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	result, err := service.Search(context.Background(), SearchFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Plugins)
	assert.Zero(t, result.Total)
}

func TestModrinthVersionsFilterByPluginLoaders(t *testing.T) {
	loaderCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tag/loader":
			loaderCalls++
			w.Write([]byte(`[
				{"name": "paper", "supported_project_types": ["plugin"]},
				{"name": "fabric", "supported_project_types": ["mod"]},
				{"name": "bukkit", "supported_project_types": ["plugin", "mod"]}
			]`))
		case "/project/abc/version":
			assert.Equal(t, `["paper","bukkit"]`, r.URL.Query().Get("loaders"))
			w.Write([]byte(`[
				{"id": "v1", "name": "1.0", "game_versions": ["1.21"], "files": [{"url": "https://cdn.modrinth.com/v1.jar", "primary": true}]}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))

	versions, err := service.Versions(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].ID)
	assert.Equal(t, "https://cdn.modrinth.com/v1.jar", versions[0].DownloadURL)

	// The loader tag list is cached; a second listing reuses it.
	_, err = service.Versions(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, loaderCalls)
}

func TestModrinthVersionsLoaderFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	_, err := service.Versions(context.Background(), "abc")
	assert.Error(t, err)
}

func TestModrinthVersionsListingFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tag/loader" {
			w.Write([]byte(`[{"name": "paper", "supported_project_types": ["plugin"]}]`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	versions, err := service.Versions(context.Background(), "abc")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestModrinthDownloadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/project/abc/version/v1", r.URL.Path)
		w.Write([]byte(`{"id": "v1", "files": [{"url": "https://cdn.modrinth.com/v1.jar"}]}`))
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	url, err := service.DownloadURL(context.Background(), "abc", "v1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.modrinth.com/v1.jar", url)
}

func TestModrinthDownloadURLNoFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "v1", "files": []}`))
	}))
	defer server.Close()

	service := NewModrinthService(nil, testOptions(server))
	_, err := service.DownloadURL(context.Background(), "abc", "v1")
	assert.ErrorIs(t, err, ErrNoDownloadURL)
}
