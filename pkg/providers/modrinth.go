package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	modrinthBaseURL = "https://api.modrinth.com/v2/"
	modrinthSiteURL = "https://modrinth.com/plugin/"
)

// ModrinthService adapts the Modrinth REST API. Search is restricted to
// server-capable plugin projects via fixed facets; version listings are
// filtered down to plugin-capable loaders, a set fetched from upstream and
// held in an injected time-expiring cache.
type ModrinthService struct {
	client  *upstreamClient
	loaders *LoaderCache
}

// NewModrinthService creates the Modrinth adapter.
func NewModrinthService(loaders *LoaderCache, opts Options) *ModrinthService {
	if loaders == nil {
		loaders = NewLoaderCache(DefaultLoaderCacheTTL, opts.Metrics)
	}
	return &ModrinthService{
		client:  newUpstreamClient(ProviderModrinth, modrinthBaseURL, opts),
		loaders: loaders,
	}
}

type modrinthHit struct {
	ProjectID   string `json:"project_id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
}

type modrinthVersion struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	GameVersions []string `json:"game_versions"`
	Files        []struct {
		URL     string `json:"url"`
		Primary bool   `json:"primary"`
	} `json:"files"`
}

// Search implements PluginService.
func (s *ModrinthService) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	facets := `["project_type:plugin"],["server_side!=unsupported"]`
	if filters.MinecraftVersion != "" {
		facets += `,["versions:` + filters.MinecraftVersion + `"]`
	}

	query := url.Values{}
	query.Set("offset", strconv.Itoa((filters.Page-1)*filters.PageSize))
	query.Set("limit", strconv.Itoa(filters.PageSize))
	query.Set("query", filters.Query)
	query.Set("index", "relevance")
	query.Set("facets", "[ "+facets+" ]")

	var resp struct {
		Hits      []modrinthHit `json:"hits"`
		TotalHits int           `json:"total_hits"`
	}
	if err := s.client.getJSON(ctx, "search", "search", query, &resp); err != nil {
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	plugins := make([]Plugin, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		p := Plugin{
			ID:               hit.ProjectID,
			Name:             hit.Title,
			ShortDescription: hit.Description,
			URL:              modrinthSiteURL + hit.Slug,
		}
		if hit.IconURL != "" {
			icon := hit.IconURL
			p.IconURL = &icon
		}
		plugins = append(plugins, p)
	}

	return SearchResult{Plugins: plugins, Total: resp.TotalHits}, nil
}

// Versions implements PluginService. Mod-only releases are excluded by
// asking upstream for versions targeting plugin-capable loaders.
func (s *ModrinthService) Versions(ctx context.Context, pluginID string) ([]PluginVersion, error) {
	loaders, err := s.loaders.Get(ctx, s.fetchPluginLoaders)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, 0, len(loaders))
	for _, loader := range loaders {
		quoted = append(quoted, `"`+loader+`"`)
	}
	query := url.Values{}
	query.Set("loaders", "["+strings.Join(quoted, ",")+"]")

	var resp []modrinthVersion
	path := "project/" + url.PathEscape(pluginID) + "/version"
	if err := s.client.getJSON(ctx, "versions", path, query, &resp); err != nil {
		return []PluginVersion{}, nil
	}

	versions := make([]PluginVersion, 0, len(resp))
	for _, version := range resp {
		v := PluginVersion{
			ID:           version.ID,
			Name:         version.Name,
			GameVersions: version.GameVersions,
		}
		if len(version.Files) > 0 {
			v.DownloadURL = version.Files[0].URL
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// DownloadURL implements PluginService.
func (s *ModrinthService) DownloadURL(ctx context.Context, pluginID, versionID string) (string, error) {
	var resp modrinthVersion
	path := fmt.Sprintf("project/%s/version/%s", url.PathEscape(pluginID), url.PathEscape(versionID))
	if err := s.client.getJSON(ctx, "download_url", path, nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Files) == 0 || resp.Files[0].URL == "" {
		return "", ErrNoDownloadURL
	}
	return resp.Files[0].URL, nil
}

// fetchPluginLoaders pulls the upstream loader tag list and keeps the
// loaders that support plugin projects.
func (s *ModrinthService) fetchPluginLoaders(ctx context.Context) ([]string, error) {
	var resp []struct {
		Name                  string   `json:"name"`
		SupportedProjectTypes []string `json:"supported_project_types"`
	}
	if err := s.client.getJSON(ctx, "loader_tags", "tag/loader", nil, &resp); err != nil {
		return nil, err
	}

	var loaders []string
	for _, loader := range resp {
		for _, projectType := range loader.SupportedProjectTypes {
			if projectType == "plugin" {
				loaders = append(loaders, loader.Name)
				break
			}
		}
	}
	return loaders, nil
}
