package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	curseForgeBaseURL = "https://api.curseforge.com/v1/"

	// Upstream constants for the Minecraft game and its "Bukkit plugins"
	// class. https://docs.curseforge.com/
	curseForgeMinecraftGameID = 432
	curseForgePluginsClassID  = 5

	// Upstream sorts: 2 = popularity.
	curseForgeSortPopularity = 2

	// Upstream rejects any request where index + pageSize exceeds this.
	curseForgeMaxWindow = 10000
)

// CurseForgeService adapts the CurseForge REST API. It requires an API key.
type CurseForgeService struct {
	client *upstreamClient
	apiKey string
}

// NewCurseForgeService creates the CurseForge adapter.
func NewCurseForgeService(apiKey string, opts Options) *CurseForgeService {
	client := newUpstreamClient(ProviderCurseForge, curseForgeBaseURL, opts)
	client.headers["X-API-Key"] = apiKey
	return &CurseForgeService{client: client, apiKey: apiKey}
}

type curseForgeMod struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Links   struct {
		WebsiteURL string `json:"websiteUrl"`
	} `json:"links"`
	Logo *struct {
		ThumbnailURL string `json:"thumbnailUrl"`
	} `json:"logo"`
}

type curseForgeSearchResponse struct {
	Data       []curseForgeMod `json:"data"`
	Pagination struct {
		TotalCount int `json:"totalCount"`
	} `json:"pagination"`
}

type curseForgeFile struct {
	ID           int      `json:"id"`
	DisplayName  string   `json:"displayName"`
	GameVersions []string `json:"gameVersions"`
	DownloadURL  string   `json:"downloadUrl"`
}

// Search implements PluginService. The reported total is capped so that no
// reachable page produces an offset beyond the upstream's 10000-result
// window.
func (s *CurseForgeService) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	if s.apiKey == "" {
		s.client.logger.WithField("provider", ProviderCurseForge).
			Error("Skipping CurseForge search: no API key configured")
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	index := (filters.Page - 1) * filters.PageSize
	if index > curseForgeMaxWindow-filters.PageSize {
		index = curseForgeMaxWindow - filters.PageSize
	}

	query := url.Values{}
	query.Set("index", strconv.Itoa(index))
	query.Set("pageSize", strconv.Itoa(filters.PageSize))
	query.Set("gameId", strconv.Itoa(curseForgeMinecraftGameID))
	query.Set("classId", strconv.Itoa(curseForgePluginsClassID))
	query.Set("searchFilter", filters.Query)
	query.Set("sortField", strconv.Itoa(curseForgeSortPopularity))
	query.Set("sortOrder", "desc")
	if filters.MinecraftVersion != "" {
		query.Set("gameVersion", filters.MinecraftVersion)
	}

	var resp curseForgeSearchResponse
	if err := s.client.getJSON(ctx, "search", "mods/search", query, &resp); err != nil {
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	plugins := make([]Plugin, 0, len(resp.Data))
	for _, mod := range resp.Data {
		p := Plugin{
			ID:               strconv.Itoa(mod.ID),
			Name:             mod.Name,
			ShortDescription: mod.Summary,
			URL:              mod.Links.WebsiteURL,
		}
		if mod.Logo != nil && mod.Logo.ThumbnailURL != "" {
			icon := mod.Logo.ThumbnailURL
			p.IconURL = &icon
		}
		plugins = append(plugins, p)
	}

	// index + pageSize <= 10000 upstream, so pages past that bound do not
	// exist no matter what totalCount claims.
	maximumPage := (curseForgeMaxWindow-filters.PageSize)/filters.PageSize + 1
	total := resp.Pagination.TotalCount
	if capped := maximumPage * filters.PageSize; total > capped {
		total = capped
	}

	return SearchResult{Plugins: plugins, Total: total}, nil
}

// Versions implements PluginService. Like the listing page, a broken
// upstream yields an empty version list rather than an error.
func (s *CurseForgeService) Versions(ctx context.Context, pluginID string) ([]PluginVersion, error) {
	if s.apiKey == "" {
		return nil, &ConfigurationError{Provider: ProviderCurseForge, Missing: "API key"}
	}

	var resp struct {
		Data []curseForgeFile `json:"data"`
	}
	if err := s.client.getJSON(ctx, "versions", "mods/"+url.PathEscape(pluginID)+"/files", nil, &resp); err != nil {
		return []PluginVersion{}, nil
	}

	versions := make([]PluginVersion, 0, len(resp.Data))
	for _, file := range resp.Data {
		versions = append(versions, PluginVersion{
			ID:           strconv.Itoa(file.ID),
			Name:         file.DisplayName,
			GameVersions: file.GameVersions,
			DownloadURL:  file.DownloadURL,
		})
	}
	return versions, nil
}

// DownloadURL implements PluginService. CurseForge serves files from its
// "edge" CDN which rejects non-browser clients; the "mediafiles" host serves
// the same content without that restriction.
func (s *CurseForgeService) DownloadURL(ctx context.Context, pluginID, versionID string) (string, error) {
	if s.apiKey == "" {
		return "", &ConfigurationError{Provider: ProviderCurseForge, Missing: "API key"}
	}

	var resp struct {
		Data curseForgeFile `json:"data"`
	}
	path := fmt.Sprintf("mods/%s/files/%s", url.PathEscape(pluginID), url.PathEscape(versionID))
	if err := s.client.getJSON(ctx, "download_url", path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.DownloadURL == "" {
		return "", ErrNoDownloadURL
	}

	return strings.Replace(resp.Data.DownloadURL, "edge", "mediafiles", 1), nil
}
