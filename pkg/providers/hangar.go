package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	hangarBaseURL = "https://hangar.papermc.io/api/v1/"
	hangarSiteURL = "https://hangar.papermc.io/"

	// Upstream rejects limits above 25.
	hangarVersionPageSize = 25
)

// HangarService adapts the PaperMC Hangar REST API. Hangar identifies
// projects by name and publishes one download per platform for each version,
// so version IDs are composite "{platform}-{versionName}" keys.
type HangarService struct {
	client *upstreamClient
}

// NewHangarService creates the Hangar adapter.
func NewHangarService(opts Options) *HangarService {
	return &HangarService{client: newUpstreamClient(ProviderHangar, hangarBaseURL, opts)}
}

type hangarProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl"`
	Namespace   struct {
		Owner string `json:"owner"`
		Slug  string `json:"slug"`
	} `json:"namespace"`
}

type hangarDownload struct {
	DownloadURL string `json:"downloadUrl"`
	ExternalURL string `json:"externalUrl"`
	FileInfo    *struct {
		Name string `json:"name"`
	} `json:"fileInfo"`
}

type hangarVersion struct {
	Name      string                    `json:"name"`
	Downloads map[string]hangarDownload `json:"downloads"`
}

// Search implements PluginService.
func (s *HangarService) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(filters.PageSize))
	query.Set("offset", strconv.Itoa((filters.Page-1)*filters.PageSize))
	if filters.Query != "" {
		query.Set("query", filters.Query)
	}

	var resp struct {
		Result     []hangarProject `json:"result"`
		Pagination struct {
			Count int `json:"count"`
		} `json:"pagination"`
	}
	if err := s.client.getJSON(ctx, "search", "projects", query, &resp); err != nil {
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	plugins := make([]Plugin, 0, len(resp.Result))
	for _, project := range resp.Result {
		icon := project.AvatarURL
		plugins = append(plugins, Plugin{
			ID:               project.Name,
			Name:             project.Name,
			ShortDescription: project.Description,
			URL:              hangarSiteURL + project.Namespace.Owner + "/" + project.Namespace.Slug,
			IconURL:          &icon,
		})
	}

	return SearchResult{Plugins: plugins, Total: resp.Pagination.Count}, nil
}

// Versions implements PluginService. Each upstream version is flattened into
// one entry per platform download so the install dialog can offer a concrete
// file; the composite ID carries enough to find the download again.
func (s *HangarService) Versions(ctx context.Context, pluginID string) ([]PluginVersion, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(hangarVersionPageSize))
	query.Set("offset", "0")

	var resp struct {
		Result []hangarVersion `json:"result"`
	}
	path := "projects/" + url.PathEscape(pluginID) + "/versions"
	if err := s.client.getJSON(ctx, "versions", path, query, &resp); err != nil {
		return []PluginVersion{}, nil
	}

	var versions []PluginVersion
	for _, version := range resp.Result {
		for platform, download := range version.Downloads {
			versions = append(versions, PluginVersion{
				ID:          platform + "-" + version.Name,
				Name:        version.Name + " (" + platform + ")",
				DownloadURL: firstNonEmpty(download.DownloadURL, download.ExternalURL),
			})
		}
	}
	return versions, nil
}

// DownloadURL implements PluginService. The composite version ID is split on
// the first '-' to recover the platform and version name; platform names
// never contain a dash, version names may.
func (s *HangarService) DownloadURL(ctx context.Context, pluginID, versionID string) (string, error) {
	platform, versionName, found := strings.Cut(versionID, "-")
	if !found {
		return "", fmt.Errorf("malformed hangar version id %q: expected \"{platform}-{version}\"", versionID)
	}

	var resp hangarVersion
	path := fmt.Sprintf("projects/%s/versions/%s", url.PathEscape(pluginID), url.PathEscape(versionName))
	if err := s.client.getJSON(ctx, "download_url", path, nil, &resp); err != nil {
		return "", err
	}

	download, ok := resp.Downloads[platform]
	if !ok {
		return "", fmt.Errorf("hangar version %q has no download for platform %q: %w", versionName, platform, ErrNoDownloadURL)
	}
	downloadURL := firstNonEmpty(download.DownloadURL, download.ExternalURL)
	if downloadURL == "" {
		return "", ErrNoDownloadURL
	}
	return downloadURL, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
