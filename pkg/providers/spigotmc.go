package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	spigetBaseURL = "https://api.spiget.org/v2/"

	spigotSiteURL     = "https://www.spigotmc.org/"
	spigotStaticURL   = "https://spigotmc.org/"
	spigotDefaultIcon = "https://static.spigotmc.org/styles/spigot/xenresource/resource_icon.png"

	// SpigotMC serves icons without permissive CORS headers, so the panel
	// frontend can only render them through a relay.
	corsRelayURL = "https://corsproxy.io/?"
)

// SpigotMCService adapts the community Spiget API for SpigotMC resources.
// Spiget is unauthenticated, reports no total counts, and can only serve the
// latest version of a resource.
type SpigotMCService struct {
	client *upstreamClient
	// probeClient issues the redirect probe without following redirects.
	probeClient *http.Client
}

// NewSpigotMCService creates the SpigotMC adapter.
func NewSpigotMCService(opts Options) *SpigotMCService {
	client := newUpstreamClient(ProviderSpigotMC, spigetBaseURL, opts)
	return &SpigotMCService{
		client: client,
		probeClient: &http.Client{
			Timeout: client.httpClient.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type spigetResource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
	Icon struct {
		URL  string `json:"url"`
		Data string `json:"data"`
	} `json:"icon"`
	External bool `json:"external"`
	Premium  bool `json:"premium"`
	File     struct {
		URL         string `json:"url"`
		ExternalURL string `json:"externalUrl"`
	} `json:"file"`
}

// Search implements PluginService. Spiget has separate endpoints for
// free-text search and for browsing; an empty query browses the free
// resource listing. No total count is reported, so the page stands alone.
func (s *SpigotMCService) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	path := "resources/free"
	if filters.Query != "" {
		path = "search/resources/" + url.PathEscape(filters.Query)
	}

	query := url.Values{}
	query.Set("size", strconv.Itoa(filters.PageSize))
	query.Set("page", strconv.Itoa(filters.Page))
	query.Set("sort", "-downloads")

	var resources []spigetResource
	if err := s.client.getJSON(ctx, "search", path, query, &resources); err != nil {
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	plugins := make([]Plugin, 0, len(resources))
	for _, resource := range resources {
		icon := s.iconURL(resource)
		p := Plugin{
			ID:               strconv.Itoa(resource.ID),
			Name:             resource.Name,
			ShortDescription: resource.Tag,
			URL:              spigotSiteURL + "resources/" + strconv.Itoa(resource.ID),
			IconURL:          &icon,
		}
		if external := s.externalURL(resource); external != "" {
			p.ExternalURL = &external
		}
		plugins = append(plugins, p)
	}

	return SearchResult{Plugins: plugins, Total: len(plugins)}, nil
}

func (s *SpigotMCService) iconURL(resource spigetResource) string {
	icon := ""
	switch {
	case resource.Icon.URL != "":
		icon = spigotStaticURL + resource.Icon.URL
	case resource.Icon.Data != "":
		icon = resource.Icon.Data
	default:
		icon = spigotDefaultIcon
	}
	return corsRelayURL + url.QueryEscape(icon)
}

// externalURL reports the page a user must visit manually: externally hosted
// files pointing at a web page (or Hangar) cannot be pulled by the daemon.
// Premium resources are excluded because their external page is a paywall.
func (s *SpigotMCService) externalURL(resource spigetResource) string {
	hosted := resource.External &&
		(strings.HasSuffix(resource.File.ExternalURL, "html") || strings.Contains(resource.File.ExternalURL, "hangar"))
	if !hosted || resource.Premium {
		return ""
	}
	return spigotSiteURL + resource.File.URL
}

// Versions implements PluginService. Spiget can only resolve a download for
// the latest version, so only that one is offered.
func (s *SpigotMCService) Versions(ctx context.Context, pluginID string) ([]PluginVersion, error) {
	var latest struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	path := "resources/" + url.PathEscape(pluginID) + "/versions/latest"
	if err := s.client.getJSON(ctx, "versions", path, nil, &latest); err != nil {
		return nil, err
	}

	return []PluginVersion{{ID: strconv.Itoa(latest.ID), Name: latest.Name}}, nil
}

// DownloadURL implements PluginService. versionID is accepted but ignored:
// SpigotMC only allows downloading the latest version. Spiget's own download
// endpoint answers with a redirect to the real file, so the result is probed
// once to hand the daemon a direct URL.
func (s *SpigotMCService) DownloadURL(ctx context.Context, pluginID, versionID string) (string, error) {
	var details spigetResource
	if err := s.client.getJSON(ctx, "download_url", "resources/"+url.PathEscape(pluginID), nil, &details); err != nil {
		return "", err
	}

	downloadURL := details.File.ExternalURL
	if downloadURL == "" {
		downloadURL = s.client.baseURL + "resources/" + url.PathEscape(pluginID) + "/download"
	}

	if resolved := s.resolveRedirect(ctx, downloadURL); resolved != "" {
		return resolved, nil
	}
	return downloadURL, nil
}

// resolveRedirect issues a single HEAD request and returns the Location
// target when the URL answers with a redirect. No Location header means "no
// redirect": the original URL is used and nothing is treated as an error.
func (s *SpigotMCService) resolveRedirect(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", s.client.userAgent)

	resp, err := s.probeClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	return resp.Header.Get("Location")
}
