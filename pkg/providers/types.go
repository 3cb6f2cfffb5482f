package providers

import (
	"context"
	"fmt"
)

// Provider identifies one of the supported plugin marketplaces.
type Provider string

const (
	ProviderCurseForge Provider = "curseforge"
	ProviderHangar     Provider = "hangar"
	ProviderModrinth   Provider = "modrinth"
	ProviderPolymart   Provider = "polymart"
	ProviderSpigotMC   Provider = "spigotmc"
)

// All lists every supported provider in display order.
func All() []Provider {
	return []Provider{
		ProviderCurseForge,
		ProviderHangar,
		ProviderModrinth,
		ProviderPolymart,
		ProviderSpigotMC,
	}
}

// ParseProvider validates a provider value supplied by a client.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	switch p {
	case ProviderCurseForge, ProviderHangar, ProviderModrinth, ProviderPolymart, ProviderSpigotMC:
		return p, nil
	}
	return "", fmt.Errorf("unknown plugin provider: %q", s)
}

// MaxPageSize returns the provider-specific page-size cap, or 0 when the
// provider does not enforce one locally.
func (p Provider) MaxPageSize() int {
	switch p {
	case ProviderCurseForge:
		return 50 // upstream hard cap
	case ProviderHangar:
		return 25 // upstream hard cap, enforced by the caller
	case ProviderPolymart:
		return 50
	}
	return 0
}

// SearchFilters carries the normalized search parameters passed to every
// adapter. Page is 1-indexed; PageSize is clamped to the provider cap before
// the adapter is called.
type SearchFilters struct {
	Query            string
	Page             int
	PageSize         int
	MinecraftVersion string
}

// Plugin is a normalized search result. IDs are provider-scoped and are not
// unique across providers.
type Plugin struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	URL              string  `json:"url"`
	IconURL          *string `json:"icon_url"`
	// ExternalURL is set when the marketplace forbids direct download for
	// this plugin (premium or externally hosted resources); the client must
	// send the user there instead of installing.
	ExternalURL *string `json:"external_url,omitempty"`
}

// PluginVersion is a normalized installable version of a plugin.
//
// For Hangar the ID is a composite "{platform}-{versionName}" key because a
// single version carries one download per platform. DownloadURL is empty for
// providers that resolve the URL at install time (Polymart, SpigotMC).
type PluginVersion struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	GameVersions []string `json:"game_versions,omitempty"`
	DownloadURL  string   `json:"download_url,omitempty"`
}

// SearchResult is a single page of search results plus the provider-declared
// (or provider-capped) total match count.
type SearchResult struct {
	Plugins []Plugin
	Total   int
}

// PluginService is the contract every marketplace adapter implements.
type PluginService interface {
	// Search returns one page of results. It never returns an error for
	// ordinary upstream failures; those are logged and produce an empty
	// result.
	Search(ctx context.Context, filters SearchFilters) (SearchResult, error)

	// Versions lists the installable versions of a plugin. Upstream
	// failures may propagate as errors.
	Versions(ctx context.Context, pluginID string) ([]PluginVersion, error)

	// DownloadURL resolves a plugin version to a downloadable URL, issuing
	// a follow-up upstream call where the provider requires one. It fails
	// with an error when no usable URL can be produced.
	DownloadURL(ctx context.Context, pluginID, versionID string) (string, error)
}
