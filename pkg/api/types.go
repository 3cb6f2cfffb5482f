package api

import "github.com/craftpanel/pluginhub/pkg/providers"

// PaginatedResponse is the envelope returned by the plugin listing endpoint.
// The shape matches what the panel frontend's pagination component consumes.
type PaginatedResponse struct {
	Data []providers.Plugin `json:"data"`
	Meta Meta               `json:"meta"`
}

// Meta wraps the pagination block.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the page of results being returned. Links is always
// present (empty) for frontend compatibility.
type Pagination struct {
	Total       int               `json:"total"`
	Count       int               `json:"count"`
	PerPage     int               `json:"per_page"`
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	Links       map[string]string `json:"links"`
}

// NewPaginatedResponse assembles the envelope from one page of adapter
// results. totalPages is computed from the provider-declared total, which the
// adapter may already have capped (CurseForge's 10000-result window).
func NewPaginatedResponse(plugins []providers.Plugin, total, page, perPage int) PaginatedResponse {
	if plugins == nil {
		plugins = []providers.Plugin{}
	}
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return PaginatedResponse{
		Data: plugins,
		Meta: Meta{
			Pagination: Pagination{
				Total:       total,
				Count:       len(plugins),
				PerPage:     perPage,
				CurrentPage: page,
				TotalPages:  totalPages,
				Links:       map[string]string{},
			},
		},
	}
}

// InstallRequest asks the daemon behind a game server to pull a plugin file.
type InstallRequest struct {
	Provider string `json:"provider"`
	ServerID string `json:"serverId"`
	PluginID string `json:"pluginId"`
	// VersionID selects the file to install. Some providers resolve the
	// download from the plugin alone and ignore it.
	VersionID string `json:"versionId"`
}

// LinkRequest starts the Polymart account linking handshake.
type LinkRequest struct {
	// ServerID is woven into the callback URL so the browser returns to the
	// panel page the user started from.
	ServerID string `json:"serverId"`
}

// LinkResponse carries the Polymart authorization page the browser must
// visit.
type LinkResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// LinkedResponse reports whether the user has a completed Polymart link.
type LinkedResponse struct {
	Linked bool `json:"linked"`
}
