package api

import (
	"fmt"
	"net/http"

	"github.com/craftpanel/pluginhub/pkg/daemon"
	"github.com/craftpanel/pluginhub/pkg/httputil"
	"github.com/craftpanel/pluginhub/pkg/observability"
	"github.com/craftpanel/pluginhub/pkg/providers"
)

// maxPageSize is the gateway-wide page-size ceiling, applied before the
// provider-specific caps.
const maxPageSize = 50

const defaultPageSize = 10

// listPlugins handles GET /api/client/plugins.
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.requireProvider(w, r)
	if !ok {
		return
	}

	page, err := httputil.ParseQueryInt(r, "page", 1)
	if err != nil || page < 1 {
		httputil.WriteValidationError(w, "page must be a positive integer")
		return
	}
	pageSize, err := httputil.ParseQueryInt(r, "pageSize", defaultPageSize)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		httputil.WriteValidationError(w, fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize))
		return
	}

	filters := providers.SearchFilters{
		Query:            httputil.ParseQueryString(r, "searchQuery", ""),
		Page:             page,
		PageSize:         providers.ClampPageSize(provider, pageSize),
		MinecraftVersion: httputil.ParseQueryString(r, "minecraftVersion", ""),
	}

	// Polymart results depend on the caller's link token, so they are never
	// shared through the cache.
	cacheable := provider != providers.ProviderPolymart
	key := searchCacheKey(provider, filters)
	if cacheable {
		if result, hit := s.cache.get(key); hit {
			httputil.WriteSuccess(w, NewPaginatedResponse(result.Plugins, result.Total, page, filters.PageSize))
			return
		}
	}

	service, err := s.registry.Service(provider)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	result, err := service.Search(r.Context(), filters)
	if err != nil {
		// Adapters fail soft on upstream trouble; an error here is a
		// programming or configuration fault, not a flaky marketplace.
		observability.FromContext(r.Context()).WithError(err).Error("Plugin search failed")
		httputil.WriteInternalError(w, err)
		return
	}

	if cacheable {
		s.cache.add(key, result)
	}
	httputil.WriteSuccess(w, NewPaginatedResponse(result.Plugins, result.Total, page, filters.PageSize))
}

// listVersions handles GET /api/client/plugins/versions.
func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.requireProvider(w, r)
	if !ok {
		return
	}
	pluginID := httputil.ParseQueryString(r, "pluginId", "")
	if !httputil.RequireNonEmpty(w, pluginID, "pluginId") {
		return
	}

	service, err := s.registry.Service(provider)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	versions, err := service.Versions(r.Context(), pluginID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("provider", provider).
			WithField("plugin_id", pluginID).
			Error("Version listing failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "could not fetch versions from "+string(provider))
		return
	}
	if versions == nil {
		versions = []providers.PluginVersion{}
	}
	httputil.WriteSuccess(w, versions)
}

// installPlugin handles POST /api/client/plugins/install. The download URL
// is resolved here and handed to the daemon, which pulls the file into the
// server's plugin directory. Failures after resolution include the URL so
// the user can fetch the file manually.
func (s *Server) installPlugin(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	provider, err := providers.ParseProvider(req.Provider)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if !httputil.RequireNonEmpty(w, req.ServerID, "serverId") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.PluginID, "pluginId") {
		return
	}

	service, err := s.registry.Service(provider)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	logger := observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"provider":  provider,
		"server_id": req.ServerID,
		"plugin_id": req.PluginID,
	})

	url, err := service.DownloadURL(r.Context(), req.PluginID, req.VersionID)
	if err != nil {
		logger.WithError(err).Error("Download URL resolution failed")
		s.recordInstall(provider, "resolve_failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway,
			"could not resolve a download for this plugin version; it may require purchase or an external download")
		return
	}

	err = s.daemon.Pull(r.Context(), req.ServerID, daemon.PullRequest{
		URL:        url,
		Directory:  daemon.PluginDirectory,
		UseHeader:  true,
		Foreground: true,
	})
	if err != nil {
		logger.WithError(err).Error("Daemon pull failed")
		s.recordInstall(provider, "pull_failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway,
			fmt.Sprintf("the daemon could not download the plugin; fetch it manually from %s", url))
		return
	}

	s.recordInstall(provider, "success")
	httputil.WriteNoContent(w)
}

func (s *Server) recordInstall(provider providers.Provider, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.InstallsTotal.WithLabelValues(string(provider), status).Inc()
}

func (s *Server) requireProvider(w http.ResponseWriter, r *http.Request) (providers.Provider, bool) {
	provider, err := providers.ParseProvider(httputil.ParseQueryString(r, "provider", ""))
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return "", false
	}
	return provider, true
}
