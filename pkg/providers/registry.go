package providers

import "fmt"

// Registry holds one adapter instance per provider. Adapters are stateless
// (apart from the Modrinth loader cache, which is safe for concurrent use),
// so a single registry serves the whole process.
type Registry struct {
	services map[Provider]PluginService
}

// RegistryConfig carries per-provider construction inputs.
type RegistryConfig struct {
	// CurseForgeAPIKey authenticates CurseForge requests. The CurseForge
	// adapter degrades to empty search results without it.
	CurseForgeAPIKey string
	// PolymartTokens resolves per-user Polymart link tokens. May be nil.
	PolymartTokens TokenSource
	// BaseURLs optionally overrides upstream base URLs per provider.
	BaseURLs map[Provider]string
}

// NewRegistry constructs all five adapters with shared options.
func NewRegistry(cfg RegistryConfig, opts Options) *Registry {
	forProvider := func(p Provider) Options {
		o := opts
		if override, ok := cfg.BaseURLs[p]; ok {
			o.BaseURL = override
		}
		return o
	}

	loaderCache := NewLoaderCache(DefaultLoaderCacheTTL, opts.Metrics)

	return &Registry{services: map[Provider]PluginService{
		ProviderCurseForge: NewCurseForgeService(cfg.CurseForgeAPIKey, forProvider(ProviderCurseForge)),
		ProviderHangar:     NewHangarService(forProvider(ProviderHangar)),
		ProviderModrinth:   NewModrinthService(loaderCache, forProvider(ProviderModrinth)),
		ProviderPolymart:   NewPolymartService(cfg.PolymartTokens, forProvider(ProviderPolymart)),
		ProviderSpigotMC:   NewSpigotMCService(forProvider(ProviderSpigotMC)),
	}}
}

// Service returns the adapter for a provider.
func (r *Registry) Service(p Provider) (PluginService, error) {
	service, ok := r.services[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", p)
	}
	return service, nil
}

// Polymart returns the Polymart adapter with its link-flow surface. The
// linking handlers need more than the PluginService contract.
func (r *Registry) Polymart() *PolymartService {
	return r.services[ProviderPolymart].(*PolymartService)
}

// ClampPageSize applies the provider-specific page-size cap.
func ClampPageSize(p Provider, pageSize int) int {
	if cap := p.MaxPageSize(); cap > 0 && pageSize > cap {
		return cap
	}
	return pageSize
}
