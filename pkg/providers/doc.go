// Package providers implements the plugin marketplace adapters.
//
// Each supported marketplace (CurseForge, Hangar, Modrinth, Polymart,
// SpigotMC) gets one adapter implementing the PluginService interface:
// search for plugins, list a plugin's versions, and resolve a version to a
// downloadable URL. The adapters normalize five inconsistent upstream APIs
// into one shape consumed by the API layer.
//
// Search is fail-soft by contract: an upstream transport failure or bad
// response is logged and turned into an empty result so one broken
// marketplace does not break the whole listing page. Versions and
// DownloadURL propagate upstream failures to the caller.
package providers
