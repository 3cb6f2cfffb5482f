// Package api exposes the plugin marketplace gateway over HTTP: provider
// search and version listing behind a pagination envelope, the install
// action that hands a resolved download URL to the game-server daemon, and
// the Polymart account linking flow.
package api
