// Package config loads service configuration from environment variables,
// with an optional YAML file for per-provider upstream overrides.
package config
