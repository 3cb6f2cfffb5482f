package providers

import (
	"errors"
	"fmt"
)

// ErrNoDownloadURL is returned when an upstream response contains no usable
// download URL for the requested version.
var ErrNoDownloadURL = errors.New("upstream returned no usable download url")

// ErrNotFound is wrapped into an UpstreamError when the marketplace reports
// 404 for a plugin or version, so callers can map it to their own not-found
// handling with errors.Is.
var ErrNotFound = errors.New("resource not found upstream")

// UpstreamError wraps a failed call to a marketplace API. StatusCode is zero
// for transport-level failures that never produced a response.
type UpstreamError struct {
	Provider   Provider
	Operation  string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: upstream responded with status %d", e.Provider, e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates a provider cannot operate because required
// configuration (typically an API key) is missing.
type ConfigurationError struct {
	Provider Provider
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s provider is not configured: missing %s", e.Provider, e.Missing)
}
