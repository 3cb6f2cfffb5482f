// Package observability provides structured logging, Prometheus metrics,
// and health checking for the plugin gateway service.
package observability
