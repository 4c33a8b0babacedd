// Package api provides an HTTP API server for browsing and managing stored
// conversations.
package api

import "github.com/prometheus/client_golang/prometheus"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}
