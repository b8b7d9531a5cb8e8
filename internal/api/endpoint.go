// Package api defines the single source of truth for the session API:
// every verb (upload, analyze, extract, cancel, progress_stream, status,
// artifact, health, browse_collection, list_collections) is wired as one
// Endpoint, exposed as both an HTTP route and a cobra subcommand.
package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint defines both an HTTP route and its corresponding CLI command.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// Command returns a Cobra command that calls this endpoint via HTTP.
	// getServerURL is called at runtime to get the server URL (deferred
	// evaluation, so --server can be set after flag parsing).
	Command(getServerURL func() string) *cobra.Command
}
