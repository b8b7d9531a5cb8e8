package main

import (
	"github.com/rpgvault/ingest/internal/api"
	"github.com/rpgvault/ingest/internal/server"
)

func init() {
	// The api command tree only needs each endpoint's Command() builder,
	// which calls the running server over HTTP; it never touches the
	// Orchestrator directly, so it is built without dialing any backend.
	registry := api.NewRegistry()
	for _, ep := range server.SessionEndpoints(nil) {
		registry.Register(ep)
	}
	rootCmd.AddCommand(registry.BuildCommands(func() string { return serverURL }))
}
