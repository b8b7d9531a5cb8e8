package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds every registered endpoint.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes wires every endpoint's HTTP route into mux.
func (r *Registry) RegisterRoutes(mux *http.ServeMux) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		mux.HandleFunc(method+" "+path, handler)
	}
}

// BuildCommands returns a cobra command tree calling every registered
// endpoint over HTTP, grouped under `api`.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running rpgvault server",
		Long: `API commands call the running RPG Vault Ingest server (rpgvault serve)
over HTTP. Use --server to point at a non-default server URL.`,
	}
	for _, ep := range r.endpoints {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}
	return apiCmd
}

// Endpoints returns every registered endpoint.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
