package api

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(eps ...Endpoint) {
	r.endpoints = append(r.endpoints, eps...)
}

// RegisterRoutes registers all endpoint HTTP routes with the given router.
func (r *Registry) RegisterRoutes(routes gin.IRoutes) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		routes.Handle(method, path, handler)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running novelparser server via HTTP.

These commands require a running server (novelparser serve).
Use --server to specify a custom server URL.

Examples:
  novelparser api health                 # Check server health
  novelparser api novels                 # List novels
  novelparser api analyze <novel-id>     # Start a batch analysis
  novelparser api cancel <novel-id>      # Cancel the running batch`,
	}

	for _, ep := range r.endpoints {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}
	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
