package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewPermissionsMCPServer creates an MCP server with the permission tools
// registered: discover_permissions, check_access and search_features.
func NewPermissionsMCPServer(svc *PermissionService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pbscope",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "discover_permissions",
		Description: "Probe the Productboard API to find out what the configured token may do. Returns the access level, permission flags and a per-resource capability matrix. Cells listed in 'assumed' are heuristics, not probe results.",
	}, svc.DiscoverPermissions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_access",
		Description: "Check whether the configured token has the given permission flags and minimum access level. Returns what is missing when access would be denied.",
	}, svc.CheckAccess)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_features",
		Description: "Advanced search for features. Requires search access.",
	}, svc.SearchFeatures)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServerHTTP serves the MCP server over streamable HTTP on addr until
// ctx is cancelled.
func RunMCPServerHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
