package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/pbscope/internal/api"
	"github.com/dusk-indust/pbscope/internal/cache"
	"github.com/dusk-indust/pbscope/internal/discovery"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PermissionService holds what the MCP tool handlers need: a way to discover
// permissions, an optional cache for the result, and the API client that
// gated tools call through.
type PermissionService struct {
	discoverer cache.Discoverer
	client     api.Client
	store      *cache.Store // nil disables caching
	key        string       // credential identity used as the cache key
	logger     *slog.Logger
}

// NewPermissionService creates a PermissionService. store may be nil.
func NewPermissionService(d cache.Discoverer, client api.Client, store *cache.Store, key string, logger *slog.Logger) *PermissionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PermissionService{
		discoverer: d,
		client:     client,
		store:      store,
		key:        key,
		logger:     logger,
	}
}

// permissions returns the current permission model and whether it came from
// the cache.
func (s *PermissionService) permissions(ctx context.Context, refresh bool) (*discovery.Permissions, bool, error) {
	if s.store == nil {
		perms, err := s.discoverer.Discover(ctx)
		return perms, false, err
	}
	if refresh {
		s.store.Invalidate(s.key)
	} else if perms, ok := s.store.Get(s.key); ok {
		return perms, true, nil
	}
	perms, err := s.store.GetOrDiscover(ctx, s.key, s.discoverer)
	return perms, false, err
}

// authorize checks req against the current permissions.
func (s *PermissionService) authorize(ctx context.Context, tool string, req discovery.Requirement) error {
	perms, _, err := s.permissions(ctx, false)
	if err != nil {
		return fmt.Errorf("%s: discover permissions: %w", tool, err)
	}
	if err := perms.Check(req); err != nil {
		s.logger.Info("tool blocked by permissions", "component", "mcptools", "tool", tool, "reason", err.Error())
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}

// DiscoverPermissions returns the permission model, probing the API when
// nothing is cached or a refresh is requested.
func (s *PermissionService) DiscoverPermissions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DiscoverPermissionsInput,
) (*mcp.CallToolResult, DiscoverPermissionsOutput, error) {
	perms, cached, err := s.permissions(ctx, input.Refresh)
	if err != nil {
		return nil, DiscoverPermissionsOutput{}, fmt.Errorf("discover permissions: %w", err)
	}
	return nil, DiscoverPermissionsOutput{Permissions: *perms, Cached: cached}, nil
}

// CheckAccess reports whether the current credentials satisfy a requirement.
// A denial is a normal result, not a tool error.
func (s *PermissionService) CheckAccess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CheckAccessInput,
) (*mcp.CallToolResult, CheckAccessOutput, error) {
	req := discovery.Requirement{}
	for _, p := range input.Permissions {
		req.Permissions = append(req.Permissions, discovery.Permission(p))
	}
	if input.MinimumAccessLevel != "" {
		level, err := discovery.ParseAccessLevel(input.MinimumAccessLevel)
		if err != nil {
			return nil, CheckAccessOutput{}, err
		}
		req.MinimumAccessLevel = level
	}

	perms, _, err := s.permissions(ctx, false)
	if err != nil {
		return nil, CheckAccessOutput{}, fmt.Errorf("discover permissions: %w", err)
	}

	out := CheckAccessOutput{
		Allowed:     true,
		AccessLevel: string(perms.AccessLevel),
		Missing:     []string{},
	}
	if err := perms.Check(req); err != nil {
		var denied *discovery.AccessDeniedError
		if !errors.As(err, &denied) {
			return nil, CheckAccessOutput{}, err
		}
		out.Allowed = false
		out.Reason = err.Error()
		for _, m := range denied.Missing {
			out.Missing = append(out.Missing, string(m))
		}
	}
	return nil, out, nil
}
