package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dusk-indust/pbscope/internal/api"
	"github.com/dusk-indust/pbscope/internal/cache"
	"github.com/dusk-indust/pbscope/internal/discovery"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDiscoverer struct {
	mu    sync.Mutex
	calls int
	perms *discovery.Permissions
	err   error
}

func (d *countingDiscoverer) Discover(context.Context) (*discovery.Permissions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.perms.Clone(), nil
}

func (d *countingDiscoverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func readerWithSearch() *discovery.Permissions {
	return discovery.Analyze([]discovery.Outcome{
		{Endpoint: "/users/me", Method: discovery.MethodGet, Succeeded: true, StatusCode: 200},
		{Endpoint: "/features", Method: discovery.MethodGet, Succeeded: true, StatusCode: 200},
		{Endpoint: "/search?q=test", Method: discovery.MethodGet, Succeeded: true, StatusCode: 200},
	})
}

func readerWithoutSearch() *discovery.Permissions {
	return discovery.Analyze([]discovery.Outcome{
		{Endpoint: "/features", Method: discovery.MethodGet, Succeeded: true, StatusCode: 200},
	})
}

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, d cache.Discoverer, client api.Client) *mcp.ClientSession {
	t.Helper()

	store := cache.NewStore(time.Hour, 4)
	svc := NewPermissionService(d, client, store, cache.CredentialKey("tok"), nil)
	server := NewPermissionsMCPServer(svc)

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	c := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := c.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// decodeStructured round-trips StructuredContent into out.
func decodeStructured(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %v", result.Content)
	data, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func errorText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, nil)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"check_access", "discover_permissions", "search_features"}, names)
}

func TestMCPDiscoverPermissions_Caches(t *testing.T) {
	d := &countingDiscoverer{perms: readerWithSearch()}
	session := setupServerClient(t, d, nil)

	var first DiscoverPermissionsOutput
	decodeStructured(t, callTool(t, session, "discover_permissions", map[string]any{}), &first)
	assert.False(t, first.Cached)
	assert.Equal(t, discovery.AccessRead, first.Permissions.AccessLevel)
	assert.Equal(t, []discovery.Permission{discovery.PermFeaturesRead, discovery.PermSearch, discovery.PermUsersRead}, first.Permissions.Permissions)
	assert.True(t, first.Permissions.Capabilities.Search.Enabled)

	var second DiscoverPermissionsOutput
	decodeStructured(t, callTool(t, session, "discover_permissions", map[string]any{}), &second)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, d.count())

	var refreshed DiscoverPermissionsOutput
	decodeStructured(t, callTool(t, session, "discover_permissions", map[string]any{"refresh": true}), &refreshed)
	assert.False(t, refreshed.Cached)
	assert.Equal(t, 2, d.count())
}

func TestMCPDiscoverPermissions_Error(t *testing.T) {
	d := &countingDiscoverer{err: discovery.ErrNoTransport}
	session := setupServerClient(t, d, nil)

	result := callTool(t, session, "discover_permissions", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, errorText(result), "no API client")
}

func TestMCPCheckAccess(t *testing.T) {
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, nil)

	tests := []struct {
		name        string
		args        map[string]any
		wantAllowed bool
		wantMissing []string
	}{
		{
			name:        "granted flag",
			args:        map[string]any{"permissions": []string{"features:read"}},
			wantAllowed: true,
			wantMissing: []string{},
		},
		{
			name:        "missing flag",
			args:        map[string]any{"permissions": []string{"features:read", "notes:write"}},
			wantAllowed: false,
			wantMissing: []string{"notes:write"},
		},
		{
			name:        "level too low",
			args:        map[string]any{"minimumAccessLevel": "write"},
			wantAllowed: false,
			wantMissing: []string{},
		},
		{
			name:        "empty requirement",
			args:        map[string]any{},
			wantAllowed: true,
			wantMissing: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out CheckAccessOutput
			decodeStructured(t, callTool(t, session, "check_access", tt.args), &out)
			assert.Equal(t, tt.wantAllowed, out.Allowed)
			assert.Equal(t, tt.wantMissing, out.Missing)
			assert.Equal(t, "read", out.AccessLevel)
			if tt.wantAllowed {
				assert.Empty(t, out.Reason)
			} else {
				assert.Contains(t, out.Reason, "access denied")
			}
		})
	}
}

func TestMCPCheckAccess_BadLevel(t *testing.T) {
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, nil)

	result := callTool(t, session, "check_access", map[string]any{"minimumAccessLevel": "owner"})
	assert.True(t, result.IsError)
}

func newFeaturesServer(t *testing.T, got *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/features" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		*got = q
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"f1","name":"Dark mode","description":"theme support"},
			{"id":"f2","name":"Export","description":"CSV export","tags":[{"name":"reporting"}]},
			{"id":"f3","name":"SSO","description":"single sign-on"}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMCPSearchFeatures(t *testing.T) {
	var got url.Values
	srv := newFeaturesServer(t, &got)
	client := api.NewHTTPClient(api.WithBaseURL(srv.URL), api.WithToken("tok"))
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, client)

	var out SearchFeaturesOutput
	decodeStructured(t, callTool(t, session, "search_features", map[string]any{
		"query": "REPORT",
		"sort":  "updated_at",
		"filters": map[string]any{
			"status": []string{"new", "in-progress"},
			"tags":   []string{"reporting"},
		},
	}), &out)

	require.Equal(t, 1, out.Total)
	assert.Equal(t, "f2", out.Features[0]["id"])

	assert.Equal(t, "20", got.Get("limit"))
	assert.Equal(t, "0", got.Get("offset"))
	assert.Equal(t, "updated_at", got.Get("sort"))
	assert.Equal(t, "desc", got.Get("order"))
	assert.Equal(t, "new,in-progress", got.Get("status"))
	assert.Equal(t, "reporting", got.Get("tags"))
}

func TestMCPSearchFeatures_Wildcard(t *testing.T) {
	var got url.Values
	srv := newFeaturesServer(t, &got)
	client := api.NewHTTPClient(api.WithBaseURL(srv.URL), api.WithToken("tok"))
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, client)

	var out SearchFeaturesOutput
	decodeStructured(t, callTool(t, session, "search_features", map[string]any{"query": "*", "limit": 5}), &out)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, "5", got.Get("limit"))
}

func TestMCPSearchFeatures_Denied(t *testing.T) {
	var got url.Values
	srv := newFeaturesServer(t, &got)
	client := api.NewHTTPClient(api.WithBaseURL(srv.URL), api.WithToken("tok"))
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithoutSearch()}, client)

	result := callTool(t, session, "search_features", map[string]any{"query": "export"})
	assert.True(t, result.IsError)
	assert.Contains(t, errorText(result), "missing permissions: search")
	assert.Nil(t, got, "API must not be called when access is denied")
}

func TestMCPSearchFeatures_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	client := api.NewHTTPClient(api.WithBaseURL(srv.URL), api.WithToken("tok"))
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, client)

	result := callTool(t, session, "search_features", map[string]any{"query": "x"})
	assert.True(t, result.IsError)
	assert.Contains(t, errorText(result), "failed to search features")
}

func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t, &countingDiscoverer{perms: readerWithSearch()}, nil)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The SDK may fail at the protocol level or set IsError on the result.
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestPermissionService_NoStore(t *testing.T) {
	d := &countingDiscoverer{perms: readerWithSearch()}
	svc := NewPermissionService(d, nil, nil, "", nil)

	for range 2 {
		_, out, err := svc.DiscoverPermissions(context.Background(), nil, DiscoverPermissionsInput{})
		require.NoError(t, err)
		assert.False(t, out.Cached)
	}
	assert.Equal(t, 2, d.count())
}

func TestPermissionService_DiscoverErrorNotCached(t *testing.T) {
	d := &countingDiscoverer{err: errors.New("boom")}
	store := cache.NewStore(time.Hour, 4)
	svc := NewPermissionService(d, nil, store, "k", nil)

	_, _, err := svc.CheckAccess(context.Background(), nil, CheckAccessInput{})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}
