package mcptools

import "github.com/dusk-indust/pbscope/internal/discovery"

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK generates JSON schemas from these structs and their tags.

// DiscoverPermissionsInput is the input for the discover_permissions MCP tool.
type DiscoverPermissionsInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"probe the API again instead of returning the cached result"`
}

// DiscoverPermissionsOutput is the result of the discover_permissions MCP tool.
type DiscoverPermissionsOutput struct {
	Permissions discovery.Permissions `json:"permissions"`
	Cached      bool                  `json:"cached"`
}

// CheckAccessInput is the input for the check_access MCP tool.
type CheckAccessInput struct {
	Permissions        []string `json:"permissions,omitempty" jsonschema:"permission flags the caller needs (e.g. features:write, search)"`
	MinimumAccessLevel string   `json:"minimumAccessLevel,omitempty" jsonschema:"lowest acceptable access level: read, write, delete or admin"`
}

// CheckAccessOutput is the result of the check_access MCP tool.
type CheckAccessOutput struct {
	Allowed     bool     `json:"allowed"`
	AccessLevel string   `json:"accessLevel"`
	Missing     []string `json:"missing"`
	Reason      string   `json:"reason,omitempty"`
}

// SearchFeaturesInput is the input for the search_features MCP tool.
type SearchFeaturesInput struct {
	Query   string         `json:"query" jsonschema:"search query text; * matches everything"`
	Filters *SearchFilters `json:"filters,omitempty" jsonschema:"server-side filters"`
	Sort    string         `json:"sort,omitempty" jsonschema:"sort results by: relevance, created_at, updated_at, votes, comments (default: relevance)"`
	Order   string         `json:"order,omitempty" jsonschema:"sort order: asc or desc (default: desc)"`
	Limit   int            `json:"limit,omitempty" jsonschema:"maximum number of results, 1-100 (default: 20)"`
	Offset  int            `json:"offset,omitempty" jsonschema:"number of results to skip (default: 0)"`
}

// SearchFilters narrows a feature search on the server side.
type SearchFilters struct {
	Status        []string `json:"status,omitempty" jsonschema:"filter by status"`
	ProductIDs    []string `json:"product_ids,omitempty" jsonschema:"filter by product IDs"`
	OwnerEmails   []string `json:"owner_emails,omitempty" jsonschema:"filter by owner emails"`
	Tags          []string `json:"tags,omitempty" jsonschema:"filter by tags"`
	CreatedAfter  string   `json:"created_after,omitempty" jsonschema:"features created after date (YYYY-MM-DD)"`
	CreatedBefore string   `json:"created_before,omitempty" jsonschema:"features created before date (YYYY-MM-DD)"`
	UpdatedAfter  string   `json:"updated_after,omitempty" jsonschema:"features updated after date (YYYY-MM-DD)"`
	UpdatedBefore string   `json:"updated_before,omitempty" jsonschema:"features updated before date (YYYY-MM-DD)"`
}

// SearchFeaturesOutput is the result of the search_features MCP tool.
type SearchFeaturesOutput struct {
	Features []map[string]any `json:"features"`
	Total    int              `json:"total"`
}
