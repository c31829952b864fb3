package mcptools

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dusk-indust/pbscope/internal/discovery"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// searchRequirement gates search_features.
var searchRequirement = discovery.Requirement{
	Permissions:        []discovery.Permission{discovery.PermSearch},
	MinimumAccessLevel: discovery.AccessRead,
	Description:        "Requires search access",
}

var (
	searchSorts  = []string{"relevance", "created_at", "updated_at", "votes", "comments"}
	searchOrders = []string{"asc", "desc"}
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchFeatures searches features by text. The API has no dedicated search
// endpoint, so the handler lists /features with server-side filters and
// matches the query client-side against name, description and tag names.
func (s *PermissionService) SearchFeatures(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchFeaturesInput,
) (*mcp.CallToolResult, SearchFeaturesOutput, error) {
	if err := validateSearch(input); err != nil {
		return nil, SearchFeaturesOutput{}, err
	}
	if err := s.authorize(ctx, "search_features", searchRequirement); err != nil {
		return nil, SearchFeaturesOutput{}, err
	}

	s.logger.Info("searching features", "component", "mcptools", "query", input.Query)

	resp, err := s.client.Get(ctx, "/features", searchParams(input))
	if err != nil {
		s.logger.Error("failed to search features", "component", "mcptools", "error", err)
		return nil, SearchFeaturesOutput{}, fmt.Errorf("failed to search features: %w", err)
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, SearchFeaturesOutput{}, fmt.Errorf("failed to search features: decode response: %w", err)
	}

	features := filterFeatures(body.Data, input.Query)
	return nil, SearchFeaturesOutput{Features: features, Total: len(features)}, nil
}

func validateSearch(input SearchFeaturesInput) error {
	if strings.TrimSpace(input.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if input.Sort != "" && !slices.Contains(searchSorts, input.Sort) {
		return fmt.Errorf("sort must be one of %s", strings.Join(searchSorts, ", "))
	}
	if input.Order != "" && !slices.Contains(searchOrders, input.Order) {
		return fmt.Errorf("order must be asc or desc")
	}
	if input.Limit < 0 || input.Limit > maxSearchLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxSearchLimit)
	}
	if input.Offset < 0 {
		return fmt.Errorf("offset must not be negative")
	}
	return nil
}

// searchParams builds the /features query. Only created_at and updated_at
// sorting is supported server-side; other sorts are dropped.
func searchParams(input SearchFeaturesInput) url.Values {
	limit := input.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(input.Offset))

	if input.Sort == "created_at" || input.Sort == "updated_at" {
		params.Set("sort", input.Sort)
		order := input.Order
		if order == "" {
			order = "desc"
		}
		params.Set("order", order)
	}

	if f := input.Filters; f != nil {
		setJoined(params, "status", f.Status)
		setJoined(params, "product_ids", f.ProductIDs)
		setJoined(params, "owner_emails", f.OwnerEmails)
		setJoined(params, "tags", f.Tags)
		setNonEmpty(params, "created_after", f.CreatedAfter)
		setNonEmpty(params, "created_before", f.CreatedBefore)
		setNonEmpty(params, "updated_after", f.UpdatedAfter)
		setNonEmpty(params, "updated_before", f.UpdatedBefore)
	}
	return params
}

func setJoined(params url.Values, key string, values []string) {
	if len(values) > 0 {
		params.Set(key, strings.Join(values, ","))
	}
}

func setNonEmpty(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// filterFeatures keeps features whose name, description or any tag name
// contains query, case-insensitively. "*" keeps everything.
func filterFeatures(features []map[string]any, query string) []map[string]any {
	if features == nil {
		features = []map[string]any{}
	}
	if query == "*" {
		return features
	}
	q := strings.ToLower(query)
	contains := func(v any) bool {
		s, ok := v.(string)
		return ok && strings.Contains(strings.ToLower(s), q)
	}

	out := make([]map[string]any, 0, len(features))
	for _, f := range features {
		if contains(f["name"]) || contains(f["description"]) || tagMatches(f["tags"], contains) {
			out = append(out, f)
		}
	}
	return out
}

func tagMatches(tags any, match func(any) bool) bool {
	list, ok := tags.([]any)
	if !ok {
		return false
	}
	for _, t := range list {
		if tag, ok := t.(map[string]any); ok && match(tag["name"]) {
			return true
		}
	}
	return false
}
