package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dusk-indust/pbscope/internal/discovery"
)

// Export is the top-level JSON document written by `pbscope --json`.
type Export struct {
	GeneratedAt string                 `json:"generatedAt"`
	Permissions *discovery.Permissions `json:"permissions"`
}

// NewExport wraps a permission model with its generation time.
func NewExport(p *discovery.Permissions, now time.Time) *Export {
	return &Export{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Permissions: p,
	}
}

// row is one line of the capability table.
type row struct {
	category string
	flags    []flag
}

type flag struct {
	name  string
	value bool
}

func rows(c discovery.Capabilities) []row {
	rw := func(r discovery.ResourceCapabilities) []flag {
		return []flag{{"read", r.Read}, {"write", r.Write}, {"delete", r.Delete}}
	}
	return []row{
		{"users", []flag{{"read", c.Users.Read}, {"write", c.Users.Write}, {"admin", c.Users.Admin}}},
		{"features", rw(c.Features)},
		{"products", rw(c.Products)},
		{"notes", rw(c.Notes)},
		{"companies", []flag{{"read", c.Companies.Read}, {"write", c.Companies.Write}}},
		{"objectives", rw(c.Objectives)},
		{"releases", rw(c.Releases)},
		{"customFields", rw(c.CustomFields)},
		{"webhooks", rw(c.Webhooks)},
		{"analytics", []flag{{"read", c.Analytics.Read}}},
		{"integrations", []flag{{"read", c.Integrations.Read}, {"write", c.Integrations.Write}}},
		{"export", []flag{{"data", c.Export.Data}}},
		{"bulk", []flag{{"operations", c.Bulk.Operations}}},
		{"search", []flag{{"enabled", c.Search.Enabled}}},
	}
}

// FormatText renders the permission model as a human-readable table.
// Cells set by heuristics rather than a probe are marked with '*'.
func FormatText(p *discovery.Permissions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Access level: %s\n", p.AccessLevel)
	fmt.Fprintf(&sb, "  read-only: %s  write: %s  delete: %s  admin: %s\n\n",
		yesNo(p.IsReadOnly), yesNo(p.CanWrite), yesNo(p.CanDelete), yesNo(p.IsAdmin))

	for _, r := range rows(p.Capabilities) {
		cells := make([]string, len(r.flags))
		for i, f := range r.flags {
			mark := "-"
			if f.value {
				mark = "✓"
			}
			if slices.Contains(p.Assumed, r.category+"."+f.name) {
				mark += "*"
			}
			cells[i] = fmt.Sprintf("%s %s", f.name, mark)
		}
		fmt.Fprintf(&sb, "  %-14s %s\n", r.category, strings.Join(cells, "  "))
	}

	if len(p.Permissions) > 0 {
		names := make([]string, len(p.Permissions))
		for i, perm := range p.Permissions {
			names[i] = string(perm)
		}
		fmt.Fprintf(&sb, "\nPermissions: %s\n", strings.Join(names, ", "))
	} else {
		sb.WriteString("\nPermissions: none\n")
	}
	sb.WriteString("* assumed, not probed\n")
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
