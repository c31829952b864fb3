package discovery

import (
	"fmt"
	"slices"
	"strings"
)

// AccessLevel is the coarse summary of what the credentials may do.
// Levels are ordered: read < write < delete < admin.
type AccessLevel string

const (
	AccessRead   AccessLevel = "read"
	AccessWrite  AccessLevel = "write"
	AccessDelete AccessLevel = "delete"
	AccessAdmin  AccessLevel = "admin"
)

// Rank returns the position of the level in the ordering, or -1 for an
// unknown level.
func (l AccessLevel) Rank() int {
	switch l {
	case AccessRead:
		return 0
	case AccessWrite:
		return 1
	case AccessDelete:
		return 2
	case AccessAdmin:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether l is the same as or above min.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.Rank() >= min.Rank()
}

// ParseAccessLevel parses a level name case-insensitively.
func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(strings.ToLower(strings.TrimSpace(s)))
	if l.Rank() < 0 {
		return "", fmt.Errorf("unknown access level %q", s)
	}
	return l, nil
}

// Permission is a discrete capability inferred from probe outcomes.
type Permission string

const (
	PermUsersRead         Permission = "users:read"
	PermUsersWrite        Permission = "users:write"
	PermFeaturesRead      Permission = "features:read"
	PermFeaturesWrite     Permission = "features:write"
	PermProductsRead      Permission = "products:read"
	PermProductsWrite     Permission = "products:write"
	PermNotesRead         Permission = "notes:read"
	PermNotesWrite        Permission = "notes:write"
	PermCompaniesRead     Permission = "companies:read"
	PermObjectivesRead    Permission = "objectives:read"
	PermObjectivesWrite   Permission = "objectives:write"
	PermReleasesRead      Permission = "releases:read"
	PermReleasesWrite     Permission = "releases:write"
	PermCustomFieldsRead  Permission = "custom_fields:read"
	PermCustomFieldsWrite Permission = "custom_fields:write"
	PermWebhooksRead      Permission = "webhooks:read"
	PermWebhooksWrite     Permission = "webhooks:write"
	PermSearch            Permission = "search"
	PermAnalyticsRead     Permission = "analytics:read"
)

// Capability matrix entries. Each category carries only the flags that make
// sense for it.
type (
	UserCapabilities struct {
		Read  bool `json:"read"`
		Write bool `json:"write"`
		Admin bool `json:"admin"`
	}

	ResourceCapabilities struct {
		Read   bool `json:"read"`
		Write  bool `json:"write"`
		Delete bool `json:"delete"`
	}

	ReadWriteCapabilities struct {
		Read  bool `json:"read"`
		Write bool `json:"write"`
	}

	ReadCapabilities struct {
		Read bool `json:"read"`
	}

	ExportCapabilities struct {
		Data bool `json:"data"`
	}

	BulkCapabilities struct {
		Operations bool `json:"operations"`
	}

	SearchCapabilities struct {
		Enabled bool `json:"enabled"`
	}
)

// Capabilities is the per-category capability matrix. Every category is
// always present; a category whose probes all failed has all flags false.
type Capabilities struct {
	Users        UserCapabilities      `json:"users"`
	Features     ResourceCapabilities  `json:"features"`
	Products     ResourceCapabilities  `json:"products"`
	Notes        ResourceCapabilities  `json:"notes"`
	Companies    ReadWriteCapabilities `json:"companies"`
	Objectives   ResourceCapabilities  `json:"objectives"`
	Releases     ResourceCapabilities  `json:"releases"`
	CustomFields ResourceCapabilities  `json:"customFields"`
	Webhooks     ResourceCapabilities  `json:"webhooks"`
	Analytics    ReadCapabilities      `json:"analytics"`
	Integrations ReadWriteCapabilities `json:"integrations"`
	Export       ExportCapabilities    `json:"export"`
	Bulk         BulkCapabilities      `json:"bulk"`
	Search       SearchCapabilities    `json:"search"`
}

// assumedCapabilities names the matrix cells that are set by fixed
// heuristics instead of a probe outcome.
var assumedCapabilities = []string{
	"bulk.operations",
	"companies.write",
	"customFields.delete",
	"export.data",
	"features.delete",
	"integrations.read",
	"integrations.write",
	"notes.delete",
	"objectives.delete",
	"products.delete",
	"releases.delete",
	"webhooks.delete",
}

// Permissions is the result of one discovery run. It is not modified after
// Analyze returns it.
type Permissions struct {
	AccessLevel  AccessLevel  `json:"accessLevel"`
	IsReadOnly   bool         `json:"isReadOnly"`
	CanWrite     bool         `json:"canWrite"`
	CanDelete    bool         `json:"canDelete"`
	IsAdmin      bool         `json:"isAdmin"`
	Permissions  []Permission `json:"permissions"`
	Capabilities Capabilities `json:"capabilities"`

	// Assumed lists matrix cells ("category.flag") that are heuristics,
	// not probe results.
	Assumed []string `json:"assumed"`
}

// Has reports whether the permission flag was discovered.
func (p *Permissions) Has(perm Permission) bool {
	return slices.Contains(p.Permissions, perm)
}

// Clone returns a deep copy of p.
func (p *Permissions) Clone() *Permissions {
	if p == nil {
		return nil
	}
	dst := *p
	dst.Permissions = slices.Clone(p.Permissions)
	dst.Assumed = slices.Clone(p.Assumed)
	return &dst
}

// Requirement describes what a tool needs before it may run.
type Requirement struct {
	Permissions        []Permission
	MinimumAccessLevel AccessLevel
	Description        string
}

// AccessDeniedError is returned by Check when a requirement is not met.
type AccessDeniedError struct {
	Missing  []Permission
	Have     AccessLevel
	Need     AccessLevel
	Describe string
}

// Error implements the error interface.
func (e *AccessDeniedError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, m := range e.Missing {
			names[i] = string(m)
		}
		parts = append(parts, "missing permissions: "+strings.Join(names, ", "))
	}
	if e.Need != "" && !e.Have.AtLeast(e.Need) {
		parts = append(parts, fmt.Sprintf("access level %s below required %s", e.Have, e.Need))
	}
	msg := "access denied: " + strings.Join(parts, "; ")
	if e.Describe != "" {
		msg += " (" + e.Describe + ")"
	}
	return msg
}

// Check returns nil if p satisfies req, otherwise an *AccessDeniedError.
func (p *Permissions) Check(req Requirement) error {
	var missing []Permission
	for _, perm := range req.Permissions {
		if !p.Has(perm) {
			missing = append(missing, perm)
		}
	}
	levelOK := req.MinimumAccessLevel == "" || p.AccessLevel.AtLeast(req.MinimumAccessLevel)
	if len(missing) == 0 && levelOK {
		return nil
	}
	return &AccessDeniedError{
		Missing:  missing,
		Have:     p.AccessLevel,
		Need:     req.MinimumAccessLevel,
		Describe: req.Description,
	}
}
