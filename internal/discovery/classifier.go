package discovery

import (
	"slices"
	"strings"
)

// CanAccess reports whether any outcome whose endpoint contains endpoint,
// issued with method, succeeded. The match is a substring match, so a probe
// against "/features?sort=votes" satisfies a check for "/features".
func CanAccess(outcomes []Outcome, endpoint string, method Method) bool {
	for _, o := range outcomes {
		if o.Succeeded && o.Method == method && strings.Contains(o.Endpoint, endpoint) {
			return true
		}
	}
	return false
}

// Analyze folds probe outcomes into a Permissions model. It is a pure
// function of its input: order of outcomes does not matter and the result
// is deterministic.
func Analyze(outcomes []Outcome) *Permissions {
	var perms []Permission
	flag := func(ok bool, p Permission) bool {
		if ok {
			perms = append(perms, p)
		}
		return ok
	}
	read := func(resource string, p Permission) bool {
		return flag(CanAccess(outcomes, resource, MethodGet), p)
	}
	write := func(resource string, p Permission) bool {
		return flag(CanAccess(outcomes, resource, MethodPost), p)
	}

	usersRead := read("/users", PermUsersRead)
	usersWrite := write("/users", PermUsersWrite)
	featuresRead := read("/features", PermFeaturesRead)
	featuresWrite := write("/features", PermFeaturesWrite)
	productsRead := read("/products", PermProductsRead)
	productsWrite := write("/products", PermProductsWrite)
	notesRead := read("/notes", PermNotesRead)
	notesWrite := write("/notes", PermNotesWrite)
	companiesRead := read("/companies", PermCompaniesRead)
	objectivesRead := read("/objectives", PermObjectivesRead)
	objectivesWrite := write("/objectives", PermObjectivesWrite)
	releasesRead := read("/releases", PermReleasesRead)
	releasesWrite := write("/releases", PermReleasesWrite)
	customFieldsRead := read("/custom_fields", PermCustomFieldsRead)
	customFieldsWrite := write("/custom_fields", PermCustomFieldsWrite)
	webhooksRead := read("/webhooks", PermWebhooksRead)
	webhooksWrite := write("/webhooks", PermWebhooksWrite)
	searchEnabled := read("/search", PermSearch)
	analyticsRead := read("/analytics", PermAnalyticsRead)

	// Users, companies, custom fields and webhooks do not count toward the
	// aggregate write signal.
	canWrite := featuresWrite || productsWrite || notesWrite || objectivesWrite || releasesWrite
	// Delete is never probed.
	canDelete := false
	isAdmin := analyticsRead || (usersRead && usersWrite)

	var level AccessLevel
	switch {
	case isAdmin:
		level = AccessAdmin
	case canDelete:
		level = AccessDelete
	case canWrite:
		level = AccessWrite
	default:
		level = AccessRead
	}

	slices.Sort(perms)
	if perms == nil {
		perms = []Permission{}
	}

	resource := func(r, w bool) ResourceCapabilities {
		return ResourceCapabilities{Read: r, Write: w, Delete: canDelete}
	}

	return &Permissions{
		AccessLevel: level,
		IsReadOnly:  !canWrite,
		CanWrite:    canWrite,
		CanDelete:   canDelete,
		IsAdmin:     isAdmin,
		Permissions: perms,
		Capabilities: Capabilities{
			Users:        UserCapabilities{Read: usersRead, Write: usersWrite, Admin: isAdmin},
			Features:     resource(featuresRead, featuresWrite),
			Products:     resource(productsRead, productsWrite),
			Notes:        resource(notesRead, notesWrite),
			Companies:    ReadWriteCapabilities{Read: companiesRead, Write: false},
			Objectives:   resource(objectivesRead, objectivesWrite),
			Releases:     resource(releasesRead, releasesWrite),
			CustomFields: resource(customFieldsRead, customFieldsWrite),
			Webhooks:     resource(webhooksRead, webhooksWrite),
			Analytics:    ReadCapabilities{Read: analyticsRead},
			Integrations: ReadWriteCapabilities{Read: true, Write: canWrite},
			Export:       ExportCapabilities{Data: featuresRead},
			Bulk:         BulkCapabilities{Operations: canWrite},
			Search:       SearchCapabilities{Enabled: searchEnabled},
		},
		Assumed: slices.Clone(assumedCapabilities),
	}
}
