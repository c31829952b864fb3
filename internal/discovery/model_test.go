package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLevel_Ordering(t *testing.T) {
	levels := []AccessLevel{AccessRead, AccessWrite, AccessDelete, AccessAdmin}
	for i, l := range levels {
		assert.Equal(t, i, l.Rank())
		for j, other := range levels {
			assert.Equal(t, i >= j, l.AtLeast(other), "%s >= %s", l, other)
		}
	}
	assert.Equal(t, -1, AccessLevel("owner").Rank())
}

func TestParseAccessLevel(t *testing.T) {
	l, err := ParseAccessLevel(" Write ")
	require.NoError(t, err)
	assert.Equal(t, AccessWrite, l)

	_, err = ParseAccessLevel("superuser")
	assert.ErrorContains(t, err, "unknown access level")
}

func TestPermissions_Check(t *testing.T) {
	perms := Analyze([]Outcome{
		ok("/features", MethodGet),
		ok("/search?q=test", MethodGet),
	})

	assert.NoError(t, perms.Check(Requirement{
		Permissions:        []Permission{PermSearch},
		MinimumAccessLevel: AccessRead,
	}))
	assert.NoError(t, perms.Check(Requirement{}))

	err := perms.Check(Requirement{
		Permissions:        []Permission{PermFeaturesRead, PermFeaturesWrite},
		MinimumAccessLevel: AccessWrite,
		Description:        "Requires feature write access",
	})
	require.Error(t, err)

	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, []Permission{PermFeaturesWrite}, denied.Missing)
	assert.Equal(t, AccessRead, denied.Have)
	assert.Equal(t, AccessWrite, denied.Need)
	assert.Equal(t,
		"access denied: missing permissions: features:write; access level read below required write (Requires feature write access)",
		err.Error())
}

func TestPermissions_CheckLevelOnly(t *testing.T) {
	perms := Analyze([]Outcome{ok("/notes", MethodPost)})

	assert.NoError(t, perms.Check(Requirement{MinimumAccessLevel: AccessWrite}))
	err := perms.Check(Requirement{MinimumAccessLevel: AccessAdmin})
	assert.EqualError(t, err, "access denied: access level write below required admin")
}

func TestPermissions_Clone(t *testing.T) {
	orig := Analyze([]Outcome{ok("/features", MethodGet)})
	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Permissions[0] = PermAnalyticsRead
	cp.Assumed[0] = "changed"
	assert.Equal(t, PermFeaturesRead, orig.Permissions[0])
	assert.NotEqual(t, "changed", orig.Assumed[0])

	var nilPerms *Permissions
	assert.Nil(t, nilPerms.Clone())
}
