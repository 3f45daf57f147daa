package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleNone.Rank() < RoleEditor.Rank())
	assert.True(t, RoleEditor.Rank() < RoleAdmin.Rank())

	assert.True(t, RoleAdmin.AtLeast(RoleEditor))
	assert.True(t, RoleEditor.AtLeast(RoleEditor))
	assert.False(t, RoleEditor.AtLeast(RoleAdmin))
	assert.False(t, RoleNone.AtLeast(RoleEditor))
	assert.Equal(t, RoleEditor, DefaultRole)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		rank    int
		want    Role
		wantErr bool
	}{
		{rank: 0, want: RoleNone},
		{rank: 50, want: RoleEditor},
		{rank: 100, want: RoleAdmin},
		{rank: 7, wantErr: true},
		{rank: -1, wantErr: true},
		{rank: 101, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.rank)
		if tt.wantErr {
			var invalid *InvalidRoleError
			require.ErrorAs(t, err, &invalid, "rank %d", tt.rank)
			assert.Equal(t, tt.rank, invalid.Value)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRoleName(t *testing.T) {
	for input, want := range map[string]Role{
		"admin":  RoleAdmin,
		"EDITOR": RoleEditor,
		" none ": RoleNone,
		"100":    RoleAdmin,
	} {
		got, err := ParseRoleName(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseRoleName("bartender")
	assert.Error(t, err)
	_, err = ParseRoleName("75")
	assert.Error(t, err)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "ADMIN", RoleAdmin.String())
	assert.Equal(t, "EDITOR", RoleEditor.String())
	assert.Equal(t, "NONE", RoleNone.String())
	assert.Equal(t, "Role(7)", Role(7).String())
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, RoleNone), ErrNotAuthenticated)
	assert.ErrorIs(t, Authorize(&Principal{Role: RoleAdmin}, RoleEditor), ErrNotAuthenticated)

	err := Authorize(&Principal{Subject: "s", Role: RoleEditor}, RoleAdmin)
	var notAuthorized *NotAuthorizedError
	require.ErrorAs(t, err, &notAuthorized)
	assert.Equal(t, "user not authorized to access this resource: user has EDITOR, but ADMIN is required", err.Error())

	assert.NoError(t, Authorize(&Principal{Subject: "s", Role: RoleAdmin}, RoleAdmin))
}

func TestPrincipalComplete(t *testing.T) {
	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.Complete())
	assert.False(t, (&Principal{Subject: "s"}).Complete())
	assert.False(t, (&Principal{Role: RoleEditor}).Complete())
	assert.True(t, (&Principal{Subject: "s", Role: RoleEditor}).Complete())
}
