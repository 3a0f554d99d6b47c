package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/apperr"
	"YieldVault/internal/model"
)

func TestResolveSnapshotsRoles(t *testing.T) {
	admin := model.MustAddress("0x00000000000000000000000000000000000000a1")
	oracle := model.MustAddress("0x00000000000000000000000000000000000000b2")

	book := NewRoleBook()
	book.Grant(RoleAdmin, admin)
	book.Grant(RoleOracle, oracle)

	caller := book.Resolve(oracle)
	require.NoError(t, caller.Require(RoleOracle))

	// Revoking after resolution does not change the capability already handed out.
	require.NoError(t, book.RevokeAs(book.Resolve(admin), RoleOracle, oracle))
	assert.True(t, caller.Has(RoleOracle))
	assert.False(t, book.Resolve(oracle).Has(RoleOracle))
}

func TestGrantRequiresAdmin(t *testing.T) {
	book := NewRoleBook()
	guardian := model.MustAddress("0x00000000000000000000000000000000000000c3")

	err := book.GrantAs(NewCaller(guardian, RoleGuardian), RoleOracle, guardian)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.False(t, book.HasRole(RoleOracle, guardian))

	err = book.GrantAs(NewCaller(guardian, RoleAdmin), RoleOracle, model.Address{})
	require.ErrorIs(t, err, apperr.ErrInvalidAddress)
}

func TestRevokeWithoutCaller(t *testing.T) {
	book := NewRoleBook()
	oracle := model.MustAddress("0x00000000000000000000000000000000000000b2")
	book.Grant(RoleOracle, oracle)
	book.Revoke(RoleOracle, oracle)
	book.Revoke(RoleGuardian, oracle)
	assert.False(t, book.HasRole(RoleOracle, oracle))
}

func TestParseRole(t *testing.T) {
	for _, name := range []string{"admin", "guardian", "oracle"} {
		r, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, Role(name), r)
	}
	_, err := ParseRole("root")
	assert.Error(t, err)
}
