// Package auth resolves callers into capability objects that operations
// check once at their boundary.
package auth

import (
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"

	"YieldVault/internal/apperr"
	"YieldVault/internal/model"
)

// Role is a named permission.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleGuardian Role = "guardian"
	RoleOracle   Role = "oracle"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleGuardian, RoleOracle:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Caller is the capability an operation runs under. Its roles are fixed when
// it is resolved and never re-read while the operation executes.
type Caller struct {
	Address model.Address
	roles   map[Role]bool
}

// NewCaller builds a capability directly, mainly for tests and tooling.
func NewCaller(addr model.Address, roles ...Role) Caller {
	c := Caller{Address: addr, roles: make(map[Role]bool, len(roles))}
	for _, r := range roles {
		c.roles[r] = true
	}
	return c
}

// Has reports whether the caller holds role.
func (c Caller) Has(role Role) bool { return c.roles[role] }

// Require returns ErrUnauthorized unless the caller holds role.
func (c Caller) Require(role Role) error {
	if !c.roles[role] {
		return errorsmod.Wrapf(apperr.ErrUnauthorized, "%s needs role %s", c.Address.Short(), role)
	}
	return nil
}

// RoleBook holds role grants.
type RoleBook struct {
	mu     sync.RWMutex
	grants map[Role]map[model.Address]bool
}

// NewRoleBook creates an empty RoleBook.
func NewRoleBook() *RoleBook {
	return &RoleBook{grants: make(map[Role]map[model.Address]bool)}
}

// Grant adds role to addr. Used for bootstrap; runtime grants go through
// GrantAs so the admin check happens at the boundary.
func (b *RoleBook) Grant(role Role, addr model.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.grants[role] == nil {
		b.grants[role] = make(map[model.Address]bool)
	}
	b.grants[role][addr] = true
}

// Revoke removes role from addr without a caller check. Used when replaying
// stored role changes at startup.
func (b *RoleBook) Revoke(role Role, addr model.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.grants[role], addr)
}

// GrantAs grants role to addr on behalf of an admin caller.
func (b *RoleBook) GrantAs(caller Caller, role Role, addr model.Address) error {
	if err := caller.Require(RoleAdmin); err != nil {
		return err
	}
	if addr.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidAddress, "cannot grant role to zero address")
	}
	b.Grant(role, addr)
	return nil
}

// RevokeAs removes role from addr on behalf of an admin caller.
func (b *RoleBook) RevokeAs(caller Caller, role Role, addr model.Address) error {
	if err := caller.Require(RoleAdmin); err != nil {
		return err
	}
	b.Revoke(role, addr)
	return nil
}

// HasRole reports whether addr currently holds role.
func (b *RoleBook) HasRole(role Role, addr model.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grants[role][addr]
}

// Resolve snapshots the roles held by addr into a Caller.
func (b *RoleBook) Resolve(addr model.Address) Caller {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := Caller{Address: addr, roles: make(map[Role]bool)}
	for role, holders := range b.grants {
		if holders[addr] {
			c.roles[role] = true
		}
	}
	return c
}
