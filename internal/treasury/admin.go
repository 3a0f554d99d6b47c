package treasury

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/keylock"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
	"YieldVault/internal/store"
)

// protocolLock guards the whitelist and tier protocol sets.
const protocolLock = "protocols"

// AddSupportedToken lists a token. Admin only.
func (c *Controller) AddSupportedToken(ctx context.Context, caller auth.Caller, token model.Address) (err error) {
	ctx, span := c.startSpan(ctx, "AddSupportedToken", tokenAttr(token))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	if err = c.store.Atomic(ctx, func(tx store.Tx) error {
		_, err := c.tokens.Add(tx, token)
		return err
	}); err != nil {
		return err
	}
	logging.Infof("token %s listed", token)
	c.recordAdmin(recorder.EventTokenAdded, caller, token, "")
	return nil
}

// RemoveSupportedToken delists a token with no live deposits. Admin only.
func (c *Controller) RemoveSupportedToken(ctx context.Context, caller auth.Caller, token model.Address) (err error) {
	ctx, span := c.startSpan(ctx, "RemoveSupportedToken", tokenAttr(token))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	if err = c.store.Atomic(ctx, func(tx store.Tx) error {
		return c.tokens.Remove(tx, token)
	}); err != nil {
		return err
	}
	logging.Infof("token %s delisted", token)
	c.recordAdmin(recorder.EventTokenRemoved, caller, token, "")
	return nil
}

// AddWhitelistedProtocol allows a protocol to receive transfers. Admin only.
func (c *Controller) AddWhitelistedProtocol(ctx context.Context, caller auth.Caller, protocol model.Address) error {
	return c.protocolOp(ctx, caller, "AddWhitelistedProtocol", "whitelisted "+protocol.String(), func(tx store.Tx) error {
		return c.tokens.Whitelist(tx, protocol)
	})
}

// RemoveWhitelistedProtocol revokes a protocol. Admin only.
func (c *Controller) RemoveWhitelistedProtocol(ctx context.Context, caller auth.Caller, protocol model.Address) error {
	return c.protocolOp(ctx, caller, "RemoveWhitelistedProtocol", "unwhitelisted "+protocol.String(), func(tx store.Tx) error {
		return c.tokens.Unwhitelist(tx, protocol)
	})
}

// AssignProtocolToTier adds a whitelisted protocol to a tier. Admin only.
func (c *Controller) AssignProtocolToTier(ctx context.Context, caller auth.Caller, tierID model.ID, protocol model.Address) error {
	note := "tier " + tierID.Short() + " += " + protocol.String()
	return c.protocolOp(ctx, caller, "AssignProtocolToTier", note, func(tx store.Tx) error {
		return c.tokens.AssignTierProtocol(tx, tierID, protocol)
	})
}

// RemoveProtocolFromTier drops a protocol from a tier. Admin only.
func (c *Controller) RemoveProtocolFromTier(ctx context.Context, caller auth.Caller, tierID model.ID, protocol model.Address) error {
	note := "tier " + tierID.Short() + " -= " + protocol.String()
	return c.protocolOp(ctx, caller, "RemoveProtocolFromTier", note, func(tx store.Tx) error {
		return c.tokens.RemoveTierProtocol(tx, tierID, protocol)
	})
}

func (c *Controller) protocolOp(ctx context.Context, caller auth.Caller, op, note string, fn func(tx store.Tx) error) (err error) {
	ctx, span := c.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	defer c.locks.Lock(protocolLock)()

	if err = c.store.Atomic(ctx, fn); err != nil {
		return err
	}
	c.recordAdmin(recorder.EventProtocol, caller, model.Address{}, note)
	return nil
}

// GrantRole gives addr a role. Admin only. The grant is stored so it
// survives a restart.
func (c *Controller) GrantRole(ctx context.Context, caller auth.Caller, role auth.Role, addr model.Address) error {
	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if addr.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidAddress, "cannot grant role to zero address")
	}
	c.rolesMu.Lock()
	defer c.rolesMu.Unlock()
	if err := c.saveRoleGrant(ctx, caller, role, addr, true); err != nil {
		return err
	}
	if err := c.roles.GrantAs(caller, role, addr); err != nil {
		return err
	}
	logging.Infof("role %s granted to %s by %s", role, addr, caller.Address)
	c.recordAdmin(recorder.EventRole, caller, model.Address{}, "grant "+string(role)+" "+addr.String())
	return nil
}

// RevokeRole takes a role from addr. Admin only. Admins cannot revoke their
// own admin role.
func (c *Controller) RevokeRole(ctx context.Context, caller auth.Caller, role auth.Role, addr model.Address) error {
	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	if role == auth.RoleAdmin && addr == caller.Address {
		return errorsmod.Wrap(apperr.ErrUnauthorized, "cannot revoke own admin role")
	}
	c.rolesMu.Lock()
	defer c.rolesMu.Unlock()
	if err := c.saveRoleGrant(ctx, caller, role, addr, false); err != nil {
		return err
	}
	if err := c.roles.RevokeAs(caller, role, addr); err != nil {
		return err
	}
	logging.Infof("role %s revoked from %s by %s", role, addr, caller.Address)
	c.recordAdmin(recorder.EventRole, caller, model.Address{}, "revoke "+string(role)+" "+addr.String())
	return nil
}

func (c *Controller) saveRoleGrant(ctx context.Context, caller auth.Caller, role auth.Role, addr model.Address, granted bool) error {
	return c.store.Atomic(ctx, func(tx store.Tx) error {
		return store.PutRoleGrant(tx, model.RoleGrant{
			Role:      string(role),
			Address:   addr,
			Granted:   granted,
			UpdatedBy: caller.Address,
			UpdatedAt: c.now(),
		})
	})
}

// RestoreRoles replays stored runtime grants and revocations over the role
// book, so they take precedence over the bootstrap roles for the addresses
// they name. Returns how many were applied.
func (c *Controller) RestoreRoles(ctx context.Context) (int, error) {
	var grants []model.RoleGrant
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		grants, err = store.ListRoleGrants(tx)
		return err
	})
	if err != nil {
		return 0, err
	}
	c.rolesMu.Lock()
	defer c.rolesMu.Unlock()
	for _, g := range grants {
		role, err := auth.ParseRole(g.Role)
		if err != nil {
			return 0, fmt.Errorf("stored grant for %s: %w", g.Address, err)
		}
		if g.Granted {
			c.roles.Grant(role, g.Address)
		} else {
			c.roles.Revoke(role, g.Address)
		}
	}
	return len(grants), nil
}

func (c *Controller) recordAdmin(typ recorder.EventType, caller auth.Caller, token model.Address, note string) {
	evt := recorder.NewEvent(typ, c.now(), caller.Address)
	evt.Token = token
	evt.Note = note
	c.record(evt)
}

// Token returns a token record, listed or not.
func (c *Controller) Token(ctx context.Context, addr model.Address) (model.Token, error) {
	var tok model.Token
	err := c.store.View(ctx, func(tx store.Tx) error {
		t, ok, err := c.tokens.Get(tx, addr)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(apperr.ErrTokenNotSupported, "token %s", addr)
		}
		tok = t
		return nil
	})
	return tok, err
}

// Tokens returns every token ever listed.
func (c *Controller) Tokens(ctx context.Context) ([]model.Token, error) {
	var out []model.Token
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = store.ListTokens(tx)
		return err
	})
	return out, err
}

// WhitelistedProtocols returns the whitelist.
func (c *Controller) WhitelistedProtocols(ctx context.Context) ([]model.Address, error) {
	var out []model.Address
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = store.ListWhitelisted(tx)
		return err
	})
	return out, err
}

// TierProtocols returns the protocols assigned to a tier.
func (c *Controller) TierProtocols(ctx context.Context, tierID model.ID) ([]model.Address, error) {
	var out []model.Address
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = store.GetTierProtocols(tx, tierID)
		return err
	})
	return out, err
}
