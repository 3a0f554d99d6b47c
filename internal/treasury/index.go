package treasury

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/auth"
	"YieldVault/internal/keylock"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/store"
)

// TierIndexUpdate is one item of BatchUpdateTierIndices.
type TierIndexUpdate struct {
	TierID model.ID
	Index  sdkmath.Int
}

// UpdateVaultIndex moves a token's vault index forward. Oracle only.
func (c *Controller) UpdateVaultIndex(ctx context.Context, caller auth.Caller, token model.Address, newIndex sdkmath.Int) (tok model.Token, err error) {
	ctx, span := c.startSpan(ctx, "UpdateVaultIndex", tokenAttr(token), amountAttr(newIndex))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return model.Token{}, err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	var previous sdkmath.Int
	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		prev, err := c.tokens.Index(tx, token)
		if err != nil {
			return err
		}
		previous = prev
		tok, err = c.tokens.SetIndex(tx, token, newIndex, c.limits.MaxIndexGrowth)
		return err
	})
	if err != nil {
		return model.Token{}, err
	}

	logging.Infof("vault index %s: %s -> %s", token.Short(), notifier.FormatIndex(previous), notifier.FormatIndex(newIndex))
	evt := recorder.NewEvent(recorder.EventIndexUpdate, tok.IndexUpdatedAt, caller.Address)
	evt.Token = token
	evt.Amount = newIndex
	evt.Note = "from " + previous.String()
	c.record(evt)
	return tok, nil
}

// InitializeTier opens a tier sub-pool for token at index 1.0. Oracle only.
func (c *Controller) InitializeTier(ctx context.Context, caller auth.Caller, token model.Address, tierID model.ID) error {
	return c.BatchInitializeTiers(ctx, caller, token, []model.ID{tierID})
}

// BatchInitializeTiers opens several tier sub-pools; all or none.
func (c *Controller) BatchInitializeTiers(ctx context.Context, caller auth.Caller, token model.Address, tierIDs []model.ID) (err error) {
	ctx, span := c.startSpan(ctx, "BatchInitializeTiers", tokenAttr(token))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if err := c.checkBatch(len(tierIDs)); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		for i, id := range tierIDs {
			if _, err := c.tokens.InitializeTier(tx, token, id); err != nil {
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return unwrapSingle(err, len(tierIDs))
	}

	now := c.now()
	for _, id := range tierIDs {
		evt := recorder.NewEvent(recorder.EventTierInit, now, caller.Address)
		evt.Token = token
		evt.Note = fmt.Sprintf("tier %s", id.Short())
		c.record(evt)
	}
	return nil
}

// UpdateTierIndex moves one tier sub-pool index forward. Oracle only.
func (c *Controller) UpdateTierIndex(ctx context.Context, caller auth.Caller, token model.Address, tierID model.ID, newIndex sdkmath.Int) error {
	return c.BatchUpdateTierIndices(ctx, caller, token, []TierIndexUpdate{{TierID: tierID, Index: newIndex}})
}

// BatchUpdateTierIndices moves several tier indices of token; all or none.
func (c *Controller) BatchUpdateTierIndices(ctx context.Context, caller auth.Caller, token model.Address, updates []TierIndexUpdate) (err error) {
	ctx, span := c.startSpan(ctx, "BatchUpdateTierIndices", tokenAttr(token))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if err := c.checkBatch(len(updates)); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		for i, u := range updates {
			if _, err := c.tokens.SetTierIndex(tx, token, u.TierID, u.Index, c.limits.MaxIndexGrowth); err != nil {
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return unwrapSingle(err, len(updates))
	}

	now := c.now()
	for _, u := range updates {
		evt := recorder.NewEvent(recorder.EventTierIndexUpdate, now, caller.Address)
		evt.Token = token
		evt.Amount = u.Index
		evt.Note = fmt.Sprintf("tier %s", u.TierID.Short())
		c.record(evt)
	}
	return nil
}

// TierVault returns the sub-pool state of (token, tierID).
func (c *Controller) TierVault(ctx context.Context, token model.Address, tierID model.ID) (model.TierVaultState, error) {
	var s model.TierVaultState
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		s, err = c.tokens.TierVault(tx, token, tierID)
		return err
	})
	return s, err
}
