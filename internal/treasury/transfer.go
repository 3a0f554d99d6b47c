package treasury

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/keylock"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/store"
)

// ExecuteTransfer stakes pooled funds into a whitelisted protocol, subject to
// the single-transfer and rolling daily limits. Oracle only.
func (c *Controller) ExecuteTransfer(ctx context.Context, caller auth.Caller, token, protocol model.Address, amount sdkmath.Int) (err error) {
	ctx, span := c.startSpan(ctx, "ExecuteTransfer", tokenAttr(token), amountAttr(amount))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if err := requirePositive(amount, "transfer amount"); err != nil {
		return err
	}
	if amount.GT(c.limits.MaxSingleTransfer) {
		return errorsmod.Wrapf(apperr.ErrExceedsSingleTransfer, "%s above %s", amount, c.limits.MaxSingleTransfer)
	}

	defer c.locks.Lock(keylock.TokenKey(token.String()))()
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	var before, after model.ControllerStatus
	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		s, err := store.GetControllerState(tx)
		if err != nil {
			return err
		}
		if s.Paused {
			return errorsmod.Wrap(apperr.ErrPaused, "transfer rejected")
		}
		tok, err := c.tokens.RequireSupported(tx, token)
		if err != nil {
			return err
		}
		if err := c.tokens.RequireWhitelisted(tx, protocol); err != nil {
			return err
		}

		before = c.status(s)
		w := s.Window.Current(c.now())
		next := w.Transferred.Add(amount)
		if next.GT(c.limits.DailyTransferLimit) {
			return errorsmod.Wrapf(apperr.ErrExceedsDailyLimit, "%s already moved, %s more exceeds %s",
				w.Transferred, amount, c.limits.DailyTransferLimit)
		}
		w.Transferred = next
		s.Window = w
		after = c.status(s)

		tok.TotalStaked = tok.TotalStaked.Add(amount)
		if err := store.PutToken(tx, tok); err != nil {
			return err
		}
		if err := store.PutControllerState(tx, s); err != nil {
			return err
		}
		return c.custody.Send(tx, custody.Transfer{Token: token, To: protocol, Amount: amount})
	})
	if err != nil {
		return err
	}

	logging.Infof("transferred %s of %s to %s", amount, token.Short(), protocol.Short())
	evt := recorder.NewEvent(recorder.EventTransfer, c.now(), caller.Address)
	evt.Token = token
	evt.Amount = amount
	evt.Note = "protocol " + protocol.String()
	c.record(evt)

	if crossed(before, after) {
		c.alert(notifier.FormatLimitAlert(after, c.decimals))
	}
	return nil
}

// crossed reports whether a transfer pushed window usage over the alert
// threshold.
func crossed(before, after model.ControllerStatus) bool {
	threshold := model.ApplyBps(after.DailyTransferLimit, limitAlertBps)
	return before.DailyTransferred.LT(threshold) && after.DailyTransferred.GTE(threshold)
}

// ConfirmUnstake records funds returned from protocols to the pool. Oracle only.
func (c *Controller) ConfirmUnstake(ctx context.Context, caller auth.Caller, token model.Address, amount sdkmath.Int) (err error) {
	ctx, span := c.startSpan(ctx, "ConfirmUnstake", tokenAttr(token), amountAttr(amount))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if err := requirePositive(amount, "unstake amount"); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		tok, err := c.tokens.RequireSupported(tx, token)
		if err != nil {
			return err
		}
		if amount.GT(tok.TotalStaked) {
			return errorsmod.Wrapf(apperr.ErrInsufficientStaked, "%s staked, %s confirmed", tok.TotalStaked, amount)
		}
		tok.TotalStaked = tok.TotalStaked.Sub(amount)
		if err := store.PutToken(tx, tok); err != nil {
			return err
		}
		return c.custody.Receive(tx, token, amount)
	})
	if err != nil {
		return err
	}

	evt := recorder.NewEvent(recorder.EventUnstake, c.now(), caller.Address)
	evt.Token = token
	evt.Amount = amount
	c.record(evt)
	return nil
}

// HarvestYield records realised protocol yield arriving in the pool. It
// leaves TotalStaked alone: the yield was never staked principal, and it is
// what pays out the accrued value that index updates promise. Oracle only.
func (c *Controller) HarvestYield(ctx context.Context, caller auth.Caller, token model.Address, amount sdkmath.Int) (err error) {
	ctx, span := c.startSpan(ctx, "HarvestYield", tokenAttr(token), amountAttr(amount))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if err := requirePositive(amount, "harvested yield"); err != nil {
		return err
	}
	defer c.locks.Lock(keylock.TokenKey(token.String()))()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		if _, err := c.tokens.RequireSupported(tx, token); err != nil {
			return err
		}
		return c.custody.Receive(tx, token, amount)
	})
	if err != nil {
		return err
	}

	evt := recorder.NewEvent(recorder.EventHarvest, c.now(), caller.Address)
	evt.Token = token
	evt.Amount = amount
	c.record(evt)
	return nil
}

// PoolBalance returns the custody pool balance of token.
func (c *Controller) PoolBalance(ctx context.Context, token model.Address) (sdkmath.Int, error) {
	var bal sdkmath.Int
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		bal, err = custody.Pool(tx, token)
		return err
	})
	return bal, err
}
