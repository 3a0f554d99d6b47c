package treasury

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/store"
)

// EmergencyPause halts every fund-moving operation. Guardian only.
func (c *Controller) EmergencyPause(ctx context.Context, caller auth.Caller) (err error) {
	ctx, span := c.startSpan(ctx, "EmergencyPause")
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleGuardian); err != nil {
		return err
	}
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	now := c.now()
	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		s, err := store.GetControllerState(tx)
		if err != nil {
			return err
		}
		if s.Paused {
			return errorsmod.Wrap(apperr.ErrPaused, "already paused")
		}
		s.Paused = true
		s.PausedAt = now
		s.PausedBy = caller.Address
		return store.PutControllerState(tx, s)
	})
	if err != nil {
		return err
	}

	logging.Warnf("controller paused by %s", caller.Address)
	c.record(recorder.NewEvent(recorder.EventPause, now, caller.Address))
	c.alert(notifier.FormatPauseAlert(caller.Address, now))
	return nil
}

// Unpause resumes operations. Admin only.
func (c *Controller) Unpause(ctx context.Context, caller auth.Caller) (err error) {
	ctx, span := c.startSpan(ctx, "Unpause")
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	now := c.now()
	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		s, err := store.GetControllerState(tx)
		if err != nil {
			return err
		}
		if !s.Paused {
			return errorsmod.Wrap(apperr.ErrNotPaused, "not paused")
		}
		s.Paused = false
		s.PausedAt = now
		s.PausedBy = model.Address{}
		return store.PutControllerState(tx, s)
	})
	if err != nil {
		return err
	}

	logging.Infof("controller unpaused by %s", caller.Address)
	c.record(recorder.NewEvent(recorder.EventUnpause, now, caller.Address))
	c.alert(notifier.FormatUnpauseAlert(caller.Address, now))
	return nil
}

// IsPaused reports the pause flag.
func (c *Controller) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	err := c.store.View(ctx, func(tx store.Tx) error {
		s, err := store.GetControllerState(tx)
		paused = s.Paused
		return err
	})
	return paused, err
}

// Status returns the pause flag and the daily window as of now.
func (c *Controller) Status(ctx context.Context) (model.ControllerStatus, error) {
	var st model.ControllerStatus
	err := c.store.View(ctx, func(tx store.Tx) error {
		s, err := store.GetControllerState(tx)
		if err != nil {
			return err
		}
		st = c.status(s)
		return nil
	})
	return st, err
}

func (c *Controller) status(s model.ControllerState) model.ControllerStatus {
	w := s.Window.Current(c.now())
	remaining := c.limits.DailyTransferLimit.Sub(w.Transferred)
	if remaining.IsNegative() {
		remaining = sdkmath.ZeroInt()
	}
	return model.ControllerStatus{
		Paused:              s.Paused,
		DailyLimitRemaining: remaining,
		DailyTransferred:    w.Transferred,
		WindowStart:         w.WindowStart,
		MaxSingleTransfer:   c.limits.MaxSingleTransfer,
		DailyTransferLimit:  c.limits.DailyTransferLimit,
		MaxBatchSize:        c.limits.MaxBatchSize,
	}
}
