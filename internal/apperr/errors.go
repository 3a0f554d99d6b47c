// Package apperr defines the stable rejection reasons returned by the ledger,
// registries and treasury controller.
package apperr

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Codespace namespaces every registered reason code.
const Codespace = "vault"

var (
	ErrUnauthorized           = errorsmod.Register(Codespace, 2, "caller lacks required role")
	ErrPaused                 = errorsmod.Register(Codespace, 3, "controller is paused")
	ErrNotPaused              = errorsmod.Register(Codespace, 4, "controller is not paused")
	ErrInvalidAmount          = errorsmod.Register(Codespace, 5, "amount must be positive")
	ErrTokenNotSupported      = errorsmod.Register(Codespace, 6, "token not supported")
	ErrTokenAlreadySupported  = errorsmod.Register(Codespace, 7, "token already supported")
	ErrTokenHasDeposits       = errorsmod.Register(Codespace, 8, "token has live deposits")
	ErrProtocolNotWhitelisted = errorsmod.Register(Codespace, 9, "protocol not whitelisted")
	ErrProtocolWhitelisted    = errorsmod.Register(Codespace, 10, "protocol already whitelisted")
	ErrInvalidAddress         = errorsmod.Register(Codespace, 11, "invalid address")
	ErrClientNotFound         = errorsmod.Register(Codespace, 12, "client not registered")
	ErrClientExists           = errorsmod.Register(Codespace, 13, "client already registered")
	ErrClientInactive         = errorsmod.Register(Codespace, 14, "client inactive")
	ErrClientActive           = errorsmod.Register(Codespace, 15, "client already active")
	ErrInvalidClient          = errorsmod.Register(Codespace, 16, "invalid client parameters")
	ErrInvalidFee             = errorsmod.Register(Codespace, 17, "fee bps out of range")
	ErrAccountNotFound        = errorsmod.Register(Codespace, 18, "account not found")
	ErrInsufficientValue      = errorsmod.Register(Codespace, 19, "withdrawal exceeds account value")
	ErrInsufficientBalance    = errorsmod.Register(Codespace, 20, "insufficient balance")
	ErrTierAllocation         = errorsmod.Register(Codespace, 21, "active tier allocations exceed 100%")
	ErrInvalidTier            = errorsmod.Register(Codespace, 22, "invalid risk tier")
	ErrTierNotFound           = errorsmod.Register(Codespace, 23, "risk tier not found")
	ErrIndexDecrease          = errorsmod.Register(Codespace, 24, "index cannot decrease")
	ErrIndexGrowth            = errorsmod.Register(Codespace, 25, "index growth exceeds limit")
	ErrTierNotInitialized     = errorsmod.Register(Codespace, 26, "tier vault not initialized")
	ErrTierInitialized        = errorsmod.Register(Codespace, 27, "tier vault already initialized")
	ErrExceedsSingleTransfer  = errorsmod.Register(Codespace, 28, "exceeds single transfer limit")
	ErrExceedsDailyLimit      = errorsmod.Register(Codespace, 29, "exceeds daily transfer limit")
	ErrInvalidBatch           = errorsmod.Register(Codespace, 30, "invalid batch")
	ErrGasFeeTooHigh          = errorsmod.Register(Codespace, 31, "gas fee exceeds limit")
	ErrInsufficientStaked     = errorsmod.Register(Codespace, 32, "amount exceeds staked funds")
	ErrInvalidIndex           = errorsmod.Register(Codespace, 33, "invalid index")
)

// Code returns the stable reason code of err, or 0 when err is nil and 1 when
// it carries no registered reason.
func Code(err error) uint32 {
	_, code, _ := errorsmod.ABCIInfo(err, false)
	return code
}

// Reason returns "codespace:code" for err, suitable for logs and audit rows.
func Reason(err error) string {
	space, code, _ := errorsmod.ABCIInfo(err, false)
	return fmt.Sprintf("%s:%d", space, code)
}

// InvariantError signals corrupted state. It is raised with panic, never
// returned, so callers cannot mistake it for a rejected precondition.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Msg }

// Invariantf panics with an *InvariantError.
func Invariantf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
