package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// AccountKey identifies a pooled position.
type AccountKey struct {
	ClientID ID      `json:"client_id"`
	UserID   ID      `json:"user_id"`
	Token    Address `json:"token"`
}

// String is the canonical store key of the account.
func (k AccountKey) String() string {
	return k.ClientID.String() + "/" + k.UserID.String() + "/" + k.Token.String()
}

// Account is a user's position in share units.
// EntryIndex is positive exactly when Balance is positive.
type Account struct {
	Key              AccountKey  `json:"key"`
	Balance          sdkmath.Int `json:"balance"`
	EntryIndex       sdkmath.Int `json:"entry_index"`
	DepositTimestamp time.Time   `json:"deposit_timestamp"`
}

// Normalize replaces nil amounts left by decoding with zero.
func (a *Account) Normalize() {
	a.Balance = OrZero(a.Balance)
	a.EntryIndex = OrZero(a.EntryIndex)
}

// AccountSummary is the read surface of an account including derived values.
type AccountSummary struct {
	Account
	TotalValue   sdkmath.Int `json:"total_value"`
	AccruedYield sdkmath.Int `json:"accrued_yield"`
}
