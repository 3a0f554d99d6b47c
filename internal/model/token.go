package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Token is a supported fungible token and its pooled accounting state.
type Token struct {
	Address        Address     `json:"address"`
	CurrentIndex   sdkmath.Int `json:"current_index"`
	IndexUpdatedAt time.Time   `json:"index_updated_at"`
	TotalDeposits  sdkmath.Int `json:"total_deposits"` // share units
	TotalStaked    sdkmath.Int `json:"total_staked"`
	Supported      bool        `json:"supported"`
	AddedAt        time.Time   `json:"added_at"`
}

// NewToken returns a freshly listed token anchored at index 1.0.
func NewToken(addr Address, now time.Time) Token {
	return Token{
		Address:        addr,
		CurrentIndex:   IndexScale,
		IndexUpdatedAt: now,
		TotalDeposits:  sdkmath.ZeroInt(),
		TotalStaked:    sdkmath.ZeroInt(),
		Supported:      true,
		AddedAt:        now,
	}
}

// Normalize replaces nil amounts left by decoding with zero.
func (t *Token) Normalize() {
	t.CurrentIndex = OrZero(t.CurrentIndex)
	t.TotalDeposits = OrZero(t.TotalDeposits)
	t.TotalStaked = OrZero(t.TotalStaked)
}

// TierVaultState is the sub-pool index of a risk tier for one token.
type TierVaultState struct {
	Token       Address     `json:"token"`
	TierID      ID          `json:"tier_id"`
	Index       sdkmath.Int `json:"index"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Initialized bool        `json:"initialized"`
}
