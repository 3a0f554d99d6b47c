package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// CustodyBalance is an amount of one token held for Holder. The pool
// record of a token has a zero Holder; payout records carry the recipient.
type CustodyBalance struct {
	Token  Address     `json:"token"`
	Holder Address     `json:"holder"`
	Amount sdkmath.Int `json:"amount"`
}

// RoleGrant is a runtime role change. Granted false records a revocation.
type RoleGrant struct {
	Role      string    `json:"role"`
	Address   Address   `json:"address"`
	Granted   bool      `json:"granted"`
	UpdatedBy Address   `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}
