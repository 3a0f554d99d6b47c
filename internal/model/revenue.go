package model

import sdkmath "cosmossdk.io/math"

// RevenueBalances are the fee accumulators of one token.
type RevenueBalances struct {
	Token              Address     `json:"token"`
	ProtocolRevenue    sdkmath.Int `json:"protocol_revenue"`
	OperationFee       sdkmath.Int `json:"operation_fee"`
	TotalClientRevenue sdkmath.Int `json:"total_client_revenue"`
}

// NewRevenueBalances returns zeroed accumulators for token.
func NewRevenueBalances(token Address) RevenueBalances {
	return RevenueBalances{
		Token:              token,
		ProtocolRevenue:    sdkmath.ZeroInt(),
		OperationFee:       sdkmath.ZeroInt(),
		TotalClientRevenue: sdkmath.ZeroInt(),
	}
}

// Normalize replaces nil amounts left by decoding with zero.
func (r *RevenueBalances) Normalize() {
	r.ProtocolRevenue = OrZero(r.ProtocolRevenue)
	r.OperationFee = OrZero(r.OperationFee)
	r.TotalClientRevenue = OrZero(r.TotalClientRevenue)
}

// ClientRevenue is the revenue owed to one client in one token.
type ClientRevenue struct {
	ClientID ID          `json:"client_id"`
	Token    Address     `json:"token"`
	Amount   sdkmath.Int `json:"amount"`
}

// FeeSplit is the outcome of distributing a withdrawal's yield fee.
type FeeSplit struct {
	ProportionalYield sdkmath.Int `json:"proportional_yield"`
	ServiceFee        sdkmath.Int `json:"service_fee"`
	ClientRevenue     sdkmath.Int `json:"client_revenue"`
	ProtocolRevenue   sdkmath.Int `json:"protocol_revenue"`
	GasFee            sdkmath.Int `json:"gas_fee"`
	NetToUser         sdkmath.Int `json:"net_to_user"`
}
