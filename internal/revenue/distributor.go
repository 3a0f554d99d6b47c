// Package revenue splits the yield fee of each withdrawal between the
// platform, the client and the user, and keeps the fee accumulators.
package revenue

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/ledger"
	"YieldVault/internal/model"
	"YieldVault/internal/store"
)

// Distributor is the RevenueDistributor.
type Distributor struct {
	maxGasFee sdkmath.Int
}

// NewDistributor creates a distributor. A zero or unset maxGasFee disables
// the per-withdrawal operation fee.
func NewDistributor(maxGasFee sdkmath.Int) *Distributor {
	return &Distributor{maxGasFee: model.OrZero(maxGasFee)}
}

// Split computes the fee split of w for client c. Only the yield attributable
// to the withdrawn fraction is charged.
func (d *Distributor) Split(w ledger.Withdrawal, c model.Client, gasFee sdkmath.Int) (model.FeeSplit, error) {
	gasFee = model.OrZero(gasFee)
	if gasFee.IsNegative() {
		return model.FeeSplit{}, errorsmod.Wrap(apperr.ErrInvalidAmount, "gas fee is negative")
	}
	if gasFee.GT(d.maxGasFee) {
		return model.FeeSplit{}, errorsmod.Wrapf(apperr.ErrGasFeeTooHigh, "gas fee %s above %s", gasFee, d.maxGasFee)
	}
	if !w.TotalValue.IsPositive() {
		apperr.Invariantf("withdrawal of %s from account worth %s", w.ValueAmount, w.TotalValue)
	}
	if w.AccruedYield.IsNegative() {
		apperr.Invariantf("negative accrued yield %s on %s", w.AccruedYield, w.Key)
	}

	proportional := model.MulDiv(w.AccruedYield, w.ValueAmount, w.TotalValue)
	serviceFee := model.ApplyBps(proportional, c.ServiceFeeBps)
	clientRevenue := model.ApplyBps(serviceFee, c.ClientRevenueShareBps)

	net := w.ValueAmount.Sub(serviceFee).Sub(gasFee)
	if net.IsNegative() {
		return model.FeeSplit{}, errorsmod.Wrapf(apperr.ErrGasFeeTooHigh, "gas fee %s exceeds withdrawal net of fees", gasFee)
	}
	return model.FeeSplit{
		ProportionalYield: proportional,
		ServiceFee:        serviceFee,
		ClientRevenue:     clientRevenue,
		ProtocolRevenue:   serviceFee.Sub(clientRevenue),
		GasFee:            gasFee,
		NetToUser:         net,
	}, nil
}

// Credit adds a split's fees to the accumulators of token.
func Credit(tx store.Tx, token model.Address, clientID model.ID, split model.FeeSplit) error {
	bal, err := store.GetRevenue(tx, token)
	if err != nil {
		return err
	}
	bal.ProtocolRevenue = bal.ProtocolRevenue.Add(split.ProtocolRevenue)
	bal.OperationFee = bal.OperationFee.Add(split.GasFee)
	bal.TotalClientRevenue = bal.TotalClientRevenue.Add(split.ClientRevenue)
	if err := store.PutRevenue(tx, bal); err != nil {
		return err
	}
	if split.ClientRevenue.IsZero() {
		return nil
	}
	owed, err := store.GetClientRevenue(tx, clientID, token)
	if err != nil {
		return err
	}
	return store.PutClientRevenue(tx, clientID, token, owed.Add(split.ClientRevenue))
}

// Balances returns the accumulators of token.
func Balances(tx store.Tx, token model.Address) (model.RevenueBalances, error) {
	return store.GetRevenue(tx, token)
}

// ClientBalance returns the revenue owed to clientID in token.
func ClientBalance(tx store.Tx, clientID model.ID, token model.Address) (sdkmath.Int, error) {
	return store.GetClientRevenue(tx, clientID, token)
}

// DebitProtocolRevenue removes amount from the platform's revenue.
func DebitProtocolRevenue(tx store.Tx, token model.Address, amount sdkmath.Int) error {
	return debit(tx, token, amount, func(b *model.RevenueBalances) *sdkmath.Int { return &b.ProtocolRevenue })
}

// DebitOperationFee removes amount from the collected operation fees.
func DebitOperationFee(tx store.Tx, token model.Address, amount sdkmath.Int) error {
	return debit(tx, token, amount, func(b *model.RevenueBalances) *sdkmath.Int { return &b.OperationFee })
}

// DebitClientRevenue removes amount from what is owed to clientID.
func DebitClientRevenue(tx store.Tx, clientID model.ID, token model.Address, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	owed, err := store.GetClientRevenue(tx, clientID, token)
	if err != nil {
		return err
	}
	if amount.GT(owed) {
		return errorsmod.Wrapf(apperr.ErrInsufficientBalance, "client %s is owed %s, claimed %s", clientID.Short(), owed, amount)
	}
	if err := store.PutClientRevenue(tx, clientID, token, owed.Sub(amount)); err != nil {
		return err
	}
	return debit(tx, token, amount, func(b *model.RevenueBalances) *sdkmath.Int { return &b.TotalClientRevenue })
}

func debit(tx store.Tx, token model.Address, amount sdkmath.Int, field func(*model.RevenueBalances) *sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal, err := store.GetRevenue(tx, token)
	if err != nil {
		return err
	}
	v := field(&bal)
	if amount.GT(*v) {
		return errorsmod.Wrapf(apperr.ErrInsufficientBalance, "balance %s, claimed %s", *v, amount)
	}
	*v = v.Sub(amount)
	return store.PutRevenue(tx, bal)
}

func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(apperr.ErrInvalidAmount, "claim amount must be positive")
	}
	return nil
}
