package treasury

import (
	"context"
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"go.opentelemetry.io/otel/attribute"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/keylock"
	"YieldVault/internal/ledger"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
	"YieldVault/internal/registry"
	"YieldVault/internal/revenue"
	"YieldVault/internal/store"
)

// WithdrawRequest asks to pay out Amount of value from an account to To.
// GasFee is an optional operation fee deducted from the user's net.
type WithdrawRequest struct {
	ClientID model.ID
	UserID   model.ID
	Token    model.Address
	Amount   sdkmath.Int
	To       model.Address
	GasFee   sdkmath.Int
}

// Key returns the account the request draws from.
func (r WithdrawRequest) Key() model.AccountKey {
	return model.AccountKey{ClientID: r.ClientID, UserID: r.UserID, Token: r.Token}
}

// WithdrawResult is the committed outcome of one withdrawal.
type WithdrawResult struct {
	ledger.Withdrawal
	Split model.FeeSplit
	To    model.Address
}

// BatchError reports which item of a batch failed. Nothing in the batch
// was applied.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("batch item %d: %v", e.Index, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }

func unwrapSingle(err error, n int) error {
	var be *BatchError
	if n == 1 && errors.As(err, &be) {
		return be.Err
	}
	return err
}

// Deposit credits amount to a user's pooled position. Rejected while paused.
func (c *Controller) Deposit(ctx context.Context, key model.AccountKey, amount sdkmath.Int) (acct model.Account, err error) {
	ctx, span := c.startSpan(ctx, "Deposit", tokenAttr(key.Token), amountAttr(amount))
	defer func() { endSpan(span, err) }()

	defer c.locks.Lock(ledger.LockKeys(key)...)()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		var err error
		acct, err = c.ledger.DepositTx(tx, key, amount)
		if err != nil {
			return err
		}
		return c.custody.Receive(tx, key.Token, amount)
	})
	if err != nil {
		return model.Account{}, err
	}

	evt := recorder.NewEvent(recorder.EventDeposit, acct.DepositTimestamp, model.Address{})
	evt.ClientID = key.ClientID
	evt.UserID = key.UserID
	evt.Token = key.Token
	evt.Amount = amount
	c.record(evt)
	return acct, nil
}

// Withdraw pays out value from an account, splitting the yield fee between
// platform and client. Oracle only.
func (c *Controller) Withdraw(ctx context.Context, caller auth.Caller, req WithdrawRequest) (WithdrawResult, error) {
	results, err := c.withdraw(ctx, caller, "Withdraw", []WithdrawRequest{req})
	if err != nil {
		return WithdrawResult{}, unwrapSingle(err, 1)
	}
	return results[0], nil
}

// BatchWithdraw applies withdrawals in order as one unit. If any item fails
// the whole batch is rolled back and a *BatchError names the item.
func (c *Controller) BatchWithdraw(ctx context.Context, caller auth.Caller, reqs []WithdrawRequest) ([]WithdrawResult, error) {
	if err := c.checkBatch(len(reqs)); err != nil {
		return nil, err
	}
	return c.withdraw(ctx, caller, "BatchWithdraw", reqs)
}

func (c *Controller) withdraw(ctx context.Context, caller auth.Caller, op string, reqs []WithdrawRequest) (results []WithdrawResult, err error) {
	ctx, span := c.startSpan(ctx, op, attribute.Int("vault.batch_size", len(reqs)))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return nil, err
	}
	var keys []string
	for i, r := range reqs {
		if r.To.IsZero() {
			return nil, &BatchError{Index: i, Err: errorsmod.Wrap(apperr.ErrInvalidAddress, "recipient is zero")}
		}
		keys = append(keys, ledger.LockKeys(r.Key())...)
		keys = append(keys, keylock.ClientKey(r.ClientID.String()))
	}
	defer c.locks.Lock(keys...)()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		results = make([]WithdrawResult, 0, len(reqs))
		var payouts []custody.Transfer
		for i, r := range reqs {
			res, err := c.withdrawTx(tx, r)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			results = append(results, res)
			if res.Split.NetToUser.IsPositive() {
				payouts = append(payouts, custody.Transfer{Token: r.Token, To: r.To, Amount: res.Split.NetToUser})
			}
		}
		if len(payouts) == 0 {
			return nil
		}
		return c.custody.Send(tx, payouts...)
	})
	if err != nil {
		return nil, err
	}

	now := c.now()
	for _, res := range results {
		evt := recorder.NewEvent(recorder.EventWithdraw, now, caller.Address)
		evt.ClientID = res.Key.ClientID
		evt.UserID = res.Key.UserID
		evt.Token = res.Key.Token
		evt.Amount = res.ValueAmount
		evt.Fee = res.Split.ServiceFee.Add(res.Split.GasFee)
		evt.Note = "net " + res.Split.NetToUser.String()
		c.record(evt)
	}
	return results, nil
}

func (c *Controller) withdrawTx(tx store.Tx, r WithdrawRequest) (WithdrawResult, error) {
	client, err := registry.Lookup(tx, r.ClientID)
	if err != nil {
		return WithdrawResult{}, err
	}
	w, err := c.ledger.WithdrawTx(tx, r.Key(), r.Amount)
	if err != nil {
		return WithdrawResult{}, err
	}
	split, err := c.revenue.Split(w, client, r.GasFee)
	if err != nil {
		return WithdrawResult{}, err
	}
	if err := revenue.Credit(tx, r.Token, r.ClientID, split); err != nil {
		return WithdrawResult{}, err
	}
	return WithdrawResult{Withdrawal: w, Split: split, To: r.To}, nil
}

// Account returns an account with its derived value and yield.
func (c *Controller) Account(ctx context.Context, key model.AccountKey) (model.AccountSummary, error) {
	return c.ledger.Summary(ctx, key)
}
