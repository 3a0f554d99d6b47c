// Package ledger keeps per-user share balances and converts between share
// and value units using the token's vault index.
//
// Balances are stored in shares. A user's value is
// balance * currentIndex / entryIndex, and removing value V takes
// V * entryIndex / currentIndex shares off the balance.
package ledger

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/keylock"
	"YieldVault/internal/model"
	"YieldVault/internal/registry"
	"YieldVault/internal/store"
)

// Withdrawal is the account state captured when a withdrawal was applied.
// TotalValue and AccruedYield are the values before the shares were removed.
type Withdrawal struct {
	Key          model.AccountKey
	ValueAmount  sdkmath.Int
	ShareAmount  sdkmath.Int
	EntryIndex   sdkmath.Int
	CurrentIndex sdkmath.Int
	TotalValue   sdkmath.Int
	AccruedYield sdkmath.Int
	Remaining    sdkmath.Int
}

// Ledger is the AccountingLedger.
type Ledger struct {
	store  store.Store
	locks  *keylock.Map
	tokens *registry.Tokens
	now    func() time.Time
}

// New creates a ledger over st.
func New(st store.Store, locks *keylock.Map, tokens *registry.Tokens, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: st, locks: locks, tokens: tokens, now: now}
}

// LockKeys returns the lock keys an operation on key must hold.
func LockKeys(key model.AccountKey) []string {
	return []string{
		keylock.TokenKey(key.Token.String()),
		keylock.AccountKey(key.String()),
	}
}

// Deposit credits amount of token to the user's account under its locks.
func (l *Ledger) Deposit(ctx context.Context, key model.AccountKey, amount sdkmath.Int) (model.Account, error) {
	defer l.locks.Lock(LockKeys(key)...)()

	var acct model.Account
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		acct, err = l.DepositTx(tx, key, amount)
		return err
	})
	return acct, err
}

// DepositTx applies a deposit inside an open transaction. The caller holds
// the locks from LockKeys.
func (l *Ledger) DepositTx(tx store.Tx, key model.AccountKey, amount sdkmath.Int) (model.Account, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return model.Account{}, errorsmod.Wrap(apperr.ErrInvalidAmount, "deposit amount must be positive")
	}
	if _, err := registry.RequireActive(tx, key.ClientID); err != nil {
		return model.Account{}, err
	}
	tok, err := l.tokens.RequireSupported(tx, key.Token)
	if err != nil {
		return model.Account{}, err
	}
	acct, _, err := store.GetAccount(tx, key)
	if err != nil {
		return model.Account{}, err
	}
	acct.Key = key

	if acct.Balance.IsZero() {
		acct.Balance = amount
		acct.EntryIndex = tok.CurrentIndex
	} else {
		// Weighted average of the old entry and the current index, so the
		// new deposit does not inherit yield it never earned.
		weighted := acct.Balance.Mul(acct.EntryIndex).Add(amount.Mul(tok.CurrentIndex))
		acct.Balance = acct.Balance.Add(amount)
		acct.EntryIndex = weighted.Quo(acct.Balance)
	}
	acct.DepositTimestamp = l.now()

	tok.TotalDeposits = tok.TotalDeposits.Add(amount)
	if err := store.PutToken(tx, tok); err != nil {
		return model.Account{}, err
	}
	if err := store.PutAccount(tx, acct); err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

// Withdraw removes valueAmount of value from the user's account under its
// locks. Revenue is not split here; see the treasury controller.
func (l *Ledger) Withdraw(ctx context.Context, key model.AccountKey, valueAmount sdkmath.Int) (Withdrawal, error) {
	defer l.locks.Lock(LockKeys(key)...)()

	var w Withdrawal
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		w, err = l.WithdrawTx(tx, key, valueAmount)
		return err
	})
	return w, err
}

// WithdrawTx applies a withdrawal inside an open transaction. The client's
// active flag is not checked so deactivated tenants can still exit.
func (l *Ledger) WithdrawTx(tx store.Tx, key model.AccountKey, valueAmount sdkmath.Int) (Withdrawal, error) {
	if valueAmount.IsNil() || !valueAmount.IsPositive() {
		return Withdrawal{}, errorsmod.Wrap(apperr.ErrInvalidAmount, "withdraw amount must be positive")
	}
	tok, err := l.tokens.RequireSupported(tx, key.Token)
	if err != nil {
		return Withdrawal{}, err
	}
	acct, ok, err := store.GetAccount(tx, key)
	if err != nil {
		return Withdrawal{}, err
	}
	if !ok {
		return Withdrawal{}, errorsmod.Wrapf(apperr.ErrAccountNotFound, "account %s", key)
	}

	total := TotalValue(acct, tok.CurrentIndex)
	if valueAmount.GT(total) {
		return Withdrawal{}, errorsmod.Wrapf(apperr.ErrInsufficientValue, "requested %s, account worth %s", valueAmount, total)
	}

	share := model.MulDiv(valueAmount, acct.EntryIndex, tok.CurrentIndex)
	if share.GT(acct.Balance) {
		apperr.Invariantf("share amount %s exceeds balance %s for %s", share, acct.Balance, key)
	}
	if share.GT(tok.TotalDeposits) {
		apperr.Invariantf("share amount %s exceeds token deposits %s", share, tok.TotalDeposits)
	}

	w := Withdrawal{
		Key:          key,
		ValueAmount:  valueAmount,
		ShareAmount:  share,
		EntryIndex:   acct.EntryIndex,
		CurrentIndex: tok.CurrentIndex,
		TotalValue:   total,
		AccruedYield: total.Sub(acct.Balance),
	}

	acct.Balance = acct.Balance.Sub(share)
	if acct.Balance.IsZero() {
		acct.EntryIndex = sdkmath.ZeroInt()
	}
	w.Remaining = acct.Balance

	tok.TotalDeposits = tok.TotalDeposits.Sub(share)
	if err := store.PutToken(tx, tok); err != nil {
		return Withdrawal{}, err
	}
	if err := store.PutAccount(tx, acct); err != nil {
		return Withdrawal{}, err
	}
	return w, nil
}

// TotalValue converts an account's shares to value at currentIndex.
func TotalValue(acct model.Account, currentIndex sdkmath.Int) sdkmath.Int {
	if acct.Balance.IsNil() || acct.Balance.IsZero() || acct.EntryIndex.IsNil() || acct.EntryIndex.IsZero() {
		return sdkmath.ZeroInt()
	}
	return model.MulDiv(acct.Balance, currentIndex, acct.EntryIndex)
}

// TotalValue returns the account's current value.
func (l *Ledger) TotalValue(ctx context.Context, key model.AccountKey) (sdkmath.Int, error) {
	s, err := l.Summary(ctx, key)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return s.TotalValue, nil
}

// AccruedYield returns the account's value above its share balance.
func (l *Ledger) AccruedYield(ctx context.Context, key model.AccountKey) (sdkmath.Int, error) {
	s, err := l.Summary(ctx, key)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return s.AccruedYield, nil
}

// Summary returns the stored account fields together with derived value and
// yield. A missing account reads as empty.
func (l *Ledger) Summary(ctx context.Context, key model.AccountKey) (model.AccountSummary, error) {
	var s model.AccountSummary
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		s, err = l.SummaryTx(tx, key)
		return err
	})
	return s, err
}

// SummaryTx is Summary inside an open transaction.
func (l *Ledger) SummaryTx(tx store.Tx, key model.AccountKey) (model.AccountSummary, error) {
	tok, ok, err := l.tokens.Get(tx, key.Token)
	if err != nil {
		return model.AccountSummary{}, err
	}
	if !ok {
		return model.AccountSummary{}, errorsmod.Wrapf(apperr.ErrTokenNotSupported, "token %s", key.Token)
	}
	acct, _, err := store.GetAccount(tx, key)
	if err != nil {
		return model.AccountSummary{}, err
	}
	acct.Key = key
	total := TotalValue(acct, tok.CurrentIndex)
	return model.AccountSummary{
		Account:      acct,
		TotalValue:   total,
		AccruedYield: total.Sub(acct.Balance),
	}, nil
}
