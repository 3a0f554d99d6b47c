// Package custody moves pooled tokens in and out of the vault.
//
// Custody runs inside the caller's store transaction, so a movement of
// funds commits or rolls back together with the ledger writes that caused
// it.
package custody

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/model"
	"YieldVault/internal/store"
)

// Transfer is one outbound movement of pooled funds.
type Transfer struct {
	Token  model.Address
	To     model.Address
	Amount sdkmath.Int
}

// Custodian holds the pooled funds. Send is all-or-nothing across every
// transfer it is given. Both calls write through tx and must not settle
// anything outside it.
type Custodian interface {
	Send(tx store.Tx, transfers ...Transfer) error
	Receive(tx store.Tx, token model.Address, amount sdkmath.Int) error
}

// ErrInsufficientFunds is returned when the pool cannot cover a transfer.
var ErrInsufficientFunds = errors.New("custody: insufficient pool funds")

// Book is a custodian that keeps the pool and the running payout totals as
// store records.
type Book struct {
	mu       sync.Mutex
	failNext error
}

// NewBook creates a book.
func NewBook() *Book {
	return &Book{}
}

// Receive adds inbound funds to the pool.
func (b *Book) Receive(tx store.Tx, token model.Address, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("custody: invalid amount %v", amount)
	}
	pool, err := store.GetCustodyPool(tx, token)
	if err != nil {
		return err
	}
	return store.PutCustodyPool(tx, token, pool.Add(amount))
}

// FailNext makes the next Send fail with err.
func (b *Book) FailNext(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

func (b *Book) takeFailure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.failNext
	b.failNext = nil
	return err
}

// Send moves funds from the pool. Nothing is written unless the pool covers
// every transfer.
func (b *Book) Send(tx store.Tx, transfers ...Transfer) error {
	if err := b.takeFailure(); err != nil {
		return err
	}
	need := make(map[model.Address]sdkmath.Int)
	var order []model.Address
	for _, t := range transfers {
		if t.Amount.IsNil() || t.Amount.IsNegative() {
			return fmt.Errorf("custody: invalid amount %v", t.Amount)
		}
		if _, ok := need[t.Token]; !ok {
			order = append(order, t.Token)
		}
		need[t.Token] = model.OrZero(need[t.Token]).Add(t.Amount)
	}
	pools := make(map[model.Address]sdkmath.Int, len(need))
	for _, token := range order {
		have, err := store.GetCustodyPool(tx, token)
		if err != nil {
			return err
		}
		if amount := need[token]; amount.GT(have) {
			return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientFunds, token.Short(), have, amount)
		}
		pools[token] = have
	}

	for _, t := range transfers {
		paid, err := store.GetCustodyPayout(tx, t.Token, t.To)
		if err != nil {
			return err
		}
		if err := store.PutCustodyPayout(tx, t.Token, t.To, paid.Add(t.Amount)); err != nil {
			return err
		}
	}
	for _, token := range order {
		if err := store.PutCustodyPool(tx, token, pools[token].Sub(need[token])); err != nil {
			return err
		}
	}
	return nil
}

// Pool returns the pooled balance of token.
func Pool(tx store.Tx, token model.Address) (sdkmath.Int, error) {
	return store.GetCustodyPool(tx, token)
}

// Received returns how much of token has been paid out to addr.
func Received(tx store.Tx, token, addr model.Address) (sdkmath.Int, error) {
	return store.GetCustodyPayout(tx, token, addr)
}
