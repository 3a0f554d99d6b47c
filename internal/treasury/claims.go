package treasury

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/keylock"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
	"YieldVault/internal/revenue"
	"YieldVault/internal/store"
)

// ClaimProtocolRevenue pays platform revenue of token to to. Oracle only.
func (c *Controller) ClaimProtocolRevenue(ctx context.Context, caller auth.Caller, token, to model.Address, amount sdkmath.Int) error {
	return c.claim(ctx, caller, "ClaimProtocolRevenue", token, to, amount, nil, func(tx store.Tx) error {
		return revenue.DebitProtocolRevenue(tx, token, amount)
	})
}

// ClaimOperationFee pays collected operation fees of token to to. Oracle only.
func (c *Controller) ClaimOperationFee(ctx context.Context, caller auth.Caller, token, to model.Address, amount sdkmath.Int) error {
	return c.claim(ctx, caller, "ClaimOperationFee", token, to, amount, nil, func(tx store.Tx) error {
		return revenue.DebitOperationFee(tx, token, amount)
	})
}

// ClaimClientRevenue pays a client's revenue share of token to to. Oracle only.
func (c *Controller) ClaimClientRevenue(ctx context.Context, caller auth.Caller, clientID model.ID, token, to model.Address, amount sdkmath.Int) error {
	return c.claim(ctx, caller, "ClaimClientRevenue", token, to, amount, &clientID, func(tx store.Tx) error {
		return revenue.DebitClientRevenue(tx, clientID, token, amount)
	})
}

func (c *Controller) claim(ctx context.Context, caller auth.Caller, op string, token, to model.Address, amount sdkmath.Int, clientID *model.ID, debit func(tx store.Tx) error) (err error) {
	ctx, span := c.startSpan(ctx, op, tokenAttr(token), amountAttr(amount))
	defer func() { endSpan(span, err) }()

	if err := caller.Require(auth.RoleOracle); err != nil {
		return err
	}
	if to.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidAddress, "recipient is zero")
	}
	keys := []string{keylock.TokenKey(token.String())}
	if clientID != nil {
		keys = append(keys, keylock.ClientKey(clientID.String()))
	}
	defer c.locks.Lock(keys...)()

	err = c.store.Atomic(ctx, func(tx store.Tx) error {
		if err := requireActive(tx); err != nil {
			return err
		}
		if err := debit(tx); err != nil {
			return err
		}
		return c.custody.Send(tx, custody.Transfer{Token: token, To: to, Amount: amount})
	})
	if err != nil {
		return err
	}

	evt := recorder.NewEvent(recorder.EventClaim, c.now(), caller.Address)
	evt.Token = token
	evt.Amount = amount
	evt.Note = op + " to " + to.String()
	if clientID != nil {
		evt.ClientID = *clientID
	}
	c.record(evt)
	return nil
}

// Revenue returns the fee accumulators of token.
func (c *Controller) Revenue(ctx context.Context, token model.Address) (model.RevenueBalances, error) {
	var bal model.RevenueBalances
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		bal, err = revenue.Balances(tx, token)
		return err
	})
	return bal, err
}

// ClientRevenue returns what is owed to clientID in token.
func (c *Controller) ClientRevenue(ctx context.Context, clientID model.ID, token model.Address) (sdkmath.Int, error) {
	var owed sdkmath.Int
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		owed, err = revenue.ClientBalance(tx, clientID, token)
		return err
	})
	return owed, err
}
