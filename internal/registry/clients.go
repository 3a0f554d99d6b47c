package registry

import (
	"context"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/keylock"
	"YieldVault/internal/model"
	"YieldVault/internal/store"
)

// MaxTiersPerClient bounds the risk tier list of a single client.
const MaxTiersPerClient = 20

// Registration carries the fields of a new client.
type Registration struct {
	ID                    model.ID
	Owner                 model.Address
	Name                  string
	ClientRevenueShareBps uint32
	ServiceFeeBps         uint32
}

// Clients is the ClientRegistry.
type Clients struct {
	store store.Store
	locks *keylock.Map
	now   func() time.Time
}

// NewClients creates a ClientRegistry over st. locks is shared with the rest
// of the ledger so client mutations serialize with withdrawals.
func NewClients(st store.Store, locks *keylock.Map, now func() time.Time) *Clients {
	if now == nil {
		now = time.Now
	}
	return &Clients{store: st, locks: locks, now: now}
}

// Register adds a new active client.
func (r *Clients) Register(ctx context.Context, caller auth.Caller, reg Registration) (model.Client, error) {
	if err := caller.Require(auth.RoleOracle); err != nil {
		return model.Client{}, err
	}
	if reg.ID.IsZero() {
		return model.Client{}, errorsmod.Wrap(apperr.ErrInvalidClient, "client id is zero")
	}
	if reg.Owner.IsZero() {
		return model.Client{}, errorsmod.Wrap(apperr.ErrInvalidAddress, "owner address is zero")
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return model.Client{}, errorsmod.Wrap(apperr.ErrInvalidClient, "client name is empty")
	}
	if err := checkFees(reg.ClientRevenueShareBps, reg.ServiceFeeBps); err != nil {
		return model.Client{}, err
	}

	defer r.locks.Lock(keylock.ClientKey(reg.ID.String()))()

	now := r.now()
	c := model.Client{
		ID:                    reg.ID,
		Owner:                 reg.Owner,
		Name:                  name,
		Active:                true,
		ServiceFeeBps:         reg.ServiceFeeBps,
		ClientRevenueShareBps: reg.ClientRevenueShareBps,
		RegisteredAt:          now,
		UpdatedAt:             now,
	}
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		_, exists, err := store.GetClient(tx, reg.ID)
		if err != nil {
			return err
		}
		if exists {
			return errorsmod.Wrapf(apperr.ErrClientExists, "client %s", reg.ID.Short())
		}
		return store.PutClient(tx, c)
	})
	if err != nil {
		return model.Client{}, err
	}
	return c, nil
}

// Activate re-enables an inactive client.
func (r *Clients) Activate(ctx context.Context, caller auth.Caller, id model.ID) error {
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		if c.Active {
			return errorsmod.Wrapf(apperr.ErrClientActive, "client %s", id.Short())
		}
		c.Active = true
		return nil
	})
}

// Deactivate blocks new deposits for a client. Withdrawals keep working.
func (r *Clients) Deactivate(ctx context.Context, caller auth.Caller, id model.ID) error {
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		if !c.Active {
			return errorsmod.Wrapf(apperr.ErrClientInactive, "client %s already inactive", id.Short())
		}
		c.Active = false
		return nil
	})
}

// UpdateFees replaces the fee configuration of a client.
func (r *Clients) UpdateFees(ctx context.Context, caller auth.Caller, id model.ID, clientRevenueShareBps, serviceFeeBps uint32) error {
	if err := checkFees(clientRevenueShareBps, serviceFeeBps); err != nil {
		return err
	}
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		c.ClientRevenueShareBps = clientRevenueShareBps
		c.ServiceFeeBps = serviceFeeBps
		return nil
	})
}

// UpdateOwner moves a client to a new owner address.
func (r *Clients) UpdateOwner(ctx context.Context, caller auth.Caller, id model.ID, owner model.Address) error {
	if owner.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidAddress, "owner address is zero")
	}
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		c.Owner = owner
		return nil
	})
}

// Get returns a client by id.
func (r *Clients) Get(ctx context.Context, id model.ID) (model.Client, error) {
	var c model.Client
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		c, err = Lookup(tx, id)
		return err
	})
	return c, err
}

// IsActive reports whether a registered client accepts deposits.
func (r *Clients) IsActive(ctx context.Context, id model.ID) (bool, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return c.Active, nil
}

// List returns every registered client ordered by id.
func (r *Clients) List(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = store.ListClients(tx)
		return err
	})
	return out, err
}

// Lookup loads a client inside an open transaction.
func Lookup(tx store.Tx, id model.ID) (model.Client, error) {
	c, ok, err := store.GetClient(tx, id)
	if err != nil {
		return model.Client{}, err
	}
	if !ok {
		return model.Client{}, errorsmod.Wrapf(apperr.ErrClientNotFound, "client %s", id.Short())
	}
	return c, nil
}

// RequireActive loads a client and rejects it unless active.
func RequireActive(tx store.Tx, id model.ID) (model.Client, error) {
	c, err := Lookup(tx, id)
	if err != nil {
		return model.Client{}, err
	}
	if !c.Active {
		return model.Client{}, errorsmod.Wrapf(apperr.ErrClientInactive, "client %s", id.Short())
	}
	return c, nil
}

// mutate applies fn to a copy of the client under the admin role and the
// client lock. Nothing is written when fn fails.
func (r *Clients) mutate(ctx context.Context, caller auth.Caller, id model.ID, fn func(c *model.Client) error) error {
	if err := caller.Require(auth.RoleAdmin); err != nil {
		return err
	}
	defer r.locks.Lock(keylock.ClientKey(id.String()))()

	return r.store.Atomic(ctx, func(tx store.Tx) error {
		c, err := Lookup(tx, id)
		if err != nil {
			return err
		}
		c.RiskTiers = append([]model.RiskTier(nil), c.RiskTiers...)
		if err := fn(&c); err != nil {
			return err
		}
		c.UpdatedAt = r.now()
		return store.PutClient(tx, c)
	})
}

func checkFees(clientRevenueShareBps, serviceFeeBps uint32) error {
	if clientRevenueShareBps > model.BpsDenominator {
		return errorsmod.Wrapf(apperr.ErrInvalidFee, "client revenue share %d bps", clientRevenueShareBps)
	}
	if serviceFeeBps > model.BpsDenominator {
		return errorsmod.Wrapf(apperr.ErrInvalidFee, "service fee %d bps", serviceFeeBps)
	}
	return nil
}
