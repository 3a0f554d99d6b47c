package registry

import (
	"context"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/model"
)

// SetRiskTiers replaces the full risk tier list of a client.
func (r *Clients) SetRiskTiers(ctx context.Context, caller auth.Caller, id model.ID, tiers []model.RiskTier) error {
	if len(tiers) == 0 || len(tiers) > MaxTiersPerClient {
		return errorsmod.Wrapf(apperr.ErrInvalidTier, "%d tiers, want 1..%d", len(tiers), MaxTiersPerClient)
	}
	seen := make(map[model.ID]bool, len(tiers))
	for i, t := range tiers {
		if err := checkTier(t); err != nil {
			return errorsmod.Wrapf(err, "tier %d", i)
		}
		if seen[t.ID] {
			return errorsmod.Wrapf(apperr.ErrInvalidTier, "duplicate tier %s", t.ID.Short())
		}
		seen[t.ID] = true
	}
	if err := ValidateTierAllocations(tiers); err != nil {
		return err
	}
	next := append([]model.RiskTier(nil), tiers...)
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		c.RiskTiers = next
		return nil
	})
}

// AddRiskTier appends one tier to a client.
func (r *Clients) AddRiskTier(ctx context.Context, caller auth.Caller, id model.ID, tier model.RiskTier) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		if len(c.RiskTiers) >= MaxTiersPerClient {
			return errorsmod.Wrapf(apperr.ErrInvalidTier, "client already has %d tiers", len(c.RiskTiers))
		}
		if _, _, ok := c.Tier(tier.ID); ok {
			return errorsmod.Wrapf(apperr.ErrInvalidTier, "duplicate tier %s", tier.ID.Short())
		}
		c.RiskTiers = append(c.RiskTiers, tier)
		return ValidateTierAllocations(c.RiskTiers)
	})
}

// UpdateTierAllocation changes the allocation of one tier.
func (r *Clients) UpdateTierAllocation(ctx context.Context, caller auth.Caller, id, tierID model.ID, allocationBps uint32) error {
	if allocationBps > model.BpsDenominator {
		return errorsmod.Wrapf(apperr.ErrTierAllocation, "allocation %d bps", allocationBps)
	}
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		_, i, ok := c.Tier(tierID)
		if !ok {
			return errorsmod.Wrapf(apperr.ErrTierNotFound, "tier %s", tierID.Short())
		}
		c.RiskTiers[i].AllocationBps = allocationBps
		return ValidateTierAllocations(c.RiskTiers)
	})
}

// SetTierActive flips the active flag of one tier. Activating a tier may
// push the allocation sum over the cap, in which case nothing changes.
func (r *Clients) SetTierActive(ctx context.Context, caller auth.Caller, id, tierID model.ID, active bool) error {
	return r.mutate(ctx, caller, id, func(c *model.Client) error {
		_, i, ok := c.Tier(tierID)
		if !ok {
			return errorsmod.Wrapf(apperr.ErrTierNotFound, "tier %s", tierID.Short())
		}
		c.RiskTiers[i].Active = active
		return ValidateTierAllocations(c.RiskTiers)
	})
}

// RiskTiers returns the tiers of a client.
func (r *Clients) RiskTiers(ctx context.Context, id model.ID) ([]model.RiskTier, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.RiskTiers, nil
}

// RiskTier returns one tier of a client.
func (r *Clients) RiskTier(ctx context.Context, id, tierID model.ID) (model.RiskTier, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return model.RiskTier{}, err
	}
	t, _, ok := c.Tier(tierID)
	if !ok {
		return model.RiskTier{}, errorsmod.Wrapf(apperr.ErrTierNotFound, "tier %s", tierID.Short())
	}
	return t, nil
}

// HasTier reports whether the client owns tierID.
func (r *Clients) HasTier(ctx context.Context, id, tierID model.ID) (bool, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	_, _, ok := c.Tier(tierID)
	return ok, nil
}

// ValidateTierAllocations checks that active tiers allocate at most 100%.
func ValidateTierAllocations(tiers []model.RiskTier) error {
	if sum := model.ActiveAllocationBps(tiers); sum > model.BpsDenominator {
		return errorsmod.Wrapf(apperr.ErrTierAllocation, "active allocation %d bps exceeds %d", sum, model.BpsDenominator)
	}
	return nil
}

func checkTier(t model.RiskTier) error {
	if t.ID.IsZero() {
		return errorsmod.Wrap(apperr.ErrInvalidTier, "tier id is zero")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errorsmod.Wrap(apperr.ErrInvalidTier, "tier name is empty")
	}
	if t.AllocationBps > model.BpsDenominator {
		return errorsmod.Wrapf(apperr.ErrTierAllocation, "allocation %d bps", t.AllocationBps)
	}
	return nil
}
