package registry

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/keylock"
	"YieldVault/internal/model"
	"YieldVault/internal/store"
)

var (
	usdc     = model.MustAddress("0x00000000000000000000000000000000000000aa")
	aave     = model.MustAddress("0x00000000000000000000000000000000000000c1")
	owner    = model.MustAddress("0x00000000000000000000000000000000000000d1")
	acme     = model.HashID("acme")
	lowRisk  = model.HashID("acme/low")
	highRisk = model.HashID("acme/high")

	admin  = auth.NewCaller(model.MustAddress("0x00000000000000000000000000000000000000a1"), auth.RoleAdmin)
	oracle = auth.NewCaller(model.MustAddress("0x00000000000000000000000000000000000000b2"), auth.RoleOracle)
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newClients(t *testing.T) *Clients {
	t.Helper()
	r := NewClients(store.NewMemory(), keylock.New(), clock)
	_, err := r.Register(context.Background(), oracle, Registration{
		ID:                    acme,
		Owner:                 owner,
		Name:                  "Acme",
		ClientRevenueShareBps: 5000,
		ServiceFeeBps:         2000,
	})
	require.NoError(t, err)
	return r
}

func TestRegisterClient(t *testing.T) {
	ctx := context.Background()
	r := newClients(t)

	c, err := r.Get(ctx, acme)
	require.NoError(t, err)
	assert.True(t, c.Active)
	assert.Equal(t, "Acme", c.Name)
	assert.True(t, fixedNow.Equal(c.RegisteredAt))

	tests := []struct {
		name   string
		caller auth.Caller
		reg    Registration
		want   error
	}{
		{"admin cannot register", admin, Registration{ID: model.HashID("x"), Owner: owner, Name: "X"}, apperr.ErrUnauthorized},
		{"duplicate", oracle, Registration{ID: acme, Owner: owner, Name: "Acme"}, apperr.ErrClientExists},
		{"zero id", oracle, Registration{Owner: owner, Name: "X"}, apperr.ErrInvalidClient},
		{"zero owner", oracle, Registration{ID: model.HashID("x"), Name: "X"}, apperr.ErrInvalidAddress},
		{"blank name", oracle, Registration{ID: model.HashID("x"), Owner: owner, Name: "  "}, apperr.ErrInvalidClient},
		{"fee over 100%", oracle, Registration{ID: model.HashID("x"), Owner: owner, Name: "X", ServiceFeeBps: 10001}, apperr.ErrInvalidFee},
		{"share over 100%", oracle, Registration{ID: model.HashID("x"), Owner: owner, Name: "X", ClientRevenueShareBps: 10001}, apperr.ErrInvalidFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(ctx, tt.caller, tt.reg)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestActivationTransitions(t *testing.T) {
	ctx := context.Background()
	r := newClients(t)

	require.ErrorIs(t, r.Activate(ctx, admin, acme), apperr.ErrClientActive)
	require.ErrorIs(t, r.Deactivate(ctx, oracle, acme), apperr.ErrUnauthorized)
	require.NoError(t, r.Deactivate(ctx, admin, acme))
	require.ErrorIs(t, r.Deactivate(ctx, admin, acme), apperr.ErrClientInactive)

	active, err := r.IsActive(ctx, acme)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, r.Activate(ctx, admin, acme))
	require.ErrorIs(t, r.Activate(ctx, admin, model.HashID("ghost")), apperr.ErrClientNotFound)
}

func TestUpdateFeesAndOwner(t *testing.T) {
	ctx := context.Background()
	r := newClients(t)

	require.NoError(t, r.UpdateFees(ctx, admin, acme, 3000, 1500))
	require.ErrorIs(t, r.UpdateFees(ctx, admin, acme, 3000, 10001), apperr.ErrInvalidFee)
	require.ErrorIs(t, r.UpdateOwner(ctx, admin, acme, model.Address{}), apperr.ErrInvalidAddress)

	next := model.MustAddress("0x00000000000000000000000000000000000000d2")
	require.NoError(t, r.UpdateOwner(ctx, admin, acme, next))

	c, err := r.Get(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), c.ClientRevenueShareBps)
	assert.Equal(t, uint32(1500), c.ServiceFeeBps)
	assert.Equal(t, next, c.Owner)
}

func TestTierAllocationNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	r := newClients(t)

	require.NoError(t, r.SetRiskTiers(ctx, admin, acme, []model.RiskTier{
		{ID: lowRisk, Name: "Low", AllocationBps: 7000, Active: true},
		{ID: highRisk, Name: "High", AllocationBps: 3000, Active: true},
	}))

	require.ErrorIs(t, r.UpdateTierAllocation(ctx, admin, acme, lowRisk, 7001), apperr.ErrTierAllocation)
	require.ErrorIs(t, r.AddRiskTier(ctx, admin, acme, model.RiskTier{
		ID: model.HashID("acme/degen"), Name: "Degen", AllocationBps: 1, Active: true,
	}), apperr.ErrTierAllocation)

	// An inactive tier does not count towards the cap.
	require.NoError(t, r.AddRiskTier(ctx, admin, acme, model.RiskTier{
		ID: model.HashID("acme/degen"), Name: "Degen", AllocationBps: 5000,
	}))
	require.ErrorIs(t, r.SetTierActive(ctx, admin, acme, model.HashID("acme/degen"), true), apperr.ErrTierAllocation)

	require.NoError(t, r.SetTierActive(ctx, admin, acme, highRisk, false))
	require.NoError(t, r.UpdateTierAllocation(ctx, admin, acme, lowRisk, 5000))
	require.NoError(t, r.SetTierActive(ctx, admin, acme, model.HashID("acme/degen"), true))

	tiers, err := r.RiskTiers(ctx, acme)
	require.NoError(t, err)
	assert.Len(t, tiers, 3)
	assert.LessOrEqual(t, model.ActiveAllocationBps(tiers), uint64(model.BpsDenominator))

	tier, err := r.RiskTier(ctx, acme, lowRisk)
	require.NoError(t, err)
	assert.Equal(t, uint32(5000), tier.AllocationBps)

	has, err := r.HasTier(ctx, acme, model.HashID("nope"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSetRiskTiersValidation(t *testing.T) {
	ctx := context.Background()
	r := newClients(t)

	tooMany := make([]model.RiskTier, MaxTiersPerClient+1)
	for i := range tooMany {
		tooMany[i] = model.RiskTier{ID: model.HashID(string(rune('a' + i))), Name: "t"}
	}

	tests := []struct {
		name  string
		tiers []model.RiskTier
		want  error
	}{
		{"empty", nil, apperr.ErrInvalidTier},
		{"too many", tooMany, apperr.ErrInvalidTier},
		{"zero id", []model.RiskTier{{Name: "x"}}, apperr.ErrInvalidTier},
		{"no name", []model.RiskTier{{ID: lowRisk}}, apperr.ErrInvalidTier},
		{"duplicate", []model.RiskTier{{ID: lowRisk, Name: "a"}, {ID: lowRisk, Name: "b"}}, apperr.ErrInvalidTier},
		{"over cap", []model.RiskTier{
			{ID: lowRisk, Name: "a", AllocationBps: 6000, Active: true},
			{ID: highRisk, Name: "b", AllocationBps: 6000, Active: true},
		}, apperr.ErrTierAllocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, r.SetRiskTiers(ctx, admin, acme, tt.tiers), tt.want)
		})
	}

	tiers, err := r.RiskTiers(ctx, acme)
	require.NoError(t, err)
	assert.Empty(t, tiers)
}

func TestTokenIndexUpdates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tokens := NewTokens(clock)
	growth := sdkmath.NewIntWithDecimal(2, model.IndexDecimals)

	err := st.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tokens.Add(tx, usdc); err != nil {
			return err
		}
		_, err := tokens.Add(tx, usdc)
		require.ErrorIs(t, err, apperr.ErrTokenAlreadySupported)

		_, err = tokens.SetIndex(tx, usdc, model.NewIndex(15, 10), growth)
		require.NoError(t, err)
		_, err = tokens.SetIndex(tx, usdc, model.NewIndex(14, 10), growth)
		require.ErrorIs(t, err, apperr.ErrIndexDecrease)
		_, err = tokens.SetIndex(tx, usdc, model.NewIndex(31, 10), growth)
		require.ErrorIs(t, err, apperr.ErrIndexGrowth)

		// Equal index is allowed.
		tok, err := tokens.SetIndex(tx, usdc, model.NewIndex(15, 10), growth)
		require.NoError(t, err)
		assert.True(t, fixedNow.Equal(tok.IndexUpdatedAt))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, st.View(ctx, func(tx store.Tx) error {
		idx, at, err := tokens.IndexWithTimestamp(tx, usdc)
		require.NoError(t, err)
		assert.Equal(t, model.NewIndex(15, 10).String(), idx.String())
		assert.True(t, fixedNow.Equal(at))

		_, err = tokens.Index(tx, aave)
		require.ErrorIs(t, err, apperr.ErrTokenNotSupported)
		return nil
	}))
}

func TestRemoveTokenWithDeposits(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tokens := NewTokens(clock)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		tok, err := tokens.Add(tx, usdc)
		require.NoError(t, err)
		tok.TotalDeposits = sdkmath.NewInt(1)
		return store.PutToken(tx, tok)
	}))

	err := st.Atomic(ctx, func(tx store.Tx) error { return tokens.Remove(tx, usdc) })
	require.ErrorIs(t, err, apperr.ErrTokenHasDeposits)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		tok, _, err := tokens.Get(tx, usdc)
		require.NoError(t, err)
		tok.TotalDeposits = sdkmath.ZeroInt()
		if err := store.PutToken(tx, tok); err != nil {
			return err
		}
		return tokens.Remove(tx, usdc)
	}))

	// Relisting keeps the index where it was.
	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		tok, err := tokens.Add(tx, usdc)
		require.NoError(t, err)
		assert.True(t, tok.Supported)
		assert.Equal(t, model.IndexScale.String(), tok.CurrentIndex.String())
		return nil
	}))
}

func TestTierVaultLifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tokens := NewTokens(clock)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		_, err := tokens.InitializeTier(tx, usdc, lowRisk)
		require.ErrorIs(t, err, apperr.ErrTokenNotSupported)

		if _, err := tokens.Add(tx, usdc); err != nil {
			return err
		}
		_, err = tokens.SetTierIndex(tx, usdc, lowRisk, model.NewIndex(11, 10), sdkmath.Int{})
		require.ErrorIs(t, err, apperr.ErrTierNotInitialized)

		s, err := tokens.InitializeTier(tx, usdc, lowRisk)
		require.NoError(t, err)
		assert.Equal(t, model.IndexScale.String(), s.Index.String())

		_, err = tokens.InitializeTier(tx, usdc, lowRisk)
		require.ErrorIs(t, err, apperr.ErrTierInitialized)

		s, err = tokens.SetTierIndex(tx, usdc, lowRisk, model.NewIndex(11, 10), sdkmath.Int{})
		require.NoError(t, err)
		assert.Equal(t, model.NewIndex(11, 10).String(), s.Index.String())
		return nil
	}))
}

func TestWhitelistAndTierProtocols(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	tokens := NewTokens(clock)

	require.NoError(t, st.Atomic(ctx, func(tx store.Tx) error {
		require.ErrorIs(t, tokens.Whitelist(tx, model.Address{}), apperr.ErrInvalidAddress)
		require.ErrorIs(t, tokens.Unwhitelist(tx, aave), apperr.ErrProtocolNotWhitelisted)
		require.ErrorIs(t, tokens.AssignTierProtocol(tx, lowRisk, aave), apperr.ErrProtocolNotWhitelisted)

		require.NoError(t, tokens.Whitelist(tx, aave))
		require.ErrorIs(t, tokens.Whitelist(tx, aave), apperr.ErrProtocolWhitelisted)

		require.NoError(t, tokens.AssignTierProtocol(tx, lowRisk, aave))
		require.ErrorIs(t, tokens.AssignTierProtocol(tx, lowRisk, aave), apperr.ErrProtocolWhitelisted)

		got, err := store.GetTierProtocols(tx, lowRisk)
		require.NoError(t, err)
		assert.Equal(t, []model.Address{aave}, got)

		require.NoError(t, tokens.RemoveTierProtocol(tx, lowRisk, aave))
		require.ErrorIs(t, tokens.RemoveTierProtocol(tx, lowRisk, aave), apperr.ErrProtocolNotWhitelisted)
		return tokens.Unwhitelist(tx, aave)
	}))
}
