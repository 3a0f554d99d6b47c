package treasury

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
	"YieldVault/internal/store"
)

func TestDailyTransferLimit(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.fundYield(t, usd(20_000_000))

	million := usd(1_000_000)
	for i := 0; i < 5; i++ {
		require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, million), "transfer %d", i)
	}

	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DailyLimitRemaining.IsZero())
	assert.Equal(t, usd(5_000_000).String(), status.DailyTransferred.String())

	err = f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, sdkmath.OneInt())
	require.ErrorIs(t, err, apperr.ErrExceedsDailyLimit)

	f.clock.Advance(24*time.Hour - time.Second)
	err = f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, sdkmath.OneInt())
	require.ErrorIs(t, err, apperr.ErrExceedsDailyLimit)

	f.clock.Advance(time.Second)
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, million))

	status, err = f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, usd(4_000_000).String(), status.DailyLimitRemaining.String())
	assert.True(t, f.clock.Now().Equal(status.WindowStart))

	tok, err := f.ctl.Token(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, usd(6_000_000).String(), tok.TotalStaked.String())
	assert.Equal(t, usd(6_000_000).String(), f.received(t, aave).String())

	// One alert when the first window crossed 80%.
	alerts := f.alerts.messages()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Daily transfer limit")
	assert.Len(t, f.rec.byType(recorder.EventTransfer), 6)
}

func TestSingleTransferLimit(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.fundYield(t, usd(2_000_000))

	err := f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1_000_000).AddRaw(1))
	require.ErrorIs(t, err, apperr.ErrExceedsSingleTransfer)
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1_000_000)))
}

func TestTransferPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.fundYield(t, usd(10))

	other := bobWallet
	tests := []struct {
		name string
		err  error
		run  func() error
	}{
		{"admin is not oracle", apperr.ErrUnauthorized, func() error {
			return f.ctl.ExecuteTransfer(ctx, f.admin, usdc, aave, usd(1))
		}},
		{"zero amount", apperr.ErrInvalidAmount, func() error {
			return f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, sdkmath.ZeroInt())
		}},
		{"protocol not whitelisted", apperr.ErrProtocolNotWhitelisted, func() error {
			return f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, other, usd(1))
		}},
		{"token not supported", apperr.ErrTokenNotSupported, func() error {
			return f.ctl.ExecuteTransfer(ctx, f.oracle, other, aave, usd(1))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.run(), tt.err)
		})
	}

	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DailyTransferred.IsZero(), "rejected transfers consume no limit")
}

func TestTransferRollsBackWhenCustodyFails(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)

	// The pool is empty, so custody refuses.
	err := f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1))
	require.Error(t, err)

	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DailyTransferred.IsZero())
	tok, err := f.ctl.Token(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, tok.TotalStaked.IsZero())
}

func TestConcurrentTransfersNeverExceedLimit(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.fundYield(t, usd(50_000_000))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1_000_000)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, usd(5_000_000).String(), status.DailyTransferred.String())
}

func TestConfirmUnstake(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.fundYield(t, usd(100))

	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(100)))
	assert.True(t, f.pool(t).IsZero())

	require.NoError(t, f.ctl.ConfirmUnstake(ctx, f.oracle, usdc, usd(60)))
	require.ErrorIs(t, f.ctl.ConfirmUnstake(ctx, f.oracle, usdc, usd(41)), apperr.ErrInsufficientStaked)
	require.ErrorIs(t, f.ctl.ConfirmUnstake(ctx, f.admin, usdc, usd(1)), apperr.ErrUnauthorized)

	tok, err := f.ctl.Token(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, usd(40).String(), tok.TotalStaked.String())
	assert.Equal(t, usd(60).String(), f.pool(t).String())
}

func TestTransferOnSQLStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQL(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer st.Close()

	limits := DefaultLimits()
	limits.DailyTransferLimit = usd(3)
	f := newFixture(t, st, limits)
	f.fundYield(t, usd(10))

	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(2)))
	require.ErrorIs(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(2)), apperr.ErrExceedsDailyLimit)
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1)))

	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DailyLimitRemaining.IsZero())
}

func TestTransferRollsBackWhenCommitFails(t *testing.T) {
	ctx := context.Background()
	f, path := newStateFileFixture(t)
	f.deposit(t, alice, usd(1000))

	unblock := blockStateFile(t, path)
	defer unblock()
	require.Error(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(400)))

	assert.Equal(t, usd(1000).String(), f.pool(t).String())
	assert.True(t, f.received(t, aave).IsZero())
	status, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DailyTransferred.IsZero())
	tok, err := f.ctl.Token(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, tok.TotalStaked.IsZero())
}

func TestHarvestYield(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	unlisted := model.MustAddress("0x00000000000000000000000000000000000000bb")

	require.ErrorIs(t, f.ctl.HarvestYield(ctx, f.admin, usdc, usd(1)), apperr.ErrUnauthorized)
	require.ErrorIs(t, f.ctl.HarvestYield(ctx, f.oracle, usdc, sdkmath.ZeroInt()), apperr.ErrInvalidAmount)
	require.ErrorIs(t, f.ctl.HarvestYield(ctx, f.oracle, unlisted, usd(1)), apperr.ErrTokenNotSupported)

	require.NoError(t, f.ctl.EmergencyPause(ctx, f.guardian))
	require.ErrorIs(t, f.ctl.HarvestYield(ctx, f.oracle, usdc, usd(1)), apperr.ErrPaused)
	require.NoError(t, f.ctl.Unpause(ctx, f.admin))

	require.NoError(t, f.ctl.HarvestYield(ctx, f.oracle, usdc, usd(25)))
	assert.Equal(t, usd(25).String(), f.pool(t).String())
	tok, err := f.ctl.Token(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, tok.TotalStaked.IsZero())
	assert.Len(t, f.rec.byType(recorder.EventHarvest), 1)
}

func TestYieldRoundTripSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f, path := newStateFileFixture(t)
	f.deposit(t, alice, usd(1000))
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1000)))
	f.setIndex(t, model.NewIndex(15, 10))

	require.ErrorIs(t, f.ctl.ConfirmUnstake(ctx, f.oracle, usdc, usd(1500)), apperr.ErrInsufficientStaked)
	require.NoError(t, f.ctl.ConfirmUnstake(ctx, f.oracle, usdc, usd(1000)))
	require.NoError(t, f.ctl.HarvestYield(ctx, f.oracle, usdc, usd(500)))

	reopened, err := store.OpenMemory(path)
	require.NoError(t, err)
	roles := auth.NewRoleBook()
	roles.Grant(auth.RoleOracle, oracleAddr)
	ctl := New(reopened, roles, custody.NewBook(), DefaultLimits(), WithClock(f.clock.Now))

	pool, err := ctl.PoolBalance(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, usd(1500).String(), pool.String())

	res, err := ctl.Withdraw(ctx, ctl.Resolve(oracleAddr), withdrawReq(alice, usd(1500), aliceWallet))
	require.NoError(t, err)
	assert.Equal(t, usd(1400).String(), res.Split.NetToUser.String())
	pool, err = ctl.PoolBalance(ctx, usdc)
	require.NoError(t, err)
	assert.Equal(t, usd(100).String(), pool.String())
}
