package treasury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/apperr"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
)

func TestEmergencyPauseRoles(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)

	require.ErrorIs(t, f.ctl.EmergencyPause(ctx, f.admin), apperr.ErrUnauthorized)
	require.ErrorIs(t, f.ctl.EmergencyPause(ctx, f.oracle), apperr.ErrUnauthorized)

	require.NoError(t, f.ctl.EmergencyPause(ctx, f.guardian))
	require.ErrorIs(t, f.ctl.EmergencyPause(ctx, f.guardian), apperr.ErrPaused)

	paused, err := f.ctl.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.ErrorIs(t, f.ctl.Unpause(ctx, f.guardian), apperr.ErrUnauthorized)
	require.NoError(t, f.ctl.Unpause(ctx, f.admin))
	require.ErrorIs(t, f.ctl.Unpause(ctx, f.admin), apperr.ErrNotPaused)

	paused, err = f.ctl.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	assert.Len(t, f.alerts.messages(), 2)
	assert.Len(t, f.rec.byType(recorder.EventPause), 1)
	assert.Len(t, f.rec.byType(recorder.EventUnpause), 1)
}

func TestPauseBlocksFundMovement(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.deposit(t, alice, usd(1000))
	require.NoError(t, f.ctl.InitializeTier(ctx, f.oracle, usdc, model.HashID("conservative")))
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(100)))

	require.NoError(t, f.ctl.EmergencyPause(ctx, f.guardian))

	_, err := f.ctl.Deposit(ctx, alice, usd(1))
	assert.ErrorIs(t, err, apperr.ErrPaused, "deposit")
	_, err = f.ctl.Withdraw(ctx, f.oracle, withdrawReq(alice, usd(1), aliceWallet))
	assert.ErrorIs(t, err, apperr.ErrPaused, "withdraw")
	_, err = f.ctl.BatchWithdraw(ctx, f.oracle, []WithdrawRequest{withdrawReq(alice, usd(1), aliceWallet)})
	assert.ErrorIs(t, err, apperr.ErrPaused, "batch withdraw")
	assert.ErrorIs(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(1)), apperr.ErrPaused, "transfer")
	assert.ErrorIs(t, f.ctl.ConfirmUnstake(ctx, f.oracle, usdc, usd(1)), apperr.ErrPaused, "unstake")
	_, err = f.ctl.UpdateVaultIndex(ctx, f.oracle, usdc, model.NewIndex(11, 10))
	assert.ErrorIs(t, err, apperr.ErrPaused, "index")
	assert.ErrorIs(t, f.ctl.UpdateTierIndex(ctx, f.oracle, usdc, model.HashID("conservative"), model.NewIndex(11, 10)),
		apperr.ErrPaused, "tier index")
	assert.ErrorIs(t, f.ctl.ClaimProtocolRevenue(ctx, f.oracle, usdc, treasuryAddr, usd(1)), apperr.ErrPaused, "claim")

	// role checks come before the pause check
	assert.ErrorIs(t, f.ctl.ExecuteTransfer(ctx, f.admin, usdc, aave, usd(1)), apperr.ErrUnauthorized)

	assert.ErrorIs(t, f.ctl.InitializeTier(ctx, f.oracle, usdc, model.HashID("aggressive")), apperr.ErrPaused, "tier init")

	// registry configuration stays available to operators
	require.NoError(t, f.ctl.AddWhitelistedProtocol(ctx, f.admin, model.MustAddress("0x00000000000000000000000000000000000000c2")))
	require.NoError(t, f.ctl.Clients().Deactivate(ctx, f.admin, acme))
	require.NoError(t, f.ctl.Clients().Activate(ctx, f.admin, acme))

	require.NoError(t, f.ctl.Unpause(ctx, f.admin))
	_, err = f.ctl.Withdraw(ctx, f.oracle, withdrawReq(alice, usd(1), aliceWallet))
	require.NoError(t, err)
}

func TestPauseKeepsTransferWindow(t *testing.T) {
	ctx := context.Background()
	f := newMemoryFixture(t)
	f.deposit(t, alice, usd(10_000))
	require.NoError(t, f.ctl.ExecuteTransfer(ctx, f.oracle, usdc, aave, usd(3000)))

	require.NoError(t, f.ctl.EmergencyPause(ctx, f.guardian))
	require.NoError(t, f.ctl.Unpause(ctx, f.admin))

	st, err := f.ctl.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Paused)
	assert.Equal(t, usd(3000).String(), st.DailyTransferred.String())
}
