package treasury

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/model"
	"YieldVault/internal/recorder"
	"YieldVault/internal/registry"
	"YieldVault/internal/store"
)

var (
	usdc = model.MustAddress("0x00000000000000000000000000000000000000aa")
	aave = model.MustAddress("0x00000000000000000000000000000000000000c1")

	adminAddr    = model.MustAddress("0x00000000000000000000000000000000000000a1")
	guardianAddr = model.MustAddress("0x00000000000000000000000000000000000000a2")
	oracleAddr   = model.MustAddress("0x00000000000000000000000000000000000000a3")
	aliceWallet  = model.MustAddress("0x00000000000000000000000000000000000000e1")
	bobWallet    = model.MustAddress("0x00000000000000000000000000000000000000e2")
	treasuryAddr = model.MustAddress("0x00000000000000000000000000000000000000f1")

	acme  = model.HashID("acme")
	alice = model.AccountKey{ClientID: acme, UserID: model.HashID("alice@email.com"), Token: usdc}
	bob   = model.AccountKey{ClientID: acme, UserID: model.HashID("bob@email.com"), Token: usdc}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memRecorder struct {
	recorder.NoopRecorder
	mu     sync.Mutex
	events []recorder.Event
}

func (r *memRecorder) RecordEvent(evt *recorder.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *evt)
	return nil
}

func (r *memRecorder) byType(typ recorder.EventType) []recorder.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorder.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type memNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *memNotifier) Send(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *memNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type fixture struct {
	ctl      *Controller
	store    store.Store
	book     *custody.Book
	clock    *fakeClock
	rec      *memRecorder
	alerts   *memNotifier
	admin    auth.Caller
	guardian auth.Caller
	oracle   auth.Caller
}

func newFixture(t *testing.T, st store.Store, limits Limits) *fixture {
	t.Helper()
	ctx := context.Background()

	roles := auth.NewRoleBook()
	roles.Grant(auth.RoleAdmin, adminAddr)
	roles.Grant(auth.RoleGuardian, guardianAddr)
	roles.Grant(auth.RoleOracle, oracleAddr)

	f := &fixture{
		store:  st,
		book:   custody.NewBook(),
		clock:  &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		rec:    &memRecorder{},
		alerts: &memNotifier{},
	}
	f.ctl = New(st, roles, f.book, limits,
		WithClock(f.clock.Now),
		WithRecorder(f.rec),
		WithNotifier(f.alerts),
	)
	f.admin = f.ctl.Resolve(adminAddr)
	f.guardian = f.ctl.Resolve(guardianAddr)
	f.oracle = f.ctl.Resolve(oracleAddr)

	_, err := f.ctl.Clients().Register(ctx, f.oracle, registry.Registration{
		ID:                    acme,
		Owner:                 model.MustAddress("0x00000000000000000000000000000000000000d1"),
		Name:                  "Acme",
		ClientRevenueShareBps: 5000,
		ServiceFeeBps:         2000,
	})
	require.NoError(t, err)
	require.NoError(t, f.ctl.AddSupportedToken(ctx, f.admin, usdc))
	require.NoError(t, f.ctl.AddWhitelistedProtocol(ctx, f.admin, aave))
	return f
}

func newMemoryFixture(t *testing.T) *fixture {
	return newFixture(t, store.NewMemory(), DefaultLimits())
}

// newStateFileFixture backs the fixture with a memory store persisted to a
// state file and returns the file's path.
func newStateFileFixture(t *testing.T) (*fixture, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := store.OpenMemory(path)
	require.NoError(t, err)
	return newFixture(t, st, DefaultLimits()), path
}

// blockStateFile puts a non-empty directory where the state file lives so
// every later commit fails to save.
func blockStateFile(t *testing.T, path string) (unblock func()) {
	t.Helper()
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocked"), 0o755))
	return func() { require.NoError(t, os.RemoveAll(path)) }
}

func usd(n int64) sdkmath.Int { return sdkmath.NewInt(n * 1_000_000) }

func (f *fixture) deposit(t *testing.T, key model.AccountKey, amount sdkmath.Int) {
	t.Helper()
	_, err := f.ctl.Deposit(context.Background(), key, amount)
	require.NoError(t, err)
}

func (f *fixture) setIndex(t *testing.T, idx sdkmath.Int) {
	t.Helper()
	_, err := f.ctl.UpdateVaultIndex(context.Background(), f.oracle, usdc, idx)
	require.NoError(t, err)
}

// fundYield brings realised protocol yield into the pool.
func (f *fixture) fundYield(t *testing.T, amount sdkmath.Int) {
	t.Helper()
	require.NoError(t, f.ctl.HarvestYield(context.Background(), f.oracle, usdc, amount))
}

func (f *fixture) pool(t *testing.T) sdkmath.Int {
	t.Helper()
	bal, err := f.ctl.PoolBalance(context.Background(), usdc)
	require.NoError(t, err)
	return bal
}

func (f *fixture) received(t *testing.T, addr model.Address) sdkmath.Int {
	t.Helper()
	var paid sdkmath.Int
	require.NoError(t, f.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		paid, err = custody.Received(tx, usdc, addr)
		return err
	}))
	return paid
}
