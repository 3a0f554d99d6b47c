// Package treasury is the role-gated, rate-limited and pausable entry point
// to the ledger. Every mutating operation resolves its caller once, holds the
// keyed locks of what it touches and commits in a single store transaction.
package treasury

import (
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"YieldVault/internal/apperr"
	"YieldVault/internal/auth"
	"YieldVault/internal/custody"
	"YieldVault/internal/keylock"
	"YieldVault/internal/ledger"
	"YieldVault/internal/logging"
	"YieldVault/internal/model"
	"YieldVault/internal/notifier"
	"YieldVault/internal/recorder"
	"YieldVault/internal/registry"
	"YieldVault/internal/revenue"
	"YieldVault/internal/store"
)

// Limits bound what the controller lets through.
type Limits struct {
	MaxSingleTransfer  sdkmath.Int
	DailyTransferLimit sdkmath.Int
	MaxBatchSize       int
	// MaxIndexGrowth caps one index update at current*MaxIndexGrowth/1e18.
	// Zero disables the cap.
	MaxIndexGrowth   sdkmath.Int
	MaxGasFeePerUser sdkmath.Int
}

// DefaultLimits are sized for a 6-decimal stablecoin.
func DefaultLimits() Limits {
	return Limits{
		MaxSingleTransfer:  sdkmath.NewInt(1_000_000_000000),
		DailyTransferLimit: sdkmath.NewInt(5_000_000_000000),
		MaxBatchSize:       100,
		MaxIndexGrowth:     model.NewIndex(2, 1),
		MaxGasFeePerUser:   sdkmath.NewInt(10_000000),
	}
}

// limitAlertBps is the share of the daily limit that triggers an alert.
const limitAlertBps = 8000

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRecorder sets the audit recorder.
func WithRecorder(r recorder.Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

// WithNotifier sets where operator alerts go.
func WithNotifier(n notifier.Notifier) Option {
	return func(c *Controller) { c.alerts = n }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithDisplayDecimals sets the decimals used to format limit alerts.
func WithDisplayDecimals(d int32) Option {
	return func(c *Controller) { c.decimals = d }
}

// Controller is the TreasuryController.
type Controller struct {
	store   store.Store
	locks   *keylock.Map
	roles   *auth.RoleBook
	custody custody.Custodian
	limits  Limits

	tokens  *registry.Tokens
	clients *registry.Clients
	ledger  *ledger.Ledger
	revenue *revenue.Distributor

	// stateMu serializes writers of the controller record: pause flag and
	// the daily transfer window.
	stateMu sync.Mutex
	// rolesMu keeps stored role changes and the role book in the same order.
	rolesMu sync.Mutex

	now      func() time.Time
	rec      recorder.Recorder
	alerts   notifier.Notifier
	tracer   trace.Tracer
	decimals int32
}

// New wires a controller over st.
func New(st store.Store, roles *auth.RoleBook, cust custody.Custodian, limits Limits, opts ...Option) *Controller {
	c := &Controller{
		store:    st,
		locks:    keylock.New(),
		roles:    roles,
		custody:  cust,
		limits:   limits,
		now:      time.Now,
		rec:      recorder.NewNoopRecorder(),
		alerts:   notifier.NoopNotifier{},
		tracer:   otel.Tracer("YieldVault/internal/treasury"),
		decimals: 6,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = registry.NewTokens(c.now)
	c.clients = registry.NewClients(st, c.locks, c.now)
	c.ledger = ledger.New(st, c.locks, c.tokens, c.now)
	c.revenue = revenue.NewDistributor(limits.MaxGasFeePerUser)
	return c
}

// Resolve turns an address into the capability an operation runs under.
func (c *Controller) Resolve(addr model.Address) auth.Caller {
	return c.roles.Resolve(addr)
}

// Clients exposes the client registry, which checks its own roles.
func (c *Controller) Clients() *registry.Clients { return c.clients }

// Limits returns the configured limits.
func (c *Controller) Limits() Limits { return c.limits }

func (c *Controller) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "treasury."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Reason(err))
	}
	span.End()
}

func requireActive(tx store.Tx) error {
	s, err := store.GetControllerState(tx)
	if err != nil {
		return err
	}
	if s.Paused {
		return errorsmod.Wrapf(apperr.ErrPaused, "since %s", s.PausedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func requirePositive(amount sdkmath.Int, what string) error {
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrapf(apperr.ErrInvalidAmount, "%s must be positive", what)
	}
	return nil
}

func (c *Controller) checkBatch(n int) error {
	if n == 0 || n > c.limits.MaxBatchSize {
		return errorsmod.Wrapf(apperr.ErrInvalidBatch, "%d items, want 1..%d", n, c.limits.MaxBatchSize)
	}
	return nil
}

// record writes an audit event after commit. Failures are logged only; the
// ledger is already committed.
func (c *Controller) record(evt *recorder.Event) {
	if err := c.rec.RecordEvent(evt); err != nil {
		logging.Errorf("record %s event %s: %v", evt.Type, evt.ID, err)
	}
}

func (c *Controller) alert(text string) {
	if err := c.alerts.Send(text); err != nil {
		logging.Errorf("send alert: %v", err)
	}
}

func tokenAttr(addr model.Address) attribute.KeyValue {
	return attribute.String("vault.token", addr.String())
}

func amountAttr(amount sdkmath.Int) attribute.KeyValue {
	return attribute.String("vault.amount", model.OrZero(amount).String())
}
