// Package coordinator runs the three long-lived tasks that drive the
// engine end to end — scanning, opening, and monitoring — and owns their
// startup order, lock discipline, and shutdown sequence.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/position"
	"github.com/kestrelbot/perpagent/internal/risk"
)

// Gateway is the subset of *gateway.Gateway the coordinator drives
// directly (positions and scanner reach the rest through their own
// narrower interfaces).
type Gateway interface {
	EnsureOneWayPositionMode(ctx context.Context) error
	GetBalance(ctx context.Context) (*gateway.Balance, error)
	Metadata(symbol string) (domain.SymbolMetadata, bool)
	RefreshMetadata(ctx context.Context, symbol string) error
	Close() error
}

// PositionManager is the subset of *position.Manager the coordinator
// drives directly.
type PositionManager interface {
	Reconcile(ctx context.Context, meta map[string]domain.SymbolMetadata) error
	Symbols() []string
	Get(symbol string) (domain.Position, bool)
	Count() int
	Open(ctx context.Context, req position.OpenRequest) (*domain.Position, error)
	UpdateCycle(ctx context.Context, symbol string, mc position.MarketContext) (*position.ExitEvent, error)
	ArmKillSwitch(reason string)
}

// RiskService is the subset of *risk.Service the coordinator drives
// directly.
type RiskService interface {
	UpdateBalance(now time.Time, balance float64)
	Gate(group domain.SymbolGroup, groupCounts map[domain.SymbolGroup]int, symbolAlreadyOpen bool) risk.GateResult
	RiskBudgetMultiplier() float64
	Sizing(in risk.SizingInputs, avgWin, avgLoss float64) risk.SizeResult
	RecordOutcome(o domain.TradeOutcome)
	ArmKillSwitch(reason string)
	KillSwitchArmed() bool
}

// Scanner is the subset of *scanner.Service the coordinator drives
// directly.
type Scanner interface {
	Run(ctx context.Context) error
	Snapshot(now time.Time) ([]domain.Opportunity, bool)
}

// Indicators is the subset of *indicators.Service the monitor task reads
// from directly, letting it reuse the scanner's own most recent
// indicator pass for a symbol instead of recomputing on every tick.
type Indicators interface {
	Cached(symbol string, tf domain.Timeframe) (domain.IndicatorSnapshot, bool)
}

// Config controls task cadence. Zero values fall back to the spec
// defaults below.
type Config struct {
	CheckInterval           time.Duration // default 60s
	PositionUpdateInterval  time.Duration // default 1s
	LiveLoopInterval        time.Duration // default 50ms
	MaxOpenPositions        int           // default 3
	ShutdownGrace           time.Duration // default 30s
	LeverageDefault         float64
	RiskPerTrade            float64 // 0 = auto
	MaxPositionNotional     float64 // 0 = auto
	MinConfidenceOverride   float64 // 0 = use domain.MinConfidenceFloor(regime)
	CloseOnShutdown         bool    // force-close every open position during shutdown
}

func (c Config) withDefaults() Config {
	if c.CheckInterval == 0 {
		c.CheckInterval = 60 * time.Second
	}
	if c.PositionUpdateInterval == 0 {
		c.PositionUpdateInterval = time.Second
	}
	if c.LiveLoopInterval == 0 {
		c.LiveLoopInterval = 50 * time.Millisecond
	}
	if c.MaxOpenPositions == 0 {
		c.MaxOpenPositions = 3
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 30 * time.Second
	}
	if c.LeverageDefault == 0 {
		c.LeverageDefault = 5
	}
	return c
}

// Coordinator wires the gateway, risk, position, and scanner components
// together and runs the three long-lived tasks. Every component it touches
// is internally synchronized; the coordinator's own mutex guards only the
// main task's lastCheck timestamp and is released before any component is
// called, preserving the engine's fixed lock order (positions before risk
// before scanner before gateway).
type Coordinator struct {
	gw       Gateway
	risk     RiskService
	pos      PositionManager
	scan     Scanner
	ind      Indicators
	cfg      Config
	log      zerolog.Logger

	lastCheck time.Time
	mu        sync.Mutex // guards lastCheck only, read/written from the main task alone
}

// New constructs a Coordinator from already-built components.
func New(gw Gateway, riskSvc RiskService, pos PositionManager, scan Scanner, ind Indicators, cfg Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		gw:   gw,
		risk: riskSvc,
		pos:  pos,
		scan: scan,
		ind:  ind,
		cfg:  cfg.withDefaults(),
		log:  logger.With().Str("component", "coordinator").Logger(),
	}
}

// Run performs the startup sequence, launches the three long-lived tasks,
// and blocks until ctx is canceled, at which point it runs the shutdown
// sequence and returns.
func (c *Coordinator) Run(ctx context.Context, meta map[string]domain.SymbolMetadata) error {
	if err := c.gw.EnsureOneWayPositionMode(ctx); err != nil {
		return err
	}
	if err := c.pos.Reconcile(ctx, meta); err != nil {
		c.log.Warn().Err(err).Msg("startup reconciliation failed, continuing with local state")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.monitorTask(runCtx)
	}()

	time.Sleep(500 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.scan.Run(runCtx); err != nil && runCtx.Err() == nil {
			c.log.Warn().Err(err).Msg("scanner task exited")
		}
	}()

	time.Sleep(1 * time.Second)

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.mainTask(runCtx, meta)
	}()

	<-ctx.Done()
	c.shutdown(cancel, &wg)
	return ctx.Err()
}

// shutdown, when cfg.CloseOnShutdown is set, arms the kill switch and
// waits up to cfg.ShutdownGrace for the monitor to close every open
// position; otherwise it leaves open positions untouched for the next
// reconciliation. Either way it then cancels the remaining tasks and
// closes the gateway.
func (c *Coordinator) shutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	if c.cfg.CloseOnShutdown {
		c.log.Info().Msg("shutdown: arming kill switch")
		c.risk.ArmKillSwitch("shutdown")
		c.pos.ArmKillSwitch("shutdown")

		deadline := time.Now().Add(c.cfg.ShutdownGrace)
		for time.Now().Before(deadline) && c.pos.Count() > 0 {
			time.Sleep(c.cfg.LiveLoopInterval)
		}
		if c.pos.Count() > 0 {
			c.log.Warn().Int("open", c.pos.Count()).Msg("shutdown grace period elapsed with positions still open")
		}
	} else {
		c.log.Info().Msg("shutdown: close_positions_on_shutdown disabled, leaving open positions in place")
	}

	cancel()
	wg.Wait()

	if err := c.gw.Close(); err != nil {
		c.log.Warn().Err(err).Msg("gateway close failed")
	}
	c.log.Info().Msg("shutdown complete")
}
