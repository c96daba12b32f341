// Package position owns every open Position, keyed by symbol, with a
// per-symbol lock enforcing the single-writer invariant the monitor,
// main, and reconciliation tasks all rely on.
package position

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
)

// Gateway is the subset of *gateway.Gateway the position manager drives.
type Gateway interface {
	PlaceOrder(ctx context.Context, req gateway.PlaceOrderRequest) (*gateway.Order, error)
	GetTicker(ctx context.Context, symbol string, p gateway.Priority) (gateway.Ticker, error)
	GetBalance(ctx context.Context) (*gateway.Balance, error)
	GetPositions(ctx context.Context) ([]gateway.ExchangePosition, error)
}

// MarketContext supplies the per-symbol volatility/regime context the
// update cycle needs for trailing-stop and ATR-target logic, computed at
// whatever cadence the caller finds affordable (it need not be recomputed
// every monitor tick).
type MarketContext struct {
	ATR        float64
	ATRValid   bool
	ATRPercent float64 // ATR as a percent of price, stands in for "realized volatility"
	Regime     domain.Regime
}

// ExitEvent describes what the update cycle did to a position, if
// anything: a full close, a partial close, or neither.
type ExitEvent struct {
	Symbol       string
	Reason       domain.ExitReason
	Closed       bool // true for a full close
	ClosedAmount float64
	RealizedROI  float64 // leveraged, only meaningful when Closed
}

// Manager owns all open positions.
type Manager struct {
	gw  Gateway
	cfg Config
	log zerolog.Logger

	mu        sync.RWMutex
	positions map[string]*domain.Position

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	openDebounce *debouncer

	killSwitch struct {
		mu     sync.Mutex
		armed  bool
		reason string
	}
}

// New constructs a position Manager.
func New(gw Gateway, cfg Config, logger zerolog.Logger) *Manager {
	return &Manager{
		gw:           gw,
		cfg:          cfg.withDefaults(),
		log:          logger.With().Str("component", "position").Logger(),
		positions:    make(map[string]*domain.Position),
		locks:        make(map[string]*sync.Mutex),
		openDebounce: newDebouncer(debounceWindow),
	}
}

// lockFor returns the per-symbol mutex, creating it on first use.
func (m *Manager) lockFor(symbol string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.locks[symbol] = l
	}
	return l
}

// ArmKillSwitch arms the kill switch; the next update cycle for every
// open position will close it at market.
func (m *Manager) ArmKillSwitch(reason string) {
	m.killSwitch.mu.Lock()
	defer m.killSwitch.mu.Unlock()
	m.killSwitch.armed = true
	m.killSwitch.reason = reason
	m.log.Warn().Str("reason", reason).Msg("kill switch armed")
}

func (m *Manager) killSwitchArmed() bool {
	m.killSwitch.mu.Lock()
	defer m.killSwitch.mu.Unlock()
	return m.killSwitch.armed
}

// Get returns a snapshot copy of the position for symbol, if open.
func (m *Manager) Get(symbol string) (domain.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Symbols returns the symbols of every currently open position.
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.positions))
	for s := range m.positions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of currently open positions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

func (m *Manager) store(p *domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Symbol] = p
}

func (m *Manager) remove(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, symbol)
}

func (m *Manager) get(symbol string) (*domain.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	return p, ok
}

func sideToOrderSide(side domain.Side, closing bool) gateway.OrderSide {
	long := side == domain.SideLong
	if closing {
		long = !long
	}
	if long {
		return gateway.OrderSideBuy
	}
	return gateway.OrderSideSell
}
