package position

import (
	"context"
	"math"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
)

// closeEpsilon treats a fraction within this tolerance of 1.0 (or a
// remaining amount this close to zero) as a full close.
const closeEpsilon = 1e-9

// closeFraction submits a reduce-only CRITICAL order for fraction of the
// position's current amount and updates (or removes) the stored Position
// on success. It never calls set_leverage — the gateway already skips
// that for ReduceOnly orders.
func (m *Manager) closeFraction(ctx context.Context, p *domain.Position, fraction float64, exitPrice float64, reason domain.ExitReason) (ExitEvent, error) {
	qty := p.Amount * fraction
	full := fraction >= 1-closeEpsilon

	_, err := m.gw.PlaceOrder(ctx, gateway.PlaceOrderRequest{
		Symbol:     p.Symbol,
		Side:       sideToOrderSide(p.Side, true),
		Type:       gateway.OrderTypeMarket,
		Quantity:   qty,
		ReduceOnly: true,
	})
	if err != nil {
		return ExitEvent{}, err
	}

	roi := p.PnLFraction(exitPrice) * p.Leverage

	if full {
		m.remove(p.Symbol)
		m.log.Info().
			Str("symbol", p.Symbol).
			Str("reason", string(reason)).
			Float64("exit_price", exitPrice).
			Float64("realized_roi", roi).
			Msg("position closed")
		return ExitEvent{Symbol: p.Symbol, Reason: reason, Closed: true, ClosedAmount: qty, RealizedROI: roi}, nil
	}

	p.Amount -= qty
	m.log.Info().
		Str("symbol", p.Symbol).
		Str("reason", string(reason)).
		Float64("closed_amount", qty).
		Float64("remaining_amount", p.Amount).
		Msg("position partially closed")
	return ExitEvent{Symbol: p.Symbol, Reason: reason, Closed: false, ClosedAmount: qty, RealizedROI: roi}, nil
}

// Close fully closes a position at the given exit price and reason,
// returning the realized leveraged ROI. Closing a symbol with no tracked
// position is idempotent: it reports success without touching the
// positions map or the exchange, so a duplicate close request (e.g. a
// retried shutdown or a monitor/main race) is harmless.
func (m *Manager) Close(ctx context.Context, symbol string, exitPrice float64, reason domain.ExitReason) (ExitEvent, error) {
	lock := m.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	p, ok := m.get(symbol)
	if !ok {
		return ExitEvent{Symbol: symbol, Reason: reason, Closed: true}, nil
	}
	return m.closeFraction(ctx, p, 1.0, exitPrice, reason)
}

// roundLot truncates a quantity down to a multiple of lotSize. It is
// applied to adopted exchange positions; closeFraction submits partial-exit
// quantities without rounding them.
func roundLot(qty, lotSize float64) float64 {
	if lotSize <= 0 {
		return qty
	}
	return math.Floor(qty/lotSize) * lotSize
}
