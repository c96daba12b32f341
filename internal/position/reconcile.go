package position

import (
	"context"
	"math"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/risk"
)

// mismatchLots is how many lots of amount discrepancy between the local
// and exchange view of a position triggers an adopt-exchange-value fix.
const mismatchLots = 1.0

// Reconcile compares the locally tracked positions against the exchange's
// reported state: positions open on the exchange but missing locally are
// adopted with a synthesized stop/target, positions open locally but
// missing on the exchange are purged as externally closed, and amount
// mismatches beyond one lot are corrected in favor of the exchange.
func (m *Manager) Reconcile(ctx context.Context, meta map[string]domain.SymbolMetadata) error {
	remote, err := m.gw.GetPositions(ctx)
	if err != nil {
		return err
	}

	remoteBySymbol := make(map[string]gateway.ExchangePosition, len(remote))
	for _, r := range remote {
		remoteBySymbol[r.Symbol] = r
	}

	for _, symbol := range m.Symbols() {
		lock := m.lockFor(symbol)
		lock.Lock()
		r, stillOpen := remoteBySymbol[symbol]
		local, ok := m.get(symbol)
		if !ok {
			lock.Unlock()
			continue
		}
		if !stillOpen {
			m.remove(symbol)
			m.log.Warn().Str("symbol", symbol).Msg("position missing on exchange, treating as externally closed")
			lock.Unlock()
			continue
		}
		lotSize := meta[symbol].LotSize
		if math.Abs(local.Amount-r.Amount) > mismatchLots*lotSize && lotSize > 0 {
			m.log.Warn().
				Str("symbol", symbol).
				Float64("local_amount", local.Amount).
				Float64("exchange_amount", r.Amount).
				Msg("position amount mismatch beyond one lot, adopting exchange value")
			local.Amount = r.Amount
		}
		lock.Unlock()
	}

	for symbol, r := range remoteBySymbol {
		lock := m.lockFor(symbol)
		lock.Lock()
		if _, ok := m.get(symbol); ok {
			lock.Unlock()
			continue
		}
		m.adoptPosition(symbol, r, meta[symbol])
		lock.Unlock()
	}

	return nil
}

// adoptPosition builds a Position for a contract the exchange reports open
// but that this process has no local record of (e.g. after a restart), with
// a best-effort stop/target synthesized from the default risk parameters
// since the original entry-time risk decision is not recoverable.
func (m *Manager) adoptPosition(symbol string, r gateway.ExchangePosition, meta domain.SymbolMetadata) {
	side := domain.SideLong
	if r.Side == gateway.OrderSideSell {
		side = domain.SideShort
	}

	stop, target := risk.InitialStopTarget(side, r.EntryPrice, risk.BaseStopDistance(), 1.8)
	amount := roundLot(r.Amount, meta.LotSize)

	leverage := r.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	markPrice := r.MarkPrice
	if markPrice <= 0 {
		markPrice = r.EntryPrice
	}

	now := time.Now()
	p := &domain.Position{
		Symbol:            symbol,
		Side:              side,
		EntryPrice:        r.EntryPrice,
		Amount:            amount,
		Leverage:          leverage,
		OpenedAt:          now,
		StopLoss:          stop,
		TakeProfit:        target,
		InitialTakeProfit: target,
		LastUpdateAt:      now,
		MarkPriceLast:     markPrice,
	}
	switch side {
	case domain.SideLong:
		p.HighestPrice = r.EntryPrice
	case domain.SideShort:
		p.LowestPrice = r.EntryPrice
	}

	m.store(p)
	m.log.Warn().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("amount", r.Amount).
		Msg("adopted position found on exchange with no local record")
}
