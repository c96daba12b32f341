package position

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
)

// OpenRequest carries everything Open needs: the caller (main task) has
// already sized the position and computed stop/target via the risk
// package.
type OpenRequest struct {
	Symbol     string
	Side       domain.Side
	EntryPrice float64 // live price at submission time
	StopLoss   float64
	TakeProfit float64
	Amount     float64 // contracts
	Leverage   float64
	Confidence float64
	Meta       domain.SymbolMetadata
}

// Open validates invariants, confirms available margin, submits a
// CRITICAL market order, and on ack stores the new Position.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*domain.Position, error) {
	lock := m.lockFor(req.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := domain.ValidateOpenInvariants(req.Side, req.Amount, req.Meta, req.EntryPrice, req.StopLoss, req.TakeProfit); err != nil {
		return nil, err
	}

	fp := orderFingerprint(req.Symbol, req.Side, req.Amount, req.EntryPrice)
	if !m.openDebounce.allow(fp) {
		if p, ok := m.get(req.Symbol); ok {
			m.log.Warn().Str("symbol", req.Symbol).Msg("duplicate open request suppressed by idempotency debounce")
			snapshot := *p
			return &snapshot, nil
		}
		return nil, fmt.Errorf("position: duplicate open request for %s suppressed within debounce window", req.Symbol)
	}

	contractSize := req.Meta.ContractSize
	if contractSize <= 0 {
		contractSize = 1
	}
	requiredMargin := req.EntryPrice * req.Amount * contractSize / req.Leverage
	bal, err := m.gw.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("position: margin check failed: %w", err)
	}
	if bal.AvailableMargin < requiredMargin {
		return nil, fmt.Errorf("position: insufficient margin: need %.2f, have %.2f", requiredMargin, bal.AvailableMargin)
	}

	order, err := m.gw.PlaceOrder(ctx, gateway.PlaceOrderRequest{
		Symbol:     req.Symbol,
		Side:       sideToOrderSide(req.Side, false),
		Type:       gateway.OrderTypeMarket,
		Quantity:   req.Amount,
		ReduceOnly: false,
		Leverage:   req.Leverage,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &domain.Position{
		Symbol:            req.Symbol,
		Side:              req.Side,
		EntryPrice:        req.EntryPrice,
		Amount:            req.Amount,
		Leverage:          req.Leverage,
		OpenedAt:          now,
		StopLoss:          req.StopLoss,
		TakeProfit:        req.TakeProfit,
		InitialTakeProfit: req.TakeProfit,
		LastUpdateAt:      now,
		MarkPriceLast:     req.EntryPrice,
		Confidence:        req.Confidence,
	}
	switch req.Side {
	case domain.SideLong:
		p.HighestPrice = req.EntryPrice
	case domain.SideShort:
		p.LowestPrice = req.EntryPrice
	}

	m.store(p)

	m.log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("order_id", order.ExchangeOrderID).
		Float64("entry_price", req.EntryPrice).
		Float64("amount", req.Amount).
		Float64("leverage", req.Leverage).
		Msg("position opened")

	snapshot := *p
	return &snapshot, nil
}
