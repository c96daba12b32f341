package gateway

import (
	"context"
	"math"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// PlaceOrder submits an order at CRITICAL priority. ReduceOnly orders
// never call SetLeverage first, since that call fails when all margin is
// tied up in the position being closed. A quantity/notional violation is
// handled by capping the amount and retrying once before giving up.
func (g *Gateway) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	wireSymbol := ToWireSymbol(req.Symbol)

	if !req.ReduceOnly && req.Leverage > 0 {
		err := g.call(ctx, "set_leverage", PriorityCritical, "set_leverage", func(ctx context.Context) error {
			return g.client.SetLeverage(ctx, wireSymbol, int(req.Leverage))
		})
		if err != nil {
			return nil, err
		}
	}

	var result *Order
	placeErr := g.call(ctx, "create_order", PriorityCritical, "create_order", func(ctx context.Context) error {
		o, err := g.client.PlaceOrder(ctx, req, wireSymbol)
		if err != nil {
			return err
		}
		result = o
		return nil
	})

	if placeErr != nil {
		if exErr, ok := placeErr.(*domain.ExchangeError); ok && exErr.Kind == domain.ErrKindQuantityViolation {
			capped := g.capQuantity(ctx, req)
			req.Quantity = capped
			placeErr = g.call(ctx, "create_order", PriorityCritical, "create_order", func(ctx context.Context) error {
				o, err := g.client.PlaceOrder(ctx, req, wireSymbol)
				if err != nil {
					return err
				}
				result = o
				return nil
			})
		}
	}

	return result, placeErr
}

// capQuantity bounds a rejected order's quantity to the symbol's
// max_amount (falling back to domain.DefaultMaxAmount when metadata is
// missing) and to available_margin*leverage/(price*contract_size), then
// floors to the lot size.
func (g *Gateway) capQuantity(ctx context.Context, req PlaceOrderRequest) float64 {
	meta, ok := g.Metadata(req.Symbol)
	maxAmount := domain.DefaultMaxAmount
	lotSize := 0.0
	contractSize := 1.0
	if ok {
		maxAmount = int(meta.MaxAmount)
		lotSize = meta.LotSize
		contractSize = meta.ContractSize
		if contractSize <= 0 {
			contractSize = 1
		}
	}

	qty := req.Quantity
	if qty > float64(maxAmount) {
		qty = float64(maxAmount)
	}

	if bal, err := g.GetBalance(ctx); err == nil && req.Price > 0 && req.Leverage > 0 {
		marginBound := bal.AvailableMargin * req.Leverage / (req.Price * contractSize)
		if marginBound < qty {
			qty = marginBound
		}
	}

	if lotSize > 0 {
		qty = math.Floor(qty/lotSize) * lotSize
	}
	return qty
}

// CancelOrder cancels an order at CRITICAL priority.
func (g *Gateway) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	wireSymbol := ToWireSymbol(symbol)
	return g.call(ctx, "cancel_order", PriorityCritical, "cancel_order", func(ctx context.Context) error {
		return g.client.CancelOrder(ctx, wireSymbol, exchangeOrderID)
	})
}

// GetOrder fetches order state at CRITICAL priority (it is only used in
// the close/fill-confirmation path).
func (g *Gateway) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (*Order, error) {
	wireSymbol := ToWireSymbol(symbol)
	var result *Order
	err := g.call(ctx, "get_order", PriorityCritical, "get_order", func(ctx context.Context) error {
		o, err := g.client.GetOrder(ctx, wireSymbol, exchangeOrderID)
		if err != nil {
			return err
		}
		result = o
		return nil
	})
	return result, err
}

// GetBalance fetches account balance at HIGH priority; pre-submit sanity
// reads always go through REST, never the stream.
func (g *Gateway) GetBalance(ctx context.Context) (*Balance, error) {
	var result *Balance
	err := g.call(ctx, "get_balance", PriorityHigh, "get_balance", func(ctx context.Context) error {
		b, err := g.client.GetBalance(ctx)
		if err != nil {
			return err
		}
		result = b
		return nil
	})
	return result, err
}

// GetPositions fetches the exchange's authoritative open-position list at
// HIGH priority, used by reconciliation.
func (g *Gateway) GetPositions(ctx context.Context) ([]ExchangePosition, error) {
	var result []ExchangePosition
	err := g.call(ctx, "get_positions", PriorityHigh, "get_positions", func(ctx context.Context) error {
		p, err := g.client.GetPositions(ctx)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	return result, err
}

// EnsureOneWayPositionMode sets the account to one-way mode at startup.
// Called once during gateway initialization; a position-mode-mismatch
// error here is swallowed since it means the account is already correct.
func (g *Gateway) EnsureOneWayPositionMode(ctx context.Context) error {
	err := g.call(ctx, "set_position_mode", PriorityHigh, "set_position_mode", func(ctx context.Context) error {
		return g.client.SetPositionMode(ctx, false)
	})
	if exErr, ok := err.(*domain.ExchangeError); ok && exErr.Kind == domain.ErrKindPositionModeMismatch {
		return nil
	}
	return err
}
