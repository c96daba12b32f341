package position

import (
	"context"

	"github.com/kestrelbot/perpagent/internal/gateway"
)

type fakeGateway struct {
	placeOrderErr error
	orders        []gateway.PlaceOrderRequest

	tickerPrice float64
	tickerErr   error

	balance    gateway.Balance
	balanceErr error

	positions []gateway.ExchangePosition
}

func (f *fakeGateway) PlaceOrder(ctx context.Context, req gateway.PlaceOrderRequest) (*gateway.Order, error) {
	if f.placeOrderErr != nil {
		return nil, f.placeOrderErr
	}
	f.orders = append(f.orders, req)
	return &gateway.Order{ExchangeOrderID: "1", Symbol: req.Symbol, Status: gateway.OrderStatusFilled, Quantity: req.Quantity}, nil
}

func (f *fakeGateway) GetTicker(ctx context.Context, symbol string, p gateway.Priority) (gateway.Ticker, error) {
	if f.tickerErr != nil {
		return gateway.Ticker{}, f.tickerErr
	}
	return gateway.Ticker{Symbol: symbol, Price: f.tickerPrice}, nil
}

func (f *fakeGateway) GetBalance(ctx context.Context) (*gateway.Balance, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	b := f.balance
	return &b, nil
}

func (f *fakeGateway) GetPositions(ctx context.Context) ([]gateway.ExchangePosition, error) {
	return f.positions, nil
}
