package gateway

import (
	"context"
	"errors"
)

// fakeClient is a scriptable Client for exercising gateway dispatch logic
// without a network connection.
type fakeClient struct {
	placeOrderErrs []error // consumed in order, nil thereafter
	placeOrderCall int

	balance  *Balance
	metadata *SymbolMeta
	listings []SymbolListing
}

func (f *fakeClient) nextErr() error {
	i := f.placeOrderCall
	f.placeOrderCall++
	if i < len(f.placeOrderErrs) {
		return f.placeOrderErrs[i]
	}
	return nil
}

func (f *fakeClient) PlaceOrder(ctx context.Context, req PlaceOrderRequest, wireSymbol string) (*Order, error) {
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &Order{ExchangeOrderID: "1", Symbol: wireSymbol, Status: OrderStatusFilled, Quantity: req.Quantity}, nil
}

func (f *fakeClient) CancelOrder(ctx context.Context, wireSymbol, exchangeOrderID string) error {
	return nil
}

func (f *fakeClient) GetOrder(ctx context.Context, wireSymbol, exchangeOrderID string) (*Order, error) {
	return &Order{ExchangeOrderID: exchangeOrderID, Symbol: wireSymbol, Status: OrderStatusFilled}, nil
}

func (f *fakeClient) GetTicker(ctx context.Context, wireSymbol string) (*Ticker, error) {
	return &Ticker{Symbol: wireSymbol, Price: 100}, nil
}

func (f *fakeClient) GetOHLCV(ctx context.Context, wireSymbol, interval string, limit int) ([]Kline, error) {
	out := make([]Kline, limit)
	for i := range out {
		out[i] = Kline{OpenTimeMillis: int64(i) * 60000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	}
	return out, nil
}

func (f *fakeClient) GetBalance(ctx context.Context) (*Balance, error) {
	if f.balance != nil {
		return f.balance, nil
	}
	return &Balance{TotalWalletBalance: 10000, AvailableMargin: 8000}, nil
}

func (f *fakeClient) GetPositions(ctx context.Context) ([]ExchangePosition, error) {
	return nil, nil
}

func (f *fakeClient) SetLeverage(ctx context.Context, wireSymbol string, leverage int) error {
	return nil
}

func (f *fakeClient) SetPositionMode(ctx context.Context, hedgeMode bool) error {
	return nil
}

func (f *fakeClient) GetSymbolMetadata(ctx context.Context, wireSymbol string) (*SymbolMeta, error) {
	if f.metadata != nil {
		return f.metadata, nil
	}
	return &SymbolMeta{WireSymbol: wireSymbol, TickSize: 0.01, LotSize: 0.001, ContractSize: 1, MinNotional: 5, MaxQty: 10000}, nil
}

func (f *fakeClient) ListSymbols(ctx context.Context) ([]SymbolListing, error) {
	if f.listings != nil {
		return f.listings, nil
	}
	return []SymbolListing{
		{WireSymbol: "BTCUSDT", QuoteVolume24h: 5_000_000},
		{WireSymbol: "ETHUSDT", QuoteVolume24h: 3_000_000},
	}, nil
}

var errTransient = errors.New("connection reset by peer")
var errFatal = errors.New("invalid api-key, check your permissions")
