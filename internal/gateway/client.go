package gateway

import "context"

// Client is the minimal REST surface the gateway drives, implemented by a
// go-binance/v2/futures wrapper in production and by a fake in tests. It
// speaks wire-form symbols; the Gateway owns canonical<->wire conversion.
type Client interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest, wireSymbol string) (*Order, error)
	CancelOrder(ctx context.Context, wireSymbol, exchangeOrderID string) error
	GetOrder(ctx context.Context, wireSymbol, exchangeOrderID string) (*Order, error)
	GetTicker(ctx context.Context, wireSymbol string) (*Ticker, error)
	GetOHLCV(ctx context.Context, wireSymbol, interval string, limit int) ([]Kline, error)
	GetBalance(ctx context.Context) (*Balance, error)
	GetPositions(ctx context.Context) ([]ExchangePosition, error)
	SetLeverage(ctx context.Context, wireSymbol string, leverage int) error
	SetPositionMode(ctx context.Context, hedgeMode bool) error
	GetSymbolMetadata(ctx context.Context, wireSymbol string) (*SymbolMeta, error)
	ListSymbols(ctx context.Context) ([]SymbolListing, error)
}

// SymbolListing is one active perpetual contract as reported by the
// exchange's instrument list, before 24h-volume/candle-count filtering.
type SymbolListing struct {
	WireSymbol     string
	QuoteVolume24h float64
}

// Kline is one OHLCV bar as returned by the REST client, before it is
// converted into a domain.Candle.
type Kline struct {
	OpenTimeMillis int64
	Open           float64
	High           float64
	Low            float64
	Close          float64
	Volume         float64
}

// SymbolMeta is the raw exchange filter data used to build
// domain.SymbolMetadata.
type SymbolMeta struct {
	WireSymbol   string
	TickSize     float64
	LotSize      float64
	ContractSize float64
	MinNotional  float64
	MaxQty       float64
}
