package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

// BinanceFuturesClient implements Client against Binance USDT-M perpetual
// futures, wrapping github.com/adshao/go-binance/v2/futures.
type BinanceFuturesClient struct {
	client *futures.Client
}

// NewBinanceFuturesClient builds a Client talking to Binance futures. When
// testnet is true it points at the Binance futures testnet before any
// request is issued.
func NewBinanceFuturesClient(apiKey, secretKey string, testnet bool) *BinanceFuturesClient {
	if testnet {
		futures.UseTestnet = true
	}
	return &BinanceFuturesClient{client: futures.NewClient(apiKey, secretKey)}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func (c *BinanceFuturesClient) PlaceOrder(ctx context.Context, req PlaceOrderRequest, wireSymbol string) (*Order, error) {
	side := futures.SideTypeBuy
	if req.Side == OrderSideSell {
		side = futures.SideTypeSell
	}

	svc := c.client.NewCreateOrderService().
		Symbol(wireSymbol).
		Side(side).
		Quantity(fmt.Sprintf("%.8f", req.Quantity)).
		ReduceOnly(req.ReduceOnly)

	switch req.Type {
	case OrderTypeMarket:
		svc = svc.Type(futures.OrderTypeMarket)
	default:
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(fmt.Sprintf("%.8f", req.Price))
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}

	return &Order{
		ExchangeOrderID: strconv.FormatInt(res.OrderID, 10),
		Symbol:          res.Symbol,
		Status:          mapOrderStatus(res.Status),
		Quantity:        parseFloat(res.OrigQuantity),
		FilledQty:       parseFloat(res.ExecutedQuantity),
		AvgFillPrice:    parseFloat(res.AvgPrice),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}, nil
}

func (c *BinanceFuturesClient) CancelOrder(ctx context.Context, wireSymbol, exchangeOrderID string) error {
	id, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return fmt.Errorf("gateway: invalid order id %q: %w", exchangeOrderID, err)
	}
	_, err = c.client.NewCancelOrderService().Symbol(wireSymbol).OrderID(id).Do(ctx)
	return err
}

func (c *BinanceFuturesClient) GetOrder(ctx context.Context, wireSymbol, exchangeOrderID string) (*Order, error) {
	id, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid order id %q: %w", exchangeOrderID, err)
	}
	res, err := c.client.NewGetOrderService().Symbol(wireSymbol).OrderID(id).Do(ctx)
	if err != nil {
		return nil, err
	}
	return &Order{
		ExchangeOrderID: strconv.FormatInt(res.OrderID, 10),
		Symbol:          res.Symbol,
		Status:          mapOrderStatus(res.Status),
		Quantity:        parseFloat(res.OrigQuantity),
		FilledQty:       parseFloat(res.ExecutedQuantity),
		AvgFillPrice:    parseFloat(res.AvgPrice),
		UpdatedAt:       time.Now(),
	}, nil
}

func (c *BinanceFuturesClient) GetTicker(ctx context.Context, wireSymbol string) (*Ticker, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(wireSymbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("gateway: no ticker stats returned for %s", wireSymbol)
	}
	return &Ticker{
		Symbol:    wireSymbol,
		Price:     parseFloat(stats[0].LastPrice),
		Timestamp: time.Now(),
	}, nil
}

func (c *BinanceFuturesClient) GetOHLCV(ctx context.Context, wireSymbol, interval string, limit int) ([]Kline, error) {
	rows, err := c.client.NewKlinesService().Symbol(wireSymbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Kline, 0, len(rows))
	for _, k := range rows {
		out = append(out, Kline{
			OpenTimeMillis: k.OpenTime,
			Open:           parseFloat(k.Open),
			High:           parseFloat(k.High),
			Low:            parseFloat(k.Low),
			Close:          parseFloat(k.Close),
			Volume:         parseFloat(k.Volume),
		})
	}
	return out, nil
}

func (c *BinanceFuturesClient) GetBalance(ctx context.Context) (*Balance, error) {
	balances, err := c.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		if b.Asset != "USDT" {
			continue
		}
		return &Balance{
			TotalWalletBalance: parseFloat(b.Balance),
			AvailableMargin:    parseFloat(b.AvailableBalance),
		}, nil
	}
	return &Balance{}, nil
}

func (c *BinanceFuturesClient) GetPositions(ctx context.Context) ([]ExchangePosition, error) {
	risks, err := c.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ExchangePosition, 0, len(risks))
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		side := OrderSideBuy
		if amt < 0 {
			side = OrderSideSell
			amt = -amt
		}
		out = append(out, ExchangePosition{
			Symbol:        FromWireSymbol(r.Symbol, "USDT"),
			Side:          side,
			Amount:        amt,
			EntryPrice:    parseFloat(r.EntryPrice),
			Leverage:      parseFloat(r.Leverage),
			MarkPrice:     parseFloat(r.MarkPrice),
			UnrealizedPnL: parseFloat(r.UnRealizedProfit),
		})
	}
	return out, nil
}

func (c *BinanceFuturesClient) SetLeverage(ctx context.Context, wireSymbol string, leverage int) error {
	_, err := c.client.NewChangeLeverageService().Symbol(wireSymbol).Leverage(leverage).Do(ctx)
	return err
}

func (c *BinanceFuturesClient) SetPositionMode(ctx context.Context, hedgeMode bool) error {
	return c.client.NewChangePositionModeService().DualSide(hedgeMode).Do(ctx)
}

func (c *BinanceFuturesClient) GetSymbolMetadata(ctx context.Context, wireSymbol string) (*SymbolMeta, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != wireSymbol {
			continue
		}
		meta := &SymbolMeta{WireSymbol: s.Symbol, ContractSize: 1}
		for _, f := range s.Filters {
			switch f["filterType"] {
			case "PRICE_FILTER":
				meta.TickSize = parseFloat(fmt.Sprint(f["tickSize"]))
			case "LOT_SIZE":
				meta.LotSize = parseFloat(fmt.Sprint(f["stepSize"]))
				meta.MaxQty = parseFloat(fmt.Sprint(f["maxQty"]))
			case "MIN_NOTIONAL":
				meta.MinNotional = parseFloat(fmt.Sprint(f["notional"]))
			}
		}
		return meta, nil
	}
	return nil, fmt.Errorf("gateway: symbol %s not found in exchange info", wireSymbol)
}

func (c *BinanceFuturesClient) ListSymbols(ctx context.Context) ([]SymbolListing, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolListing, 0, len(stats))
	for _, s := range stats {
		out = append(out, SymbolListing{
			WireSymbol:     s.Symbol,
			QuoteVolume24h: parseFloat(s.QuoteVolume),
		})
	}
	return out, nil
}

func mapOrderStatus(s futures.OrderStatusType) OrderStatus {
	switch s {
	case futures.OrderStatusTypeFilled, futures.OrderStatusTypePartiallyFilled:
		return OrderStatusFilled
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeExpired:
		return OrderStatusCancelled
	case futures.OrderStatusTypeRejected:
		return OrderStatusRejected
	case futures.OrderStatusTypeNew:
		return OrderStatusOpen
	default:
		return OrderStatusPending
	}
}
