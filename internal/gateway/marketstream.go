package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kestrelbot/perpagent/internal/domain"
)

const (
	binanceFuturesStreamURL        = "wss://fstream.binance.com/ws"
	binanceFuturesTestnetStreamURL = "wss://stream.binancefuture.com/ws"
)

// NewBinanceStreamDialer returns a StreamDialer pointed at Binance's
// USDT-M futures market-stream endpoint (testnet when testnet is true).
func NewBinanceStreamDialer(testnet bool) StreamDialer {
	url := binanceFuturesStreamURL
	if testnet {
		url = binanceFuturesTestnetStreamURL
	}
	return func(ctx context.Context) (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		return conn, err
	}
}

// StartMarketStream launches the background streaming session against
// the Binance market-stream endpoint and wires its messages into the
// ticker/candle caches GetTicker and GetOHLCV read from. It is a no-op
// when the gateway was built without EnableWebsocket.
func (g *Gateway) StartMarketStream(ctx context.Context, testnet bool) error {
	if g.stream == nil {
		return nil
	}
	return g.Start(ctx, NewBinanceStreamDialer(testnet), g.handleStreamMessage)
}

type wsTickerMessage struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

type wsKlineMessage struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  struct {
		OpenTimeMillis int64  `json:"t"`
		Open           string `json:"o"`
		High           string `json:"h"`
		Low            string `json:"l"`
		Close          string `json:"c"`
		Volume         string `json:"v"`
		Closed         bool   `json:"x"`
	} `json:"k"`
}

// handleStreamMessage updates the ticker/candle caches from a raw
// Binance market-stream payload; unrecognized event types are ignored.
func (g *Gateway) handleStreamMessage(raw []byte) {
	var probe struct {
		Event string `json:"e"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return
	}

	switch probe.Event {
	case "24hrTicker":
		g.applyTickerMessage(raw)
	case "kline":
		g.applyKlineMessage(raw)
	}
}

func (g *Gateway) applyTickerMessage(raw []byte) {
	var m wsTickerMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	price := parseFloat(m.Close)
	if price <= 0 {
		return
	}
	symbol := FromWireSymbol(m.Symbol, g.quote)

	g.mu.Lock()
	g.tickers[symbol] = cachedTicker{ticker: Ticker{Symbol: symbol, Price: price}, updatedAt: time.Now()}
	g.mu.Unlock()
}

func (g *Gateway) applyKlineMessage(raw []byte) {
	var m wsKlineMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return
	}
	// Only merge completed bars: a still-forming candle would otherwise
	// flicker the cached series' last entry on every tick.
	if !m.Kline.Closed {
		return
	}
	symbol := FromWireSymbol(m.Symbol, g.quote)
	candle := domain.Candle{
		OpenTime: time.UnixMilli(m.Kline.OpenTimeMillis),
		Open:     parseFloat(m.Kline.Open),
		High:     parseFloat(m.Kline.High),
		Low:      parseFloat(m.Kline.Low),
		Close:    parseFloat(m.Kline.Close),
		Volume:   parseFloat(m.Kline.Volume),
	}

	g.mu.Lock()
	cached := g.candles[symbol]
	cached.candles = mergeCandles(cached.candles, []domain.Candle{candle})
	cached.updatedAt = time.Now()
	g.candles[symbol] = cached
	g.mu.Unlock()
}
