package gateway

import (
	"context"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// GetTicker serves the live stream when fresh (age <= 10s); otherwise
// falls back to REST at NORMAL priority (scanner caller) or HIGH priority
// (monitor/main caller, which must bypass the cache for pre-submit
// sanity reads).
func (g *Gateway) GetTicker(ctx context.Context, symbol string, p Priority) (Ticker, error) {
	if p != PriorityHigh && p != PriorityCritical {
		if t, ok := g.freshTicker(symbol); ok {
			return t, nil
		}
	}

	wireSymbol := ToWireSymbol(symbol)
	var result Ticker
	err := g.call(ctx, "get_ticker", p, "get_ticker", func(ctx context.Context) error {
		t, err := g.client.GetTicker(ctx, wireSymbol)
		if err != nil {
			return err
		}
		result = *t
		return nil
	})
	if err == nil {
		g.mu.Lock()
		g.tickers[symbol] = cachedTicker{ticker: result, updatedAt: time.Now()}
		g.mu.Unlock()
	}
	return result, err
}

func (g *Gateway) freshTicker(symbol string) (Ticker, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.tickers[symbol]
	if !ok || time.Since(c.updatedAt) > tickerFreshness {
		return Ticker{}, false
	}
	return c.ticker, true
}

// GetOHLCV returns the cached+streaming-updated candle series when fresh
// (< 60s since the last close), otherwise requests an incremental batch
// of the newest bars and merges, or a full refetch if nothing is cached.
func (g *Gateway) GetOHLCV(ctx context.Context, symbol string, interval string, limit int, p Priority) ([]domain.Candle, error) {
	g.mu.Lock()
	cached, ok := g.candles[symbol]
	g.mu.Unlock()

	if ok && time.Since(cached.updatedAt) < candleFreshness && len(cached.candles) >= limit {
		return cached.candles, nil
	}

	fetchLimit := limit
	var existing []domain.Candle
	if ok {
		fetchLimit = 20 // incremental batch
		existing = cached.candles
	}

	wireSymbol := ToWireSymbol(symbol)
	var klines []Kline
	err := g.call(ctx, "get_ohlcv", p, "get_ohlcv", func(ctx context.Context) error {
		k, err := g.client.GetOHLCV(ctx, wireSymbol, interval, fetchLimit)
		if err != nil {
			return err
		}
		klines = k
		return nil
	})
	if err != nil {
		if len(existing) > 0 {
			return existing, nil
		}
		return nil, err
	}

	fresh := make([]domain.Candle, len(klines))
	for i, k := range klines {
		fresh[i] = domain.Candle{
			OpenTime: time.UnixMilli(k.OpenTimeMillis),
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		}
	}

	merged := mergeCandles(existing, fresh)

	g.mu.Lock()
	g.candles[symbol] = cachedCandles{candles: merged, updatedAt: time.Now()}
	g.mu.Unlock()

	return merged, nil
}

// mergeCandles appends newer bars onto an existing series, replacing any
// overlap by open time and keeping the series sorted and deduplicated.
func mergeCandles(existing, fresh []domain.Candle) []domain.Candle {
	if len(existing) == 0 {
		return fresh
	}
	byTime := make(map[int64]domain.Candle, len(existing)+len(fresh))
	for _, c := range existing {
		byTime[c.OpenTime.UnixMilli()] = c
	}
	for _, c := range fresh {
		byTime[c.OpenTime.UnixMilli()] = c
	}
	merged := make([]domain.Candle, 0, len(byTime))
	for _, c := range byTime {
		merged = append(merged, c)
	}
	sortCandles(merged)
	return merged
}

func sortCandles(candles []domain.Candle) {
	for i := 1; i < len(candles); i++ {
		for j := i; j > 0 && candles[j-1].OpenTime.After(candles[j].OpenTime); j-- {
			candles[j-1], candles[j] = candles[j], candles[j-1]
		}
	}
}

// Metadata returns cached symbol metadata. It does not fetch: a symbol
// not yet loaded by RefreshMetadata reports ok=false.
func (g *Gateway) Metadata(symbol string) (domain.SymbolMetadata, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.metadata[symbol]
	return m, ok
}

// RefreshMetadata fetches and caches symbol metadata at LOW priority.
func (g *Gateway) RefreshMetadata(ctx context.Context, symbol string) error {
	wireSymbol := ToWireSymbol(symbol)
	var meta *SymbolMeta
	err := g.call(ctx, "get_symbol_metadata", PriorityLow, "get_symbol_metadata", func(ctx context.Context) error {
		m, err := g.client.GetSymbolMetadata(ctx, wireSymbol)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if err != nil {
		return err
	}

	maxAmount := meta.MaxQty
	if maxAmount <= 0 {
		maxAmount = domain.DefaultMaxAmount
	}

	g.mu.Lock()
	g.metadata[symbol] = domain.SymbolMetadata{
		Symbol:       symbol,
		TickSize:     meta.TickSize,
		LotSize:      meta.LotSize,
		ContractSize: meta.ContractSize,
		MinAmount:    meta.LotSize,
		MaxAmount:    maxAmount,
		MinNotional:  meta.MinNotional,
	}
	g.mu.Unlock()
	return nil
}
