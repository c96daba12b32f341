package coordinator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kestrelbot/perpagent/internal/domain"
)

func TestMarketContext_PrefersScannerTopNSnapshot(t *testing.T) {
	scan := &fakeScanner{opps: []domain.Opportunity{{
		Symbol:     "BTC/USDT:USDT",
		Indicators: domain.IndicatorSnapshot{ATR: 5, ATRValid: true, CurrentPrice: 100, Regime: domain.RegimeTrending},
	}}}
	c := New(&fakeGateway{}, &fakeRisk{}, newFakePositions(), scan, &fakeIndicators{snapshots: map[string]domain.IndicatorSnapshot{
		"BTC/USDT:USDT": {ATR: 99, ATRValid: true, CurrentPrice: 100},
	}}, Config{}, zerolog.Nop())

	mc := c.marketContext("BTC/USDT:USDT")
	assert.Equal(t, 5.0, mc.ATR, "a symbol still in the scanner's top-N must use that snapshot, not the fallback cache")
}

func TestMarketContext_FallsBackToIndicatorCacheWhenOutsideTopN(t *testing.T) {
	scan := &fakeScanner{opps: []domain.Opportunity{{Symbol: "ETH/USDT:USDT"}}}
	ind := &fakeIndicators{snapshots: map[string]domain.IndicatorSnapshot{
		"BTC/USDT:USDT": {ATR: 10, ATRValid: true, CurrentPrice: 200, Regime: domain.RegimeRanging},
	}}
	c := New(&fakeGateway{}, &fakeRisk{}, newFakePositions(), scan, ind, Config{}, zerolog.Nop())

	mc := c.marketContext("BTC/USDT:USDT")
	assert.True(t, mc.ATRValid, "a held position that fell out of the top-N must still get live ATR from the indicator cache")
	assert.Equal(t, 10.0, mc.ATR)
	assert.Equal(t, 5.0, mc.ATRPercent)
}

func TestMarketContext_ZeroValueWhenSymbolNotCachedAnywhere(t *testing.T) {
	c := New(&fakeGateway{}, &fakeRisk{}, newFakePositions(), &fakeScanner{}, &fakeIndicators{snapshots: map[string]domain.IndicatorSnapshot{}}, Config{}, zerolog.Nop())

	mc := c.marketContext("BTC/USDT:USDT")
	assert.False(t, mc.ATRValid)
}
