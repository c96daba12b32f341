package signals

import "github.com/kestrelbot/perpagent/internal/domain"

// TrendLabel derives a coarse directional label from EMA and MACD alone,
// the higher-timeframe signal the multi-timeframe adjustment compares
// against. It deliberately skips RSI/Stochastic/Bollinger/volume — those
// are the 1h confirmation layer, not the trend label.
func TrendLabel(snap domain.IndicatorSnapshot) domain.Action {
	emaUp := snap.EMAFast > snap.EMASlow
	emaDown := snap.EMAFast < snap.EMASlow
	macdUp := snap.MACDHistogram > 0
	macdDown := snap.MACDHistogram < 0

	switch {
	case emaUp && macdUp:
		return domain.ActionBuy
	case emaDown && macdDown:
		return domain.ActionSell
	default:
		return domain.ActionHold
	}
}
