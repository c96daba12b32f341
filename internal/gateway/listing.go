package gateway

import (
	"context"
	"strings"
)

// SymbolSummary is a canonical-form symbol with its 24h quote volume, the
// shape the scanner's volume-floor filter consumes.
type SymbolSummary struct {
	Symbol         string
	QuoteVolume24h float64
}

// ListActiveSymbols fetches the exchange's instrument list at LOW priority
// and converts each wire symbol quoted in the gateway's configured quote
// asset to canonical form. Symbols in other quote assets are dropped.
func (g *Gateway) ListActiveSymbols(ctx context.Context) ([]SymbolSummary, error) {
	var listings []SymbolListing
	err := g.call(ctx, "list_symbols", PriorityLow, "list_symbols", func(ctx context.Context) error {
		l, err := g.client.ListSymbols(ctx)
		if err != nil {
			return err
		}
		listings = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]SymbolSummary, 0, len(listings))
	for _, l := range listings {
		if !strings.HasSuffix(strings.ToUpper(l.WireSymbol), strings.ToUpper(g.quote)) {
			continue
		}
		out = append(out, SymbolSummary{
			Symbol:         FromWireSymbol(l.WireSymbol, g.quote),
			QuoteVolume24h: l.QuoteVolume24h,
		})
	}
	return out, nil
}
