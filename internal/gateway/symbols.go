package gateway

import "strings"

// ToWireSymbol converts the canonical "BASE/QUOTE:QUOTE" form to the
// exchange wire form "BASEQUOTE" (e.g. "BTC/USDT:USDT" -> "BTCUSDT").
// Conversion happens only at the subscription/request boundary; every
// other component in the engine uses the canonical form exclusively.
func ToWireSymbol(canonical string) string {
	base, quote, ok := splitCanonical(canonical)
	if !ok {
		return strings.ToUpper(canonical)
	}
	return strings.ToUpper(base + quote)
}

// FromWireSymbol reconstructs the canonical form from a wire symbol given
// the known quote asset (perpetual quotes are almost always USDT on the
// venues this engine targets).
func FromWireSymbol(wire, quote string) string {
	wire = strings.ToUpper(wire)
	quote = strings.ToUpper(quote)
	if !strings.HasSuffix(wire, quote) {
		return wire
	}
	base := strings.TrimSuffix(wire, quote)
	return base + "/" + quote + ":" + quote
}

// BaseAsset extracts the base asset from a canonical symbol, the input
// domain.ClassifyGroup expects.
func BaseAsset(canonical string) string {
	base, _, ok := splitCanonical(canonical)
	if !ok {
		return canonical
	}
	return strings.ToUpper(base)
}

func splitCanonical(canonical string) (base, quote string, ok bool) {
	slash := strings.Index(canonical, "/")
	if slash < 0 {
		return "", "", false
	}
	rest := canonical[slash+1:]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return canonical[:slash], rest, true
	}
	return canonical[:slash], rest[:colon], true
}
