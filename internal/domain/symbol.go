// Package domain holds the shared types that flow through every component
// of the trading engine: symbols, candles, indicator snapshots, signals,
// opportunities, positions, and risk state.
package domain

// SymbolMetadata holds static exchange metadata for a perpetual contract.
// It is cached in memory by the gateway once RefreshMetadata has loaded
// it; a cache miss or an order rejection does not trigger a refetch.
type SymbolMetadata struct {
	Symbol       string
	TickSize     float64
	LotSize      float64
	ContractSize float64 // base units per contract
	MinAmount    float64
	MaxAmount    float64 // hard exchange cap, e.g. 10000 contracts
	MinNotional  float64
}

// DefaultMaxAmount is the safe fallback cap used when metadata is missing.
const DefaultMaxAmount = 10000

// SymbolGroup classifies a symbol for diversification limits.
type SymbolGroup string

const (
	GroupMajors    SymbolGroup = "majors"
	GroupL1        SymbolGroup = "l1"
	GroupL2        SymbolGroup = "l2"
	GroupDeFi      SymbolGroup = "defi"
	GroupMeme      SymbolGroup = "meme"
	GroupExchange  SymbolGroup = "exchange"
	GroupUnknown   SymbolGroup = "unknown"
)

// GroupLimit returns the maximum number of concurrent positions allowed
// for a diversification group (majors get a tighter cap by default).
func GroupLimit(g SymbolGroup) int {
	if g == GroupMajors {
		return 2
	}
	return 3
}

// classifiedSymbols is a small static lookup table; unknown symbols fall
// back to GroupUnknown, which uses the non-majors limit.
var classifiedSymbols = map[string]SymbolGroup{
	"BTC": GroupMajors, "ETH": GroupMajors,
	"SOL": GroupL1, "ADA": GroupL1, "AVAX": GroupL1, "NEAR": GroupL1, "DOT": GroupL1,
	"ARB": GroupL2, "OP": GroupL2, "MATIC": GroupL2,
	"UNI": GroupDeFi, "AAVE": GroupDeFi, "MKR": GroupDeFi, "LDO": GroupDeFi,
	"DOGE": GroupMeme, "SHIB": GroupMeme, "PEPE": GroupMeme, "WIF": GroupMeme,
	"BNB": GroupExchange, "OKB": GroupExchange, "CRO": GroupExchange,
}

// ClassifyGroup maps a base asset (extracted from the canonical symbol
// form, e.g. "BTC" from "BTC/USDT:USDT") to its diversification group.
func ClassifyGroup(base string) SymbolGroup {
	if g, ok := classifiedSymbols[base]; ok {
		return g
	}
	return GroupUnknown
}
