package risk

import "math"

// RiskPerTradeForBalance returns the auto-configured risk_per_trade
// fraction for a given account balance tier.
func RiskPerTradeForBalance(balance float64) float64 {
	switch {
	case balance < 100:
		return 0.01
	case balance < 1_000:
		return 0.015
	case balance < 10_000:
		return 0.02
	case balance < 100_000:
		return 0.025
	default:
		return 0.03
	}
}

// ConfidenceMultiplier buckets confidence into the four sizing tiers.
func ConfidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 0.90:
		return 1.0
	case confidence >= 0.80:
		return 0.9
	case confidence >= 0.70:
		return 0.75
	default:
		return 0.5
	}
}

// SizingInputs carries everything the position-size formula needs.
type SizingInputs struct {
	Balance           float64
	RiskPerTrade      float64 // fraction; 0 means derive from Balance via RiskPerTradeForBalance
	Confidence        float64
	Entry             float64
	StopLoss          float64
	ContractSize      float64
	LotSize           float64
	MinAmount         float64
	MaxAmount         float64
	MaxPositionNotional float64
}

// SizeResult reports the computed amount and the intermediate notional,
// useful for logging and testing.
type SizeResult struct {
	AmountContracts float64
	Notional        float64
	RiskBudget      float64
	Skip            bool // true when amount would fall below MinAmount
}

// ComputeSize implements the risk-budget-to-contract-amount formula:
// risk budget scaled by inverse price distance, confidence-tiered, capped
// by notional and lot/amount bounds.
func ComputeSize(in SizingInputs) SizeResult {
	riskPerTrade := in.RiskPerTrade
	if riskPerTrade <= 0 {
		riskPerTrade = RiskPerTradeForBalance(in.Balance)
	}
	riskBudget := in.Balance * riskPerTrade

	priceDistance := math.Abs(in.Entry - in.StopLoss)

	var notional float64
	if priceDistance == 0 {
		notional = in.MaxPositionNotional
	} else {
		notional = riskBudget / (priceDistance / in.Entry)
	}

	notional *= ConfidenceMultiplier(in.Confidence)

	if in.MaxPositionNotional > 0 && notional > in.MaxPositionNotional {
		notional = in.MaxPositionNotional
	}

	contractSize := in.ContractSize
	if contractSize <= 0 {
		contractSize = 1
	}

	amount := notional / (in.Entry * contractSize)
	amount = floorToLot(amount, in.LotSize)

	if in.MaxAmount > 0 && amount > in.MaxAmount {
		amount = in.MaxAmount
	}

	if amount < in.MinAmount {
		return SizeResult{AmountContracts: 0, Notional: notional, RiskBudget: riskBudget, Skip: true}
	}

	return SizeResult{AmountContracts: amount, Notional: notional, RiskBudget: riskBudget}
}

func floorToLot(amount, lotSize float64) float64 {
	if lotSize <= 0 {
		return amount
	}
	// Rounding to 8 decimals removes float noise from the multiplication
	// (12 lots of 0.1 would otherwise be 1.2000000000000002).
	return math.Round(math.Floor(amount/lotSize)*lotSize*1e8) / 1e8
}
