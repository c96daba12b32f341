package domain

import (
	"fmt"
	"time"
)

// Side is the direction of a leveraged position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ExitReason labels why a position was closed, used both for logging and
// outcome recording.
type ExitReason string

const (
	ExitKillSwitch      ExitReason = "kill_switch"
	ExitEmergencyStopL1 ExitReason = "emergency_stop_L1"
	ExitEmergencyStopL2 ExitReason = "emergency_stop_L2"
	ExitEmergencyStopL3 ExitReason = "emergency_stop_L3"
	ExitTimeStagnant    ExitReason = "time_exit_stagnant"
	ExitATRTarget1      ExitReason = "atr_target_1"
	ExitATRTarget2      ExitReason = "atr_target_2"
	ExitATRTarget3      ExitReason = "atr_target_3"
	ExitStopLoss        ExitReason = "stop_loss"
	ExitTakeProfit      ExitReason = "take_profit"
	ExitExternalClose   ExitReason = "external_close"
	ExitPartial         ExitReason = "partial_exit"
)

// Position is the central mutable entity owned exclusively by the
// position manager's per-symbol single writer.
type Position struct {
	Symbol string
	Side   Side

	EntryPrice float64
	Amount     float64 // in contracts
	Leverage   float64
	OpenedAt   time.Time

	StopLoss           float64
	TakeProfit         float64
	InitialTakeProfit  float64 // immutable once the position is opened

	HighestPrice float64 // trailing anchor for long
	LowestPrice  float64 // trailing anchor for short

	TrailingActive    bool
	PartialExitsTaken int // 0..3, monotone non-decreasing
	ATRTargetsTaken   int // 0..3, monotone non-decreasing

	LastUpdateAt time.Time
	MarkPriceLast float64

	Confidence float64 // signal confidence at open; emergency-stop tiers do not use it
}

// Invariant errors, named so callers can match on them explicitly.
var (
	ErrAmountOutOfRange   = fmt.Errorf("position: amount out of [min_amount, max_amount]")
	ErrStopTargetInverted = fmt.Errorf("position: stop/target ordering violates side invariant")
	ErrStopNotMonotone    = fmt.Errorf("position: stop-loss update is not monotone in the protective direction")
	ErrImmutableTP        = fmt.Errorf("position: initial_take_profit may not be mutated")
	ErrPartialExitsRegress = fmt.Errorf("position: partial_exits_taken may only increase")
)

// ValidateOpenInvariants checks amount bounds and stop/target ordering at
// position creation time.
func ValidateOpenInvariants(side Side, amount float64, meta SymbolMetadata, entry, stop, target float64) error {
	if amount <= 0 || amount < meta.MinAmount || amount > meta.MaxAmount {
		return ErrAmountOutOfRange
	}
	switch side {
	case SideLong:
		if !(stop < entry && entry < target) {
			return ErrStopTargetInverted
		}
	case SideShort:
		if !(stop > entry && entry > target) {
			return ErrStopTargetInverted
		}
	}
	return nil
}

// CanTightenStop reports whether newStop is a valid monotone update in the
// protective direction for the position's side.
func (p *Position) CanTightenStop(newStop float64) bool {
	switch p.Side {
	case SideLong:
		return newStop > p.StopLoss
	case SideShort:
		return newStop < p.StopLoss
	}
	return false
}

// TightenStop applies newStop only if it is protective-direction monotone;
// it is a no-op (not an error) otherwise, since trailing-stop evaluation
// runs every tick and most ticks produce no improvement.
func (p *Position) TightenStop(newStop float64) bool {
	if !p.CanTightenStop(newStop) {
		return false
	}
	p.StopLoss = newStop
	return true
}

// PnLFraction returns unleveraged price-movement P/L, positive when
// favorable. Internal exit thresholds operate on this value, never on
// leveraged ROI.
func (p *Position) PnLFraction(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	switch p.Side {
	case SideLong:
		return (currentPrice - p.EntryPrice) / p.EntryPrice
	default:
		return (p.EntryPrice - currentPrice) / p.EntryPrice
	}
}

// LeveragedROI is price-movement P/L scaled by leverage, used for
// user-facing reporting, outcome recording, and the emergency-stop tiers.
func (p *Position) LeveragedROI(currentPrice float64) float64 {
	return p.PnLFraction(currentPrice) * p.Leverage
}

// UpdateExcursionAnchors maintains HighestPrice/LowestPrice for trailing
// stop computation.
func (p *Position) UpdateExcursionAnchors(currentPrice float64) {
	switch p.Side {
	case SideLong:
		if currentPrice > p.HighestPrice {
			p.HighestPrice = currentPrice
		}
	case SideShort:
		if p.LowestPrice == 0 || currentPrice < p.LowestPrice {
			p.LowestPrice = currentPrice
		}
	}
}

// TakeProfitProgress returns progress toward the *initial* take-profit as
// (current-entry)/(initial_tp-entry), signed so 1.0 means the target has
// been reached.
func (p *Position) TakeProfitProgress(currentPrice float64) float64 {
	switch p.Side {
	case SideLong:
		denom := p.InitialTakeProfit - p.EntryPrice
		if denom == 0 {
			return 1.0
		}
		return (currentPrice - p.EntryPrice) / denom
	default:
		denom := p.EntryPrice - p.InitialTakeProfit
		if denom == 0 {
			return 1.0
		}
		return (p.EntryPrice - currentPrice) / denom
	}
}
