package risk

import "github.com/kestrelbot/perpagent/internal/domain"

// DrawdownMultiplier returns the risk-budget multiplier governance applies
// at the current drawdown level.
func DrawdownMultiplier(drawdown float64) float64 {
	switch {
	case drawdown >= 0.20:
		return 0.50
	case drawdown >= 0.15:
		return 0.75
	default:
		return 1.0
	}
}

// DailyLossLimitFraction is the fraction of the day's starting balance
// that, once lost, blocks new opens for the remainder of the day.
const DailyLossLimitFraction = 0.10

// OpenGate decides whether a new position may be opened given current
// risk state, kill switch, and group membership of existing positions.
type OpenGate struct {
	KillSwitchArmed bool
	DailyLossLimitHit bool
	GroupCounts     map[domain.SymbolGroup]int
	SymbolAlreadyOpen bool
}

// GateResult reports the verdict and, when rejected, the reason.
type GateResult struct {
	Allowed bool
	Reason  string
}

// CanOpen evaluates the governance checks in order: kill switch, duplicate
// symbol, daily loss limit, group diversification cap.
func CanOpen(g OpenGate, group domain.SymbolGroup) GateResult {
	if g.KillSwitchArmed {
		return GateResult{false, "kill_switch_armed"}
	}
	if g.SymbolAlreadyOpen {
		return GateResult{false, "duplicate_symbol"}
	}
	if g.DailyLossLimitHit {
		return GateResult{false, "daily_loss_limit"}
	}
	if g.GroupCounts[group] >= domain.GroupLimit(group) {
		return GateResult{false, "group_diversification_limit"}
	}
	return GateResult{Allowed: true}
}
