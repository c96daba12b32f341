package domain

import "time"

// TradeOutcome is a single recorded closed-trade result, feeding the
// adaptive Kelly sizing and win/loss streak tracking.
type TradeOutcome struct {
	Symbol      string
	PnLUSD      float64
	LeveragedROI float64
	Win         bool
	ClosedAt    time.Time
}

// OutcomeRingCapacity bounds the recorded-outcomes ring.
const OutcomeRingCapacity = 200

// RiskState is the shared, single-lock-guarded risk bookkeeping consulted
// by the sizing, drawdown, and kill-switch logic.
type RiskState struct {
	BalanceSnapshot   float64
	PeakBalance       float64
	DailyLossAccum    float64
	DailyStartBalance float64
	DailyWindowStart  time.Time

	Outcomes   []TradeOutcome // bounded ring, oldest evicted first
	WinStreak  int
	LossStreak int

	KillSwitchArmed  bool
	KillSwitchReason string
}

// RecordOutcome appends an outcome to the bounded ring and updates streak
// counters. Capacity eviction drops the oldest entry.
func (rs *RiskState) RecordOutcome(o TradeOutcome) {
	rs.Outcomes = append(rs.Outcomes, o)
	if len(rs.Outcomes) > OutcomeRingCapacity {
		rs.Outcomes = rs.Outcomes[len(rs.Outcomes)-OutcomeRingCapacity:]
	}

	if o.Win {
		rs.WinStreak++
		rs.LossStreak = 0
	} else {
		rs.LossStreak++
		rs.WinStreak = 0
	}
}

// RollDailyWindow snapshots the day's starting balance and resets the
// accumulator when now has crossed into a new UTC day since
// DailyWindowStart.
func (rs *RiskState) RollDailyWindow(now time.Time, currentBalance float64) {
	nowDay := now.UTC().Truncate(24 * time.Hour)
	startDay := rs.DailyWindowStart.UTC().Truncate(24 * time.Hour)
	if rs.DailyWindowStart.IsZero() || nowDay.After(startDay) {
		rs.DailyWindowStart = nowDay
		rs.DailyStartBalance = currentBalance
		rs.DailyLossAccum = 0
	}
}

// AddDailyLoss accumulates max(0, -pnlUSD) into the daily-loss tracker.
func (rs *RiskState) AddDailyLoss(pnlUSD float64) {
	if pnlUSD < 0 {
		rs.DailyLossAccum += -pnlUSD
	}
}

// DailyLossLimitTripped reports whether the accumulator has crossed the
// configured fraction of the day's starting balance.
func (rs *RiskState) DailyLossLimitTripped(limitFraction float64) bool {
	if rs.DailyStartBalance <= 0 {
		return false
	}
	return rs.DailyLossAccum >= limitFraction*rs.DailyStartBalance
}

// RecentWinRate computes the win rate over the most recent n outcomes (or
// fewer if not enough have been recorded).
func (rs *RiskState) RecentWinRate(n int) float64 {
	if len(rs.Outcomes) == 0 {
		return 0
	}
	start := 0
	if len(rs.Outcomes) > n {
		start = len(rs.Outcomes) - n
	}
	window := rs.Outcomes[start:]
	wins := 0
	for _, o := range window {
		if o.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(window))
}

// Drawdown returns the fractional drawdown from peak balance.
func (rs *RiskState) Drawdown() float64 {
	if rs.PeakBalance <= 0 {
		return 0
	}
	if rs.BalanceSnapshot >= rs.PeakBalance {
		return 0
	}
	return (rs.PeakBalance - rs.BalanceSnapshot) / rs.PeakBalance
}

// UpdatePeak advances PeakBalance when the current balance is a new high.
func (rs *RiskState) UpdatePeak(balance float64) {
	rs.BalanceSnapshot = balance
	if balance > rs.PeakBalance {
		rs.PeakBalance = balance
	}
}
