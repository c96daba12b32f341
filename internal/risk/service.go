// Package risk computes leverage, position size, stop/target distances,
// and governance (drawdown, daily loss limit, kill switch, diversification)
// for the trading engine. It holds no exchange state; callers supply
// balances, histories, and indicator readings explicitly.
package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelbot/perpagent/internal/domain"
)

// Service is the single risk authority, guarded by one mutex matching the
// engine's lock order (positions before risk before scanner before
// gateway).
type Service struct {
	mu    sync.Mutex
	state domain.RiskState
	log   zerolog.Logger
}

// NewService creates a risk service seeded with the starting balance.
func NewService(startingBalance float64, logger zerolog.Logger) *Service {
	s := &Service{log: logger.With().Str("component", "risk").Logger()}
	s.state.BalanceSnapshot = startingBalance
	s.state.PeakBalance = startingBalance
	s.state.DailyStartBalance = startingBalance
	return s
}

// Snapshot returns a copy of the current risk state for read-only use
// (e.g. metrics export).
func (s *Service) Snapshot() domain.RiskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateBalance advances the balance/peak tracking and rolls the daily
// loss window if a new UTC day has started.
func (s *Service) UpdateBalance(now time.Time, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RollDailyWindow(now, balance)
	s.state.UpdatePeak(balance)
}

// RecordOutcome appends a closed-trade outcome, updates streaks, and adds
// any loss to the daily accumulator.
func (s *Service) RecordOutcome(o domain.TradeOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RecordOutcome(o)
	s.state.AddDailyLoss(o.PnLUSD)
	s.log.Info().
		Str("symbol", o.Symbol).
		Bool("win", o.Win).
		Float64("pnl_usd", o.PnLUSD).
		Int("win_streak", s.state.WinStreak).
		Int("loss_streak", s.state.LossStreak).
		Msg("trade outcome recorded")
}

// ArmKillSwitch sets the kill switch with a reason; monitor loops check
// this before allowing new opens.
func (s *Service) ArmKillSwitch(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.KillSwitchArmed = true
	s.state.KillSwitchReason = reason
	s.log.Warn().Str("reason", reason).Msg("kill switch armed")
}

// KillSwitchArmed reports the current kill switch state.
func (s *Service) KillSwitchArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.KillSwitchArmed
}

// Gate evaluates whether a new position may be opened for symbol/group,
// given the current risk state and the caller-supplied group membership
// counts across existing positions.
func (s *Service) Gate(group domain.SymbolGroup, groupCounts map[domain.SymbolGroup]int, symbolAlreadyOpen bool) GateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CanOpen(OpenGate{
		KillSwitchArmed:   s.state.KillSwitchArmed,
		DailyLossLimitHit: s.state.DailyLossLimitTripped(DailyLossLimitFraction),
		GroupCounts:       groupCounts,
		SymbolAlreadyOpen: symbolAlreadyOpen,
	}, group)
}

// RiskBudgetMultiplier applies drawdown governance atop a nominal risk
// budget multiplier.
func (s *Service) RiskBudgetMultiplier() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DrawdownMultiplier(s.state.Drawdown())
}

// Sizing computes the final position size for an opportunity, applying
// drawdown governance and, once enough history exists, the adaptive
// Kelly override of risk_per_trade.
func (s *Service) Sizing(in SizingInputs, avgWin, avgLoss float64) SizeResult {
	s.mu.Lock()
	dd := s.state.Drawdown()
	recentWinRate := s.state.RecentWinRate(10)
	historicalWinRate := s.state.RecentWinRate(len(s.state.Outcomes))
	winStreak := s.state.WinStreak
	lossStreak := s.state.LossStreak
	outcomeCount := len(s.state.Outcomes)
	s.mu.Unlock()

	if riskPct, ok := AdaptiveKellyRiskPct(KellyInputs{
		WinRate:       historicalWinRate,
		RecentWinRate: recentWinRate,
		AvgWin:        avgWin,
		AvgLoss:       avgLoss,
		WinStreak:     winStreak,
		LossStreak:    lossStreak,
		OutcomeCount:  outcomeCount,
	}); ok {
		in.RiskPerTrade = riskPct
	}

	in.Balance *= DrawdownMultiplier(dd)

	return ComputeSize(in)
}
