package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveKellyRiskPct_InsufficientHistory(t *testing.T) {
	_, ok := AdaptiveKellyRiskPct(KellyInputs{OutcomeCount: 5, AvgLoss: 1, AvgWin: 2, WinRate: 0.6})
	assert.False(t, ok)
}

func TestAdaptiveKellyRiskPct_ClampsToConfiguredRange(t *testing.T) {
	riskPct, ok := AdaptiveKellyRiskPct(KellyInputs{
		OutcomeCount:  50,
		AvgWin:        5,
		AvgLoss:       1,
		WinRate:       0.8,
		RecentWinRate: 0.8,
	})
	assert.True(t, ok)
	assert.LessOrEqual(t, riskPct, 0.035)
	assert.GreaterOrEqual(t, riskPct, 0.005)
}

func TestAdaptiveKellyRiskPct_LossStreakDampens(t *testing.T) {
	base, _ := AdaptiveKellyRiskPct(KellyInputs{OutcomeCount: 30, AvgWin: 2, AvgLoss: 1, WinRate: 0.6, RecentWinRate: 0.6})
	dampened, _ := AdaptiveKellyRiskPct(KellyInputs{OutcomeCount: 30, AvgWin: 2, AvgLoss: 1, WinRate: 0.6, RecentWinRate: 0.6, LossStreak: 3})
	assert.LessOrEqual(t, dampened, base)
}

func TestAdaptiveFraction_Bounds(t *testing.T) {
	assert.InDelta(t, 0.65, adaptiveFraction(0.5, 0.5), 1e-9)
	assert.InDelta(t, 0.4, adaptiveFraction(0.5, 0.9), 1e-9)
}
