package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/kestrelbot/perpagent/internal/domain"
)

type fakePositions struct{ count int }

func (f fakePositions) Count() int { return f.count }

type fakeRisk struct{ state domain.RiskState }

func (f fakeRisk) Snapshot() domain.RiskState { return f.state }

type fakeScanner struct{ age time.Duration }

func (f fakeScanner) CacheAge(now time.Time) time.Duration { return f.age }

func TestNewUpdater_DefaultsZeroIntervalTo10Seconds(t *testing.T) {
	u := NewUpdater(fakePositions{}, fakeRisk{}, fakeScanner{}, 0)
	assert.Equal(t, 10*time.Second, u.interval)
}

func TestUpdate_SetsOpenPositionCountAndCacheAge(t *testing.T) {
	u := NewUpdater(fakePositions{count: 3}, fakeRisk{}, fakeScanner{age: 42 * time.Second}, time.Second)
	u.update()

	assert.Equal(t, 3.0, testutil.ToFloat64(OpenPositionCount))
	assert.Equal(t, 42.0, testutil.ToFloat64(ScannerCacheAgeSeconds))
}

func TestUpdate_SetsDailyLossLimitRatioFromAccumulator(t *testing.T) {
	u := NewUpdater(fakePositions{}, fakeRisk{state: domain.RiskState{
		DailyStartBalance: 10000,
		DailyLossAccum:    500,
	}}, fakeScanner{}, time.Second)
	u.update()

	assert.Equal(t, 0.5, testutil.ToFloat64(DailyLossLimitRatio))
}

func TestUpdate_SkipsRatioWhenDailyStartBalanceUnset(t *testing.T) {
	DailyLossLimitRatio.Set(-1)
	u := NewUpdater(fakePositions{}, fakeRisk{}, fakeScanner{}, time.Second)
	u.update()

	assert.Equal(t, -1.0, testutil.ToFloat64(DailyLossLimitRatio), "with no daily start balance the ratio gauge must be left untouched")
}
