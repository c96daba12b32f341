package metrics

import (
	"context"
	"time"

	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/risk"
)

// PositionCounter is the subset of *position.Manager the updater reads.
type PositionCounter interface {
	Count() int
}

// RiskSnapshotter is the subset of *risk.Service the updater reads.
type RiskSnapshotter interface {
	Snapshot() domain.RiskState
}

// ScannerCacheAger is the subset of *scanner.Service the updater reads.
type ScannerCacheAger interface {
	CacheAge(now time.Time) time.Duration
}

// Updater periodically samples the engine's live components and sets the
// gauges that aren't already updated as a side effect of the hot path
// (open-position count, scanner cache age, daily loss ratio).
type Updater struct {
	pos      PositionCounter
	riskSvc  RiskSnapshotter
	scan     ScannerCacheAger
	interval time.Duration
}

// NewUpdater constructs an Updater polling every interval.
func NewUpdater(pos PositionCounter, riskSvc RiskSnapshotter, scan ScannerCacheAger, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Updater{pos: pos, riskSvc: riskSvc, scan: scan, interval: interval}
}

// Run samples and updates gauges every interval until ctx is canceled.
func (u *Updater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.update()
		}
	}
}

func (u *Updater) update() {
	OpenPositionCount.Set(float64(u.pos.Count()))
	ScannerCacheAgeSeconds.Set(u.scan.CacheAge(time.Now()).Seconds())

	state := u.riskSvc.Snapshot()
	if state.DailyStartBalance > 0 {
		limit := risk.DailyLossLimitFraction * state.DailyStartBalance
		if limit > 0 {
			DailyLossLimitRatio.Set(state.DailyLossAccum / limit)
		}
	}
}
