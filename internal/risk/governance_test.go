package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelbot/perpagent/internal/domain"
)

func TestDrawdownMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, DrawdownMultiplier(0.05))
	assert.Equal(t, 0.75, DrawdownMultiplier(0.15))
	assert.Equal(t, 0.50, DrawdownMultiplier(0.22))
}

func TestCanOpen_KillSwitchRejectsFirst(t *testing.T) {
	res := CanOpen(OpenGate{KillSwitchArmed: true, DailyLossLimitHit: true}, domain.GroupMajors)
	assert.False(t, res.Allowed)
	assert.Equal(t, "kill_switch_armed", res.Reason)
}

func TestCanOpen_GroupLimitEnforced(t *testing.T) {
	res := CanOpen(OpenGate{GroupCounts: map[domain.SymbolGroup]int{domain.GroupMajors: 2}}, domain.GroupMajors)
	assert.False(t, res.Allowed)
	assert.Equal(t, "group_diversification_limit", res.Reason)

	res2 := CanOpen(OpenGate{GroupCounts: map[domain.SymbolGroup]int{domain.GroupL1: 2}}, domain.GroupL1)
	assert.True(t, res2.Allowed)
}

func TestCanOpen_DuplicateSymbolRejected(t *testing.T) {
	res := CanOpen(OpenGate{SymbolAlreadyOpen: true}, domain.GroupL2)
	assert.False(t, res.Allowed)
	assert.Equal(t, "duplicate_symbol", res.Reason)
}
