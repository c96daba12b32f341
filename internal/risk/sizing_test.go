package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskPerTradeForBalance_Tiers(t *testing.T) {
	assert.Equal(t, 0.01, RiskPerTradeForBalance(50))
	assert.Equal(t, 0.015, RiskPerTradeForBalance(500))
	assert.Equal(t, 0.02, RiskPerTradeForBalance(5_000))
	assert.Equal(t, 0.025, RiskPerTradeForBalance(50_000))
	assert.Equal(t, 0.03, RiskPerTradeForBalance(500_000))
}

func TestComputeSize_ZeroPriceDistanceUsesMaxNotional(t *testing.T) {
	res := ComputeSize(SizingInputs{
		Balance:             10_000,
		Confidence:          0.95,
		Entry:               100,
		StopLoss:            100, // zero distance
		ContractSize:        1,
		LotSize:             0.001,
		MinAmount:           0.001,
		MaxAmount:           1000,
		MaxPositionNotional: 5_000,
	})
	assert.False(t, res.Skip)
	assert.InDelta(t, 50, res.AmountContracts, 0.01) // 5000 notional / 100 price
}

func TestComputeSize_TinyBalanceSkipsBelowMinAmount(t *testing.T) {
	res := ComputeSize(SizingInputs{
		Balance:             10,
		Confidence:          0.5,
		Entry:               50_000,
		StopLoss:            49_500,
		ContractSize:        1,
		LotSize:             0.001,
		MinAmount:           0.001,
		MaxAmount:           1000,
		MaxPositionNotional: 100_000,
	})
	assert.True(t, res.Skip)
	assert.Equal(t, 0.0, res.AmountContracts)
}

func TestComputeSize_RespectsMaxNotionalCap(t *testing.T) {
	res := ComputeSize(SizingInputs{
		Balance:             1_000_000,
		Confidence:          1.0,
		Entry:               100,
		StopLoss:            99,
		ContractSize:        1,
		LotSize:             1,
		MinAmount:           1,
		MaxAmount:           100_000,
		MaxPositionNotional: 10_000,
	})
	assert.False(t, res.Skip)
	assert.LessOrEqual(t, res.Notional, 10_000.0)
}

func TestFloorToLot(t *testing.T) {
	assert.Equal(t, 1.2, floorToLot(1.29, 0.1))
	assert.Equal(t, 5.0, floorToLot(5.9, 1))
	assert.Equal(t, 3.7, floorToLot(3.7, 0))
}
