package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{APIKey: "key", SecretKey: "secret", Quote: "USDT"},
		Trading: TradingConfig{
			Symbols:                   []string{"BTC/USDT:USDT"},
			LeverageDefault:           5,
			MaxOpenPositions:          3,
			MaxWorkers:                8,
			CheckIntervalSec:          60,
			PositionUpdateIntervalSec: 1,
			LiveLoopIntervalSec:       0.05,
			MinMLConfidence:           0.65,
		},
		Risk: RiskConfig{DailyLossLimit: 0.10, InitialBalance: 10_000},
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RequiresCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Exchange.APIKey = ""
	cfg.Exchange.SecretKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ve, 2)
}

func TestValidate_RequiresAtLeastOneSymbol(t *testing.T) {
	cfg := validConfig()
	cfg.Trading.Symbols = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trading.symbols")
}

func TestValidate_RejectsOutOfRangeDailyLossLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Risk.DailyLossLimit = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.daily_loss_limit")
}

func TestValidate_RejectsNonPositiveIntervals(t *testing.T) {
	cfg := validConfig()
	cfg.Trading.CheckIntervalSec = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check_interval_sec")
}
