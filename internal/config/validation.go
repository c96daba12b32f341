package config

import (
	"fmt"
	"strings"
)

// ValidationError names one invalid field and why.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects all problems found in one pass, so operators
// see every mistake at once instead of fixing-and-rerunning one at a time.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("config: %d validation error(s):\n", len(ve)))
	for i, e := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, e.Field, e.Message))
	}
	return sb.String()
}

// Validate checks the config for internally inconsistent or out-of-range
// values that setDefaults alone cannot catch.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateExchange()...)
	errs = append(errs, c.validateTrading()...)
	errs = append(errs, c.validateRisk()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateExchange() ValidationErrors {
	var errs ValidationErrors
	if c.Exchange.APIKey == "" {
		errs = append(errs, ValidationError{"exchange.api_key", "required"})
	}
	if c.Exchange.SecretKey == "" {
		errs = append(errs, ValidationError{"exchange.secret_key", "required"})
	}
	if c.Exchange.Quote == "" {
		errs = append(errs, ValidationError{"exchange.quote", "required"})
	}
	return errs
}

func (c *Config) validateTrading() ValidationErrors {
	var errs ValidationErrors
	t := c.Trading
	if len(t.Symbols) == 0 {
		errs = append(errs, ValidationError{"trading.symbols", "at least one symbol is required"})
	}
	if t.LeverageDefault <= 0 {
		errs = append(errs, ValidationError{"trading.leverage_default", "must be positive"})
	}
	if t.MaxOpenPositions <= 0 {
		errs = append(errs, ValidationError{"trading.max_open_positions", "must be positive"})
	}
	if t.MaxWorkers <= 0 {
		errs = append(errs, ValidationError{"trading.max_workers", "must be positive"})
	}
	if t.CheckIntervalSec <= 0 {
		errs = append(errs, ValidationError{"trading.check_interval_sec", "must be positive"})
	}
	if t.PositionUpdateIntervalSec <= 0 {
		errs = append(errs, ValidationError{"trading.position_update_interval_sec", "must be positive"})
	}
	if t.LiveLoopIntervalSec <= 0 {
		errs = append(errs, ValidationError{"trading.live_loop_interval_sec", "must be positive"})
	}
	if t.RiskPerTrade < 0 || t.RiskPerTrade > 0.10 {
		errs = append(errs, ValidationError{"trading.risk_per_trade", "must be in [0, 0.10] when set explicitly"})
	}
	if t.MinMLConfidence < 0 || t.MinMLConfidence > 1 {
		errs = append(errs, ValidationError{"trading.min_ml_confidence", "must be in [0, 1]"})
	}
	return errs
}

func (c *Config) validateRisk() ValidationErrors {
	var errs ValidationErrors
	if c.Risk.DailyLossLimit <= 0 || c.Risk.DailyLossLimit > 1 {
		errs = append(errs, ValidationError{"risk.daily_loss_limit", "must be in (0, 1]"})
	}
	if c.Risk.InitialBalance <= 0 {
		errs = append(errs, ValidationError{"risk.initial_balance", "must be positive"})
	}
	return errs
}
