// Package config loads engine configuration from file, environment, and
// built-in defaults, and wires the process-wide logger.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig contains process-level settings.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "console"
}

// ExchangeConfig holds Binance USDT-M futures credentials and connection
// settings.
type ExchangeConfig struct {
	APIKey          string `mapstructure:"api_key"`
	SecretKey       string `mapstructure:"secret_key"`
	Testnet         bool   `mapstructure:"testnet"`
	Quote           string `mapstructure:"quote"`            // "USDT"
	EnableWebsocket bool   `mapstructure:"enable_websocket"`
}

// TradingConfig controls symbol selection, sizing, and scheduling.
type TradingConfig struct {
	Symbols                 []string      `mapstructure:"symbols"`
	LeverageDefault         int           `mapstructure:"leverage_default"`
	MaxPositionSizeNotional float64       `mapstructure:"max_position_size_notional"` // 0 = auto by balance
	RiskPerTrade            float64       `mapstructure:"risk_per_trade"`             // 0 = auto by balance tier
	MinProfitThreshold      float64       `mapstructure:"min_profit_threshold"`       // 0 = auto
	MaxOpenPositions        int           `mapstructure:"max_open_positions"`
	TrailingStopPct         float64       `mapstructure:"trailing_stop_pct"`
	CheckIntervalSec        float64       `mapstructure:"check_interval_sec"`
	PositionUpdateIntervalSec float64     `mapstructure:"position_update_interval_sec"`
	LiveLoopIntervalSec     float64       `mapstructure:"live_loop_interval_sec"`
	MaxWorkers              int           `mapstructure:"max_workers"`
	CacheDurationSec        float64       `mapstructure:"cache_duration_sec"`
	CloseOnShutdown         bool          `mapstructure:"close_positions_on_shutdown"`
	ShutdownGraceSec        float64       `mapstructure:"shutdown_grace_sec"`
	RequireMLModel          bool          `mapstructure:"require_ml_model"`
	MinMLConfidence         float64       `mapstructure:"min_ml_confidence"`
}

// RiskConfig controls governance thresholds.
type RiskConfig struct {
	DailyLossLimit    float64 `mapstructure:"daily_loss_limit"`
	KillSwitch        bool    `mapstructure:"kill_switch"`
	InitialBalance    float64 `mapstructure:"initial_balance"`
}

// RuntimeConfig controls timeouts unrelated to trading cadence.
type RuntimeConfig struct {
	RESTTimeoutSec      float64 `mapstructure:"rest_timeout_sec"`
	WebsocketConnectSec float64 `mapstructure:"websocket_connect_sec"`
	WorkerTimeoutSec    float64 `mapstructure:"worker_timeout_sec"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Port           int     `mapstructure:"port"`
	UpdateIntervalSec float64 `mapstructure:"update_interval_sec"`
}

// MetricsUpdateInterval returns metrics.update_interval_sec as a Duration.
func (c Config) MetricsUpdateInterval() time.Duration {
	return time.Duration(c.Metrics.UpdateIntervalSec * float64(time.Second))
}

func (c TradingConfig) checkInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec * float64(time.Second))
}

// CheckInterval returns check_interval_sec as a Duration.
func (c Config) CheckInterval() time.Duration { return c.Trading.checkInterval() }

// PositionUpdateInterval returns position_update_interval_sec as a Duration.
func (c Config) PositionUpdateInterval() time.Duration {
	return time.Duration(c.Trading.PositionUpdateIntervalSec * float64(time.Second))
}

// LiveLoopInterval returns live_loop_interval_sec as a Duration.
func (c Config) LiveLoopInterval() time.Duration {
	return time.Duration(c.Trading.LiveLoopIntervalSec * float64(time.Second))
}

// CacheDuration returns cache_duration_sec as a Duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.Trading.CacheDurationSec * float64(time.Second))
}

// ShutdownGrace returns shutdown_grace_sec as a Duration.
func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Trading.ShutdownGraceSec * float64(time.Second))
}

// Load reads configuration from configPath (if non-empty), ./configs, and
// the current directory, then layers environment variable overrides
// (prefix PERPAGENT) and built-in defaults on top.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PERPAGENT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "perpagent")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("exchange.quote", "USDT")
	v.SetDefault("exchange.testnet", true)
	v.SetDefault("exchange.enable_websocket", true)

	v.SetDefault("trading.symbols", []string{})
	v.SetDefault("trading.leverage_default", 5)
	v.SetDefault("trading.max_position_size_notional", 0.0)
	v.SetDefault("trading.risk_per_trade", 0.0)
	v.SetDefault("trading.min_profit_threshold", 0.0)
	v.SetDefault("trading.max_open_positions", 3)
	v.SetDefault("trading.trailing_stop_pct", 0.02)
	v.SetDefault("trading.check_interval_sec", 60.0)
	v.SetDefault("trading.position_update_interval_sec", 1.0)
	v.SetDefault("trading.live_loop_interval_sec", 0.05)
	v.SetDefault("trading.max_workers", 8)
	v.SetDefault("trading.cache_duration_sec", 300.0)
	v.SetDefault("trading.close_positions_on_shutdown", false)
	v.SetDefault("trading.shutdown_grace_sec", 30.0)
	v.SetDefault("trading.require_ml_model", false)
	v.SetDefault("trading.min_ml_confidence", 0.65)

	v.SetDefault("risk.daily_loss_limit", 0.10)
	v.SetDefault("risk.kill_switch", false)
	v.SetDefault("risk.initial_balance", 10_000.0)

	v.SetDefault("runtime.rest_timeout_sec", 10.0)
	v.SetDefault("runtime.websocket_connect_sec", 30.0)
	v.SetDefault("runtime.worker_timeout_sec", 30.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.update_interval_sec", 10.0)
}
