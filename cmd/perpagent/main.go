// Command perpagent runs the autonomous perpetual-futures trading engine:
// it scans the market, opens sized positions off fused signals, and
// manages every open position's stop/target/exit lifecycle until shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrelbot/perpagent/internal/config"
	"github.com/kestrelbot/perpagent/internal/coordinator"
	"github.com/kestrelbot/perpagent/internal/domain"
	"github.com/kestrelbot/perpagent/internal/gateway"
	"github.com/kestrelbot/perpagent/internal/indicators"
	"github.com/kestrelbot/perpagent/internal/metrics"
	"github.com/kestrelbot/perpagent/internal/position"
	"github.com/kestrelbot/perpagent/internal/risk"
	"github.com/kestrelbot/perpagent/internal/scanner"
	"github.com/kestrelbot/perpagent/internal/signals"
)

// Exit codes: 0 clean shutdown, 1 config/auth failure, 2 unrecoverable
// runtime error.
const (
	exitOK            = 0
	exitConfigFailure = 1
	exitRuntimeFailure = 2
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(exitConfigFailure)
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	logger := config.NewLogger("main")

	client := gateway.NewBinanceFuturesClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey, cfg.Exchange.Testnet)
	gw := gateway.New(gateway.Config{
		Client:          client,
		Quote:           cfg.Exchange.Quote,
		EnableWebsocket: cfg.Exchange.EnableWebsocket,
	}, logger)

	meta, err := primeSymbolMetadata(context.Background(), gw, cfg.Trading.Symbols)
	if err != nil {
		logger.Error().Err(err).Msg("failed to prime symbol metadata, authentication or connectivity may be broken")
		os.Exit(exitConfigFailure)
	}

	riskSvc := risk.NewService(cfg.Risk.InitialBalance, logger)
	if cfg.Risk.KillSwitch {
		riskSvc.ArmKillSwitch("configured_at_startup")
	}

	posMgr := position.New(gw, position.Config{}, logger)

	indicatorSvc := indicators.NewService(indicators.DefaultPeriods(), logger)
	signalEngine := signals.NewEngine(signals.Config{
		RequireMLModel:  cfg.Trading.RequireMLModel,
		MinMLConfidence: cfg.Trading.MinMLConfidence,
	}, logger)

	scanSvc := scanner.New(gw, indicatorSvc, signalEngine, scanner.Config{
		ScanInterval: cfg.CheckInterval(),
		Workers:      cfg.Trading.MaxWorkers,
		CacheTTL:     cfg.CacheDuration(),
	}, logger)

	coord := coordinator.New(gw, riskSvc, posMgr, scanSvc, indicatorSvc, coordinator.Config{
		CheckInterval:          cfg.CheckInterval(),
		PositionUpdateInterval: cfg.PositionUpdateInterval(),
		LiveLoopInterval:       cfg.LiveLoopInterval(),
		MaxOpenPositions:       cfg.Trading.MaxOpenPositions,
		ShutdownGrace:          cfg.ShutdownGrace(),
		LeverageDefault:        float64(cfg.Trading.LeverageDefault),
		RiskPerTrade:           cfg.Trading.RiskPerTrade,
		MaxPositionNotional:    cfg.Trading.MaxPositionSizeNotional,
		CloseOnShutdown:        cfg.Trading.CloseOnShutdown,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Port, logger)
		metricsSrv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown failed")
			}
		}()

		updater := metrics.NewUpdater(posMgr, riskSvc, scanSvc, cfg.MetricsUpdateInterval())
		go updater.Run(ctx)
	}

	if cfg.Exchange.EnableWebsocket {
		if err := gw.StartMarketStream(ctx, cfg.Exchange.Testnet); err != nil {
			logger.Warn().Err(err).Msg("failed to start market stream, falling back to REST-only market data")
		} else {
			for _, symbol := range cfg.Trading.Symbols {
				gw.Subscribe(symbol, []string{string(domain.Timeframe1h), string(domain.Timeframe4h), string(domain.Timeframe1d)})
			}
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- coord.Run(ctx, meta)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("engine exited unexpectedly")
			os.Exit(exitRuntimeFailure)
		}
	}

	logger.Info().Msg("shutdown complete")
	os.Exit(exitOK)
}

// primeSymbolMetadata fetches exchange metadata for every configured
// symbol up front so sizing and invariant checks never block on a cache
// miss during the main task's hot path.
func primeSymbolMetadata(ctx context.Context, gw *gateway.Gateway, symbols []string) (map[string]domain.SymbolMetadata, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	meta := make(map[string]domain.SymbolMetadata, len(symbols))
	for _, symbol := range symbols {
		if err := gw.RefreshMetadata(timeoutCtx, symbol); err != nil {
			return nil, err
		}
		m, ok := gw.Metadata(symbol)
		if !ok {
			continue
		}
		meta[symbol] = m
	}
	return meta, nil
}
