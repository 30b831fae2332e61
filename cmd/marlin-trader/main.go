package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/joho/godotenv"

	"marlin/internal/bot"
	"marlin/internal/bridge"
	"marlin/internal/config"
	"marlin/internal/domain"
	"marlin/internal/engine"
	"marlin/internal/executor"
	"marlin/internal/history"
	"marlin/internal/httpapi"
	"marlin/internal/journal"
	"marlin/internal/ledger"
	"marlin/internal/news"
	"marlin/internal/notify"
	"marlin/internal/risk"
	"marlin/internal/settings"
	"marlin/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/marlin.yaml"
	if p := os.Getenv("MARLIN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Trade history: Postgres when a DSN is configured, SQLite otherwise.
	var src history.Source
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := history.NewPostgresSource(ctx, dsn)
		if err != nil {
			log.Fatalf("opening postgres trade history: %v", err)
		}
		defer pg.Close()
		src = pg
	} else {
		sq, err := history.NewSQLiteSource(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite trade history: %v", err)
		}
		defer sq.Close()
		src = sq
	}

	store, err := settings.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening settings store: %v", err)
	}
	defer store.Close()

	led := ledger.New()
	jnl := journal.New(cfg.Storage.DataDir)

	var sink notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.DiscordWebhook != "" {
		sink = notify.Multi{
			notify.NewLogNotifier(logger),
			notify.NewDiscord(cfg.Notify.DiscordWebhook, logger),
		}
	}

	var brg bridge.Bridge
	if cfg.Bridge.BaseURL != "" {
		brg = bridge.NewHTTPBridge(cfg.Bridge.BaseURL,
			time.Duration(cfg.Bridge.TimeoutSeconds)*time.Second, cfg.Bridge.RateLimitPerMin)
		if err := brg.Health(ctx); err != nil {
			logger.Warn("bridge health check failed", "url", cfg.Bridge.BaseURL, "error", err)
		}
	} else {
		logger.Warn("no execution bridge configured, using in-memory simulator")
		brg = bridge.NewSimulator()
	}

	mode := domain.TradeMode(cfg.Trading.Mode)
	if mode != domain.ModeLive {
		mode = domain.ModePaper
	}
	life := bot.New(mode)
	gate := risk.NewGate(src, store, risk.Limits{
		DailyLoss:     cfg.Risk.DailyLossLimit,
		WeeklyLoss:    cfg.Risk.WeeklyLossLimit,
		MonthlyLoss:   cfg.Risk.MonthlyLossLimit,
		WeeklyProfit:  cfg.Risk.WeeklyProfitLimit,
		MonthlyProfit: cfg.Risk.MonthlyProfitLimit,
	}, risk.EligibilityConfig{
		MinTrades:      cfg.Risk.MinTrades,
		MinWinRate:     cfg.Risk.MinWinRate,
		MaxDrawdownPct: cfg.Risk.MaxDrawdownPct,
		AccountEquity:  cfg.Risk.AccountEquity,
	}, logger)
	exec := executor.New(brg, led, src, sink, mode, logger)

	fetchers := []news.Fetcher{news.NewGoogleFetcher()}
	if cfg.Alpaca.APIKey != "" {
		mdc := marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.DataURL,
		})
		fetchers = append(fetchers, news.NewAlpacaFetcher(mdc))
	}
	veto := news.NewVeto(2*time.Hour, logger, fetchers...)

	hub := engine.NewHub()
	loop := engine.New(engine.Config{
		Symbol:              cfg.Trading.Symbol,
		OrderQty:            cfg.Trading.OrderQty,
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		StopLoss:            cfg.Trading.StopLoss,
		ExceptionalDayPnL:   cfg.Trading.ExceptionalDayPnL,
		TickInterval:        cfg.TickInterval(),
		VetoRefreshInterval: cfg.VetoRefreshInterval(),
	}, life, gate, exec, led, brg, veto, jnl, src, sink, hub, logger)

	api := httpapi.NewServer(life, gate, loop, led, src, hub, cfg.Trading.Symbol, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("operator API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	logger.Info("marlin trader started",
		"symbol", cfg.Trading.Symbol, "mode", mode,
		"tick", cfg.TickInterval(), "veto_refresh", cfg.VetoRefreshInterval())
	loop.Run(ctx)

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
