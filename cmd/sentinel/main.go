package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/recorder"
	"SignalSentinel/internal/scheduler"
	"SignalSentinel/internal/strategy"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath, ".env")
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("config validation")
	}
	log, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("init logger")
	}
	log.WithFields(logrus.Fields{
		"symbol":     cfg.Engine.Symbol,
		"timeframes": cfg.Engine.Timeframes,
		"mode":       cfg.Engine.TradingMode,
	}).Info("SignalSentinel starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	}
	log.WithField("source", fetcher.Name()).Info("data source selected")
	col := collector.NewCollector(fetcher, cfg.Engine.Symbol, log)
	col.MaxAge = cfg.DataSource.StreamMaxAge

	// Metrics consumers
	window := metrics.NewWindow(cfg.Engine.WindowSize)
	exporter := metrics.NewExporter(window)
	metricsSrv := metrics.NewServer(cfg.Metrics.Addr, exporter, log)
	metricsSrv.Start()

	if cfg.DataSource.UseStream {
		stream := collector.NewPriceStream(collector.StreamConfig{
			URL:    cfg.DataSource.StreamURL,
			Symbol: cfg.Engine.Symbol,
		}, log)
		stream.OnReconnect = exporter.ObserveReconnect
		col.Stream = stream
		go stream.Run(ctx)
	}

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.WithError(err).Warn("create database directory failed")
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	} else {
		log.Info("telegram not configured, notices disabled")
	}

	// Ledger and its outcome consumers
	l := ledger.New(ledger.WithLogger(log), ledger.WithCapacity(cfg.Engine.HistoryCapacity))
	l.Subscribe(window)
	l.Subscribe(exporter)
	l.Subscribe(recorder.OutcomeObserver(rec, log))
	if tn != nil {
		l.Subscribe(notifier.OutcomeObserver(ctx, tn))
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Collector: col,
		Engine:    strategy.NewEngine(log),
		Ledger:    l,
		Exporter:  exporter,
		Window:    window,
		Recorder:  rec,
		Notifier:  tn,
	}, cfg.AnalysisConfig(), cfg.Engine.CandleLimit, log)
	if err := sched.RegisterAll(cfg.Engine.Timeframes, cfg.Schedule.AnalysisCron,
		cfg.Schedule.EvaluateCron, cfg.Schedule.ReportCron); err != nil {
		log.WithError(err).Fatal("register cron tasks")
	}
	sched.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// Optional: analyze every timeframe immediately
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running analyses now")
		go func() {
			for _, tf := range cfg.Engine.Timeframes {
				sched.RunAnalysis(tf)
			}
		}()
	}

	log.Info("SignalSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	sched.Stop()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if tn != nil {
		if err := tn.Drain(shutdownCtx); err != nil {
			log.WithError(err).Warn("pending telegram notices dropped")
		}
	}
	cancel()
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}
	log.Info("SignalSentinel stopped")
}
