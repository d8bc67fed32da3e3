package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"SignalSentinel/internal/model"
)

// Config holds all application configuration.
// Environment variables are named SECTION_FIELD (e.g. ENGINE_TRADING_MODE);
// the bare field name (e.g. TRADING_MODE) is accepted as a fallback.
type Config struct {
	Engine struct {
		Symbol              string   `yaml:"symbol" envconfig:"SYMBOL"`
		Timeframes          []string `yaml:"timeframes" envconfig:"TIMEFRAMES"`
		TradingMode         string   `yaml:"trading_mode" envconfig:"TRADING_MODE"`
		BacktestThreshold   *float64 `yaml:"backtest_threshold" envconfig:"BACKTEST_THRESHOLD"`
		DivergenceDetection bool     `yaml:"divergence_detection" envconfig:"DIVERGENCE_DETECTION"`
		TrendFilter         bool     `yaml:"trend_filter" envconfig:"TREND_FILTER"`
		CandleLimit         int      `yaml:"candle_limit" envconfig:"CANDLE_LIMIT"`
		HistoryCapacity     int      `yaml:"history_capacity" envconfig:"HISTORY_CAPACITY"`
		WindowSize          int      `yaml:"window_size" envconfig:"WINDOW_SIZE"`
	} `yaml:"engine" envconfig:"ENGINE"`
	DataSource struct {
		Provider          string        `yaml:"provider" envconfig:"PROVIDER"`
		BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL"`
		StreamURL         string        `yaml:"stream_url" envconfig:"STREAM_URL"`
		UseStream         bool          `yaml:"use_stream" envconfig:"USE_STREAM"`
		StreamMaxAge      time.Duration `yaml:"stream_max_age" envconfig:"STREAM_MAX_AGE"`
		RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	} `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Schedule struct {
		EvaluateCron string            `yaml:"evaluate_cron" envconfig:"EVALUATE_CRON"`
		ReportCron   string            `yaml:"report_cron" envconfig:"REPORT_CRON"`
		AnalysisCron map[string]string `yaml:"analysis_cron" ignored:"true"` // per-timeframe overrides
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database" envconfig:"DATABASE"`
	Metrics struct {
		Addr string `yaml:"addr" envconfig:"ADDR"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Log struct {
		Level  string `yaml:"level" envconfig:"LEVEL"`
		Format string `yaml:"format" envconfig:"FORMAT"`
	} `yaml:"log" envconfig:"LOG"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then a .env file, then applies
// environment variable overrides and defaults. Missing files are skipped.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.Symbol == "" {
		c.Engine.Symbol = "BTCUSDT"
	}
	if len(c.Engine.Timeframes) == 0 {
		c.Engine.Timeframes = []string{"5m"}
	}
	if c.Engine.TradingMode == "" {
		c.Engine.TradingMode = string(model.ModeBalanced)
	}
	if c.Engine.CandleLimit == 0 {
		c.Engine.CandleLimit = 300
	}
	if c.Engine.HistoryCapacity == 0 {
		c.Engine.HistoryCapacity = 1000
	}
	if c.Engine.WindowSize == 0 {
		c.Engine.WindowSize = 100
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "binance"
	}
	if c.DataSource.StreamMaxAge == 0 {
		c.DataSource.StreamMaxAge = 10 * time.Second
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 5
	}
	if c.Schedule.EvaluateCron == "" {
		c.Schedule.EvaluateCron = "*/15 * * * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 8 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/signal_sentinel.db"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

var supportedTimeframes = map[string]bool{"1m": true, "5m": true, "15m": true, "1h": true, "4h": true}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Engine.Symbol == "" {
		return fmt.Errorf("engine.symbol is required")
	}
	if len(c.Engine.Timeframes) == 0 {
		return fmt.Errorf("engine.timeframes is required")
	}
	for _, tf := range c.Engine.Timeframes {
		if !supportedTimeframes[tf] {
			return fmt.Errorf("engine.timeframes: unsupported timeframe %q", tf)
		}
	}
	switch model.TradingMode(c.Engine.TradingMode) {
	case model.ModeAggressive, model.ModeBalanced, model.ModeConservative:
	default:
		return fmt.Errorf("engine.trading_mode %q must be aggressive, balanced or conservative", c.Engine.TradingMode)
	}
	if t := c.Engine.BacktestThreshold; t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0) || *t <= 0) {
		return fmt.Errorf("engine.backtest_threshold must be a positive number")
	}
	if c.Engine.CandleLimit < 2 {
		return fmt.Errorf("engine.candle_limit must be at least 2")
	}
	if c.Engine.HistoryCapacity <= 0 || c.Engine.WindowSize <= 0 {
		return fmt.Errorf("engine.history_capacity and engine.window_size must be positive")
	}
	switch c.DataSource.Provider {
	case "binance", "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q must be binance, yahoo or mock", c.DataSource.Provider)
	}
	if c.DataSource.RequestsPerSecond < 0 {
		return fmt.Errorf("data_source.requests_per_second must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// AnalysisConfig converts the engine section for the strategy engine.
func (c *Config) AnalysisConfig() model.AnalysisConfig {
	return model.AnalysisConfig{
		TradingMode:         model.TradingMode(c.Engine.TradingMode),
		BacktestThreshold:   c.Engine.BacktestThreshold,
		DivergenceDetection: c.Engine.DivergenceDetection,
		TrendFilter:         c.Engine.TrendFilter,
	}
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log := logrus.New()
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
