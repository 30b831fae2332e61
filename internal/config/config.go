package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marlin trader.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	Trading TradingConfig `yaml:"trading"`
	Risk    RiskConfig    `yaml:"risk"`
}

// Storage holds paths and DSNs for data persistence.
type Storage struct {
	DataDir     string `yaml:"data_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"` // optional; overrides SQLite for trade history
}

// Server holds the operator API listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BridgeConfig holds the execution bridge endpoint and client tuning.
type BridgeConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials for the Alpaca marketdata API (news veto source).
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig configures the notification sink.
type NotifyConfig struct {
	DiscordWebhook string `yaml:"discord_webhook"`
}

// TradingConfig defines the instrument and the control loop cadences.
type TradingConfig struct {
	Symbol              string  `yaml:"symbol"`
	Mode                string  `yaml:"mode"` // paper | live
	OrderQty            int64   `yaml:"order_qty"`
	TickSeconds         int     `yaml:"tick_seconds"`
	VetoRefreshSeconds  int     `yaml:"veto_refresh_seconds"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	StopLoss            float64 `yaml:"stop_loss"` // per-trade unrealized loss magnitude
	ExceptionalDayPnL   float64 `yaml:"exceptional_day_pnl"`
}

// RiskConfig defines default limit magnitudes and the go-live gate. Loss and
// profit limits are magnitudes in the account currency; each can be
// overridden at runtime through the settings store.
type RiskConfig struct {
	DailyLossLimit     float64 `yaml:"daily_loss_limit"`
	WeeklyLossLimit    float64 `yaml:"weekly_loss_limit"`
	MonthlyLossLimit   float64 `yaml:"monthly_loss_limit"`
	WeeklyProfitLimit  float64 `yaml:"weekly_profit_limit"`
	MonthlyProfitLimit float64 `yaml:"monthly_profit_limit"`
	MinTrades          int     `yaml:"min_trades"`
	MinWinRate         float64 `yaml:"min_win_rate"`     // e.g. 0.55
	MaxDrawdownPct     float64 `yaml:"max_drawdown_pct"` // e.g. 0.05
	AccountEquity      float64 `yaml:"account_equity"`   // drawdown denominator
}

// TickInterval returns the fast tick cadence as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Trading.TickSeconds) * time.Second
}

// VetoRefreshInterval returns the veto cache refresh cadence.
func (c *Config) VetoRefreshInterval() time.Duration {
	return time.Duration(c.Trading.VetoRefreshSeconds) * time.Second
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		cfg.Bridge.BaseURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK"); v != "" {
		cfg.Notify.DiscordWebhook = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// setDefaults fills in sensible values for anything the file left unset.
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Bridge.TimeoutSeconds <= 0 {
		cfg.Bridge.TimeoutSeconds = 10
	}
	if cfg.Bridge.RateLimitPerMin <= 0 {
		cfg.Bridge.RateLimitPerMin = 120
	}
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "paper"
	}
	if cfg.Trading.OrderQty <= 0 {
		cfg.Trading.OrderQty = 1
	}
	if cfg.Trading.TickSeconds <= 0 {
		cfg.Trading.TickSeconds = 15
	}
	if cfg.Trading.VetoRefreshSeconds <= 0 {
		cfg.Trading.VetoRefreshSeconds = 300
	}
	if cfg.Trading.ConfidenceThreshold <= 0 {
		cfg.Trading.ConfidenceThreshold = 0.6
	}
	if cfg.Trading.StopLoss <= 0 {
		cfg.Trading.StopLoss = 300
	}
	if cfg.Trading.ExceptionalDayPnL <= 0 {
		cfg.Trading.ExceptionalDayPnL = 1000
	}
	if cfg.Risk.DailyLossLimit <= 0 {
		cfg.Risk.DailyLossLimit = 1000
	}
	if cfg.Risk.WeeklyLossLimit <= 0 {
		cfg.Risk.WeeklyLossLimit = 3000
	}
	if cfg.Risk.MonthlyLossLimit <= 0 {
		cfg.Risk.MonthlyLossLimit = 9000
	}
	if cfg.Risk.WeeklyProfitLimit <= 0 {
		cfg.Risk.WeeklyProfitLimit = 5000
	}
	if cfg.Risk.MonthlyProfitLimit <= 0 {
		cfg.Risk.MonthlyProfitLimit = 15000
	}
	if cfg.Risk.MinTrades <= 0 {
		cfg.Risk.MinTrades = 20
	}
	if cfg.Risk.MinWinRate <= 0 {
		cfg.Risk.MinWinRate = 0.55
	}
	if cfg.Risk.MaxDrawdownPct <= 0 {
		cfg.Risk.MaxDrawdownPct = 0.05
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
