package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	Gate       GateConfig       `mapstructure:"gate"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	DailyStats DailyStatsConfig `mapstructure:"daily_stats"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DailyStats string `mapstructure:"daily_stats"`
}

// GateConfig drives the per-user-per-day readiness gate.
type GateConfig struct {
	DefaultDailyTradeLimit int     `mapstructure:"default_daily_trade_limit"`
	ChecklistPassScore     float64 `mapstructure:"checklist_pass_score"`
}

// IngestConfig holds the deduplication windows. The two defaults guard against
// different failure modes (manual double-submits vs broker retry storms) and
// are tunable independently.
type IngestConfig struct {
	ManualDedupWindow  time.Duration `mapstructure:"manual_dedup_window"`
	WebhookDedupWindow time.Duration `mapstructure:"webhook_dedup_window"`
}

type AnalyticsConfig struct {
	MorningStartHour   int `mapstructure:"morning_start_hour"`
	AfternoonStartHour int `mapstructure:"afternoon_start_hour"`
	EveningStartHour   int `mapstructure:"evening_start_hour"`
	EveningEndHour     int `mapstructure:"evening_end_hour"`
}

type DailyStatsConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	LookbackDays int  `mapstructure:"lookback_days"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_stats", "0 15 0 * * *")
	v.SetDefault("gate.default_daily_trade_limit", 2)
	v.SetDefault("gate.checklist_pass_score", 90)
	v.SetDefault("ingest.manual_dedup_window", "10s")
	v.SetDefault("ingest.webhook_dedup_window", "60s")
	v.SetDefault("analytics.morning_start_hour", 8)
	v.SetDefault("analytics.afternoon_start_hour", 12)
	v.SetDefault("analytics.evening_start_hour", 16)
	v.SetDefault("analytics.evening_end_hour", 20)
	v.SetDefault("daily_stats.enabled", true)
	v.SetDefault("daily_stats.lookback_days", 35)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
