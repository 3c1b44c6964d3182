// Package config loads the radar configuration from a YAML file with
// environment-variable overrides for deployment secrets and the handful of
// knobs operators tune most often.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// TelegramConfig is the notification and command channel credentials.
type TelegramConfig struct {
	Token  string `yaml:"token"`  // env TG_TOKEN
	ChatID string `yaml:"chatId"` // env TG_CHAT_ID
}

// LogConfig is the logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// EngineConfig tunes the scanning and evaluation loops.
type EngineConfig struct {
	ScannerURL          string   `yaml:"scannerUrl"`
	StreamURL           string   `yaml:"streamUrl"`
	QuoteSuffix         string   `yaml:"quoteSuffix"`
	Exclusions          []string `yaml:"exclusions"`
	MinVolumeUSD        float64  `yaml:"minVolumeUsd"` // env MIN_VOLUME_USDT
	MaxWatch            int      `yaml:"maxWatch"`
	EvalIntervalSec     int      `yaml:"evalIntervalSec"`
	SweepIntervalMin    int      `yaml:"sweepIntervalMin"`
	RetentionHours      int      `yaml:"retentionHours"`
	InlineCap           int      `yaml:"inlineCap"`
	CooldownMin         int      `yaml:"cooldownMin"` // env ALERT_COOLDOWN_MIN
	ConfirmCycles       int      `yaml:"confirmCycles"`
	HeartbeatHours      int      `yaml:"heartbeatHours"` // env HEARTBEAT_HOURS
	ReconnectBackoffSec int      `yaml:"reconnectBackoffSec"`
	SettleSec           int      `yaml:"settleSec"`
	CommandPollSec      int      `yaml:"commandPollSec"`
}

// ThresholdConfig is the classification constants.
type ThresholdConfig struct {
	WhaleNotionalUSD   float64 `yaml:"whaleNotionalUsd"` // env WHALE_THRESHOLD_USD
	BuyBiasPct         float64 `yaml:"buyBiasPct"`
	SellBiasPct        float64 `yaml:"sellBiasPct"`
	ActivityMultiplier float64 `yaml:"activityMultiplier"`
	PriceConfirmPct    float64 `yaml:"priceConfirmPct"`
	MinSamples         int     `yaml:"minSamples"`
}

// Config is the full application configuration.
type Config struct {
	Telegram     TelegramConfig  `yaml:"telegram"`
	Log          LogConfig       `yaml:"log"`
	Engine       EngineConfig    `yaml:"engine"`
	Thresholds   ThresholdConfig `yaml:"thresholds"`
	HealthAddr   string          `yaml:"healthAddr"`
	SnapshotPath string          `yaml:"snapshotPath"`
	SnapshotMin  int             `yaml:"snapshotIntervalMin"`
}

// Default returns the canonical configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", File: "logs/radar.log"},
		Engine: EngineConfig{
			ScannerURL:          "wss://stream.binance.com:9443/ws/!miniTicker@arr",
			StreamURL:           "wss://stream.binance.com:9443/stream",
			QuoteSuffix:         "USDT",
			Exclusions:          []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "USDCUSDT", "FDUSDUSDT", "TUSDUSDT"},
			MinVolumeUSD:        1_000_000,
			MaxWatch:            50,
			EvalIntervalSec:     30,
			SweepIntervalMin:    5,
			RetentionHours:      3,
			InlineCap:           5000,
			CooldownMin:         25,
			ConfirmCycles:       2,
			HeartbeatHours:      3,
			ReconnectBackoffSec: 5,
			SettleSec:           10,
			CommandPollSec:      25,
		},
		Thresholds: ThresholdConfig{
			WhaleNotionalUSD:   50_000,
			BuyBiasPct:         65,
			SellBiasPct:        35,
			ActivityMultiplier: 2.0,
			PriceConfirmPct:    1.0,
			MinSamples:         10,
		},
		HealthAddr:   ":8080",
		SnapshotPath: "data/snapshot",
		SnapshotMin:  10,
	}
}

// Load reads the config file at path (optional; empty path skips the file),
// then applies environment overrides on top of defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if cfg.Engine.RetentionHours*60 < 180 {
		return nil, fmt.Errorf("retentionHours must cover the 3h baseline window")
	}
	return cfg, nil
}

// normalize treats zero or negative intervals as unset and falls back to the
// defaults. Every one of these feeds a ticker or a delay, so letting a zero
// through would take the engine down on an operator typo.
func (c *Config) normalize() {
	d := Default()
	if c.Engine.EvalIntervalSec <= 0 {
		c.Engine.EvalIntervalSec = d.Engine.EvalIntervalSec
	}
	if c.Engine.SweepIntervalMin <= 0 {
		c.Engine.SweepIntervalMin = d.Engine.SweepIntervalMin
	}
	if c.Engine.HeartbeatHours <= 0 {
		c.Engine.HeartbeatHours = d.Engine.HeartbeatHours
	}
	if c.Engine.ReconnectBackoffSec <= 0 {
		c.Engine.ReconnectBackoffSec = d.Engine.ReconnectBackoffSec
	}
	if c.Engine.SettleSec <= 0 {
		c.Engine.SettleSec = d.Engine.SettleSec
	}
	if c.Engine.CommandPollSec <= 0 {
		c.Engine.CommandPollSec = d.Engine.CommandPollSec
	}
	if c.SnapshotMin <= 0 {
		c.SnapshotMin = d.SnapshotMin
	}
}

// applyEnv applies the deployment-variable overrides operators tune without
// touching the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TG_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TG_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v, ok := envFloat("MIN_VOLUME_USDT"); ok {
		c.Engine.MinVolumeUSD = v
	}
	if v, ok := envFloat("WHALE_THRESHOLD_USD"); ok {
		c.Thresholds.WhaleNotionalUSD = v
	}
	if v, ok := envInt("ALERT_COOLDOWN_MIN"); ok {
		c.Engine.CooldownMin = v
	}
	if v, ok := envInt("HEARTBEAT_HOURS"); ok {
		c.Engine.HeartbeatHours = v
	}
	if v, ok := envInt("SCAN_INTERVAL_SEC"); ok {
		c.Engine.EvalIntervalSec = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Retention returns the ledger retention horizon.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Engine.RetentionHours) * time.Hour
}

// Cooldown returns the per-label alert cooldown.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Engine.CooldownMin) * time.Minute
}
