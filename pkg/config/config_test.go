package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "USDT", cfg.Engine.QuoteSuffix)
	assert.Equal(t, 1_000_000.0, cfg.Engine.MinVolumeUSD)
	assert.Equal(t, 50, cfg.Engine.MaxWatch)
	assert.Equal(t, 25, cfg.Engine.CooldownMin)
	assert.Equal(t, 2, cfg.Engine.ConfirmCycles)
	assert.Equal(t, 50_000.0, cfg.Thresholds.WhaleNotionalUSD)
	assert.Equal(t, 10, cfg.Thresholds.MinSamples)
	assert.Contains(t, cfg.Engine.Exclusions, "BTCUSDT")
	assert.Equal(t, 3*time.Hour, cfg.Retention())
	assert.Equal(t, 25*time.Minute, cfg.Cooldown())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.ScannerURL, cfg.Engine.ScannerURL)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.yaml")
	body := `
telegram:
  token: file-token
engine:
  minVolumeUsd: 2500000
  cooldownMin: 40
thresholds:
  buyBiasPct: 70
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, 2_500_000.0, cfg.Engine.MinVolumeUSD)
	assert.Equal(t, 40, cfg.Engine.CooldownMin)
	assert.Equal(t, 70.0, cfg.Thresholds.BuyBiasPct)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Engine.MaxWatch)
	assert.Equal(t, 50_000.0, cfg.Thresholds.WhaleNotionalUSD)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  cooldownMin: 40\n"), 0o644))

	t.Setenv("TG_TOKEN", "env-token")
	t.Setenv("ALERT_COOLDOWN_MIN", "55")
	t.Setenv("WHALE_THRESHOLD_USD", "75000")
	t.Setenv("MIN_VOLUME_USDT", "not-a-number") // malformed values are ignored

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, 55, cfg.Engine.CooldownMin)
	assert.Equal(t, 75_000.0, cfg.Thresholds.WhaleNotionalUSD)
	assert.Equal(t, Default().Engine.MinVolumeUSD, cfg.Engine.MinVolumeUSD)
}

func TestZeroIntervalsFallBackToDefaults(t *testing.T) {
	t.Setenv("SCAN_INTERVAL_SEC", "0")
	t.Setenv("HEARTBEAT_HOURS", "0")

	path := filepath.Join(t.TempDir(), "radar.yaml")
	body := `
engine:
  sweepIntervalMin: 0
  settleSec: -5
snapshotIntervalMin: 0
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// A zero interval would blow up the engine's tickers, so it is treated
	// as unset.
	d := Default()
	assert.Equal(t, d.Engine.EvalIntervalSec, cfg.Engine.EvalIntervalSec)
	assert.Equal(t, d.Engine.HeartbeatHours, cfg.Engine.HeartbeatHours)
	assert.Equal(t, d.Engine.SweepIntervalMin, cfg.Engine.SweepIntervalMin)
	assert.Equal(t, d.Engine.SettleSec, cfg.Engine.SettleSec)
	assert.Equal(t, d.SnapshotMin, cfg.SnapshotMin)
}

func TestRetentionMustCoverBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  retentionHours: 2\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
