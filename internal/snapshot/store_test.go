package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowbot/goradar/internal/domain"
	"github.com/flowbot/goradar/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	st := &State{
		Ledgers: map[string]*ledger.InstrumentLedger{
			"SOLUSDT": {
				Trades: []domain.TradeEvent{{
					Instrument:  "SOLUSDT",
					UnitPrice:   150,
					Notional:    300,
					Side:        domain.SideBuy,
					TimestampMs: now.UnixMilli(),
				}},
				LastPrice: 150,
			},
		},
		StartTimeMs: now.Add(-time.Hour).UnixMilli(),
		AlertMemory: map[string]*domain.AlertMemory{
			"SOLUSDT": {
				LastConfirmedLabel: domain.LabelMomentumBuilding,
				LastAlertTimeByLabel: map[domain.Label]int64{
					domain.LabelMomentumBuilding: now.UnixMilli(),
				},
			},
		},
		Thresholds: domain.DefaultThresholds(),
	}

	require.NoError(t, s.Save(st))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, st.Ledgers, got.Ledgers)
	require.Equal(t, st.StartTimeMs, got.StartTimeMs)
	require.Equal(t, st.AlertMemory, got.AlertMemory)
	require.Equal(t, st.Thresholds, got.Thresholds)
}

func TestLoadEmptyStoreYieldsZeroState(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, got.Ledgers)
	require.Zero(t, got.StartTimeMs)
	require.Empty(t, got.AlertMemory)
	require.Zero(t, got.Thresholds.MinSamples)
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(&State{StartTimeMs: 111}))
	require.NoError(t, s.Save(&State{StartTimeMs: 222}))

	got, err := s.Load()
	require.NoError(t, err)
	require.EqualValues(t, 222, got.StartTimeMs)
}
