package universe

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testConfig() Config {
	return Config{
		QuoteSuffix: "USDT",
		Exclusions:  map[string]bool{"BTCUSDT": true, "ETHUSDT": true, "BNBUSDT": true},
		MinVolume:   decimal.NewFromInt(1_000_000),
		MaxWatch:    50,
	}
}

func TestFilterExcludesFixedSet(t *testing.T) {
	s := NewSelector(testConfig(), nil)

	// BTCUSDT has enormous volume but is excluded regardless.
	got := s.Filter([]Ticker{
		{Symbol: "BTCUSDT", LastPrice: "60000", BaseVolume: "100000"},
		{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "100000"},
	})
	if len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("filter got=%v want=[SOLUSDT]", got)
	}
}

func TestFilterVolumeThreshold(t *testing.T) {
	s := NewSelector(testConfig(), nil)

	got := s.Filter([]Ticker{
		{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "10000"},  // 1.5M, in
		{Symbol: "AVAXUSDT", LastPrice: "30", BaseVolume: "10000"},  // 300k, out
		{Symbol: "DOGEUSDT", LastPrice: "100", BaseVolume: "10000"}, // exactly 1M, out
	})
	if len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("filter got=%v want=[SOLUSDT]", got)
	}
}

func TestFilterQuoteSuffix(t *testing.T) {
	s := NewSelector(testConfig(), nil)

	got := s.Filter([]Ticker{
		{Symbol: "SOLBTC", LastPrice: "150", BaseVolume: "100000"},
		{Symbol: "USDT", LastPrice: "1", BaseVolume: "999999999"},
		{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "100000"},
	})
	if len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("filter got=%v want=[SOLUSDT]", got)
	}
}

func TestFilterSkipsUnparseableEntries(t *testing.T) {
	s := NewSelector(testConfig(), nil)

	got := s.Filter([]Ticker{
		{Symbol: "SOLUSDT", LastPrice: "oops", BaseVolume: "100000"},
		{Symbol: "AVAXUSDT", LastPrice: "30", BaseVolume: "100000"},
	})
	if len(got) != 1 || got[0] != "AVAXUSDT" {
		t.Fatalf("filter got=%v want=[AVAXUSDT]", got)
	}
}

func TestApplyReorderedSnapshotDoesNotTriggerChange(t *testing.T) {
	changes := 0
	s := NewSelector(testConfig(), func(watchlist, removed []string) { changes++ })

	a := Ticker{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "100000"}
	b := Ticker{Symbol: "AVAXUSDT", LastPrice: "30", BaseVolume: "100000"}

	s.Apply([]Ticker{a, b})
	if changes != 1 {
		t.Fatalf("changes after first apply got=%d want=1", changes)
	}

	// Same membership, different order: no change event, no restart.
	s.Apply([]Ticker{b, a})
	if changes != 1 {
		t.Fatalf("reordered snapshot triggered a change: got=%d want=1", changes)
	}
}

func TestApplyReportsRemovedInstruments(t *testing.T) {
	var lastRemoved []string
	s := NewSelector(testConfig(), func(watchlist, removed []string) { lastRemoved = removed })

	s.Apply([]Ticker{
		{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "100000"},
		{Symbol: "AVAXUSDT", LastPrice: "30", BaseVolume: "100000"},
	})
	s.Apply([]Ticker{
		{Symbol: "SOLUSDT", LastPrice: "150", BaseVolume: "100000"},
	})

	if len(lastRemoved) != 1 || lastRemoved[0] != "AVAXUSDT" {
		t.Fatalf("removed got=%v want=[AVAXUSDT]", lastRemoved)
	}
	if !s.Contains("SOLUSDT") || s.Contains("AVAXUSDT") {
		t.Fatal("membership not updated")
	}
}

func TestHandleSnapshotDropsMalformedPayload(t *testing.T) {
	changes := 0
	s := NewSelector(testConfig(), func(watchlist, removed []string) { changes++ })

	s.HandleSnapshot([]byte(`[{"s":"SOLUSDT","c":"150","v":"100000"}]`))
	if changes != 1 {
		t.Fatalf("changes got=%d want=1", changes)
	}

	// Garbage keeps the prior watchlist and does not crash.
	s.HandleSnapshot([]byte(`{not json`))
	if changes != 1 {
		t.Fatalf("malformed payload mutated state: changes=%d", changes)
	}
	if got := s.Watchlist(); len(got) != 1 || got[0] != "SOLUSDT" {
		t.Fatalf("watchlist got=%v want=[SOLUSDT]", got)
	}
}

func TestFilterCapsWatchlist(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWatch = 2
	s := NewSelector(cfg, nil)

	got := s.Filter([]Ticker{
		{Symbol: "AUSDT", LastPrice: "150", BaseVolume: "100000"},
		{Symbol: "BUSDT", LastPrice: "150", BaseVolume: "100000"},
		{Symbol: "CUSDT", LastPrice: "150", BaseVolume: "100000"},
	})
	if len(got) != 2 {
		t.Fatalf("capped watchlist got=%d want=2", len(got))
	}
}
