package ledger

import (
	"testing"
	"time"

	"github.com/flowbot/goradar/internal/domain"
)

func trade(sym string, price float64, ts time.Time) domain.TradeEvent {
	return domain.TradeEvent{
		Instrument:  sym,
		UnitPrice:   price,
		Notional:    price * 2,
		Side:        domain.SideBuy,
		TimestampMs: ts.UnixMilli(),
	}
}

func TestAppendCreatesLedger(t *testing.T) {
	s := NewStore(3*time.Hour, 0)
	now := time.Now()

	s.Append(trade("SOLUSDT", 150, now))
	led := s.Snapshot("SOLUSDT")
	if led == nil {
		t.Fatal("expected ledger created on first trade")
	}
	if len(led.Trades) != 1 {
		t.Fatalf("trades got=%d want=1", len(led.Trades))
	}
	if led.LastPrice != 150 {
		t.Fatalf("lastPrice got=%v want=150", led.LastPrice)
	}
}

func TestSweepDropsStaleEntries(t *testing.T) {
	s := NewStore(3*time.Hour, 0)
	now := time.Now()

	s.Append(trade("SOLUSDT", 150, now.Add(-4*time.Hour)))
	s.Append(trade("SOLUSDT", 151, now.Add(-1*time.Hour)))

	s.Sweep(now)

	led := s.Snapshot("SOLUSDT")
	if len(led.Trades) != 1 {
		t.Fatalf("trades after sweep got=%d want=1", len(led.Trades))
	}
	if led.Trades[0].UnitPrice != 151 {
		t.Fatalf("retained wrong entry: price=%v", led.Trades[0].UnitPrice)
	}
}

func TestInlineCapPrunesOnAppend(t *testing.T) {
	s := NewStore(3*time.Hour, 5)
	now := time.Now()

	// 6 stale entries, then a fresh one pushing past the cap.
	for i := 0; i < 6; i++ {
		s.Append(trade("SOLUSDT", 100, now.Add(-4*time.Hour)))
	}
	s.Append(trade("SOLUSDT", 101, now))

	led := s.Snapshot("SOLUSDT")
	if len(led.Trades) != 1 {
		t.Fatalf("trades after inline cap got=%d want=1", len(led.Trades))
	}
}

func TestEvict(t *testing.T) {
	s := NewStore(3*time.Hour, 0)
	s.Append(trade("SOLUSDT", 150, time.Now()))
	s.Evict("SOLUSDT")
	if s.Snapshot("SOLUSDT") != nil {
		t.Fatal("expected ledger evicted")
	}
	if s.Len() != 0 {
		t.Fatalf("len got=%d want=0", s.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(3*time.Hour, 0)
	now := time.Now()
	s.Append(trade("SOLUSDT", 150, now))

	led := s.Snapshot("SOLUSDT")
	led.Trades[0].UnitPrice = 999
	led.LastPrice = 999

	again := s.Snapshot("SOLUSDT")
	if again.Trades[0].UnitPrice != 150 || again.LastPrice != 150 {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	s := NewStore(3*time.Hour, 0)
	now := time.Now()
	s.Append(trade("SOLUSDT", 150, now))
	s.Append(trade("AVAXUSDT", 30, now))

	restored := NewStore(3*time.Hour, 0)
	restored.Restore(s.Export())

	if restored.Len() != 2 {
		t.Fatalf("restored len got=%d want=2", restored.Len())
	}
	led := restored.Snapshot("AVAXUSDT")
	if led == nil || led.LastPrice != 30 {
		t.Fatalf("restored ledger mismatch: %+v", led)
	}
}
