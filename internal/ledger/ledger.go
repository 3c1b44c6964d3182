// Package ledger holds the bounded per-instrument trade history the rest of
// the engine reads from. The stream collector is the only writer; readers get
// copies so an evaluation pass never observes a half-applied append.
package ledger

import (
	"sync"
	"time"

	"github.com/flowbot/goradar/internal/domain"
)

// InstrumentLedger is the append-only, time-ascending trade buffer for one
// instrument plus the last observed price.
type InstrumentLedger struct {
	Trades    []domain.TradeEvent `json:"trades"`
	LastPrice float64             `json:"lastPrice"`
}

// Store owns every instrument ledger. Writes come from the ingestion path,
// reads from the evaluation and command paths, so all access is guarded.
type Store struct {
	mu        sync.RWMutex
	ledgers   map[string]*InstrumentLedger
	retention time.Duration
	inlineCap int
}

// NewStore creates an empty store. retention is the horizon both pruning
// mechanisms enforce; inlineCap is the per-instrument event count past which
// an append triggers an immediate prune.
func NewStore(retention time.Duration, inlineCap int) *Store {
	return &Store{
		ledgers:   make(map[string]*InstrumentLedger),
		retention: retention,
		inlineCap: inlineCap,
	}
}

// Append records a trade, creating the ledger on first sight of the
// instrument. When the buffer exceeds the inline cap, entries older than the
// retention horizon are dropped right away so a hot instrument cannot grow
// without bound between sweeps.
func (s *Store) Append(ev domain.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[ev.Instrument]
	if !ok {
		l = &InstrumentLedger{}
		s.ledgers[ev.Instrument] = l
	}
	l.Trades = append(l.Trades, ev)
	l.LastPrice = ev.UnitPrice

	if s.inlineCap > 0 && len(l.Trades) > s.inlineCap {
		cutoff := ev.TimestampMs - s.retention.Milliseconds()
		l.Trades = pruneBefore(l.Trades, cutoff)
	}
}

// Sweep prunes every ledger's events older than the retention horizon.
// Runs on a fixed interval so low-traffic instruments do not keep stale data.
func (s *Store) Sweep(now time.Time) {
	cutoff := now.UnixMilli() - s.retention.Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.ledgers {
		l.Trades = pruneBefore(l.Trades, cutoff)
	}
}

// Evict removes the ledger for an instrument that left the watchlist.
func (s *Store) Evict(instrument string) {
	s.mu.Lock()
	delete(s.ledgers, instrument)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of one instrument's ledger, or nil if no
// trades have been seen for it. Callers own the returned copy.
func (s *Store) Snapshot(instrument string) *InstrumentLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[instrument]
	if !ok {
		return nil
	}
	cp := &InstrumentLedger{
		Trades:    make([]domain.TradeEvent, len(l.Trades)),
		LastPrice: l.LastPrice,
	}
	copy(cp.Trades, l.Trades)
	return cp
}

// Instruments returns the instruments that currently have a ledger.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ledgers))
	for k := range s.ledgers {
		out = append(out, k)
	}
	return out
}

// Len returns the number of tracked ledgers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ledgers)
}

// Export returns a deep copy of every ledger, for snapshotting.
func (s *Store) Export() map[string]*InstrumentLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*InstrumentLedger, len(s.ledgers))
	for k, l := range s.ledgers {
		cp := &InstrumentLedger{
			Trades:    make([]domain.TradeEvent, len(l.Trades)),
			LastPrice: l.LastPrice,
		}
		copy(cp.Trades, l.Trades)
		out[k] = cp
	}
	return out
}

// Restore replaces the store contents with a previously exported state.
// Stale entries are swept on the next pass, so no pruning happens here.
func (s *Store) Restore(ledgers map[string]*InstrumentLedger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledgers = make(map[string]*InstrumentLedger, len(ledgers))
	for k, l := range ledgers {
		if l == nil {
			continue
		}
		cp := &InstrumentLedger{
			Trades:    make([]domain.TradeEvent, len(l.Trades)),
			LastPrice: l.LastPrice,
		}
		copy(cp.Trades, l.Trades)
		s.ledgers[k] = cp
	}
}

// pruneBefore drops events with TimestampMs <= cutoff. Trades are
// time-ascending, so the first retained index can be found with one scan.
func pruneBefore(trades []domain.TradeEvent, cutoff int64) []domain.TradeEvent {
	idx := 0
	for idx < len(trades) && trades[idx].TimestampMs <= cutoff {
		idx++
	}
	if idx == 0 {
		return trades
	}
	kept := make([]domain.TradeEvent, len(trades)-idx)
	copy(kept, trades[idx:])
	return kept
}
