// Package universe decides which instruments the engine watches. A market-wide
// ticker snapshot is filtered down to liquid, eligible instruments; the result
// replaces the watchlist only when it actually differs as a set, so a
// reordered feed never forces a spurious stream restart.
package universe

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "universe")

// Ticker is one instrument's entry in the market-wide miniTicker snapshot.
// Prices and volumes arrive as decimal strings.
type Ticker struct {
	Symbol     string `json:"s"`
	LastPrice  string `json:"c"`
	BaseVolume string `json:"v"`
}

// Config controls eligibility filtering.
type Config struct {
	QuoteSuffix string          // reference currency suffix, e.g. "USDT"
	Exclusions  map[string]bool // major-cap and stable-value instruments, never watched
	MinVolume   decimal.Decimal // lastPrice * rollingVolume must exceed this
	MaxWatch    int             // hard cap on watchlist size (bounds the subscription)
}

// ChangeHandler receives the new watchlist and the instruments that dropped
// out of it whenever the selector detects a membership change.
type ChangeHandler func(watchlist []string, removed []string)

// Selector consumes ticker snapshots and maintains the current watchlist.
type Selector struct {
	cfg      Config
	onChange ChangeHandler

	mu         sync.RWMutex
	current    []string
	currentSet map[string]bool
}

// NewSelector creates a selector. onChange may be nil for query-only use.
func NewSelector(cfg Config, onChange ChangeHandler) *Selector {
	return &Selector{
		cfg:        cfg,
		onChange:   onChange,
		currentSet: make(map[string]bool),
	}
}

// Watchlist returns a copy of the current watchlist.
func (s *Selector) Watchlist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.current))
	copy(out, s.current)
	return out
}

// Contains reports whether an instrument is currently watched.
func (s *Selector) Contains(instrument string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSet[instrument]
}

// HandleSnapshot parses one raw snapshot message and applies it. A malformed
// payload is dropped and the prior watchlist kept; the feed will deliver
// another snapshot momentarily.
func (s *Selector) HandleSnapshot(raw []byte) {
	var tickers []Ticker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		log.Warnf("dropping malformed snapshot: %v", err)
		return
	}
	s.Apply(tickers)
}

// Apply filters the snapshot and, when membership changed, swaps the
// watchlist and notifies the change handler.
func (s *Selector) Apply(tickers []Ticker) {
	filtered := s.Filter(tickers)

	s.mu.Lock()
	if setEqual(s.currentSet, filtered) {
		s.mu.Unlock()
		return
	}

	next := make([]string, 0, len(filtered))
	nextSet := make(map[string]bool, len(filtered))
	for _, sym := range filtered {
		next = append(next, sym)
		nextSet[sym] = true
	}

	var removed []string
	for sym := range s.currentSet {
		if !nextSet[sym] {
			removed = append(removed, sym)
		}
	}

	s.current = next
	s.currentSet = nextSet
	s.mu.Unlock()

	log.Infof("watchlist changed: %d instruments (%d removed)", len(next), len(removed))
	if s.onChange != nil {
		s.onChange(next, removed)
	}
}

// Filter returns the eligible instruments from a snapshot, ordered by symbol,
// capped at MaxWatch. Entries with unparseable numbers are skipped.
func (s *Selector) Filter(tickers []Ticker) []string {
	out := make([]string, 0, 64)
	for _, t := range tickers {
		if len(t.Symbol) <= len(s.cfg.QuoteSuffix) || t.Symbol[len(t.Symbol)-len(s.cfg.QuoteSuffix):] != s.cfg.QuoteSuffix {
			continue
		}
		if s.cfg.Exclusions[t.Symbol] {
			continue
		}
		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil {
			continue
		}
		vol, err := decimal.NewFromString(t.BaseVolume)
		if err != nil {
			continue
		}
		if price.Mul(vol).LessThanOrEqual(s.cfg.MinVolume) {
			continue
		}
		out = append(out, t.Symbol)
	}
	sort.Strings(out)
	if s.cfg.MaxWatch > 0 && len(out) > s.cfg.MaxWatch {
		out = out[:s.cfg.MaxWatch]
	}
	return out
}

// setEqual compares the current membership set against a candidate list.
func setEqual(current map[string]bool, candidate []string) bool {
	if len(current) != len(candidate) {
		return false
	}
	for _, sym := range candidate {
		if !current[sym] {
			return false
		}
	}
	return true
}
