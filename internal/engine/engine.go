// Package engine wires the universe selector, stream collector, flow analyzer
// and alert state machine into one aggregate and drives them on their
// schedules. All scheduled work runs on a single loop so no two evaluation
// passes ever overlap.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/internal/alert"
	"github.com/flowbot/goradar/internal/analyzer"
	"github.com/flowbot/goradar/internal/domain"
	"github.com/flowbot/goradar/internal/ledger"
	"github.com/flowbot/goradar/internal/notify"
	"github.com/flowbot/goradar/internal/snapshot"
	"github.com/flowbot/goradar/internal/stream"
	"github.com/flowbot/goradar/internal/universe"
	"github.com/flowbot/goradar/pkg/config"
	"github.com/flowbot/goradar/pkg/sigchan"
)

var log = logrus.WithField("component", "engine")

// Engine owns every mutable collection in the system; components reach shared
// state through it rather than through package globals.
type Engine struct {
	cfg *config.Config
	id  string

	startTime time.Time

	thMu       sync.RWMutex
	thresholds domain.Thresholds

	store     *ledger.Store
	selector  *universe.Selector
	scanner   *universe.Scanner
	collector *stream.Collector
	alerts    *alert.Machine
	notifier  notify.Notifier
	snaps     *snapshot.Store

	restartSig *sigchan.Chan
	commands   CommandClient
}

// New builds an engine from configuration. snaps may be nil, which disables
// persistence but not the engine.
func New(cfg *config.Config, notifier notify.Notifier, snaps *snapshot.Store) *Engine {
	e := &Engine{
		cfg:        cfg,
		id:         uuid.NewString(),
		startTime:  time.Now(),
		thresholds: thresholdsFromConfig(cfg),
		store:      ledger.NewStore(cfg.Retention(), cfg.Engine.InlineCap),
		alerts:     alert.NewMachine(cfg.Cooldown(), cfg.Engine.ConfirmCycles),
		notifier:   notifier,
		snaps:      snaps,
		restartSig: sigchan.New(1),
	}

	exclusions := make(map[string]bool, len(cfg.Engine.Exclusions))
	for _, sym := range cfg.Engine.Exclusions {
		exclusions[sym] = true
	}
	e.selector = universe.NewSelector(universe.Config{
		QuoteSuffix: cfg.Engine.QuoteSuffix,
		Exclusions:  exclusions,
		MinVolume:   decimal.NewFromFloat(cfg.Engine.MinVolumeUSD),
		MaxWatch:    cfg.Engine.MaxWatch,
	}, e.onWatchlistChange)
	e.scanner = universe.NewScanner(cfg.Engine.ScannerURL, e.selector)
	e.collector = stream.NewCollector(stream.Config{
		BaseURL:          cfg.Engine.StreamURL,
		MaxStreams:       cfg.Engine.MaxWatch,
		ReconnectBackoff: time.Duration(cfg.Engine.ReconnectBackoffSec) * time.Second,
		SettlePeriod:     time.Duration(cfg.Engine.SettleSec) * time.Second,
	}, e.store)

	return e
}

func thresholdsFromConfig(cfg *config.Config) domain.Thresholds {
	return domain.Thresholds{
		WhaleNotional:      cfg.Thresholds.WhaleNotionalUSD,
		BuyBiasPct:         cfg.Thresholds.BuyBiasPct,
		SellBiasPct:        cfg.Thresholds.SellBiasPct,
		ActivityMultiplier: cfg.Thresholds.ActivityMultiplier,
		PriceConfirmPct:    cfg.Thresholds.PriceConfirmPct,
		MinSamples:         cfg.Thresholds.MinSamples,
	}
}

// Restore applies a loaded snapshot. Zero-value sections keep boot defaults.
func (e *Engine) Restore(st *snapshot.State) {
	if st == nil {
		return
	}
	if st.StartTimeMs > 0 {
		e.startTime = time.UnixMilli(st.StartTimeMs)
	}
	if len(st.Ledgers) > 0 {
		e.store.Restore(st.Ledgers)
	}
	if len(st.AlertMemory) > 0 {
		e.alerts.Restore(st.AlertMemory)
	}
	if st.Thresholds.MinSamples > 0 {
		e.thMu.Lock()
		e.thresholds = st.Thresholds
		e.thMu.Unlock()
	}
	log.Infof("state restored: %d ledgers, start=%s", e.store.Len(), e.startTime.Format(time.RFC3339))
}

// Run starts the feeds and drives every scheduled loop until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	log.Infof("flow radar engine %s starting", e.id)

	go e.scanner.Run(ctx)
	go e.pollCommands(ctx)

	evalTicker := time.NewTicker(time.Duration(e.cfg.Engine.EvalIntervalSec) * time.Second)
	sweepTicker := time.NewTicker(time.Duration(e.cfg.Engine.SweepIntervalMin) * time.Minute)
	heartbeatTicker := time.NewTicker(time.Duration(e.cfg.Engine.HeartbeatHours) * time.Hour)
	snapshotTicker := time.NewTicker(time.Duration(e.cfg.SnapshotMin) * time.Minute)
	defer evalTicker.Stop()
	defer sweepTicker.Stop()
	defer heartbeatTicker.Stop()
	defer snapshotTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.collector.Stop()
			return
		case <-e.restartSig.C():
			e.collector.Restart(e.selector.Watchlist())
		case <-evalTicker.C:
			e.evaluatePass(time.Now())
		case <-sweepTicker.C:
			e.store.Sweep(time.Now())
		case <-heartbeatTicker.C:
			e.notifier.Send(e.heartbeatText())
		case <-snapshotTicker.C:
			e.SaveSnapshot()
		}
	}
}

// onWatchlistChange evicts state for dropped instruments and requests a
// collector restart. The restart itself runs on the engine loop so the
// selector callback never blocks the scanner read path.
func (e *Engine) onWatchlistChange(watchlist []string, removed []string) {
	for _, sym := range removed {
		e.store.Evict(sym)
		e.alerts.Evict(sym)
	}
	e.restartSig.Emit()
}

// evaluatePass classifies every watched instrument and routes alertable
// transitions to the notifier. Pure computation plus fire-and-forget sends,
// so a pass always completes before the next tick.
func (e *Engine) evaluatePass(now time.Time) {
	th := e.Thresholds()
	for _, sym := range e.selector.Watchlist() {
		led := e.store.Snapshot(sym)
		res := analyzer.Analyze(sym, led, now, e.startTime, th)
		if res == nil {
			continue
		}
		if e.alerts.Evaluate(sym, res.Label, now) {
			log.Infof("alert: %s %s bias=%.1f activity=%.1fx", sym, res.Label, res.BuyBiasPct, res.ActivityMultiplier)
			e.notifier.Send(formatAlert(res))
		}
	}
}

// Thresholds returns the current classification thresholds.
func (e *Engine) Thresholds() domain.Thresholds {
	e.thMu.RLock()
	defer e.thMu.RUnlock()
	return e.thresholds
}

// SetPriceConfirmPct mutates the confirmation price-change threshold.
func (e *Engine) SetPriceConfirmPct(pct float64) {
	e.thMu.Lock()
	e.thresholds.PriceConfirmPct = pct
	e.thMu.Unlock()
	log.Infof("price confirmation threshold set to %.2f%%", pct)
}

// SaveSnapshot persists the engine state. Failures are logged only.
func (e *Engine) SaveSnapshot() {
	if e.snaps == nil {
		return
	}
	st := &snapshot.State{
		Ledgers:     e.store.Export(),
		StartTimeMs: e.startTime.UnixMilli(),
		AlertMemory: e.alerts.Export(),
		Thresholds:  e.Thresholds(),
	}
	if err := e.snaps.Save(st); err != nil {
		log.Errorf("snapshot save failed: %v", err)
		return
	}
	log.Debugf("snapshot saved: %d ledgers", len(st.Ledgers))
}

// WarmupPct reports how much of the baseline window has elapsed since boot.
func (e *Engine) WarmupPct(now time.Time) float64 {
	pct := 100 * now.Sub(e.startTime).Minutes() / analyzer.BaselineWindow.Minutes()
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func (e *Engine) heartbeatText() string {
	return fmt.Sprintf("🟡 *Flow Radar Heartbeat*\nPairs: %d\nTracked: %d\nStatus: Running ✅",
		len(e.selector.Watchlist()), e.store.Len())
}
