package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowbot/goradar/internal/analyzer"
	"github.com/flowbot/goradar/pkg/telegram"
)

// CommandClient is the inbound command channel. Satisfied by the Telegram
// client; nil disables command polling.
type CommandClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
}

// SetCommandClient wires the inbound command channel. Call before Run.
func (e *Engine) SetCommandClient(c CommandClient) {
	e.commands = c
}

// pollCommands long-polls the command channel and dispatches recognized
// commands. Polling errors back off briefly and continue; the command path is
// best-effort and must never take the engine down.
func (e *Engine) pollCommands(ctx context.Context) {
	if e.commands == nil {
		log.Info("no command channel configured")
		return
	}

	pollTimeout := time.Duration(e.cfg.Engine.CommandPollSec) * time.Second
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := e.commands.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("command poll failed: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			if reply := e.HandleCommand(u.Message.Text, time.Now()); reply != "" {
				e.notifier.Send(reply)
			}
		}
	}
}

// HandleCommand executes one command and returns the reply text, or empty for
// unrecognized input. Read-only with respect to alert state: checking an
// instrument never touches debounce or cooldown bookkeeping.
func (e *Engine) HandleCommand(text string, now time.Time) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}

	switch strings.ToLower(fields[0]) {
	case "/status":
		return e.statusText(now)
	case "/threshold":
		if len(fields) < 2 {
			return "Usage: /threshold <pct>"
		}
		pct, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || pct < 0 {
			return fmt.Sprintf("Invalid threshold: %s", fields[1])
		}
		e.SetPriceConfirmPct(pct)
		return fmt.Sprintf("✅ Price confirmation threshold set to %.2f%%", pct)
	case "/check":
		if len(fields) < 2 {
			return "Usage: /check <instrument>"
		}
		return e.CheckInstrument(fields[1], now)
	default:
		return ""
	}
}

// CheckInstrument runs the analyzer against the current ledger for a
// free-text query and formats the result.
func (e *Engine) CheckInstrument(query string, now time.Time) string {
	sym := e.NormalizeInstrument(query)
	led := e.store.Snapshot(sym)
	res := analyzer.Analyze(sym, led, now, e.startTime, e.Thresholds())
	if res == nil {
		return fmt.Sprintf("ℹ️ *%s*: insufficient data", sym)
	}
	return formatCheck(res)
}

// NormalizeInstrument maps a free-text query to the canonical identifier,
// appending the reference-currency suffix when absent.
func (e *Engine) NormalizeInstrument(query string) string {
	sym := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasSuffix(sym, e.cfg.Engine.QuoteSuffix) {
		sym += e.cfg.Engine.QuoteSuffix
	}
	return sym
}

func (e *Engine) statusText(now time.Time) string {
	return fmt.Sprintf(
		"📡 *Flow Radar Status*\nEngine: `%s`\nWatchlist: %d\nTracked: %d\nConnection: %s\nBaseline warm-up: %.0f%%\nUptime: %s",
		e.id,
		len(e.selector.Watchlist()),
		e.store.Len(),
		e.collector.State(),
		e.WarmupPct(now),
		now.Sub(e.startTime).Round(time.Second),
	)
}
