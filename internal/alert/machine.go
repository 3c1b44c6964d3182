// Package alert decides which classifications become user-visible
// notifications. A label must persist for two consecutive evaluation cycles
// and be outside its own cooldown before it alerts; a label that already
// alerted stays silent until the classification moves away and comes back.
package alert

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/internal/domain"
)

var log = logrus.WithField("component", "alert_machine")

// Machine holds per-instrument alert memory and applies the confirmation and
// cooldown rules. Cooldowns are per label, not global: a flip from momentum to
// distribution may alert immediately even while momentum is cooling down.
type Machine struct {
	mu       sync.Mutex
	memory   map[string]*domain.AlertMemory
	cooldown time.Duration
	confirm  int
}

// NewMachine creates a machine requiring confirmCycles consecutive
// observations of a new label before alerting.
func NewMachine(cooldown time.Duration, confirmCycles int) *Machine {
	if confirmCycles < 1 {
		confirmCycles = 1
	}
	return &Machine{
		memory:   make(map[string]*domain.AlertMemory),
		cooldown: cooldown,
		confirm:  confirmCycles,
	}
}

// Evaluate feeds one classification into the state machine and reports
// whether a notification should be emitted for it now.
func (m *Machine) Evaluate(instrument string, label domain.Label, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.memory[instrument]
	if !ok {
		mem = domain.NewAlertMemory()
		m.memory[instrument] = mem
	}

	// Non-alertable labels never fire and discard pending progress.
	if !label.Alertable() {
		mem.PendingLabel = ""
		mem.PendingCount = 0
		return false
	}

	// Steady state: the label already alerted and still holds. No re-alert,
	// regardless of cooldown.
	if label == mem.LastConfirmedLabel {
		mem.PendingLabel = ""
		mem.PendingCount = 0
		return false
	}

	if label == mem.PendingLabel {
		mem.PendingCount++
	} else {
		// A different candidate discards prior pending progress.
		mem.PendingLabel = label
		mem.PendingCount = 1
	}

	if mem.PendingCount < m.confirm {
		return false
	}

	if last, ok := mem.LastAlertTimeByLabel[label]; ok && last > 0 {
		if now.Sub(time.UnixMilli(last)) <= m.cooldown {
			log.Debugf("suppressed %s for %s: cooldown active", label, instrument)
			return false
		}
	}

	mem.LastConfirmedLabel = label
	mem.LastAlertTimeByLabel[label] = now.UnixMilli()
	mem.PendingLabel = ""
	mem.PendingCount = 0
	return true
}

// Evict drops the memory for an instrument that left the watchlist.
func (m *Machine) Evict(instrument string) {
	m.mu.Lock()
	delete(m.memory, instrument)
	m.mu.Unlock()
}

// Export returns a deep copy of all alert memory, for snapshotting.
func (m *Machine) Export() map[string]*domain.AlertMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*domain.AlertMemory, len(m.memory))
	for k, mem := range m.memory {
		cp := &domain.AlertMemory{
			LastConfirmedLabel:   mem.LastConfirmedLabel,
			PendingLabel:         mem.PendingLabel,
			PendingCount:         mem.PendingCount,
			LastAlertTimeByLabel: make(map[domain.Label]int64, len(mem.LastAlertTimeByLabel)),
		}
		for l, ts := range mem.LastAlertTimeByLabel {
			cp.LastAlertTimeByLabel[l] = ts
		}
		out[k] = cp
	}
	return out
}

// Restore replaces the machine state with a previously exported snapshot.
func (m *Machine) Restore(memory map[string]*domain.AlertMemory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memory = make(map[string]*domain.AlertMemory, len(memory))
	for k, mem := range memory {
		if mem == nil {
			continue
		}
		if mem.LastAlertTimeByLabel == nil {
			mem.LastAlertTimeByLabel = make(map[domain.Label]int64)
		}
		m.memory[k] = mem
	}
}
