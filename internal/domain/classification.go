package domain

import "time"

// Label is the flow classification for one instrument at one evaluation instant.
type Label string

const (
	// LabelMomentumBuilding: strong buy-side flow confirmed by upward price movement. Alertable.
	LabelMomentumBuilding Label = "MOMENTUM_BUILDING"
	// LabelAccumulationPriceLagging: same buy-side flow signature without price
	// confirmation. Treated as noise, never alerts.
	LabelAccumulationPriceLagging Label = "ACCUMULATION_PRICE_LAGGING"
	// LabelDistribution: strong sell-side flow confirmed by downward price movement. Alertable.
	LabelDistribution Label = "DISTRIBUTION"
	// LabelDistributionPriceResilient: sell-side flow the price is shrugging off. Never alerts.
	LabelDistributionPriceResilient Label = "DISTRIBUTION_PRICE_RESILIENT"
	// LabelMixed: no dominant flow direction. Never alerts.
	LabelMixed Label = "MIXED"
)

// Alertable reports whether the label is eligible to produce a notification.
// Only the price-confirmed labels alert.
func (l Label) Alertable() bool {
	return l == LabelMomentumBuilding || l == LabelDistribution
}

// ClassificationResult is the ephemeral output of one analyzer pass over one
// instrument's ledger. Recomputed every cycle, never persisted.
type ClassificationResult struct {
	Instrument         string
	Label              Label
	BuyBiasPct         float64
	ActivityMultiplier float64
	FastWindowNotional float64
	PriceChange1h      float64
	PriceChange5m      float64
	CurrentPrice       float64
}

// Thresholds are the tunable classification constants. The confirmation
// price-change percentage is mutable at runtime via the command channel;
// everything else is fixed at boot from config.
type Thresholds struct {
	WhaleNotional      float64 `json:"whaleNotional"`
	BuyBiasPct         float64 `json:"buyBiasPct"`
	SellBiasPct        float64 `json:"sellBiasPct"`
	ActivityMultiplier float64 `json:"activityMultiplier"`
	PriceConfirmPct    float64 `json:"priceConfirmPct"`
	MinSamples         int     `json:"minSamples"`
}

// DefaultThresholds returns the canonical defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WhaleNotional:      50000,
		BuyBiasPct:         65,
		SellBiasPct:        35,
		ActivityMultiplier: 2.0,
		PriceConfirmPct:    1.0,
		MinSamples:         10,
	}
}

// AlertMemory is the per-instrument state of the alert state machine.
// Mutated only by the state machine's evaluation step; persisted across restarts.
type AlertMemory struct {
	LastConfirmedLabel   Label           `json:"lastConfirmedLabel"`
	PendingLabel         Label           `json:"pendingLabel"`
	PendingCount         int             `json:"pendingCount"`
	LastAlertTimeByLabel map[Label]int64 `json:"lastAlertTimeByLabel"` // label -> unix ms
}

// NewAlertMemory returns an empty memory with an initialized cooldown map.
func NewAlertMemory() *AlertMemory {
	return &AlertMemory{LastAlertTimeByLabel: make(map[Label]int64)}
}

// LastAlertAt returns the last alert time for a label, or the zero time.
func (m *AlertMemory) LastAlertAt(label Label) time.Time {
	ms, ok := m.LastAlertTimeByLabel[label]
	if !ok || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
