// Package analyzer derives flow classifications from ledger state. Analyze is
// a pure function of its inputs so the evaluation and command paths can share
// it without touching alert bookkeeping.
package analyzer

import (
	"time"

	"github.com/flowbot/goradar/internal/domain"
	"github.com/flowbot/goradar/internal/ledger"
)

const (
	// FastWindow is the live-signal window.
	FastWindow = 10 * time.Minute
	// BaselineWindow normalizes activity against recent history and equals the
	// ledger retention horizon.
	BaselineWindow = 180 * time.Minute
)

// Analyze classifies one instrument's flow at time now. Returns nil when the
// ledger is missing or holds fewer than Thresholds.MinSamples events.
// engineStart caps the baseline-rate denominator during warm-up so the rate is
// not diluted before a full 3 hours of history exists.
func Analyze(instrument string, led *ledger.InstrumentLedger, now, engineStart time.Time, th domain.Thresholds) *domain.ClassificationResult {
	if led == nil || len(led.Trades) < th.MinSamples {
		return nil
	}

	nowMs := now.UnixMilli()
	fastCutoff := nowMs - FastWindow.Milliseconds()
	baseCutoff := nowMs - BaselineWindow.Milliseconds()

	var fastBuy, fastSell float64
	var fastCount, baseCount int
	for _, t := range led.Trades {
		if t.TimestampMs > baseCutoff {
			baseCount++
		}
		if t.TimestampMs > fastCutoff {
			fastCount++
			if t.IsBuy() {
				fastBuy += t.Notional
			} else {
				fastSell += t.Notional
			}
		}
	}

	fastNotional := fastBuy + fastSell
	buyBias := 50.0 // neutral default when the fast window is empty
	if fastNotional > 0 {
		buyBias = 100 * fastBuy / fastNotional
	}

	fastRate := float64(fastCount) / FastWindow.Minutes()

	baselineMinutes := now.Sub(engineStart).Minutes()
	if baselineMinutes < 1 {
		baselineMinutes = 1
	}
	if baselineMinutes > BaselineWindow.Minutes() {
		baselineMinutes = BaselineWindow.Minutes()
	}
	baseRate := float64(baseCount) / baselineMinutes

	activity := 1.0 // neutral default when there is no baseline yet
	if baseRate > 0 {
		activity = fastRate / baseRate
	}

	change5m := priceChange(led.Trades, nowMs, 5*time.Minute)
	change1h := priceChange(led.Trades, nowMs, time.Hour)

	label := classify(buyBias, activity, fastNotional, change5m, change1h, th)

	return &domain.ClassificationResult{
		Instrument:         instrument,
		Label:              label,
		BuyBiasPct:         buyBias,
		ActivityMultiplier: activity,
		FastWindowNotional: fastNotional,
		PriceChange1h:      change1h,
		PriceChange5m:      change5m,
		CurrentPrice:       led.LastPrice,
	}
}

// classify applies the precedence-ordered rules; first match wins.
func classify(buyBias, activity, fastNotional, change5m, change1h float64, th domain.Thresholds) domain.Label {
	hot := activity >= th.ActivityMultiplier && fastNotional > th.WhaleNotional

	if hot && buyBias >= th.BuyBiasPct {
		if change5m >= th.PriceConfirmPct || change1h >= th.PriceConfirmPct {
			return domain.LabelMomentumBuilding
		}
		return domain.LabelAccumulationPriceLagging
	}
	if hot && buyBias <= th.SellBiasPct {
		if change5m <= -th.PriceConfirmPct || change1h <= -th.PriceConfirmPct {
			return domain.LabelDistribution
		}
		return domain.LabelDistributionPriceResilient
	}
	return domain.LabelMixed
}

// priceChange is the percentage move between the oldest and newest trade
// inside the window, or 0 when fewer than two trades fall in it.
func priceChange(trades []domain.TradeEvent, nowMs int64, window time.Duration) float64 {
	cutoff := nowMs - window.Milliseconds()

	first := -1
	for i, t := range trades {
		if t.TimestampMs > cutoff {
			first = i
			break
		}
	}
	if first < 0 || first == len(trades)-1 {
		return 0
	}
	oldest := trades[first].UnitPrice
	newest := trades[len(trades)-1].UnitPrice
	if oldest == 0 {
		return 0
	}
	return 100 * (newest - oldest) / oldest
}
