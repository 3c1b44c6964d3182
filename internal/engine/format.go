package engine

import (
	"fmt"

	"github.com/flowbot/goradar/internal/domain"
)

// formatAlert renders the Markdown notification for a confirmed label.
func formatAlert(res *domain.ClassificationResult) string {
	var header string
	switch res.Label {
	case domain.LabelMomentumBuilding:
		header = fmt.Sprintf("🚀 *MOMENTUM BUILDING: %s*", res.Instrument)
	case domain.LabelDistribution:
		header = fmt.Sprintf("📉 *DISTRIBUTION: %s*", res.Instrument)
	default:
		header = fmt.Sprintf("*%s: %s*", res.Label, res.Instrument)
	}
	return fmt.Sprintf(
		"%s\nBias: %.1f%% buy\nActivity: %.1fx baseline\nFlow (10m): $%s\n5m: %+.2f%%  1h: %+.2f%%\nPrice: %g",
		header,
		res.BuyBiasPct,
		res.ActivityMultiplier,
		humanNotional(res.FastWindowNotional),
		res.PriceChange5m,
		res.PriceChange1h,
		res.CurrentPrice,
	)
}

// formatCheck renders the on-demand instrument snapshot.
func formatCheck(res *domain.ClassificationResult) string {
	return fmt.Sprintf(
		"🔎 *%s*: %s\nBias: %.1f%% buy\nActivity: %.1fx baseline\nFlow (10m): $%s\n5m: %+.2f%%  1h: %+.2f%%\nPrice: %g",
		res.Instrument,
		res.Label,
		res.BuyBiasPct,
		res.ActivityMultiplier,
		humanNotional(res.FastWindowNotional),
		res.PriceChange5m,
		res.PriceChange1h,
		res.CurrentPrice,
	)
}

// humanNotional renders a dollar amount compactly (12.3k, 4.5M).
func humanNotional(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
