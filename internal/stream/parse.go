package stream

import (
	"encoding/json"
	"strconv"

	"github.com/flowbot/goradar/internal/domain"
)

// combinedEnvelope wraps every frame on a combined stream.
type combinedEnvelope struct {
	Stream string   `json:"stream"`
	Data   aggTrade `json:"data"`
}

// aggTrade is the fields of an aggregated trade event we consume.
type aggTrade struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
	TradeTimeMs  int64  `json:"T"`
}

// ParseCombinedTrade decodes one combined-stream frame into a TradeEvent.
// Returns false for anything malformed or incomplete.
func ParseCombinedTrade(raw []byte) (domain.TradeEvent, bool) {
	var env combinedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.TradeEvent{}, false
	}
	d := env.Data
	if d.Symbol == "" || d.TradeTimeMs == 0 {
		return domain.TradeEvent{}, false
	}
	price, err := strconv.ParseFloat(d.Price, 64)
	if err != nil || price <= 0 {
		return domain.TradeEvent{}, false
	}
	qty, err := strconv.ParseFloat(d.Quantity, 64)
	if err != nil || qty < 0 {
		return domain.TradeEvent{}, false
	}

	side := domain.SideBuy
	if d.IsBuyerMaker {
		// Buyer was the maker, so the taker sold.
		side = domain.SideSell
	}

	return domain.TradeEvent{
		Instrument:  d.Symbol,
		UnitPrice:   price,
		Notional:    price * qty,
		Side:        side,
		TimestampMs: d.TradeTimeMs,
	}, true
}
