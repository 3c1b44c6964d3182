package domain

// Side is the aggressor side of a trade, derived from the feed's
// maker flag: taker-buy -> BUY, taker-sell -> SELL.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeEvent is one executed trade on a watched instrument.
// Immutable once created.
type TradeEvent struct {
	Instrument  string  `json:"instrument"`
	UnitPrice   float64 `json:"unitPrice"`
	Notional    float64 `json:"notionalValue"`
	Side        Side    `json:"side"`
	TimestampMs int64   `json:"timestampMs"`
}

// IsBuy reports whether the taker was the buyer.
func (t TradeEvent) IsBuy() bool {
	return t.Side == SideBuy
}
