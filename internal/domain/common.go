package domain

// Side is the aggressor side of a fill as reported by the exchange.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Action tells whether a fill grows or shrinks the absolute position size.
// It comes from the exchange's own directional tag and is never re-derived.
type Action string

const (
	OpenIncrease  Action = "OPEN_INCREASE"
	CloseDecrease Action = "CLOSE_DECREASE"
)

// Direction is the side of the position a trade holds.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// TradeStatus represents whether a trade has returned to flat.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)
