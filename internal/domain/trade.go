package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a round-trip position built from one or more fills.
// Exit fields stay empty while the trade is open.
type Trade struct {
	ID           int64 // Monotonic per aggregation pass, assigned after ordering
	WalletID     string
	Instrument   string
	Direction    Direction
	Status       TradeStatus
	EntryPrice   decimal.Decimal     // Size-weighted average of opening fills
	ExitPrice    decimal.NullDecimal // Size-weighted average of closing fills
	Size         decimal.Decimal     // Total opened size
	RealizedPnl  decimal.Decimal
	Fees         decimal.Decimal
	OpenTime     time.Time
	CloseTime    *time.Time
	HoldDuration *time.Duration
	MAE          float64 // Max adverse excursion, fraction of entry
	MFE          float64 // Max favorable excursion, fraction of entry
	FillIDs      []string
	OpenedByFlip bool // First fill id both closed the previous trade and opened this one
}

// IsOpen checks if the trade is still holding a position.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// NetPnl returns realized pnl minus fees.
func (t *Trade) NetPnl() decimal.Decimal {
	return t.RealizedPnl.Sub(t.Fees)
}
