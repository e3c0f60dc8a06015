package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawFill is a fill exactly as the exchange (or the local fills cache) delivers it.
// Numeric fields stay as text so they can be parsed without float rounding.
type RawFill struct {
	ID            string // Exchange trade id, unique per wallet
	Instrument    string // Coin / symbol
	Price         string
	Size          string
	Side          string // "B"/"A" or "buy"/"sell"
	Dir           string // Directional tag, e.g. "Open Long", "Close Short"
	Time          int64  // Unix milliseconds
	StartPosition string // Signed position before this fill
	ClosedPnl     string
	Fee           string
	OrderID       string // Optional, audit only
	WalletID      string
}

// Fill is one parsed, validated exchange execution.
type Fill struct {
	ID               string
	WalletID         string
	Instrument       string
	Price            decimal.Decimal
	Size             decimal.Decimal // Always positive
	Side             Side
	Action           Action
	Timestamp        time.Time
	StartingPosition decimal.Decimal
	RealizedPnl      decimal.Decimal
	Fee              decimal.Decimal
}

// SignedSize returns the size with the sign of the side (+ buy, - sell).
func (f Fill) SignedSize() decimal.Decimal {
	if f.Side == Buy {
		return f.Size
	}
	return f.Size.Neg()
}

// ResultingPosition is the signed position right after this fill.
func (f Fill) ResultingPosition() decimal.Decimal {
	return f.StartingPosition.Add(f.SignedSize())
}
