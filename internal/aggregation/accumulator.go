package aggregation

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
)

// flatEpsilon is the largest residual position still treated as flat.
var flatEpsilon = decimal.New(1, -9)

// accumulator holds the running state of one trade while its position is open.
type accumulator struct {
	walletID     string
	instrument   string
	direction    domain.Direction
	openTime     time.Time
	openedByFlip bool

	entryValue  decimal.Decimal // sum of price*size over opening fills
	entrySize   decimal.Decimal
	exitValue   decimal.Decimal // sum of price*size over closing fills
	exitSize    decimal.Decimal
	realizedPnl decimal.Decimal
	fees        decimal.Decimal

	mae     float64
	mfe     float64
	fillIDs []string
}

func newAccumulator(walletID, instrument string, direction domain.Direction, openTime time.Time, openedByFlip bool) *accumulator {
	return &accumulator{
		walletID:     walletID,
		instrument:   instrument,
		direction:    direction,
		openTime:     openTime,
		openedByFlip: openedByFlip,
		fillIDs:      make([]string, 0, 4),
	}
}

// attach records the fill as part of the trade together with its pnl and fee.
func (a *accumulator) attach(f domain.Fill) {
	a.fillIDs = append(a.fillIDs, f.ID)
	a.realizedPnl = a.realizedPnl.Add(f.RealizedPnl)
	a.fees = a.fees.Add(f.Fee)
}

func (a *accumulator) addEntry(price, size decimal.Decimal) {
	a.entryValue = a.entryValue.Add(price.Mul(size))
	a.entrySize = a.entrySize.Add(size)
}

func (a *accumulator) addExit(price, size decimal.Decimal) {
	a.exitValue = a.exitValue.Add(price.Mul(size))
	a.exitSize = a.exitSize.Add(size)
}

func (a *accumulator) averageEntry() decimal.Decimal {
	if !a.entrySize.IsPositive() {
		return decimal.Zero
	}
	return a.entryValue.Div(a.entrySize)
}

// observe updates the excursions with a fill price, measured against the
// average entry as it stands after that fill.
func (a *accumulator) observe(price decimal.Decimal) {
	avg := a.averageEntry()
	if !avg.IsPositive() {
		return
	}
	move := price.Sub(avg).Div(avg)
	if a.direction == domain.Short {
		move = move.Neg()
	}
	excursion := move.InexactFloat64()
	if excursion > a.mfe {
		a.mfe = excursion
	}
	if -excursion > a.mae {
		a.mae = -excursion
	}
}

// snapshot builds the trade as it currently stands, still open.
func (a *accumulator) snapshot() domain.Trade {
	ids := make([]string, len(a.fillIDs))
	copy(ids, a.fillIDs)
	return domain.Trade{
		WalletID:     a.walletID,
		Instrument:   a.instrument,
		Direction:    a.direction,
		Status:       domain.StatusOpen,
		EntryPrice:   a.averageEntry(),
		Size:         a.entrySize,
		RealizedPnl:  a.realizedPnl,
		Fees:         a.fees,
		OpenTime:     a.openTime,
		MAE:          a.mae,
		MFE:          a.mfe,
		FillIDs:      ids,
		OpenedByFlip: a.openedByFlip,
	}
}

// finalize closes the trade at closeTime.
func (a *accumulator) finalize(closeTime time.Time) domain.Trade {
	t := a.snapshot()
	t.Status = domain.StatusClosed
	if a.exitSize.IsPositive() {
		t.ExitPrice = decimal.NewNullDecimal(a.exitValue.Div(a.exitSize))
	}
	hold := closeTime.Sub(a.openTime)
	t.CloseTime = &closeTime
	t.HoldDuration = &hold
	return t
}
