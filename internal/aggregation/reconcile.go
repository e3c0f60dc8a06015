package aggregation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// Reconcile checks that a trade's size, pnl and fees are exactly the sums of
// its fills. The fill that opened a trade by flipping contributes its
// residual size only; its pnl and fee belong to the trade it closed.
func Reconcile(trade domain.Trade, fills map[string]domain.Fill) error {
	size, pnl, fees := decimal.Zero, decimal.Zero, decimal.Zero
	for i, id := range trade.FillIDs {
		f, ok := fills[id]
		if !ok {
			return fmt.Errorf("trade %d references fill %s: %w", trade.ID, id, ports.ErrNotFound)
		}
		if i == 0 && trade.OpenedByFlip {
			size = size.Add(f.ResultingPosition().Abs())
			continue
		}
		pnl = pnl.Add(f.RealizedPnl)
		fees = fees.Add(f.Fee)
		if f.Action == domain.OpenIncrease {
			size = size.Add(f.Size)
		}
	}

	switch {
	case !size.Equal(trade.Size):
		return fmt.Errorf("trade %d: size %s does not match fills total %s", trade.ID, trade.Size, size)
	case !pnl.Equal(trade.RealizedPnl):
		return fmt.Errorf("trade %d: realized pnl %s does not match fills total %s", trade.ID, trade.RealizedPnl, pnl)
	case !fees.Equal(trade.Fees):
		return fmt.Errorf("trade %d: fees %s do not match fills total %s", trade.ID, trade.Fees, fees)
	}
	return nil
}
