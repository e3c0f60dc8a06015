package ports

import (
	"context"

	"tradeJournal/internal/domain"
)

// FillSource supplies the raw fill history of a wallet, in any order.
type FillSource interface {
	LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error)
}
