package ports

import (
	"context"

	"tradeJournal/internal/domain"
)

// FillRepository caches raw exchange fills per wallet.
type FillRepository interface {
	// SaveFills stores fills, ignoring ids that are already cached. Returns the number inserted.
	SaveFills(ctx context.Context, walletID string, fills []domain.RawFill) (int, error)
	// LoadFills returns every cached fill of the wallet ordered by time ascending.
	LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error)
}

// TradeRepository stores the aggregated trades of a wallet.
type TradeRepository interface {
	// ReplaceTrades drops the wallet's stored trades and saves the given set.
	ReplaceTrades(ctx context.Context, walletID string, trades []domain.Trade) error
	// FindTrades retrieves the wallet's trades ordered by open time.
	// Returns an empty slice when nothing is stored.
	FindTrades(ctx context.Context, walletID string) ([]domain.Trade, error)
}
