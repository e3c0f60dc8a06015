package app

import (
	"context"
	"errors"
	"fmt"

	"tradeJournal/config"
	"tradeJournal/internal/aggregation"
	"tradeJournal/internal/analytics"
	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// SyncReport summarizes one sync of a wallet.
type SyncReport struct {
	WalletID          string
	FillsLoaded       int // Fills read from the source
	FillsCached       int // New fills written to the cache
	FillsTotal        int // Fills in the cache after the sync
	Trades            int
	OpenTrades        int
	OrphanCloses      int
	Rejected          int
	ReconcileFailures int
}

// JournalService orchestrates fill caching, trade aggregation and analytics.
type JournalService struct {
	cfg       *config.Config
	logger    ports.Logger
	source    ports.FillSource // Optional; without it sync re-aggregates the cache
	fillRepo  ports.FillRepository
	tradeRepo ports.TradeRepository
	engine    *aggregation.Engine
}

// NewJournalService creates a new application service instance.
func NewJournalService(
	cfg *config.Config,
	logger ports.Logger,
	source ports.FillSource,
	fillRepo ports.FillRepository,
	tradeRepo ports.TradeRepository,
) (*JournalService, error) {
	// Validate dependencies
	if cfg == nil || logger == nil || fillRepo == nil || tradeRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService")
	}

	engine, err := aggregation.NewEngine(aggregation.Config{
		Logger:          logger,
		DiscardOpen:     !cfg.IncludeOpenTrades,
		DropEmptyTrades: cfg.DropEmptyTrades,
		Parallel:        cfg.ParallelInstruments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregation engine: %w", err)
	}

	return &JournalService{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		fillRepo:  fillRepo,
		tradeRepo: tradeRepo,
		engine:    engine,
	}, nil
}

// Sync pulls the wallet's fills into the cache and rebuilds its trades from
// the whole cached history.
func (s *JournalService) Sync(ctx context.Context, walletID string) (*SyncReport, error) {
	walletID, err := s.wallet(walletID)
	if err != nil {
		return nil, err
	}
	report := &SyncReport{WalletID: walletID}

	if s.source != nil {
		raws, err := s.source.LoadFills(ctx, walletID)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to load fills from source", map[string]interface{}{"wallet": walletID})
			return nil, fmt.Errorf("failed to load fills for wallet %s: %w", walletID, err)
		}
		report.FillsLoaded = len(raws)

		report.FillsCached, err = s.fillRepo.SaveFills(ctx, walletID, raws)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to cache fills", map[string]interface{}{"wallet": walletID})
			return nil, fmt.Errorf("failed to cache fills for wallet %s: %w", walletID, err)
		}
	}

	cached, err := s.fillRepo.LoadFills(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached fills for wallet %s: %w", walletID, err)
	}
	report.FillsTotal = len(cached)

	result, err := s.engine.Aggregate(ctx, walletID, cached)
	if err != nil {
		s.logger.Error(ctx, err, "Aggregation failed", map[string]interface{}{"wallet": walletID})
		return nil, fmt.Errorf("failed to aggregate fills for wallet %s: %w", walletID, err)
	}

	report.ReconcileFailures = s.audit(ctx, result, cached)

	if err := s.tradeRepo.ReplaceTrades(ctx, walletID, result.Trades); err != nil {
		s.logger.Error(ctx, err, "Failed to store trades", map[string]interface{}{"wallet": walletID})
		return nil, fmt.Errorf("failed to store trades for wallet %s: %w", walletID, err)
	}

	report.Trades = len(result.Trades)
	report.OpenTrades = len(result.OpenTrades())
	report.OrphanCloses = result.OrphanCloses()
	report.Rejected = len(result.Rejected())

	s.logger.Info(ctx, "Wallet synced", map[string]interface{}{
		"wallet":        walletID,
		"fills_loaded":  report.FillsLoaded,
		"fills_cached":  report.FillsCached,
		"fills_total":   report.FillsTotal,
		"trades":        report.Trades,
		"open_trades":   report.OpenTrades,
		"orphan_closes": report.OrphanCloses,
		"rejected":      report.Rejected,
	})
	return report, nil
}

// audit checks every trade against its fills and returns the number that
// do not add up. Mismatches are logged, never fatal.
func (s *JournalService) audit(ctx context.Context, result *aggregation.Result, fills []domain.RawFill) int {
	index := aggregation.IndexFills(fills)
	failures := 0
	for _, t := range result.Trades {
		if err := aggregation.Reconcile(t, index); err != nil {
			failures++
			s.logger.Error(ctx, err, "Trade does not reconcile with its fills", map[string]interface{}{
				"wallet":     result.WalletID,
				"trade_id":   t.ID,
				"instrument": t.Instrument,
			})
		}
	}
	return failures
}

// Trades returns the wallet's stored trades that pass the filter.
// A wallet with no cached fills is synced first when a source is configured.
func (s *JournalService) Trades(ctx context.Context, walletID string, filter analytics.Filter) ([]domain.Trade, error) {
	walletID, err := s.wallet(walletID)
	if err != nil {
		return nil, err
	}

	trades, err := s.tradeRepo.FindTrades(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to find trades for wallet %s: %w", walletID, err)
	}

	if len(trades) == 0 && s.source != nil {
		cached, err := s.fillRepo.LoadFills(ctx, walletID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cached fills for wallet %s: %w", walletID, err)
		}
		if len(cached) > 0 {
			// Synced before; the history simply has no trades in it.
			return filter.Apply(trades), nil
		}
		s.logger.Info(ctx, "No cached fills, syncing wallet", map[string]interface{}{"wallet": walletID})
		if _, err := s.Sync(ctx, walletID); err != nil {
			return nil, err
		}
		trades, err = s.tradeRepo.FindTrades(ctx, walletID)
		if err != nil {
			return nil, fmt.Errorf("failed to find trades for wallet %s: %w", walletID, err)
		}
	}

	return filter.Apply(trades), nil
}

// Statistics computes performance figures over the wallet's filtered trades.
// Open trades are always passed through so they are counted; only closed
// trades are measured. An unset basis falls back to the configured one.
func (s *JournalService) Statistics(ctx context.Context, walletID string, filter analytics.Filter, opts analytics.Options) (*analytics.Statistics, error) {
	filter.IncludeOpen = true
	trades, err := s.Trades(ctx, walletID, filter)
	if err != nil {
		return nil, err
	}
	if opts.Basis == "" {
		opts.Basis = s.cfg.StatsBasis
	}
	return analytics.ComputeStatistics(trades, opts), nil
}

func (s *JournalService) wallet(walletID string) (string, error) {
	if walletID == "" {
		walletID = s.cfg.Wallet
	}
	if walletID == "" {
		return "", fmt.Errorf("no wallet given and none configured: %w", ports.ErrInvalidWallet)
	}
	return walletID, nil
}

// IsUserError reports whether err stems from bad input rather than a failure
// of the journal itself.
func IsUserError(err error) bool {
	return errors.Is(err, ports.ErrInvalidWallet) ||
		errors.Is(err, ports.ErrUnsortedInput) ||
		errors.Is(err, ports.ErrInvalidRequest) ||
		errors.Is(err, ports.ErrNotFound)
}
