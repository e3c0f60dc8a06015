package aggregation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// Config holds configuration for the aggregation engine.
type Config struct {
	Logger ports.Logger
	// DiscardOpen drops the still-open position at the end of the history.
	DiscardOpen bool
	// DropEmptyTrades skips closed trades with zero pnl and zero fees.
	DropEmptyTrades bool
	// Parallel folds instruments concurrently. Output is identical either way.
	Parallel bool
}

// Engine turns a wallet's fill history into round-trip trades.
// It keeps no state between calls.
type Engine struct {
	cfg    Config
	logger ports.Logger
}

// NewEngine creates a new aggregation engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for aggregation engine")
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// instrumentResult is the output of folding one instrument.
type instrumentResult struct {
	trades      []domain.Trade
	diagnostics []Diagnostic
}

// Aggregate groups the wallet's fills into trades.
//
// Fills must be sorted by time within each instrument; a regression fails the
// whole pass with ports.ErrUnsortedInput. Malformed fills and orphan closes are
// skipped and reported in Result.Diagnostics.
func (e *Engine) Aggregate(ctx context.Context, walletID string, raws []domain.RawFill) (*Result, error) {
	if walletID == "" {
		return nil, ports.ErrInvalidWallet
	}

	result := &Result{WalletID: walletID, Trades: make([]domain.Trade, 0), Diagnostics: make([]Diagnostic, 0)}
	byInstrument := make(map[string][]domain.Fill)
	for _, raw := range raws {
		f, err := ParseFill(raw)
		if err == nil && f.WalletID != "" && f.WalletID != walletID {
			err = fmt.Errorf("%w: fill %s belongs to wallet %s", ports.ErrMalformedFill, f.ID, f.WalletID)
		}
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Kind: KindMalformedFill, FillID: raw.ID, Instrument: raw.Instrument, Err: err,
			})
			e.logger.Warn(ctx, "Skipping malformed fill", map[string]interface{}{"fillID": raw.ID, "error": err.Error()})
			continue
		}
		f.WalletID = walletID
		byInstrument[f.Instrument] = append(byInstrument[f.Instrument], f)
	}

	instruments := make([]string, 0, len(byInstrument))
	for instrument := range byInstrument {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)

	results := make([]instrumentResult, len(instruments))
	if e.cfg.Parallel {
		var g errgroup.Group
		for i, instrument := range instruments {
			i, instrument := i, instrument
			g.Go(func() error {
				res, err := e.foldInstrument(ctx, walletID, instrument, byInstrument[instrument])
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, instrument := range instruments {
			res, err := e.foldInstrument(ctx, walletID, instrument, byInstrument[instrument])
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	}

	for _, res := range results {
		result.Trades = append(result.Trades, res.trades...)
		result.Diagnostics = append(result.Diagnostics, res.diagnostics...)
	}
	// Instruments are already concatenated in name order, so a stable sort on
	// open time keeps each instrument's own sequence on ties.
	sort.SliceStable(result.Trades, func(i, j int) bool {
		a, b := result.Trades[i], result.Trades[j]
		if !a.OpenTime.Equal(b.OpenTime) {
			return a.OpenTime.Before(b.OpenTime)
		}
		return a.Instrument < b.Instrument
	})
	for i := range result.Trades {
		result.Trades[i].ID = int64(i + 1)
	}

	e.logger.Debug(ctx, "Aggregated fills into trades", map[string]interface{}{
		"wallet":      walletID,
		"fills":       len(raws),
		"instruments": len(instruments),
		"trades":      len(result.Trades),
		"diagnostics": len(result.Diagnostics),
	})
	return result, nil
}

// foldInstrument runs the single pass over one instrument's fills.
func (e *Engine) foldInstrument(ctx context.Context, walletID, instrument string, fills []domain.Fill) (instrumentResult, error) {
	res := instrumentResult{trades: make([]domain.Trade, 0)}
	var acc *accumulator

	for i := 1; i < len(fills); i++ {
		if f, last := fills[i], fills[i-1].Timestamp; f.Timestamp.Before(last) {
			return instrumentResult{}, fmt.Errorf("%w: fill %s on %s at %s comes after a fill at %s",
				ports.ErrUnsortedInput, f.ID, instrument, f.Timestamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
		}
	}

	for _, f := range chainSameTime(fills) {
		switch f.Action {
		case domain.OpenIncrease:
			if acc == nil {
				acc = newAccumulator(walletID, instrument, openingDirection(f), f.Timestamp, false)
			}
			acc.attach(f)
			acc.addEntry(f.Price, f.Size)
			acc.observe(f.Price)

		case domain.CloseDecrease:
			if acc == nil {
				res.diagnostics = append(res.diagnostics, Diagnostic{
					Kind:       KindOrphanClose,
					FillID:     f.ID,
					Instrument: instrument,
					Err:        fmt.Errorf("%w: fill %s on %s", ports.ErrOrphanClose, f.ID, instrument),
				})
				e.logger.Debug(ctx, "Skipping orphan close", map[string]interface{}{"fillID": f.ID, "instrument": instrument})
				continue
			}
			acc.attach(f)
			end := f.ResultingPosition()

			switch {
			case end.Abs().LessThanOrEqual(flatEpsilon):
				acc.addExit(f.Price, f.Size)
				acc.observe(f.Price)
				e.emit(ctx, &res, acc.finalize(f.Timestamp))
				acc = nil

			case crossedZero(f.StartingPosition, end):
				// Only the part of the fill that flattened the old side is an exit;
				// the remainder opens the opposite side at the same price and time.
				acc.addExit(f.Price, f.StartingPosition.Abs())
				acc.observe(f.Price)
				e.emit(ctx, &res, acc.finalize(f.Timestamp))

				acc = newAccumulator(walletID, instrument, directionOf(end), f.Timestamp, true)
				acc.fillIDs = append(acc.fillIDs, f.ID)
				acc.addEntry(f.Price, end.Abs())
				acc.observe(f.Price)
				e.logger.Debug(ctx, "Position flipped", map[string]interface{}{"fillID": f.ID, "instrument": instrument, "residual": end.String()})

			default:
				acc.addExit(f.Price, f.Size)
				acc.observe(f.Price)
			}
		}
	}

	if acc != nil && !e.cfg.DiscardOpen {
		res.trades = append(res.trades, acc.snapshot())
	}
	return res, nil
}

func (e *Engine) emit(ctx context.Context, res *instrumentResult, t domain.Trade) {
	if e.cfg.DropEmptyTrades && t.RealizedPnl.IsZero() && t.Fees.IsZero() {
		res.diagnostics = append(res.diagnostics, Diagnostic{
			Kind:       KindEmptyTrade,
			FillID:     t.FillIDs[len(t.FillIDs)-1],
			Instrument: t.Instrument,
			Err:        fmt.Errorf("%w: %s opened %s", ports.ErrEmptyTrade, t.Instrument, t.OpenTime.Format(time.RFC3339)),
		})
		e.logger.Debug(ctx, "Dropping empty trade", map[string]interface{}{"instrument": t.Instrument, "fills": len(t.FillIDs)})
		return
	}
	res.trades = append(res.trades, t)
}

// openingDirection is the side of the position an opening fill leaves behind.
func openingDirection(f domain.Fill) domain.Direction {
	end := f.ResultingPosition()
	if end.IsZero() {
		if f.Side == domain.Buy {
			return domain.Long
		}
		return domain.Short
	}
	return directionOf(end)
}

func directionOf(position decimal.Decimal) domain.Direction {
	if position.IsNegative() {
		return domain.Short
	}
	return domain.Long
}

func crossedZero(start, end decimal.Decimal) bool {
	return start.Sign() != 0 && end.Sign() != 0 && start.Sign() != end.Sign()
}
