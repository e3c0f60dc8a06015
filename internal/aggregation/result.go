package aggregation

import "tradeJournal/internal/domain"

// DiagnosticKind classifies a recoverable anomaly found during aggregation.
type DiagnosticKind string

const (
	KindMalformedFill DiagnosticKind = "malformed_fill"
	KindOrphanClose   DiagnosticKind = "orphan_close"
	KindEmptyTrade    DiagnosticKind = "empty_trade"
)

// Diagnostic records a fill that was skipped or flagged.
type Diagnostic struct {
	Kind       DiagnosticKind
	FillID     string
	Instrument string
	Err        error
}

// Result is the output of one aggregation pass over a wallet's fills.
type Result struct {
	WalletID    string
	Trades      []domain.Trade // Ordered by open time, ids 1..n
	Diagnostics []Diagnostic
}

// OrphanCloses counts closing fills that had no open position to attach to.
func (r *Result) OrphanCloses() int {
	return r.count(KindOrphanClose)
}

// Rejected returns the malformed fills that were skipped.
func (r *Result) Rejected() []Diagnostic {
	rejected := make([]Diagnostic, 0)
	for _, d := range r.Diagnostics {
		if d.Kind == KindMalformedFill {
			rejected = append(rejected, d)
		}
	}
	return rejected
}

// ClosedTrades returns only the trades that returned to flat.
func (r *Result) ClosedTrades() []domain.Trade {
	return r.byStatus(domain.StatusClosed)
}

// OpenTrades returns the positions still open at the end of the history.
func (r *Result) OpenTrades() []domain.Trade {
	return r.byStatus(domain.StatusOpen)
}

func (r *Result) count(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Result) byStatus(status domain.TradeStatus) []domain.Trade {
	trades := make([]domain.Trade, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.Status == status {
			trades = append(trades, t)
		}
	}
	return trades
}
