package analytics

import (
	"strings"
	"time"

	"tradeJournal/internal/domain"
)

// Filter narrows a trade set the way a journal view does.
// Zero-valued fields do not filter.
type Filter struct {
	Instrument  string
	Direction   domain.Direction
	From        time.Time // inclusive, on open time
	To          time.Time // exclusive, on open time
	IncludeOpen bool
}

// Match reports whether a single trade passes the filter.
func (f Filter) Match(t domain.Trade) bool {
	if t.IsOpen() && !f.IncludeOpen {
		return false
	}
	if f.Instrument != "" && !strings.EqualFold(f.Instrument, t.Instrument) {
		return false
	}
	if f.Direction != "" && f.Direction != t.Direction {
		return false
	}
	if !f.From.IsZero() && t.OpenTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.OpenTime.Before(f.To) {
		return false
	}
	return true
}

// Apply returns the matching trades in their original order.
func (f Filter) Apply(trades []domain.Trade) []domain.Trade {
	matched := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if f.Match(t) {
			matched = append(matched, t)
		}
	}
	return matched
}
