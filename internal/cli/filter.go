package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradeJournal/internal/analytics"
	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// filterFlags are the trade selection flags shared by trades, stats and export.
type filterFlags struct {
	instrument string
	direction  string
	from       string
	to         string
	open       bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.instrument, "instrument", "i", "", "Only trades on this instrument")
	cmd.Flags().StringVar(&f.direction, "direction", "", "Only long or short trades")
	cmd.Flags().StringVar(&f.from, "from", "", "Trades opened at or after this time (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Trades opened before this time (YYYY-MM-DD or RFC3339)")
}

// registerOpen adds --open for views that list trades.
func (f *filterFlags) registerOpen(cmd *cobra.Command, openDefault bool) {
	cmd.Flags().BoolVar(&f.open, "open", openDefault, "Include still-open trades")
}

func (f *filterFlags) build() (analytics.Filter, error) {
	filter := analytics.Filter{
		Instrument:  strings.TrimSpace(f.instrument),
		IncludeOpen: f.open,
	}

	switch d := domain.Direction(strings.ToLower(strings.TrimSpace(f.direction))); d {
	case "":
	case domain.Long, domain.Short:
		filter.Direction = d
	default:
		return filter, fmt.Errorf("direction must be 'long' or 'short', got '%s': %w", f.direction, ports.ErrInvalidRequest)
	}

	var err error
	if filter.From, err = parseTime(f.from); err != nil {
		return filter, fmt.Errorf("invalid --from: %w", err)
	}
	if filter.To, err = parseTime(f.to); err != nil {
		return filter, fmt.Errorf("invalid --to: %w", err)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return filter, fmt.Errorf("--from must be before --to: %w", ports.ErrInvalidRequest)
	}
	return filter, nil
}

// parseTime accepts a UTC calendar day or a full RFC3339 timestamp.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized time '%s': %w", s, ports.ErrInvalidRequest)
	}
	return t.UTC(), nil
}
