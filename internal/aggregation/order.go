package aggregation

import (
	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
)

// chainSameTime restores execution order inside runs of fills that share a
// timestamp. Fills of one order often land in the same millisecond and the
// exchange may list them newest first, so each run is re-linked by position:
// a fill's starting position is the previous fill's resulting position.
// The input must already be time ordered; runs that do not link stay as given.
func chainSameTime(fills []domain.Fill) []domain.Fill {
	ordered := make([]domain.Fill, 0, len(fills))
	for start := 0; start < len(fills); {
		end := start + 1
		for end < len(fills) && fills[end].Timestamp.Equal(fills[start].Timestamp) {
			end++
		}
		run := fills[start:end]
		if len(run) == 1 {
			ordered = append(ordered, run[0])
		} else {
			var prev *decimal.Decimal
			if len(ordered) > 0 {
				p := ordered[len(ordered)-1].ResultingPosition()
				prev = &p
			}
			ordered = append(ordered, linkRun(run, prev)...)
		}
		start = end
	}
	return ordered
}

// linkRun orders one same-time run. prev is the position before the run,
// nil when the run starts the history.
func linkRun(run []domain.Fill, prev *decimal.Decimal) []domain.Fill {
	remaining := make([]domain.Fill, len(run))
	copy(remaining, run)
	linked := make([]domain.Fill, 0, len(run))

	for len(remaining) > 0 {
		next := -1
		if prev != nil {
			for i, f := range remaining {
				if samePosition(f.StartingPosition, *prev) {
					next = i
					break
				}
			}
		}
		if next < 0 {
			next = chainHead(remaining)
		}
		f := remaining[next]
		remaining = append(remaining[:next], remaining[next+1:]...)
		linked = append(linked, f)
		p := f.ResultingPosition()
		prev = &p
	}
	return linked
}

// chainHead picks the fill no other fill in the run leads into, or the first
// fill when every candidate is ambiguous.
func chainHead(run []domain.Fill) int {
	for i, f := range run {
		fed := false
		for j, other := range run {
			if i != j && samePosition(other.ResultingPosition(), f.StartingPosition) {
				fed = true
				break
			}
		}
		if !fed {
			return i
		}
	}
	return 0
}

func samePosition(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(flatEpsilon)
}
