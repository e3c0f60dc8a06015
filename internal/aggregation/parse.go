package aggregation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// directionTags maps the exchange's directional tag to the fill action.
// Flip tags close the current side; the engine opens the residual itself.
var directionTags = map[string]domain.Action{
	"open long":    domain.OpenIncrease,
	"open short":   domain.OpenIncrease,
	"close long":   domain.CloseDecrease,
	"close short":  domain.CloseDecrease,
	"long > short": domain.CloseDecrease,
	"short > long": domain.CloseDecrease,
}

// ParseAction converts a directional tag such as "Open Long" into an Action.
func ParseAction(dir string) (domain.Action, bool) {
	action, ok := directionTags[strings.ToLower(strings.TrimSpace(dir))]
	return action, ok
}

// ParseSide accepts the exchange codes ("B"/"A") as well as plain buy/sell.
func ParseSide(side string) (domain.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case "B", "BUY", "BID":
		return domain.Buy, true
	case "A", "S", "SELL", "ASK":
		return domain.Sell, true
	default:
		return "", false
	}
}

// ParseFill validates a raw fill and parses its numeric text into decimals.
// Every failure wraps ports.ErrMalformedFill and names the fill id.
func ParseFill(raw domain.RawFill) (domain.Fill, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return domain.Fill{}, fmt.Errorf("%w: missing fill id (instrument %q, time %d)", ports.ErrMalformedFill, raw.Instrument, raw.Time)
	}
	malformed := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: fill %s: %s", ports.ErrMalformedFill, id, fmt.Sprintf(format, args...))
	}

	instrument := strings.TrimSpace(raw.Instrument)
	if instrument == "" {
		return domain.Fill{}, malformed("missing instrument")
	}
	if raw.Time <= 0 {
		return domain.Fill{}, malformed("missing or invalid time %d", raw.Time)
	}
	side, ok := ParseSide(raw.Side)
	if !ok {
		return domain.Fill{}, malformed("unknown side %q", raw.Side)
	}
	action, ok := ParseAction(raw.Dir)
	if !ok {
		return domain.Fill{}, malformed("unknown direction tag %q", raw.Dir)
	}

	price, err := parseDecimal(id, "px", raw.Price, true)
	if err != nil {
		return domain.Fill{}, err
	}
	if !price.IsPositive() {
		return domain.Fill{}, malformed("px must be positive, got %s", price)
	}
	size, err := parseDecimal(id, "sz", raw.Size, true)
	if err != nil {
		return domain.Fill{}, err
	}
	if !size.IsPositive() {
		return domain.Fill{}, malformed("sz must be positive, got %s", size)
	}
	startPos, err := parseDecimal(id, "startPosition", raw.StartPosition, false)
	if err != nil {
		return domain.Fill{}, err
	}
	pnl, err := parseDecimal(id, "closedPnl", raw.ClosedPnl, false)
	if err != nil {
		return domain.Fill{}, err
	}
	fee, err := parseDecimal(id, "fee", raw.Fee, false)
	if err != nil {
		return domain.Fill{}, err
	}

	return domain.Fill{
		ID:               id,
		WalletID:         raw.WalletID,
		Instrument:       instrument,
		Price:            price,
		Size:             size,
		Side:             side,
		Action:           action,
		Timestamp:        time.UnixMilli(raw.Time).UTC(),
		StartingPosition: startPos,
		RealizedPnl:      pnl,
		Fee:              fee,
	}, nil
}

// IndexFills parses fills and keys them by id, dropping the malformed ones.
func IndexFills(raws []domain.RawFill) map[string]domain.Fill {
	index := make(map[string]domain.Fill, len(raws))
	for _, raw := range raws {
		f, err := ParseFill(raw)
		if err != nil {
			continue
		}
		index[f.ID] = f
	}
	return index
}

func parseDecimal(fillID, field, value string, required bool) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%w: fill %s: missing %s", ports.ErrMalformedFill, fillID, field)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: fill %s: invalid %s %q: %w", ports.ErrMalformedFill, fillID, field, value, err)
	}
	return d, nil
}
