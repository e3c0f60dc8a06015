package fillfile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// Reader loads exported user fills from disk. It implements ports.FillSource.
//
// Path may be a single JSON file or a directory holding one <wallet>.json
// per wallet. A file holds either a bare array of fills or an object with a
// "fills" array, as produced by the exchange's userFills endpoint.
type Reader struct {
	path   string
	logger ports.Logger
}

// Config holds configuration for the fills file reader.
type Config struct {
	Path   string
	Logger ports.Logger
}

// New creates a reader for the given path.
func New(cfg Config) (*Reader, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for fills reader")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("fills path is required: %w", ports.ErrConfigurationError)
	}
	return &Reader{path: cfg.Path, logger: cfg.Logger}, nil
}

// record mirrors one element of the exchange's fills payload.
type record struct {
	Coin          string     `json:"coin"`
	Px            string     `json:"px"`
	Sz            string     `json:"sz"`
	Side          string     `json:"side"`
	Dir           string     `json:"dir"`
	Time          int64      `json:"time"`
	StartPosition string     `json:"startPosition"`
	ClosedPnl     string     `json:"closedPnl"`
	Fee           string     `json:"fee"`
	Tid           flexString `json:"tid"`
	Oid           flexString `json:"oid"`
	Hash          string     `json:"hash"`
}

type envelope struct {
	Fills []record `json:"fills"`
}

// flexString accepts ids encoded as either JSON numbers or strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// LoadFills reads every fill recorded for walletID.
func (r *Reader) LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error) {
	if walletID == "" {
		return nil, ports.ErrInvalidWallet
	}
	path, err := r.resolve(walletID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fills file '%s': %w: %w", path, ports.ErrSourceFailed, err)
	}

	records, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fills file '%s': %w: %w", path, ports.ErrSourceFailed, err)
	}

	// The exchange returns newest first; keep fills in execution order so
	// same-millisecond pieces of one order are cached as they happened.
	if n := len(records); n > 1 && records[0].Time > records[n-1].Time {
		slices.Reverse(records)
	}

	fills := make([]domain.RawFill, 0, len(records))
	for i, rec := range records {
		id := string(rec.Tid)
		if id == "" {
			// Older exports carry no trade id; fall back to hash and position in file.
			id = fmt.Sprintf("%s-%d", rec.Hash, i)
		}
		fills = append(fills, domain.RawFill{
			ID:            id,
			Instrument:    rec.Coin,
			Price:         rec.Px,
			Size:          rec.Sz,
			Side:          rec.Side,
			Dir:           rec.Dir,
			Time:          rec.Time,
			StartPosition: rec.StartPosition,
			ClosedPnl:     rec.ClosedPnl,
			Fee:           rec.Fee,
			OrderID:       string(rec.Oid),
			WalletID:      walletID,
		})
	}

	r.logger.Debug(ctx, "Fills file loaded", map[string]interface{}{"path": path, "wallet": walletID, "fills": len(fills)})
	return fills, nil
}

func (r *Reader) resolve(walletID string) (string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return "", fmt.Errorf("failed to stat fills path '%s': %w: %w", r.path, ports.ErrSourceFailed, err)
	}
	if !info.IsDir() {
		return r.path, nil
	}
	path := filepath.Join(r.path, strings.ToLower(walletID)+".json")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no fills file for wallet %s in '%s': %w", walletID, r.path, ports.ErrNotFound)
	}
	return path, nil
}

func decode(data []byte) ([]record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []record
		if err := sonic.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var env envelope
	if err := sonic.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Fills, nil
}
