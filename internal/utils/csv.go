package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tradeJournal/internal/domain"
)

var tradeHeader = []string{
	"id", "instrument", "direction", "status", "entry_price", "exit_price", "size",
	"realized_pnl", "fees", "net_pnl", "open_time", "close_time", "hold_seconds",
	"mae", "mfe", "fill_ids",
}

// WriteTradesToCSV writes trades to a new file at filename.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	return writeAndClose(file, trades)
}

// writeAndClose reports a failed close, which is where buffered data reaches disk.
func writeAndClose(wc io.WriteCloser, trades []domain.Trade) error {
	if err := WriteTrades(wc, trades); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// WriteTrades renders trades as CSV. Open trades leave the exit columns empty.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(tradeHeader); err != nil {
		return err
	}

	for _, t := range trades {
		exitPrice, closeTime, hold := "", "", ""
		if t.ExitPrice.Valid {
			exitPrice = t.ExitPrice.Decimal.String()
		}
		if t.CloseTime != nil {
			closeTime = t.CloseTime.UTC().Format(time.RFC3339)
		}
		if t.HoldDuration != nil {
			hold = strconv.FormatFloat(t.HoldDuration.Seconds(), 'f', -1, 64)
		}
		err := writer.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.Instrument,
			string(t.Direction),
			string(t.Status),
			t.EntryPrice.String(),
			exitPrice,
			t.Size.String(),
			t.RealizedPnl.String(),
			t.Fees.String(),
			t.NetPnl().String(),
			t.OpenTime.UTC().Format(time.RFC3339),
			closeTime,
			hold,
			strconv.FormatFloat(t.MAE, 'f', 6, 64),
			strconv.FormatFloat(t.MFE, 'f', 6, 64),
			strings.Join(t.FillIDs, ";"),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
