package fillfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeJournal/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const exportJSON = `[
  {"coin":"BTC","px":"100.5","sz":"0.1","side":"B","time":1700000000000,"startPosition":"0.0",
   "dir":"Open Long","closedPnl":"0.0","hash":"0x01","oid":901,"crossed":true,"fee":"0.01","tid":11,"feeToken":"USDC"},
  {"coin":"BTC","px":"101","sz":"0.1","side":"A","time":1700000060000,"startPosition":"0.1",
   "dir":"Close Long","closedPnl":"0.05","hash":"0x02","oid":"902","crossed":false,"fee":"0.01","tid":"12"}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Path: "fills.json"})
	assert.Error(t, err)

	_, err = New(Config{Logger: &mockLogger{}})
	assert.True(t, errors.Is(err, ports.ErrConfigurationError))
}

func TestReader_LoadFillsArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fills.json", exportJSON)
	r, err := New(Config{Path: path, Logger: &mockLogger{}})
	require.NoError(t, err)

	fills, err := r.LoadFills(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, fills, 2)

	first := fills[0]
	assert.Equal(t, "11", first.ID)
	assert.Equal(t, "BTC", first.Instrument)
	assert.Equal(t, "100.5", first.Price)
	assert.Equal(t, "0.1", first.Size)
	assert.Equal(t, "B", first.Side)
	assert.Equal(t, "Open Long", first.Dir)
	assert.Equal(t, int64(1700000000000), first.Time)
	assert.Equal(t, "0.0", first.StartPosition)
	assert.Equal(t, "0.01", first.Fee)
	assert.Equal(t, "901", first.OrderID)
	assert.Equal(t, "0xabc", first.WalletID)

	assert.Equal(t, "12", fills[1].ID)
	assert.Equal(t, "902", fills[1].OrderID)
	assert.Equal(t, "0.05", fills[1].ClosedPnl)
}

func TestReader_LoadFillsEnvelope(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fills.json", `{"fills":`+exportJSON+`}`)
	r, err := New(Config{Path: path, Logger: &mockLogger{}})
	require.NoError(t, err)

	fills, err := r.LoadFills(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Len(t, fills, 2)
}

func TestReader_LoadFillsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0xabc.json", exportJSON)
	r, err := New(Config{Path: dir, Logger: &mockLogger{}})
	require.NoError(t, err)

	fills, err := r.LoadFills(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Len(t, fills, 2)

	_, err = r.LoadFills(context.Background(), "0xdef")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestReader_LoadFillsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `[{"coin":`)
	r, err := New(Config{Path: bad, Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = r.LoadFills(context.Background(), "0xabc")
	assert.True(t, errors.Is(err, ports.ErrSourceFailed))

	_, err = r.LoadFills(context.Background(), "")
	assert.True(t, errors.Is(err, ports.ErrInvalidWallet))

	missing, err := New(Config{Path: filepath.Join(dir, "missing.json"), Logger: &mockLogger{}})
	require.NoError(t, err)
	_, err = missing.LoadFills(context.Background(), "0xabc")
	assert.True(t, errors.Is(err, ports.ErrSourceFailed))
}

func TestReader_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fills.json", "  \n")
	r, err := New(Config{Path: path, Logger: &mockLogger{}})
	require.NoError(t, err)

	fills, err := r.LoadFills(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Empty(t, fills)
}

func TestReader_NewestFirstExportIsReversed(t *testing.T) {
	newestFirst := `[
  {"coin":"BTC","px":"110","sz":"0.6","side":"A","time":1700000010000,"startPosition":"0.6","dir":"Close Long","closedPnl":"6","fee":"0.3","tid":3},
  {"coin":"BTC","px":"110","sz":"0.4","side":"A","time":1700000010000,"startPosition":"1","dir":"Close Long","closedPnl":"4","fee":"0.2","tid":2},
  {"coin":"BTC","px":"100","sz":"1","side":"B","time":1700000000000,"startPosition":"0","dir":"Open Long","closedPnl":"0","fee":"0.1","tid":1}
]`
	path := writeFile(t, t.TempDir(), "fills.json", newestFirst)
	r, err := New(Config{Path: path, Logger: &mockLogger{}})
	require.NoError(t, err)

	fills, err := r.LoadFills(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, fills, 3)
	assert.Equal(t, "1", fills[0].ID)
	assert.Equal(t, "2", fills[1].ID)
	assert.Equal(t, "3", fills[2].ID)
}
