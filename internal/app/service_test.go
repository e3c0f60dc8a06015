package app

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeJournal/config"
	"tradeJournal/internal/analytics"
	"tradeJournal/internal/domain"
	"tradeJournal/internal/ports"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockSource struct {
	fills []domain.RawFill
	err   error
	calls int
}

func (m *mockSource) LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.RawFill, len(m.fills))
	copy(out, m.fills)
	return out, nil
}

// mockFillRepo mimics the SQLite cache: duplicate ids are ignored and
// loads come back time ordered unless unsorted is set.
type mockFillRepo struct {
	fills    map[string][]domain.RawFill
	unsorted bool
	saveErr  error
}

func newMockFillRepo() *mockFillRepo {
	return &mockFillRepo{fills: make(map[string][]domain.RawFill)}
}

func (m *mockFillRepo) SaveFills(ctx context.Context, walletID string, fills []domain.RawFill) (int, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	seen := make(map[string]bool)
	for _, f := range m.fills[walletID] {
		seen[f.ID] = true
	}
	inserted := 0
	for _, f := range fills {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		f.WalletID = walletID
		m.fills[walletID] = append(m.fills[walletID], f)
		inserted++
	}
	return inserted, nil
}

func (m *mockFillRepo) LoadFills(ctx context.Context, walletID string) ([]domain.RawFill, error) {
	out := make([]domain.RawFill, len(m.fills[walletID]))
	copy(out, m.fills[walletID])
	if !m.unsorted {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	}
	return out, nil
}

type mockTradeRepo struct {
	trades     map[string][]domain.Trade
	replaceErr error
}

func newMockTradeRepo() *mockTradeRepo {
	return &mockTradeRepo{trades: make(map[string][]domain.Trade)}
}

func (m *mockTradeRepo) ReplaceTrades(ctx context.Context, walletID string, trades []domain.Trade) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.trades[walletID] = append([]domain.Trade(nil), trades...)
	return nil
}

func (m *mockTradeRepo) FindTrades(ctx context.Context, walletID string) ([]domain.Trade, error) {
	return append([]domain.Trade(nil), m.trades[walletID]...), nil
}

const (
	testWallet = "0xabc"
	baseMillis = int64(1_700_000_000_000)
	day        = int64(24 * 60 * 60 * 1000)
)

func fill(id, coin, dir, side, px, sz, start, pnl, fee string, offset int64) domain.RawFill {
	return domain.RawFill{
		ID: id, Instrument: coin, Price: px, Size: sz, Side: side, Dir: dir,
		Time: baseMillis + offset, StartPosition: start, ClosedPnl: pnl, Fee: fee,
	}
}

// history holds a BTC win, an ETH short loss, an orphan close, a malformed
// fill and an open SOL position. Newest first, as the exchange returns them.
func history() []domain.RawFill {
	return []domain.RawFill{
		fill("8", "SOL", "Open Long", "B", "20", "5", "0", "", "0.01", 3*day),
		fill("7", "SOL", "Open Long", "B", "oops", "5", "0", "", "0.01", 3*day-1),
		fill("6", "ARB", "Close Short", "B", "1", "10", "-10", "1", "0.01", 2*day+1),
		fill("4", "ETH", "Close Short", "B", "2020", "1", "-1", "-20", "0.2", day+10),
		fill("3", "ETH", "Open Short", "A", "2000", "1", "0", "", "0.2", day),
		fill("2", "BTC", "Close Long", "A", "110", "1", "1", "10", "0.5", 10),
		fill("1", "BTC", "Open Long", "B", "100", "1", "0", "", "0.5", 0),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		IncludeOpenTrades: true,
		StatsBasis:        analytics.BasisGross,
	}
}

type fixture struct {
	svc       *JournalService
	logger    *mockLogger
	source    *mockSource
	fillRepo  *mockFillRepo
	tradeRepo *mockTradeRepo
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		logger:    &mockLogger{},
		source:    &mockSource{fills: history()},
		fillRepo:  newMockFillRepo(),
		tradeRepo: newMockTradeRepo(),
	}
	svc, err := NewJournalService(cfg, f.logger, f.source, f.fillRepo, f.tradeRepo)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewJournalService_MissingDependencies(t *testing.T) {
	_, err := NewJournalService(nil, &mockLogger{}, nil, newMockFillRepo(), newMockTradeRepo())
	assert.Error(t, err)
	_, err = NewJournalService(testConfig(), nil, nil, newMockFillRepo(), newMockTradeRepo())
	assert.Error(t, err)
	_, err = NewJournalService(testConfig(), &mockLogger{}, nil, nil, newMockTradeRepo())
	assert.Error(t, err)

	svc, err := NewJournalService(testConfig(), &mockLogger{}, nil, newMockFillRepo(), newMockTradeRepo())
	require.NoError(t, err, "source is optional")
	assert.NotNil(t, svc)
}

func TestSync(t *testing.T) {
	f := newFixture(t, testConfig())

	report, err := f.svc.Sync(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, testWallet, report.WalletID)
	assert.Equal(t, 7, report.FillsLoaded)
	assert.Equal(t, 7, report.FillsCached)
	assert.Equal(t, 7, report.FillsTotal)
	assert.Equal(t, 3, report.Trades)
	assert.Equal(t, 1, report.OpenTrades)
	assert.Equal(t, 1, report.OrphanCloses)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 0, report.ReconcileFailures)
	assert.Empty(t, f.logger.errorMsgs)
	assert.Contains(t, f.logger.infoMsgs, "Wallet synced")

	stored := f.tradeRepo.trades[testWallet]
	require.Len(t, stored, 3)
	assert.Equal(t, "BTC", stored[0].Instrument)
	assert.Equal(t, "ETH", stored[1].Instrument)
	assert.Equal(t, "SOL", stored[2].Instrument)
	for i, tr := range stored {
		assert.Equal(t, int64(i+1), tr.ID)
	}
}

func TestSync_IsIdempotent(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, testWallet)
	require.NoError(t, err)
	first := f.tradeRepo.trades[testWallet]

	report, err := f.svc.Sync(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, 7, report.FillsLoaded)
	assert.Equal(t, 0, report.FillsCached)
	assert.Equal(t, 7, report.FillsTotal)
	assert.Equal(t, first, f.tradeRepo.trades[testWallet])
}

func TestSync_IncrementalFillsCloseOpenTrade(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, testWallet)
	require.NoError(t, err)

	f.source.fills = []domain.RawFill{
		fill("9", "SOL", "Close Long", "A", "22", "5", "5", "10", "0.01", 4*day),
	}
	report, err := f.svc.Sync(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FillsCached)
	assert.Equal(t, 8, report.FillsTotal)
	assert.Equal(t, 3, report.Trades)
	assert.Equal(t, 0, report.OpenTrades)
}

func TestSync_ConfigOptions(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeOpenTrades = false
	cfg.ParallelInstruments = true
	f := newFixture(t, cfg)

	report, err := f.svc.Sync(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Trades)
	assert.Equal(t, 0, report.OpenTrades)
}

func TestSync_Wallet(t *testing.T) {
	cfg := testConfig()
	f := newFixture(t, cfg)

	_, err := f.svc.Sync(context.Background(), "")
	assert.True(t, errors.Is(err, ports.ErrInvalidWallet))
	assert.True(t, IsUserError(err))

	cfg.Wallet = "0xdefault"
	report, err := f.svc.Sync(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "0xdefault", report.WalletID)
	assert.Len(t, f.tradeRepo.trades["0xdefault"], 3)
}

func TestSync_Failures(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.source.err = ports.ErrSourceFailed
		_, err := f.svc.Sync(context.Background(), testWallet)
		assert.True(t, errors.Is(err, ports.ErrSourceFailed))
		assert.Empty(t, f.tradeRepo.trades)
	})

	t.Run("cache error", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.fillRepo.saveErr = ports.ErrUpdateFailed
		_, err := f.svc.Sync(context.Background(), testWallet)
		assert.True(t, errors.Is(err, ports.ErrUpdateFailed))
	})

	t.Run("unsorted history", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.fillRepo.unsorted = true
		_, err := f.svc.Sync(context.Background(), testWallet)
		assert.True(t, errors.Is(err, ports.ErrUnsortedInput))
		assert.True(t, IsUserError(err))
		assert.Empty(t, f.tradeRepo.trades, "nothing stored on a failed pass")
	})

	t.Run("store error", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.tradeRepo.replaceErr = ports.ErrUpdateFailed
		_, err := f.svc.Sync(context.Background(), testWallet)
		assert.True(t, errors.Is(err, ports.ErrUpdateFailed))
		assert.False(t, IsUserError(err))
	})
}

func TestSync_WithoutSourceUsesCache(t *testing.T) {
	fillRepo := newMockFillRepo()
	_, err := fillRepo.SaveFills(context.Background(), testWallet, history())
	require.NoError(t, err)
	tradeRepo := newMockTradeRepo()

	svc, err := NewJournalService(testConfig(), &mockLogger{}, nil, fillRepo, tradeRepo)
	require.NoError(t, err)

	report, err := svc.Sync(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, 0, report.FillsLoaded)
	assert.Equal(t, 7, report.FillsTotal)
	assert.Equal(t, 3, report.Trades)
}

func TestTrades(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	all, err := f.svc.Trades(ctx, testWallet, analytics.Filter{IncludeOpen: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1, f.source.calls, "empty store triggers a sync")

	closed, err := f.svc.Trades(ctx, testWallet, analytics.Filter{})
	require.NoError(t, err)
	assert.Len(t, closed, 2)
	assert.Equal(t, 1, f.source.calls, "stored trades are reused")

	shorts, err := f.svc.Trades(ctx, testWallet, analytics.Filter{Direction: domain.Short})
	require.NoError(t, err)
	require.Len(t, shorts, 1)
	assert.Equal(t, "ETH", shorts[0].Instrument)
}

func TestTrades_NoResyncWhenHistoryHasNoTrades(t *testing.T) {
	f := newFixture(t, testConfig())
	f.source.fills = []domain.RawFill{
		fill("1", "ARB", "Close Short", "B", "1", "10", "-10", "1", "0.01", 0),
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		trades, err := f.svc.Trades(ctx, testWallet, analytics.Filter{IncludeOpen: true})
		require.NoError(t, err)
		assert.Empty(t, trades)
	}
	assert.Equal(t, 1, f.source.calls, "only an empty fills cache triggers a sync")

	_, err := f.svc.Statistics(ctx, testWallet, analytics.Filter{}, analytics.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.source.calls)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	stats, err := f.svc.Statistics(ctx, testWallet, analytics.Filter{}, analytics.Options{})
	require.NoError(t, err)
	assert.Equal(t, analytics.BasisGross, stats.Basis)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 0.5, stats.WinRate, 1e-9)
	assert.Equal(t, 1, stats.OpenTrades, "open trades are counted without --open")

	net, err := f.svc.Statistics(ctx, testWallet, analytics.Filter{}, analytics.Options{Basis: analytics.BasisNet})
	require.NoError(t, err)
	assert.Equal(t, analytics.BasisNet, net.Basis)
}

func TestStatistics_ConfiguredBasis(t *testing.T) {
	cfg := testConfig()
	cfg.StatsBasis = analytics.BasisNet
	f := newFixture(t, cfg)

	stats, err := f.svc.Statistics(context.Background(), testWallet, analytics.Filter{}, analytics.Options{})
	require.NoError(t, err)
	assert.Equal(t, analytics.BasisNet, stats.Basis)
}

func TestStatistics_EmptyWallet(t *testing.T) {
	f := newFixture(t, testConfig())
	f.source.fills = nil

	stats, err := f.svc.Statistics(context.Background(), testWallet, analytics.Filter{}, analytics.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.SharpeRatio)
}
