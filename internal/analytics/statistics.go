package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradeJournal/internal/domain"
)

// tradingDaysPerYear annualizes the daily Sharpe and Sortino ratios.
const tradingDaysPerYear = 252

// Basis selects which pnl partitions trades into wins and losses.
type Basis string

const (
	BasisGross Basis = "gross" // realized pnl as reported by the exchange
	BasisNet   Basis = "net"   // realized pnl minus fees
)

// Options tunes ComputeStatistics.
type Options struct {
	Basis Basis
}

// Statistics holds the performance figures of a set of closed trades.
// Every field has a zero value for an empty input.
type Statistics struct {
	Basis Basis `yaml:"basis"`

	TotalTrades int     `yaml:"total_trades"`
	OpenTrades  int     `yaml:"open_trades"`
	Wins        int     `yaml:"wins"`
	Losses      int     `yaml:"losses"`
	WinRate     float64 `yaml:"win_rate"`
	NetWinRate  float64 `yaml:"net_win_rate"`

	GrossPnl  float64 `yaml:"gross_pnl"`
	TotalFees float64 `yaml:"total_fees"`
	NetPnl    float64 `yaml:"net_pnl"`

	AverageWin   float64 `yaml:"average_win"`
	AverageLoss  float64 `yaml:"average_loss"` // magnitude
	ProfitFactor float64 `yaml:"profit_factor"`
	Expectancy   float64 `yaml:"expectancy"`

	SharpeRatio    float64 `yaml:"sharpe_ratio"`
	SortinoRatio   float64 `yaml:"sortino_ratio"`
	MaxDrawdown    float64 `yaml:"max_drawdown"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`

	LongestWinStreak  int `yaml:"longest_win_streak"`
	LongestLossStreak int `yaml:"longest_loss_streak"`

	AverageHold time.Duration `yaml:"average_hold"`
	AverageMAE  float64       `yaml:"average_mae"`
	AverageMFE  float64       `yaml:"average_mfe"`

	LongTrades  int     `yaml:"long_trades"`
	ShortTrades int     `yaml:"short_trades"`
	LongPnl     float64 `yaml:"long_pnl"`
	ShortPnl    float64 `yaml:"short_pnl"`
	BestTrade   float64 `yaml:"best_trade"`
	WorstTrade  float64 `yaml:"worst_trade"`

	DailyPnl    []DailyPnl      `yaml:"daily_pnl,omitempty"`
	MonthlyPnl  []MonthlyReturn `yaml:"monthly_pnl,omitempty"`
	EquityCurve []EquityPoint   `yaml:"-"`
}

// DailyPnl is the net pnl of the trades opened on one UTC calendar day.
type DailyPnl struct {
	Day    time.Time `yaml:"day"`
	Pnl    float64   `yaml:"pnl"`
	Trades int       `yaml:"trades"`
}

// MonthlyReturn represents the net pnl of the trades closed in a month.
type MonthlyReturn struct {
	Month  time.Time `yaml:"month"`
	Return float64   `yaml:"return"`
}

// EquityPoint represents a point on the cumulative net pnl curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// ComputeStatistics calculates performance figures over the closed trades in
// the set. Open trades are only counted. The input slice is not modified.
func ComputeStatistics(trades []domain.Trade, opts Options) *Statistics {
	basis := opts.Basis
	if basis == "" {
		basis = BasisGross
	}
	stats := &Statistics{
		Basis:       basis,
		DailyPnl:    make([]DailyPnl, 0),
		MonthlyPnl:  make([]MonthlyReturn, 0),
		EquityCurve: make([]EquityPoint, 0),
	}

	closed := closedByOpenTime(trades)
	stats.OpenTrades = len(trades) - len(closed)
	if len(closed) == 0 {
		return stats
	}

	var grossSum, feeSum, longSum, shortSum decimal.Decimal
	var winSum, lossSum float64
	var netWins int
	var consecutiveWins, consecutiveLosses int
	var totalHold time.Duration
	var maeSum, mfeSum float64
	var cumulative, peak float64
	daily := make(map[time.Time]*DailyPnl)
	monthly := make(map[time.Time]float64)

	for i, t := range closed {
		net := t.NetPnl()
		pnl := t.RealizedPnl
		if basis == BasisNet {
			pnl = net
		}
		value := pnl.InexactFloat64()
		netValue := net.InexactFloat64()

		stats.TotalTrades++
		grossSum = grossSum.Add(t.RealizedPnl)
		feeSum = feeSum.Add(t.Fees)
		if net.IsPositive() {
			netWins++
		}

		if value > 0 {
			stats.Wins++
			winSum += value
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			stats.Losses++
			lossSum += value
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > stats.LongestWinStreak {
			stats.LongestWinStreak = consecutiveWins
		}
		if consecutiveLosses > stats.LongestLossStreak {
			stats.LongestLossStreak = consecutiveLosses
		}

		if i == 0 || value > stats.BestTrade {
			stats.BestTrade = value
		}
		if i == 0 || value < stats.WorstTrade {
			stats.WorstTrade = value
		}

		if t.Direction == domain.Short {
			stats.ShortTrades++
			shortSum = shortSum.Add(pnl)
		} else {
			stats.LongTrades++
			longSum = longSum.Add(pnl)
		}

		if t.HoldDuration != nil {
			totalHold += *t.HoldDuration
		}
		maeSum += t.MAE
		mfeSum += t.MFE

		day := truncateDay(t.OpenTime)
		bucket, ok := daily[day]
		if !ok {
			bucket = &DailyPnl{Day: day}
			daily[day] = bucket
		}
		bucket.Pnl += netValue
		bucket.Trades++

		closeTime := t.OpenTime
		if t.CloseTime != nil {
			closeTime = *t.CloseTime
		}
		monthly[truncateMonth(closeTime)] += netValue

		cumulative += netValue
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > stats.MaxDrawdown {
			stats.MaxDrawdown = drawdown
			if peak > 0 {
				stats.MaxDrawdownPct = drawdown / peak
			}
		}
		stats.EquityCurve = append(stats.EquityCurve, EquityPoint{
			Time:     closeTime,
			Value:    cumulative,
			Drawdown: drawdown,
		})
	}

	total := float64(stats.TotalTrades)
	stats.GrossPnl = grossSum.InexactFloat64()
	stats.TotalFees = feeSum.InexactFloat64()
	stats.NetPnl = grossSum.Sub(feeSum).InexactFloat64()
	stats.LongPnl = longSum.InexactFloat64()
	stats.ShortPnl = shortSum.InexactFloat64()
	stats.WinRate = float64(stats.Wins) / total
	stats.NetWinRate = float64(netWins) / total
	if stats.Wins > 0 {
		stats.AverageWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AverageLoss = math.Abs(lossSum) / float64(stats.Losses)
	}
	if lossSum != 0 {
		stats.ProfitFactor = winSum / math.Abs(lossSum)
	}
	stats.Expectancy = stats.WinRate*stats.AverageWin - (1-stats.WinRate)*stats.AverageLoss
	stats.AverageHold = totalHold / time.Duration(stats.TotalTrades)
	stats.AverageMAE = maeSum / total
	stats.AverageMFE = mfeSum / total

	for _, bucket := range daily {
		stats.DailyPnl = append(stats.DailyPnl, *bucket)
	}
	sort.Slice(stats.DailyPnl, func(i, j int) bool {
		return stats.DailyPnl[i].Day.Before(stats.DailyPnl[j].Day)
	})
	for month, ret := range monthly {
		stats.MonthlyPnl = append(stats.MonthlyPnl, MonthlyReturn{Month: month, Return: ret})
	}
	sort.Slice(stats.MonthlyPnl, func(i, j int) bool {
		return stats.MonthlyPnl[i].Month.Before(stats.MonthlyPnl[j].Month)
	})

	returns := make([]float64, len(stats.DailyPnl))
	downside := make([]float64, 0, len(stats.DailyPnl))
	for i, d := range stats.DailyPnl {
		returns[i] = d.Pnl
		if d.Pnl < 0 {
			downside = append(downside, d.Pnl)
		}
	}
	stats.SharpeRatio, stats.SortinoRatio = riskAdjusted(returns, downside)

	return stats
}

// riskAdjusted returns the annualized Sharpe and Sortino ratios of daily
// returns. A zero deviation is replaced by 1.
func riskAdjusted(returns, downside []float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	mean := meanOf(returns)
	annualize := math.Sqrt(tradingDaysPerYear)

	stddev := stddevOf(returns)
	if stddev == 0 {
		stddev = 1
	}
	downDev := stddevOf(downside)
	if downDev == 0 {
		downDev = 1
	}
	return mean / stddev * annualize, mean / downDev * annualize
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevOf is the population standard deviation.
func stddevOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := meanOf(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// closedByOpenTime copies the closed trades and sorts them by open time.
func closedByOpenTime(trades []domain.Trade) []domain.Trade {
	closed := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.IsOpen() {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		if !closed[i].OpenTime.Equal(closed[j].OpenTime) {
			return closed[i].OpenTime.Before(closed[j].OpenTime)
		}
		return closed[i].ID < closed[j].ID
	})
	return closed
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
