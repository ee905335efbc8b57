package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradelog/internal/models"
)

// profitFactorCap is the sentinel reported when there are profits but no
// losses at all.
var profitFactorCap = decimal.NewFromInt(100)

// revengeWindow is the exclusive temporal-proximity bound between two
// losing trades that raises the revenge-trading flag.
const revengeWindow = 60 * time.Minute

const (
	SessionMorning   = "Morning"
	SessionAfternoon = "Afternoon"
	SessionEvening   = "Evening"
	SessionLateNight = "Late Night"
)

// SessionHours defines the fixed session bucket boundaries in the
// account's local hour convention. Bounds are inclusive.
type SessionHours struct {
	MorningStart   int
	AfternoonStart int
	EveningStart   int
	EveningEnd     int
}

func DefaultSessionHours() SessionHours {
	return SessionHours{
		MorningStart:   8,
		AfternoonStart: 12,
		EveningStart:   16,
		EveningEnd:     20,
	}
}

type EquityPoint struct {
	Date       string          `json:"date"`
	NetPnL     decimal.Decimal `json:"net_pnl"`
	Cumulative decimal.Decimal `json:"cumulative"`
	Drawdown   decimal.Decimal `json:"drawdown"`
}

type Bucket struct {
	Label   string          `json:"label"`
	Trades  int             `json:"trades"`
	Wins    int             `json:"wins"`
	Losses  int             `json:"losses"`
	NetPnL  decimal.Decimal `json:"net_pnl"`
	WinRate decimal.Decimal `json:"win_rate"`
}

type Report struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Breakeven   int `json:"breakeven"`

	TotalNetPnL  decimal.Decimal `json:"total_net_pnl"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalLoss    decimal.Decimal `json:"total_loss"`
	WinRate      decimal.Decimal `json:"win_rate"`
	ProfitFactor decimal.Decimal `json:"profit_factor"`
	AvgWin       decimal.Decimal `json:"avg_win"`
	AvgLoss      decimal.Decimal `json:"avg_loss"`
	Expectancy   decimal.Decimal `json:"expectancy"`

	EquityCurve []EquityPoint   `json:"equity_curve"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown"`

	ByDayOfWeek []Bucket `json:"by_day_of_week"`
	ByHour      []Bucket `json:"by_hour"`
	BySession   []Bucket `json:"by_session"`

	RevengeTrading bool `json:"revenge_trading"`
}

// Aggregate computes the full analytics report over a set of CLOSED
// trades. It is a pure function of its inputs: trades are never mutated
// and two calls over the same slice produce identical reports.
func Aggregate(trades []models.Trade, hours SessionHours) Report {
	r := Report{
		TotalNetPnL:  decimal.Zero,
		TotalProfit:  decimal.Zero,
		TotalLoss:    decimal.Zero,
		WinRate:      decimal.Zero,
		ProfitFactor: decimal.Zero,
		AvgWin:       decimal.Zero,
		AvgLoss:      decimal.Zero,
		Expectancy:   decimal.Zero,
		MaxDrawdown:  decimal.Zero,
	}

	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeStatusClosed {
			closed = append(closed, t)
		}
	}

	for _, t := range closed {
		r.TotalTrades++
		r.TotalNetPnL = r.TotalNetPnL.Add(t.NetPnL)
		switch {
		case t.NetPnL.IsPositive():
			r.Wins++
			r.TotalProfit = r.TotalProfit.Add(t.NetPnL)
		case t.NetPnL.IsNegative():
			r.Losses++
			r.TotalLoss = r.TotalLoss.Add(t.NetPnL.Abs())
		default:
			r.Breakeven++
		}
	}

	if r.TotalTrades > 0 {
		r.WinRate = decimal.NewFromInt(int64(r.Wins)).
			Div(decimal.NewFromInt(int64(r.TotalTrades))).
			Mul(decimal.NewFromInt(100))
	}
	if r.Wins > 0 {
		r.AvgWin = r.TotalProfit.Div(decimal.NewFromInt(int64(r.Wins)))
	}
	if r.Losses > 0 {
		r.AvgLoss = r.TotalLoss.Div(decimal.NewFromInt(int64(r.Losses)))
	}
	r.ProfitFactor = profitFactor(r.TotalProfit, r.TotalLoss)
	r.Expectancy = expectancy(r.WinRate, r.AvgWin, r.AvgLoss)

	r.EquityCurve, r.MaxDrawdown = equityCurve(closed)
	r.ByDayOfWeek = bucketByDayOfWeek(closed)
	r.ByHour = bucketByHour(closed)
	r.BySession = bucketBySession(closed, hours)
	r.RevengeTrading = detectRevengeTrading(closed)

	return r
}

// profitFactor is total profit over total loss, capped at the sentinel
// when the loss side is empty, and zero when both sides are empty.
func profitFactor(totalProfit, totalLoss decimal.Decimal) decimal.Decimal {
	if totalLoss.IsZero() {
		if totalProfit.IsPositive() {
			return profitFactorCap
		}
		return decimal.Zero
	}
	return totalProfit.Abs().Div(totalLoss.Abs())
}

// expectancy = winRate/100 * avgWin - (1 - winRate/100) * |avgLoss|.
func expectancy(winRate, avgWin, avgLoss decimal.Decimal) decimal.Decimal {
	p := winRate.Div(decimal.NewFromInt(100))
	q := decimal.NewFromInt(1).Sub(p)
	return p.Mul(avgWin).Sub(q.Mul(avgLoss.Abs()))
}

// equityCurve groups net P&L by calendar day of entry, sorted ascending,
// with a running cumulative sum and single-pass peak/drawdown tracking.
// Peak and drawdown both start at zero.
func equityCurve(closed []models.Trade) ([]EquityPoint, decimal.Decimal) {
	byDay := map[string]decimal.Decimal{}
	for _, t := range closed {
		day := t.EntryTime.Format("2006-01-02")
		byDay[day] = byDay[day].Add(t.NetPnL)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	curve := make([]EquityPoint, 0, len(days))
	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero
	for _, day := range days {
		cumulative = cumulative.Add(byDay[day])
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		drawdown := peak.Sub(cumulative)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
		curve = append(curve, EquityPoint{
			Date:       day,
			NetPnL:     byDay[day],
			Cumulative: cumulative,
			Drawdown:   drawdown,
		})
	}
	return curve, maxDrawdown
}

func newBucket(label string) Bucket {
	return Bucket{
		Label:   label,
		NetPnL:  decimal.Zero,
		WinRate: decimal.Zero,
	}
}

func (b *Bucket) add(t models.Trade) {
	b.Trades++
	b.NetPnL = b.NetPnL.Add(t.NetPnL)
	if t.NetPnL.IsPositive() {
		b.Wins++
	} else if t.NetPnL.IsNegative() {
		b.Losses++
	}
}

func (b *Bucket) finalize() {
	if b.Trades > 0 {
		b.WinRate = decimal.NewFromInt(int64(b.Wins)).
			Div(decimal.NewFromInt(int64(b.Trades))).
			Mul(decimal.NewFromInt(100))
	}
}

func bucketByDayOfWeek(closed []models.Trade) []Bucket {
	buckets := make([]Bucket, 7)
	for i := range buckets {
		buckets[i] = newBucket(time.Weekday(i).String())
	}
	for _, t := range closed {
		buckets[int(t.EntryTime.Weekday())].add(t)
	}
	for i := range buckets {
		buckets[i].finalize()
	}
	return buckets
}

// bucketByHour always emits all 24 hours, zero-filled, so downstream
// charting never has to patch gaps.
func bucketByHour(closed []models.Trade) []Bucket {
	buckets := make([]Bucket, 24)
	for i := range buckets {
		buckets[i] = newBucket(time.Date(0, 1, 1, i, 0, 0, 0, time.UTC).Format("15:00"))
	}
	for _, t := range closed {
		buckets[t.EntryTime.Hour()].add(t)
	}
	for i := range buckets {
		buckets[i].finalize()
	}
	return buckets
}

func sessionFor(hour int, hours SessionHours) string {
	switch {
	case hour >= hours.MorningStart && hour < hours.AfternoonStart:
		return SessionMorning
	case hour >= hours.AfternoonStart && hour < hours.EveningStart:
		return SessionAfternoon
	case hour >= hours.EveningStart && hour <= hours.EveningEnd:
		return SessionEvening
	default:
		return SessionLateNight
	}
}

func bucketBySession(closed []models.Trade, hours SessionHours) []Bucket {
	order := []string{SessionMorning, SessionAfternoon, SessionEvening, SessionLateNight}
	index := map[string]int{}
	buckets := make([]Bucket, len(order))
	for i, label := range order {
		buckets[i] = newBucket(label)
		index[label] = i
	}
	for _, t := range closed {
		buckets[index[sessionFor(t.EntryTime.Hour(), hours)]].add(t)
	}
	for i := range buckets {
		buckets[i].finalize()
	}
	return buckets
}

// detectRevengeTrading flags two distinct losing trades where the second
// entry follows the first exit by less than an hour in either direction.
// A temporal-proximity heuristic, not a model.
func detectRevengeTrading(closed []models.Trade) bool {
	losers := make([]models.Trade, 0)
	for _, t := range closed {
		if t.NetPnL.IsNegative() {
			losers = append(losers, t)
		}
	}
	for i := range losers {
		if losers[i].ExitTime == nil {
			continue
		}
		for j := range losers {
			if losers[i].ID == losers[j].ID {
				continue
			}
			gap := losers[j].EntryTime.Sub(*losers[i].ExitTime)
			if gap < 0 {
				gap = -gap
			}
			if gap < revengeWindow {
				return true
			}
		}
	}
	return false
}
