package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradelog/internal/config"
	"tradelog/internal/models"
	"tradelog/internal/repository"
)

// DailyStatsService rebuilds per-user per-day trade snapshots from the
// closed-trade history. The cron runner drives it once a day; RunOnce is
// idempotent, so catching up after downtime is just running it again.
type DailyStatsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.DailyStatsConfig

	Now func() time.Time
}

func (s *DailyStatsService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DailyStatsService) lookback() int {
	if s.Config.LookbackDays > 0 {
		return s.Config.LookbackDays
	}
	return 35
}

func (s *DailyStatsService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	since := s.now().Truncate(24 * time.Hour).AddDate(0, 0, -s.lookback())
	for i := range users {
		if err := s.rebuildUser(ctx, users[i].ID, since); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("daily stats rebuild failed",
					zap.Uint64("user_id", users[i].ID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (s *DailyStatsService) rebuildUser(ctx context.Context, userID uint64, since time.Time) error {
	trades, err := s.Repo.ListClosedTrades(ctx, userID, &since, nil)
	if err != nil {
		return err
	}

	type dayAgg struct {
		trades int
		wins   int
		losses int
		net    decimal.Decimal
	}
	byDay := map[string]*dayAgg{}
	days := []string{}
	for _, t := range trades {
		day := t.EntryTime.Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &dayAgg{net: decimal.Zero}
			byDay[day] = agg
			days = append(days, day)
		}
		agg.trades++
		agg.net = agg.net.Add(t.NetPnL)
		if t.NetPnL.IsPositive() {
			agg.wins++
		} else if t.NetPnL.IsNegative() {
			agg.losses++
		}
	}

	// ListClosedTrades returns entry_time ascending, so days appear in
	// order and the cumulative sum is stable.
	cumulative := decimal.Zero
	for _, day := range days {
		agg := byDay[day]
		cumulative = cumulative.Add(agg.net)
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return err
		}
		if err := s.Repo.UpsertDailyStat(ctx, &models.DailyStat{
			UserID:        userID,
			Date:          date,
			TradesCount:   agg.trades,
			WinCount:      agg.wins,
			LossCount:     agg.losses,
			NetPnL:        agg.net,
			CumulativePnL: cumulative,
		}); err != nil {
			return err
		}
	}
	return nil
}
