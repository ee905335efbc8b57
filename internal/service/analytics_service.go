package service

import (
	"context"
	"time"

	"tradelog/internal/analytics"
	"tradelog/internal/config"
	"tradelog/internal/models"
	"tradelog/internal/repository"
)

// AnalyticsService answers range queries over a user's closed trades.
// All aggregation happens in-process so the numbers are pure functions of
// the trade set.
type AnalyticsService struct {
	Repo   repository.Repository
	Config config.AnalyticsConfig

	Now func() time.Time
}

func (s *AnalyticsService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AnalyticsService) sessionHours() analytics.SessionHours {
	hours := analytics.DefaultSessionHours()
	if s.Config.MorningStartHour > 0 {
		hours.MorningStart = s.Config.MorningStartHour
	}
	if s.Config.AfternoonStartHour > 0 {
		hours.AfternoonStart = s.Config.AfternoonStartHour
	}
	if s.Config.EveningStartHour > 0 {
		hours.EveningStart = s.Config.EveningStartHour
	}
	if s.Config.EveningEndHour > 0 {
		hours.EveningEnd = s.Config.EveningEndHour
	}
	return hours
}

// Report runs the aggregator over the trades selected by the range
// selector (today, this_week, this_month, last_30, all).
func (s *AnalyticsService) Report(ctx context.Context, user *models.User, rangeSelector string) (analytics.Report, error) {
	from, to, err := analytics.RangeBounds(rangeSelector, s.now())
	if err != nil {
		return analytics.Report{}, &ValidationError{Msg: err.Error()}
	}
	trades, err := s.Repo.ListClosedTrades(ctx, user.ID, from, to)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Aggregate(trades, s.sessionHours()), nil
}
