package gate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tradelog/internal/config"
	"tradelog/internal/models"
	"tradelog/internal/repository"
)

// State is the per-user-per-day readiness lifecycle. Each day starts at
// NOT_STARTED; an unconverted checklist counts as IN_PROGRESS while the
// day is still running and FAILED once it has rolled over.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StatePassed     State = "PASSED"
	StateFailed     State = "FAILED"
)

type Reason string

const (
	ReasonChecklistIncomplete Reason = "checklist_incomplete"
	ReasonLimitReached        Reason = "limit_reached"
)

func (r Reason) Message() string {
	switch r {
	case ReasonChecklistIncomplete:
		return "daily readiness checklist not passed"
	case ReasonLimitReached:
		return "daily trade limit reached"
	default:
		return string(r)
	}
}

type Decision struct {
	Admitted bool
	Reason   Reason
}

// Status is the gate's external view for a given day.
type Status struct {
	State      State `json:"state"`
	TradesUsed int   `json:"trades_used"`
	TradeLimit int   `json:"trade_limit"`
	CanTrade   bool  `json:"can_trade"`
}

// Gate blocks trade creation until the day's checklist passed and while
// the daily trade count stays under the user's limit.
type Gate struct {
	Config config.GateConfig
	Repo   repository.Repository
	Logger *zap.Logger
}

// Limit returns the user's daily trade limit, falling back to the
// configured default when the user record carries none.
func (g *Gate) Limit(user *models.User) int {
	if user != nil && user.DailyTradeLimit > 0 {
		return user.DailyTradeLimit
	}
	if g.Config.DefaultDailyTradeLimit > 0 {
		return g.Config.DefaultDailyTradeLimit
	}
	return 2
}

func (g *Gate) passScore() float64 {
	if g.Config.ChecklistPassScore > 0 {
		return g.Config.ChecklistPassScore
	}
	return 90
}

// Score converts raw checklist responses into a percentage.
func (g *Gate) Score(responses map[string]bool) float64 {
	if len(responses) == 0 {
		return 0
	}
	yes := 0
	for _, ok := range responses {
		if ok {
			yes++
		}
	}
	return float64(yes) / float64(len(responses)) * 100
}

// Evaluate reports whether a score passes the readiness bar.
func (g *Gate) Evaluate(score float64) bool {
	return score >= g.passScore()
}

// StateFor maps a checklist row onto the day's lifecycle state.
func (g *Gate) StateFor(cl *models.DailyChecklist, day, now time.Time) State {
	dayStart := day.Truncate(24 * time.Hour)
	todayStart := now.UTC().Truncate(24 * time.Hour)
	if cl == nil {
		if dayStart.Before(todayStart) {
			return StateFailed
		}
		return StateNotStarted
	}
	if cl.Passed {
		return StatePassed
	}
	if dayStart.Before(todayStart) {
		return StateFailed
	}
	return StateInProgress
}

// AdmitTx runs the gate inside the ingestion transaction: checklist
// passed, then an atomic increment-and-compare on the day counter. The
// counter update is what makes concurrent ingestions unable to overshoot
// the limit.
func (g *Gate) AdmitTx(ctx context.Context, tx *gorm.DB, user *models.User, day time.Time) (Decision, error) {
	cl, err := g.Repo.GetDailyChecklistTx(tx, user.ID, day)
	if err != nil {
		return Decision{}, err
	}
	if cl == nil || !cl.Passed {
		if g.Logger != nil {
			g.Logger.Debug("gate: checklist incomplete",
				zap.Uint64("user_id", user.ID),
				zap.String("date", day.Format("2006-01-02")),
			)
		}
		return Decision{Admitted: false, Reason: ReasonChecklistIncomplete}, nil
	}

	limit := g.Limit(user)
	ok, err := g.Repo.IncrementDayCounterTx(tx, user.ID, day, limit)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		if g.Logger != nil {
			g.Logger.Debug("gate: limit reached",
				zap.Uint64("user_id", user.ID),
				zap.Int("limit", limit),
			)
		}
		return Decision{Admitted: false, Reason: ReasonLimitReached}, nil
	}
	return Decision{Admitted: true}, nil
}

// TodayStatus is the read-only view served to clients; the count comes
// from the trade table so cancelled trades do not consume the budget.
func (g *Gate) TodayStatus(ctx context.Context, user *models.User, now time.Time) (Status, error) {
	day := now.UTC().Truncate(24 * time.Hour)
	cl, err := g.Repo.GetDailyChecklist(ctx, user.ID, day)
	if err != nil {
		return Status{}, err
	}
	used, err := g.Repo.CountActiveTradesOn(ctx, user.ID, day)
	if err != nil {
		return Status{}, err
	}
	limit := g.Limit(user)
	state := g.StateFor(cl, day, now)
	return Status{
		State:      state,
		TradesUsed: int(used),
		TradeLimit: limit,
		CanTrade:   state == StatePassed && int(used) < limit,
	}, nil
}
