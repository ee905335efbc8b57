package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier is the side-channel for overtrading alerts. Delivery (email,
// push) lives outside this service; implementations only hand the event
// off.
type Notifier interface {
	OvertradingLimitReached(ctx context.Context, userID uint64, day time.Time, limit int)
}

// LogNotifier records the alert in the service log. It is the default
// implementation wired in the server.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) OvertradingLimitReached(ctx context.Context, userID uint64, day time.Time, limit int) {
	if n == nil || n.Logger == nil {
		return
	}
	n.Logger.Warn("overtrading limit reached",
		zap.Uint64("user_id", userID),
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("limit", limit),
	)
}
