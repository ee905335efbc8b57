package analytics

import (
	"fmt"
	"strings"
	"time"
)

const (
	RangeToday     = "today"
	RangeThisWeek  = "this_week"
	RangeThisMonth = "this_month"
	RangeLast30    = "last_30"
	RangeAll       = "all"
)

// RangeBounds maps a range selector onto an entry_time predicate. A nil
// bound means unbounded on that side.
func RangeBounds(selector string, now time.Time) (from *time.Time, to *time.Time, err error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch strings.ToLower(strings.TrimSpace(selector)) {
	case RangeToday:
		return &dayStart, nil, nil
	case RangeThisWeek:
		// Weeks start on Monday.
		offset := (int(now.Weekday()) + 6) % 7
		weekStart := dayStart.AddDate(0, 0, -offset)
		return &weekStart, nil, nil
	case RangeThisMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return &monthStart, nil, nil
	case RangeLast30:
		cutoff := dayStart.AddDate(0, 0, -30)
		return &cutoff, nil, nil
	case RangeAll, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown range selector %q", selector)
	}
}
