package broker

import (
	"fmt"
	"strings"
	"time"
)

// brokerTimeLayout is the MT4/MT5 server-time format after separator
// normalization.
const brokerTimeLayout = "2006-01-02 15:04:05"

// ParseTime parses a broker timestamp. MT4/MT5 uses "." as the date
// separator ("2024.03.15 14:30:00"); dashes are accepted as-is.
func ParseTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty broker timestamp")
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = strings.ReplaceAll(s[:i], ".", "-") + s[i:]
	} else {
		s = strings.ReplaceAll(s, ".", "-")
		s += " 00:00:00"
	}
	t, err := time.Parse(brokerTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable broker timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// NormalizeTime shifts a broker-local timestamp into canonical time using
// the account's fixed hour offset. A zero offset is a no-op.
func NormalizeTime(brokerTime time.Time, offsetHours int) time.Time {
	if offsetHours == 0 {
		return brokerTime
	}
	return brokerTime.Add(time.Duration(offsetHours) * time.Hour)
}
