package symbol

import (
	"fmt"
	"sort"
	"strings"

	"tradelog/internal/models"
)

// NotFoundError reports a broker symbol that matched no catalog row. The
// event carrying it must be rejected, never queued or guessed.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %q did not resolve to any catalog instrument", e.Symbol)
}

// Normalize strips every non-letter character and uppercases the rest,
// then derives the 6-letter FX base. "eurusd_i" becomes ("EURUSD", "EURUSD"),
// "XAUUSDm" becomes ("XAUUSDM", "XAUUSD").
func Normalize(raw string) (clean, base string) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	clean = strings.ToUpper(b.String())
	base = clean
	if len(base) > 6 {
		base = base[:6]
	}
	return clean, base
}

// Resolve maps a broker-supplied symbol to a catalog instrument. Match
// clauses run in strict precedence: exact raw, exact cleaned, exact base,
// catalog code as prefix of the raw symbol, base as prefix of the catalog
// code. Within a clause the lowest instrument id wins, so resolution is
// deterministic regardless of catalog order.
func Resolve(raw string, catalog []models.Instrument) (*models.Instrument, error) {
	clean, base := Normalize(raw)

	rows := make([]models.Instrument, len(catalog))
	copy(rows, catalog)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	clauses := []func(code string) bool{
		func(code string) bool { return code == raw },
		func(code string) bool { return code == clean },
		func(code string) bool { return code == base },
		func(code string) bool { return code != "" && strings.HasPrefix(raw, code) },
		func(code string) bool { return base != "" && strings.HasPrefix(code, base) },
	}

	for _, match := range clauses {
		for i := range rows {
			if match(rows[i].Code) {
				return &rows[i], nil
			}
		}
	}

	return nil, &NotFoundError{Symbol: raw}
}
