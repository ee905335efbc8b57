package symbol

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tradelog/internal/models"
)

func catalog(codes ...string) []models.Instrument {
	items := make([]models.Instrument, 0, len(codes))
	for i, code := range codes {
		items = append(items, models.Instrument{
			ID:        uint64(i + 1),
			Code:      code,
			TickSize:  decimal.NewFromFloat(0.0001),
			TickValue: decimal.NewFromInt(10),
		})
	}
	return items
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in    string
		clean string
		base  string
	}{
		{"eurusd_i", "EURUSD", "EURUSD"},
		{"XAUUSDm", "XAUUSDM", "XAUUSD"},
		{"GBP/JPY", "GBPJPY", "GBPJPY"},
		{"us30.cash", "USCASH", "USCASH"},
		{"EU", "EU", "EU"},
	}
	for _, tt := range tests {
		clean, base := Normalize(tt.in)
		if clean != tt.clean || base != tt.base {
			t.Fatalf("Normalize(%q) = (%q, %q), want (%q, %q)",
				tt.in, clean, base, tt.clean, tt.base)
		}
	}
}

func TestResolve_ExactRawMatch(t *testing.T) {
	got, err := Resolve("XAUUSD", catalog("EURUSD", "XAUUSD"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Code != "XAUUSD" {
		t.Fatalf("code=%s want XAUUSD", got.Code)
	}
}

func TestResolve_CleanedMatch(t *testing.T) {
	got, err := Resolve("eurusd_i", catalog("EURUSD", "XAUUSD"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Code != "EURUSD" {
		t.Fatalf("code=%s want EURUSD", got.Code)
	}
}

func TestResolve_BrokerSuffixViaCodePrefix(t *testing.T) {
	// Broker appends account-type suffixes; the catalog holds the bare code.
	got, err := Resolve("XAUUSDm", catalog("EURUSD", "XAUUSD"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Code != "XAUUSD" {
		t.Fatalf("code=%s want XAUUSD", got.Code)
	}
}

func TestResolve_BaseAsPrefixOfCode(t *testing.T) {
	got, err := Resolve("GBPUSD.pro", catalog("GBPUSDX"))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Code != "GBPUSDX" {
		t.Fatalf("code=%s want GBPUSDX", got.Code)
	}
}

func TestResolve_ClausePrecedence(t *testing.T) {
	// An exact cleaned match beats a prefix match on an earlier row.
	cat := []models.Instrument{
		{ID: 1, Code: "XAU"},
		{ID: 2, Code: "XAUUSD"},
	}
	got, err := Resolve("xauusd", cat)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Code != "XAUUSD" {
		t.Fatalf("code=%s want XAUUSD (exact clean beats prefix)", got.Code)
	}
}

func TestResolve_TieBreakLowestID(t *testing.T) {
	// Two rows satisfy the same prefix clause; the lowest id wins no matter
	// how the catalog slice is ordered.
	cat := []models.Instrument{
		{ID: 7, Code: "XAUUSDMICRO"},
		{ID: 3, Code: "XAUUSDMINI"},
	}
	got, err := Resolve("XAUUSDM", cat)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.ID != 3 {
		t.Fatalf("id=%d want 3", got.ID)
	}
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve("BTCUSD", catalog("EURUSD", "XAUUSD"))
	if err == nil {
		t.Fatalf("expected error")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err=%T want *NotFoundError", err)
	}
	if nf.Symbol != "BTCUSD" {
		t.Fatalf("symbol=%s want BTCUSD", nf.Symbol)
	}
}
