package broker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradelog/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseTime_DotSeparators(t *testing.T) {
	got, err := ParseTime("2024.03.15 14:30:00")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestParseTime_DashSeparators(t *testing.T) {
	got, err := ParseTime("2024-03-15 14:30:00")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Hour() != 14 || got.Day() != 15 {
		t.Fatalf("got=%v", got)
	}
}

func TestParseTime_DateOnly(t *testing.T) {
	got, err := ParseTime("2024.03.15")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestParseTime_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not a time", "2024/03/15 14:30:00"} {
		if _, err := ParseTime(raw); err == nil {
			t.Fatalf("ParseTime(%q): expected error", raw)
		}
	}
}

func TestNormalizeTime_Offset(t *testing.T) {
	base := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	if got := NormalizeTime(base, 0); !got.Equal(base) {
		t.Fatalf("zero offset must be a no-op, got %v", got)
	}
	if got := NormalizeTime(base, -3); got.Hour() != 11 {
		t.Fatalf("offset -3: got hour %d want 11", got.Hour())
	}
	if got := NormalizeTime(base, 2); got.Hour() != 16 {
		t.Fatalf("offset +2: got hour %d want 16", got.Hour())
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0", models.DirectionLong, false},
		{"2", models.DirectionLong, false},
		{"1", models.DirectionShort, false},
		{"3", models.DirectionShort, false},
		{"ORDER_TYPE_SELL", models.DirectionLong, false},
		{"buy", models.DirectionShort, false},
		{"", "", true},
		{"HOLD", "", true},
	}
	for _, tt := range tests {
		got, err := Direction(FlexString(tt.in))
		if tt.wantErr {
			if err == nil {
				t.Fatalf("Direction(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Direction(%q): err=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Direction(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Ticket FlexString `json:"ticket"`
		Type   FlexString `json:"type"`
	}
	raw := []byte(`{"ticket": 123456789, "type": "SELL"}`)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("err=%v", err)
	}
	if payload.Ticket.String() != "123456789" {
		t.Fatalf("ticket=%q want 123456789", payload.Ticket)
	}
	if payload.Type.String() != "SELL" {
		t.Fatalf("type=%q want SELL", payload.Type)
	}

	raw = []byte(`{"ticket": null, "type": 0}`)
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("err=%v", err)
	}
	if payload.Ticket.String() != "" {
		t.Fatalf("ticket=%q want empty", payload.Ticket)
	}
	if payload.Type.String() != "0" {
		t.Fatalf("type=%q want 0", payload.Type)
	}
}

func TestWebhookRequest_Validation(t *testing.T) {
	v := NewValidator()

	valid := WebhookRequest{
		APIKey: "key",
		Trade: TradePayload{
			Symbol:     "XAUUSDm",
			Type:       "0",
			EntryPrice: dec("1950.00"),
			ExitPrice:  dec("1955.00"),
			Volume:     dec("0.5"),
			EntryTime:  "2024.03.15 10:00:00",
		},
	}
	if err := v.Struct(valid); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	missingSymbol := valid
	missingSymbol.Trade.Symbol = ""
	if err := v.Struct(missingSymbol); err == nil {
		t.Fatalf("missing symbol accepted")
	}

	zeroVolume := valid
	zeroVolume.Trade.Volume = dec("0")
	if err := v.Struct(zeroVolume); err == nil {
		t.Fatalf("zero volume accepted")
	}

	negativePrice := valid
	negativePrice.Trade.EntryPrice = dec("-1")
	if err := v.Struct(negativePrice); err == nil {
		t.Fatalf("negative entry price accepted")
	}
}
