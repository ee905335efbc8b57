package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tradelog/internal/models"
)

// FlexString accepts JSON strings and numbers. MT4/MT5 bridges are not
// consistent about whether tickets and type codes arrive quoted.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// WebhookRequest is the broker feed envelope. The api key is carried in the
// body because MT4/MT5 expert advisors cannot set custom headers reliably.
type WebhookRequest struct {
	APIKey    string       `json:"api_key" validate:"required"`
	AccountID *uint64      `json:"account_id"`
	Trade     TradePayload `json:"trade" validate:"required"`
}

type TradePayload struct {
	Ticket     FlexString       `json:"ticket"`
	Symbol     string           `json:"symbol" validate:"required"`
	Type       FlexString       `json:"type" validate:"required"`
	EntryPrice decimal.Decimal  `json:"entry_price" validate:"dgt0"`
	ExitPrice  decimal.Decimal  `json:"exit_price"`
	Volume     decimal.Decimal  `json:"volume" validate:"dgt0"`
	Commission decimal.Decimal  `json:"commission"`
	Swap       decimal.Decimal  `json:"swap"`
	Profit     decimal.Decimal  `json:"profit"`
	EntryTime  string           `json:"entry_time" validate:"required"`
	ExitTime   string           `json:"exit_time"`
	StopLoss   *decimal.Decimal `json:"stop_loss"`
	TakeProfit *decimal.Decimal `json:"take_profit"`
}

// NewValidator returns a validator that understands decimal fields. The
// custom dgt0 tag enforces strictly-positive decimals where required works
// poorly on struct-typed fields.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("dgt0", func(fl validator.FieldLevel) bool {
		if f, ok := fl.Field().Interface().(float64); ok {
			return f > 0
		}
		return false
	})
	return v
}

// Direction maps the broker's closing-deal type to the position direction.
// An even numeric code (or a type string containing SELL) is a sell exit,
// which closes a LONG position; odd codes and BUY strings close SHORTs.
func Direction(typeField FlexString) (string, error) {
	raw := strings.TrimSpace(typeField.String())
	if raw == "" {
		return "", fmt.Errorf("trade type missing")
	}
	if code, err := strconv.Atoi(raw); err == nil {
		if code%2 == 0 {
			return models.DirectionLong, nil
		}
		return models.DirectionShort, nil
	}
	upper := strings.ToUpper(raw)
	if strings.Contains(upper, "SELL") {
		return models.DirectionLong, nil
	}
	if strings.Contains(upper, "BUY") {
		return models.DirectionShort, nil
	}
	return "", fmt.Errorf("unrecognized trade type %q", raw)
}
