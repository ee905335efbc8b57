package pnl

import (
	"github.com/shopspring/decimal"

	"tradelog/internal/models"
)

// Input carries validated trade numbers. Callers are responsible for
// rejecting non-positive position sizes and tick sizes before calling
// Compute; the calculator itself never fails.
type Input struct {
	Direction    string
	EntryPrice   decimal.Decimal
	ExitPrice    *decimal.Decimal
	StopLoss     *decimal.Decimal
	PositionSize decimal.Decimal
	Fees         decimal.Decimal
	TickSize     decimal.Decimal
	TickValue    decimal.Decimal
}

type Result struct {
	GrossPnL  decimal.Decimal
	NetPnL    decimal.Decimal
	RMultiple decimal.Decimal
	Status    string
}

// Compute derives gross/net P&L and the R-multiple from tick geometry.
// An absent exit price means the trade is still open and every derived
// field stays zero.
func Compute(in Input) Result {
	if in.ExitPrice == nil {
		return Result{
			GrossPnL:  decimal.Zero,
			NetPnL:    decimal.Zero,
			RMultiple: decimal.Zero,
			Status:    models.TradeStatusOpen,
		}
	}

	var priceDiff decimal.Decimal
	if in.Direction == models.DirectionShort {
		priceDiff = in.EntryPrice.Sub(*in.ExitPrice)
	} else {
		priceDiff = in.ExitPrice.Sub(in.EntryPrice)
	}

	ticks := priceDiff.Div(in.TickSize)
	gross := ticks.Mul(in.TickValue).Mul(in.PositionSize)
	net := gross.Sub(in.Fees)

	return Result{
		GrossPnL:  gross,
		NetPnL:    net,
		RMultiple: rMultiple(in, net),
		Status:    models.TradeStatusClosed,
	}
}

// rMultiple is zero unless a stop loss distinct from the entry price is
// set; risk is the stop distance expressed in tick value across the full
// position.
func rMultiple(in Input, net decimal.Decimal) decimal.Decimal {
	if in.StopLoss == nil || in.StopLoss.Equal(in.EntryPrice) {
		return decimal.Zero
	}
	riskPerUnit := in.EntryPrice.Sub(*in.StopLoss).Abs().Div(in.TickSize).Mul(in.TickValue)
	totalRisk := riskPerUnit.Mul(in.PositionSize)
	if !totalRisk.IsPositive() {
		return decimal.Zero
	}
	return net.Div(totalRisk)
}
