package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradelog/internal/auth"
	"tradelog/internal/models"
	"tradelog/internal/repository"
	"tradelog/internal/service"
)

type TradesHandler struct {
	Repo   repository.Repository
	Ingest *service.IngestService
	Logger *zap.Logger
}

func (h *TradesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/trades")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

type tradeRequest struct {
	AccountID    uint64           `json:"account_id"`
	InstrumentID uint64           `json:"instrument_id"`
	Direction    string           `json:"direction"`
	EntryPrice   decimal.Decimal  `json:"entry_price"`
	ExitPrice    *decimal.Decimal `json:"exit_price"`
	StopLoss     *decimal.Decimal `json:"stop_loss"`
	TakeProfit   *decimal.Decimal `json:"take_profit"`
	PositionSize decimal.Decimal  `json:"position_size"`
	Fees         decimal.Decimal  `json:"fees"`
	EntryTime    time.Time        `json:"entry_time"`
	ExitTime     *time.Time       `json:"exit_time"`

	SetupQuality     *int   `json:"setup_quality"`
	ExecutionQuality *int   `json:"execution_quality"`
	EmotionalState   string `json:"emotional_state"`
	Notes            string `json:"notes"`
}

func (h *TradesHandler) create(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}

	result, err := h.Ingest.IngestManual(c.Request.Context(), service.ManualTradeInput{
		User:             user,
		AccountID:        req.AccountID,
		InstrumentID:     req.InstrumentID,
		Direction:        req.Direction,
		EntryPrice:       req.EntryPrice,
		ExitPrice:        req.ExitPrice,
		StopLoss:         req.StopLoss,
		TakeProfit:       req.TakeProfit,
		PositionSize:     req.PositionSize,
		Fees:             req.Fees,
		EntryTime:        req.EntryTime,
		ExitTime:         req.ExitTime,
		SetupQuality:     req.SetupQuality,
		ExecutionQuality: req.ExecutionQuality,
		EmotionalState:   req.EmotionalState,
		Notes:            req.Notes,
	})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			Error(c, http.StatusBadRequest, vErr.Msg, nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("manual trade ingestion failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	switch result.Outcome {
	case service.OutcomeAdmitted, service.OutcomeDuplicateIgnored:
		Ok(c, result, nil)
	default:
		Error(c, http.StatusForbidden, result.Message, map[string]any{
			"outcome": result.Outcome,
			"reason":  result.Reason,
		})
	}
}

func (h *TradesHandler) list(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	params := repository.ListTradesParams{
		UserID:       user.ID,
		AccountID:    uint64Query(c, "account_id"),
		InstrumentID: uint64Query(c, "instrument_id"),
		Limit:        intQuery(c, "limit", 50),
		Offset:       intQuery(c, "offset", 0),
		OrderBy:      c.Query("order_by"),
	}
	if status := c.Query("status"); status != "" {
		params.Status = &status
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since", nil)
			return
		}
		params.Since = &t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid until", nil)
			return
		}
		params.Until = &t
	}
	if v := c.Query("asc"); v != "" {
		params.Asc = boolPtr(v == "true" || v == "1")
	}

	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "count failed", nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *TradesHandler) get(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	trade, err := h.Repo.GetTradeByID(c.Request.Context(), user.ID, id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	if trade == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, trade, nil)
}

// update replaces the editable fields and recomputes every derived field
// from scratch; stale P&L can never survive an edit.
func (h *TradesHandler) update(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if !req.PositionSize.IsPositive() {
		Error(c, http.StatusBadRequest, "position_size must be positive", nil)
		return
	}
	if req.Fees.IsNegative() {
		Error(c, http.StatusBadRequest, "fees must not be negative", nil)
		return
	}
	if req.Direction != models.DirectionLong && req.Direction != models.DirectionShort {
		Error(c, http.StatusBadRequest, "direction must be LONG or SHORT", nil)
		return
	}

	trade, err := h.Repo.GetTradeByID(c.Request.Context(), user.ID, id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	if trade == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}

	instrumentID := trade.InstrumentID
	if req.InstrumentID != 0 {
		instrumentID = req.InstrumentID
	}
	instrument, err := h.Repo.GetInstrumentByID(c.Request.Context(), instrumentID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "instrument lookup failed", nil)
		return
	}
	if instrument == nil {
		Error(c, http.StatusBadRequest, "instrument not found", nil)
		return
	}

	trade.InstrumentID = instrument.ID
	trade.Direction = req.Direction
	trade.EntryPrice = req.EntryPrice
	trade.ExitPrice = req.ExitPrice
	trade.StopLoss = req.StopLoss
	trade.TakeProfit = req.TakeProfit
	trade.PositionSize = req.PositionSize
	trade.Fees = req.Fees
	if !req.EntryTime.IsZero() {
		trade.EntryTime = req.EntryTime.UTC()
	}
	trade.ExitTime = req.ExitTime
	trade.SetupQuality = req.SetupQuality
	trade.ExecutionQuality = req.ExecutionQuality
	trade.EmotionalState = req.EmotionalState
	trade.Notes = req.Notes
	service.ApplyComputation(trade, instrument)

	if err := h.Repo.SaveTrade(c.Request.Context(), trade); err != nil {
		Error(c, http.StatusInternalServerError, "save failed", nil)
		return
	}
	Ok(c, trade, nil)
}

func (h *TradesHandler) remove(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	deleted, err := h.Ingest.DeleteTrade(c.Request.Context(), user, id)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("trade delete failed",
				zap.Uint64("user_id", user.ID),
				zap.Uint64("trade_id", id),
				zap.Error(err),
			)
		}
		Error(c, http.StatusInternalServerError, "delete failed", nil)
		return
	}
	if !deleted {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}
