package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradelog/internal/models"
	"tradelog/internal/repository"
)

// InstrumentsHandler manages the symbol catalog. Writes are upserts keyed
// on code so re-seeding an instrument is idempotent.
type InstrumentsHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *InstrumentsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/instruments")
	g.GET("", h.list)
	g.POST("", h.upsert)
	g.PUT("", h.upsert)
}

type instrumentRequest struct {
	Code         string          `json:"code"`
	TickSize     decimal.Decimal `json:"tick_size"`
	TickValue    decimal.Decimal `json:"tick_value"`
	SessionTimes string          `json:"session_times"`
}

func (h *InstrumentsHandler) list(c *gin.Context) {
	items, err := h.Repo.ListInstruments(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, items, nil)
}

func (h *InstrumentsHandler) upsert(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		Error(c, http.StatusBadRequest, "code must not be empty", nil)
		return
	}
	if !req.TickSize.IsPositive() || !req.TickValue.IsPositive() {
		Error(c, http.StatusBadRequest, "tick_size and tick_value must be positive", nil)
		return
	}

	item := &models.Instrument{
		Code:         code,
		TickSize:     req.TickSize,
		TickValue:    req.TickValue,
		SessionTimes: req.SessionTimes,
	}
	if err := h.Repo.UpsertInstrument(c.Request.Context(), item); err != nil {
		if h.Logger != nil {
			h.Logger.Error("instrument upsert failed", zap.String("code", code), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "save failed", nil)
		return
	}
	Ok(c, item, nil)
}
