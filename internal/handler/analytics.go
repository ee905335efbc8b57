package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradelog/internal/auth"
	"tradelog/internal/repository"
	"tradelog/internal/service"
)

type AnalyticsHandler struct {
	Repo      repository.Repository
	Analytics *service.AnalyticsService
	Logger    *zap.Logger
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/analytics", h.report)
	r.GET("/api/v1/analytics/daily", h.daily)
}

func (h *AnalyticsHandler) report(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	rangeSelector := c.DefaultQuery("range", "all")

	rep, err := h.Analytics.Report(c.Request.Context(), user, rangeSelector)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			Error(c, http.StatusBadRequest, vErr.Msg, nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Error("analytics report failed", zap.Uint64("user_id", user.ID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "report failed", nil)
		return
	}
	Ok(c, rep, map[string]any{"range": rangeSelector})
}

// daily serves the precomputed per-day snapshots built by the stats job.
func (h *AnalyticsHandler) daily(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	days := intQuery(c, "days", 30)
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)

	items, err := h.Repo.ListDailyStats(c.Request.Context(), user.ID, since)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	Ok(c, items, map[string]any{"days": days})
}
