package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradelog/internal/auth"
	"tradelog/internal/gate"
	"tradelog/internal/models"
	"tradelog/internal/repository"
)

type ChecklistHandler struct {
	Repo   repository.Repository
	Gate   *gate.Gate
	Logger *zap.Logger
}

func (h *ChecklistHandler) Register(r *gin.Engine) {
	r.PUT("/api/v1/checklist", h.upsert)
	r.GET("/api/v1/checklist", h.status)
}

type checklistRequest struct {
	Responses map[string]bool `json:"responses"`
}

type checklistResponse struct {
	Date            string      `json:"date"`
	ScorePercentage float64     `json:"score_percentage"`
	Passed          bool        `json:"passed"`
	Gate            gate.Status `json:"gate"`
}

// upsert records today's checklist. Resubmitting overwrites the earlier
// answers, so a trader can retry until the day rolls over.
func (h *ChecklistHandler) upsert(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req checklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	if len(req.Responses) == 0 {
		Error(c, http.StatusBadRequest, "responses must not be empty", nil)
		return
	}

	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)
	score := h.Gate.Score(req.Responses)
	passed := h.Gate.Evaluate(score)

	raw, err := json.Marshal(req.Responses)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid responses", nil)
		return
	}
	item := &models.DailyChecklist{
		UserID:          user.ID,
		Date:            day,
		ScorePercentage: score,
		Passed:          passed,
		Responses:       datatypes.JSON(raw),
	}
	if err := h.Repo.UpsertDailyChecklist(c.Request.Context(), item); err != nil {
		if h.Logger != nil {
			h.Logger.Error("checklist upsert failed", zap.Uint64("user_id", user.ID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "save failed", nil)
		return
	}

	st, err := h.Gate.TodayStatus(c.Request.Context(), user, now)
	if err != nil {
		Error(c, http.StatusInternalServerError, "status lookup failed", nil)
		return
	}
	Ok(c, checklistResponse{
		Date:            day.Format("2006-01-02"),
		ScorePercentage: score,
		Passed:          passed,
		Gate:            st,
	}, nil)
}

func (h *ChecklistHandler) status(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)

	cl, err := h.Repo.GetDailyChecklist(c.Request.Context(), user.ID, day)
	if err != nil {
		Error(c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	st, err := h.Gate.TodayStatus(c.Request.Context(), user, now)
	if err != nil {
		Error(c, http.StatusInternalServerError, "status lookup failed", nil)
		return
	}

	resp := checklistResponse{
		Date: day.Format("2006-01-02"),
		Gate: st,
	}
	if cl != nil {
		resp.ScorePercentage = cl.ScorePercentage
		resp.Passed = cl.Passed
	}
	Ok(c, resp, nil)
}
