package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradelog/internal/auth"
	"tradelog/internal/models"
	"tradelog/internal/repository"
)

type AccountsHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *AccountsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/accounts")
	g.GET("", h.list)
	g.POST("", h.create)
}

type accountRequest struct {
	Name             string `json:"name"`
	Currency         string `json:"currency"`
	BrokerTimeOffset int    `json:"broker_time_offset"`
}

func (h *AccountsHandler) list(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	items, err := h.Repo.ListAccountsByUserID(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AccountsHandler) create(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(c, http.StatusBadRequest, "name must not be empty", nil)
		return
	}
	// Broker clocks sit within a day of UTC in practice.
	if req.BrokerTimeOffset < -24 || req.BrokerTimeOffset > 24 {
		Error(c, http.StatusBadRequest, "broker_time_offset out of range", nil)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	item := &models.Account{
		UserID:           user.ID,
		Name:             name,
		Currency:         currency,
		BrokerTimeOffset: req.BrokerTimeOffset,
	}
	if err := h.Repo.CreateAccount(c.Request.Context(), item); err != nil {
		if h.Logger != nil {
			h.Logger.Error("account create failed", zap.Uint64("user_id", user.ID), zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "save failed", nil)
		return
	}
	Ok(c, item, nil)
}
