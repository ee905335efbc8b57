package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tradelog/internal/broker"
	"tradelog/internal/repository"
	"tradelog/internal/service"
)

// WebhookHandler ingests the automated broker feed. Its response contract
// is fixed by the expert-advisor side: 401 for a bad key, 400 for a
// malformed payload, and 200 with a success flag for everything else so
// the bridge never retries a decision the server already made.
type WebhookHandler struct {
	Repo     repository.Repository
	Ingest   *service.IngestService
	Validate *validator.Validate
	Logger   *zap.Logger
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/webhook/trades", h.ingest)
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *WebhookHandler) ingest(c *gin.Context) {
	var req broker.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: "invalid payload"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: err.Error()})
		return
	}

	user, err := h.Repo.GetUserByAPIKey(c.Request.Context(), strings.TrimSpace(req.APIKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, webhookResponse{Success: false, Message: "auth lookup failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, webhookResponse{Success: false, Message: "unknown api key"})
		return
	}

	result, err := h.Ingest.IngestWebhook(c.Request.Context(), user, req)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, webhookResponse{Success: false, Message: vErr.Msg})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("webhook ingestion failed", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, webhookResponse{Success: false, Message: "internal error"})
		return
	}

	switch result.Outcome {
	case service.OutcomeAdmitted, service.OutcomeDuplicateIgnored:
		c.JSON(http.StatusOK, webhookResponse{Success: true})
	default:
		c.JSON(http.StatusOK, webhookResponse{Success: false, Message: result.Message})
	}
}
