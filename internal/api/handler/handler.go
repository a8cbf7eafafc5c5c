// Package handler exposes the HTTP surface: the Telegram webhook endpoint
// and the health probes.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"channelhelper/backend/internal/router"
)

// Handler holds the dispatcher the webhook feeds into.
type Handler struct {
	Dispatcher *router.Dispatcher
	Log        *zap.Logger
	Mode       string
}

func NewHandler(dispatcher *router.Dispatcher, log *zap.Logger, mode string) *Handler {
	return &Handler{Dispatcher: dispatcher, Log: log, Mode: mode}
}

// Routes registers the HTTP endpoints on a gin engine.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/health", h.Health)
	r.POST("/telegram-webhook", h.TelegramWebhook)
}

func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "channelhelper", "mode": h.Mode})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TelegramWebhook decodes an update and queues it on the dispatcher's worker
// pool, so the platform gets its 200 without waiting on handlers while a
// flood of updates still meets the pool's backpressure.
func (h *Handler) TelegramWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.Log.Warn("malformed webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	h.Dispatcher.DispatchBackground(context.Background(), &update)
	c.Status(http.StatusOK)
}
