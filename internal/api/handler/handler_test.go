package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
)

func newTestRouter(t *testing.T, reg *router.Registry) (*gin.Engine, *router.Dispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolve := func(ctx context.Context, user *tgbotapi.User) models.State { return models.Idle }
	d := router.NewDispatcher(reg, resolve, zap.NewNop(), 1)
	t.Cleanup(d.Close)

	r := gin.New()
	NewHandler(d, zap.NewNop(), "webhook").Routes(r)
	return r, d
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, router.NewRegistry())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTelegramWebhook_MalformedPayload(t *testing.T) {
	r, _ := newTestRouter(t, router.NewRegistry())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telegram-webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTelegramWebhook_DispatchesUpdate(t *testing.T) {
	// Arrange: a handler that records the dispatched text.
	reg := router.NewRegistry()
	got := make(chan string, 1)
	reg.Group("capture").Handle("capture", router.IsText(),
		func(ctx context.Context, ev *router.Event) {
			got <- ev.Text()
		})
	r, _ := newTestRouter(t, reg)

	body := `{"update_id":1,"message":{"message_id":7,"text":"hi","chat":{"id":5,"type":"private"},"from":{"id":5}}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/telegram-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	r.ServeHTTP(w, req)

	// Assert: the endpoint acknowledges immediately and the update reaches
	// the handler table off the request path.
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case text := <-got:
		assert.Equal(t, "hi", text)
	case <-time.After(2 * time.Second):
		t.Fatal("update never dispatched")
	}
}
