package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGateway(opts ...Option) *Telegram {
	return NewTelegram(&tgbotapi.BotAPI{}, zap.NewNop(), opts...)
}

func TestClassify_RateLimited(t *testing.T) {
	err := Classify(&tgbotapi.Error{
		Code:    http.StatusTooManyRequests,
		Message: "Too Many Requests: retry after 5",
		ResponseParameters: tgbotapi.ResponseParameters{
			RetryAfter: 5,
		},
	})

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 5*time.Second, rl.RetryAfter)
}

func TestClassify_Unauthorized(t *testing.T) {
	err := Classify(&tgbotapi.Error{Code: http.StatusForbidden, Message: "Forbidden: bot was kicked"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClassify_BadRequest(t *testing.T) {
	err := Classify(&tgbotapi.Error{Code: http.StatusBadRequest, Message: "Bad Request: message is not modified"})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestClassify_DeadlineIsTimeout(t *testing.T) {
	err := Classify(fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClassify_NilPassesThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

// A rate-limit signal must be honored by sleeping the indicated duration and
// retrying the same call exactly once more before it succeeds.
func TestInvoke_RateLimitedSleepsAndRetries(t *testing.T) {
	// Arrange
	gw := testGateway()
	var slept []time.Duration
	gw.sleep = func(d time.Duration) { slept = append(slept, d) }

	calls := 0
	rateLimited := &tgbotapi.Error{
		Code:               http.StatusTooManyRequests,
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 5},
	}

	// Act
	err := gw.invoke(context.Background(), "editMessageText", func() error {
		calls++
		if calls == 1 {
			return rateLimited
		}
		return nil
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "the call must be retried exactly once")
	require.Len(t, slept, 1)
	assert.Equal(t, 5*time.Second, slept[0])
}

func TestInvoke_TimeoutRetriesUntilSuccess(t *testing.T) {
	gw := testGateway()
	gw.sleep = func(time.Duration) {}

	calls := 0
	err := gw.invoke(context.Background(), "forwardMessage", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("post: %w", context.DeadlineExceeded)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestInvoke_MaxAttemptsBoundsTransientRetries(t *testing.T) {
	gw := testGateway(WithMaxAttempts(2))
	gw.sleep = func(time.Duration) {}

	calls := 0
	err := gw.invoke(context.Background(), "editMessageCaption", func() error {
		calls++
		return fmt.Errorf("post: %w", context.DeadlineExceeded)
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, calls)
}

func TestInvoke_PermanentErrorNotRetried(t *testing.T) {
	gw := testGateway()

	calls := 0
	err := gw.invoke(context.Background(), "editMessageText", func() error {
		calls++
		return &tgbotapi.Error{Code: http.StatusForbidden, Message: "Forbidden"}
	})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestMember_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		member  Member
		isAdmin bool
		left    bool
	}{
		{"creator", Member{Status: "creator"}, true, false},
		{"administrator", Member{Status: "administrator"}, true, false},
		{"member", Member{Status: "member"}, false, false},
		{"left", Member{Status: "left"}, false, true},
		{"kicked", Member{Status: "kicked"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isAdmin, tt.member.IsAdmin())
			assert.Equal(t, tt.left, tt.member.Left())
		})
	}
}
