// Package gateway wraps the Telegram Bot API behind a capability interface.
// Callers never see raw transport errors: every failure is classified into
// the transient/permanent taxonomy, and transient failures are retried
// inside the gateway according to the configured policy.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrTimeout marks a transient remote failure; the gateway retries these.
	ErrTimeout = errors.New("gateway: timeout")
	// ErrUnauthorized marks a permanent authorization failure (revoked
	// access, bot kicked). Callers mark the affected channel or user zombie.
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrBadRequest marks a permanently malformed call.
	ErrBadRequest = errors.New("gateway: bad request")
)

// RateLimitedError is the platform's flood-control signal. The gateway
// honors it by sleeping RetryAfter and retrying the same call.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("gateway: rate limited, retry after %s", e.RetryAfter)
}

// Member is the subset of chat-member data the handlers decide on.
type Member struct {
	Status          string
	CanChangeInfo   bool
	CanSendMessages bool
}

// IsAdmin reports whether the member may administer the chat.
func (m Member) IsAdmin() bool {
	return m.Status == "administrator" || m.Status == "creator"
}

// IsCreator reports whether the member owns the chat.
func (m Member) IsCreator() bool { return m.Status == "creator" }

// Left reports whether the member has left or was kicked.
func (m Member) Left() bool { return m.Status == "left" || m.Status == "kicked" }

// ChatInfo is the subset of chat data cached in the settings store.
type ChatInfo struct {
	ID       int64
	Type     string
	Title    string
	UserName string
}

// Gateway is the remote messaging capability consumed by the command
// handlers and the auto-edit pipeline.
type Gateway interface {
	// Me returns the bot's own identity as reported by the platform.
	Me() *tgbotapi.User

	SendText(ctx context.Context, chatID int64, text string, markup interface{}) (messageID int, err error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditMedia(ctx context.Context, chatID int64, messageID int, photo []byte, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (forwardedID int, err error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error

	GetChatMember(ctx context.Context, chatID, userID int64) (Member, error)
	GetChat(ctx context.Context, chatID int64) (ChatInfo, error)
	DownloadFile(ctx context.Context, fileID string) (data []byte, extension string, err error)
}
