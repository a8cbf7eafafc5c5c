package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const defaultCallTimeout = 30 * time.Second

// Telegram implements Gateway on top of the Bot API client.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
	http   *http.Client

	timeout time.Duration
	// maxAttempts bounds the retry loop for transient failures.
	// 0 keeps the original unbounded at-least-once behavior.
	maxAttempts int
	sleep       func(time.Duration)
}

// Option configures a Telegram gateway.
type Option func(*Telegram)

// WithTimeout sets the per-call timeout for outbound requests.
func WithTimeout(d time.Duration) Option {
	return func(t *Telegram) { t.timeout = d }
}

// WithMaxAttempts bounds retries of transient failures; 0 means unbounded.
func WithMaxAttempts(n int) Option {
	return func(t *Telegram) { t.maxAttempts = n }
}

// NewTelegram wraps an authorized Bot API client.
func NewTelegram(api *tgbotapi.BotAPI, logger *zap.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		api:         api,
		logger:      logger,
		timeout:     defaultCallTimeout,
		maxAttempts: 0,
		sleep:       time.Sleep,
	}
	t.http = &http.Client{Timeout: t.timeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Classify maps a raw client error onto the gateway taxonomy. Unknown errors
// pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			return &RateLimitedError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
		}
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusTooManyRequests:
			return &RateLimitedError{RetryAfter: time.Second}
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrBadRequest, apiErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// invoke runs one remote call under the retry policy: transient timeouts are
// retried, a rate-limit signal is honored by sleeping the indicated duration
// and retrying, permanent failures return classified.
func (t *Telegram) invoke(ctx context.Context, name string, call func() error) error {
	attempts := 0
	for {
		attempts++
		err := Classify(call())
		if err == nil {
			return nil
		}

		var rl *RateLimitedError
		switch {
		case errors.As(err, &rl):
			t.logger.Warn("gateway call rate limited",
				zap.String("call", name),
				zap.Duration("retry_after", rl.RetryAfter),
				zap.Int("attempt", attempts),
			)
			if t.maxAttempts > 0 && attempts >= t.maxAttempts {
				return err
			}
			t.sleep(rl.RetryAfter)
		case errors.Is(err, ErrTimeout):
			t.logger.Warn("gateway call timed out, retrying",
				zap.String("call", name),
				zap.Int("attempt", attempts),
			)
			if t.maxAttempts > 0 && attempts >= t.maxAttempts {
				return err
			}
		default:
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
	}
}

func (t *Telegram) Me() *tgbotapi.User {
	return &t.api.Self
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, markup interface{}) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup

	var sent tgbotapi.Message
	err := t.invoke(ctx, "sendMessage", func() error {
		var err error
		sent, err = t.api.Send(msg)
		return err
	})
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) EditText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	return t.invoke(ctx, "editMessageText", func() error {
		_, err := t.api.Request(edit)
		return err
	})
}

func (t *Telegram) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	return t.invoke(ctx, "editMessageCaption", func() error {
		_, err := t.api.Request(edit)
		return err
	})
}

func (t *Telegram) EditMedia(ctx context.Context, chatID int64, messageID int, photo []byte, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: "photo", Bytes: photo})
	media.Caption = caption
	media.ParseMode = tgbotapi.ModeHTML

	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: markup,
		},
		Media: media,
	}
	return t.invoke(ctx, "editMessageMedia", func() error {
		_, err := t.api.Request(edit)
		return err
	})
}

func (t *Telegram) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, *markup)
	return t.invoke(ctx, "editMessageReplyMarkup", func() error {
		_, err := t.api.Request(edit)
		return err
	})
}

func (t *Telegram) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	forward := tgbotapi.NewForward(toChatID, fromChatID, messageID)

	var sent tgbotapi.Message
	err := t.invoke(ctx, "forwardMessage", func() error {
		var err error
		sent, err = t.api.Send(forward)
		return err
	})
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return t.invoke(ctx, "deleteMessage", func() error {
		_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
		return err
	})
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return t.invoke(ctx, "answerCallbackQuery", func() error {
		_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
		return err
	})
}

func (t *Telegram) GetChatMember(ctx context.Context, chatID, userID int64) (Member, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	}

	var member tgbotapi.ChatMember
	err := t.invoke(ctx, "getChatMember", func() error {
		var err error
		member, err = t.api.GetChatMember(cfg)
		return err
	})
	if err != nil {
		return Member{}, err
	}
	return Member{
		Status:          member.Status,
		CanChangeInfo:   member.CanChangeInfo,
		CanSendMessages: member.CanSendMessages,
	}, nil
}

func (t *Telegram) GetChat(ctx context.Context, chatID int64) (ChatInfo, error) {
	var chat tgbotapi.Chat
	err := t.invoke(ctx, "getChat", func() error {
		var err error
		chat, err = t.api.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		})
		return err
	})
	if err != nil {
		return ChatInfo{}, err
	}
	return ChatInfo{
		ID:       chat.ID,
		Type:     chat.Type,
		Title:    chat.Title,
		UserName: chat.UserName,
	}, nil
}

// DownloadFile fetches a file's bytes and reports its extension.
func (t *Telegram) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	var file tgbotapi.File
	err := t.invoke(ctx, "getFile", func() error {
		var err error
		file, err = t.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
		return err
	})
	if err != nil {
		return nil, "", err
	}

	var data []byte
	err = t.invoke(ctx, "downloadFile", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.api.Token), nil)
		if err != nil {
			return err
		}
		resp, err := t.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: file download status %d", ErrBadRequest, resp.StatusCode)
		}
		buf := &bytes.Buffer{}
		if _, err := io.Copy(buf, resp.Body); err != nil {
			return err
		}
		data = buf.Bytes()
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	extension := ""
	if ext := path.Ext(file.FilePath); len(ext) > 1 {
		extension = ext[1:]
	}
	return data, extension, nil
}
