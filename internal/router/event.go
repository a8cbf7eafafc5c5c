// Package router multiplexes inbound chat events across the registered
// feature handlers. Handlers are grouped into ordered priority groups built
// once at startup; for each event every matching handler runs in ascending
// group order, except that the catch-all group is skipped once a lower group
// matched.
package router

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"channelhelper/backend/internal/models"
)

// Event is the dispatcher's view of one inbound update: the effective
// message, chat and acting user, plus the user's conversation state resolved
// once per event for predicate evaluation.
type Event struct {
	// ID correlates all log lines produced while handling one update.
	ID     string
	Update *tgbotapi.Update

	Message  *tgbotapi.Message
	Callback *tgbotapi.CallbackQuery
	Chat     *tgbotapi.Chat
	User     *tgbotapi.User

	// Edited is set for edited-message echoes re-delivered by the platform.
	Edited bool

	// State is the acting user's conversation state; Idle when the event has
	// no acting user (plain channel posts).
	State models.State
}

// NewEvent normalizes an update into an Event. Returns nil for update kinds
// the bot does not handle (polls, shipping queries, ...).
func NewEvent(update *tgbotapi.Update) *Event {
	ev := &Event{
		ID:     uuid.New().String(),
		Update: update,
		State:  models.Idle,
	}

	switch {
	case update.CallbackQuery != nil:
		ev.Callback = update.CallbackQuery
		ev.Message = update.CallbackQuery.Message
		ev.User = update.CallbackQuery.From
	case update.Message != nil:
		ev.Message = update.Message
		ev.User = update.Message.From
	case update.EditedMessage != nil:
		ev.Message = update.EditedMessage
		ev.User = update.EditedMessage.From
		ev.Edited = true
	case update.ChannelPost != nil:
		ev.Message = update.ChannelPost
	case update.EditedChannelPost != nil:
		ev.Message = update.EditedChannelPost
		ev.Edited = true
	default:
		return nil
	}

	if ev.Message != nil {
		ev.Chat = ev.Message.Chat
	}
	return ev
}

// InChannel reports whether the event happened in a broadcast channel.
func (e *Event) InChannel() bool {
	return e.Chat != nil && e.Chat.IsChannel()
}

// InPrivate reports whether the event happened in a private chat.
func (e *Event) InPrivate() bool {
	return e.Chat != nil && e.Chat.IsPrivate()
}

// Text returns the message text, falling back to the media caption.
func (e *Event) Text() string {
	if e.Message == nil {
		return ""
	}
	if e.Message.Text != "" {
		return e.Message.Text
	}
	return e.Message.Caption
}

// IsCommand reports whether the message is a /command.
func (e *Event) IsCommand() bool {
	return e.Message != nil && e.Message.IsCommand()
}

// Command returns the bare command name, without slash and bot mention.
func (e *Event) Command() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Command()
}

// CallbackData returns the payload of a button press, or "".
func (e *Event) CallbackData() string {
	if e.Callback == nil {
		return ""
	}
	return e.Callback.Data
}

// IsMedia reports whether the message carries a media attachment.
func (e *Event) IsMedia() bool {
	m := e.Message
	if m == nil {
		return false
	}
	return len(m.Photo) > 0 || m.Video != nil || m.Audio != nil ||
		m.Document != nil || m.Animation != nil || m.Voice != nil
}

// Photo returns the largest size of a photo attachment, or nil.
func (e *Event) Photo() *tgbotapi.PhotoSize {
	if e.Message == nil || len(e.Message.Photo) == 0 {
		return nil
	}
	return &e.Message.Photo[len(e.Message.Photo)-1]
}

// IsForwarded reports whether the message was forwarded from somewhere.
func (e *Event) IsForwarded() bool {
	return e.Message != nil && (e.Message.ForwardFromChat != nil || e.Message.ForwardFrom != nil || e.Message.ForwardDate != 0)
}

// ForwardedFromChannel returns the channel the message was forwarded out of,
// or nil when it was not forwarded from a channel.
func (e *Event) ForwardedFromChannel() *tgbotapi.Chat {
	if e.Message == nil || e.Message.ForwardFromChat == nil {
		return nil
	}
	if !e.Message.ForwardFromChat.IsChannel() {
		return nil
	}
	return e.Message.ForwardFromChat
}

// MessageID returns the effective message id, 0 when absent.
func (e *Event) MessageID() int {
	if e.Message == nil {
		return 0
	}
	return e.Message.MessageID
}

// MediaGroupID returns the batch id of a multi-attachment post, or "".
func (e *Event) MediaGroupID() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.MediaGroupID
}

// TextEquals reports whether the message text equals any of the given
// values, optionally case-insensitively.
func (e *Event) TextEquals(foldCase bool, values ...string) bool {
	text := e.Text()
	if foldCase {
		text = strings.ToLower(strings.TrimSpace(text))
	}
	for _, v := range values {
		if foldCase {
			v = strings.ToLower(v)
		}
		if text == v {
			return true
		}
	}
	return false
}
