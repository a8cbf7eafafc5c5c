// Package commands contains the feature handler units: the conversational
// menus operated from a private chat and the channel-post pipeline. Each
// handler gets a fresh Context per invocation carrying the loaded settings
// records of the acting user and, for channel events, the channel.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"channelhelper/backend/internal/gateway"
	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/storage"
)

// ErrSkip signals that a handler does not apply to this event. The dispatch
// adapter swallows it; it is not a failure.
var ErrSkip = errors.New("commands: not applicable")

// Env bundles the process-wide dependencies the handlers close over.
type Env struct {
	Store    storage.Storage
	Gw       gateway.Gateway
	Log      *zap.Logger
	FontPath string
}

// Context is the per-invocation execution environment of a handler. Every
// matched handler builds its own; contexts are never shared across handlers.
type Context struct {
	Env *Env
	Ev  *router.Event

	// User is the settings record of the acting user, nil for channel posts.
	User *models.UserSettings
	// Channel is the settings record of the event's chat when the event
	// happened in a managed channel, nil otherwise.
	Channel *models.ChannelSettings

	// MediaGroup tracks the batch this message belongs to; Created reports
	// whether this invocation claimed the batch representative.
	MediaGroup        *models.MediaGroup
	MediaGroupCreator bool
}

// NewContext resolves the settings records for an event. User settings are
// created on first contact; missing channel settings leave Channel nil.
func NewContext(ctx context.Context, env *Env, ev *router.Event) (*Context, error) {
	c := &Context{Env: env, Ev: ev}

	if ev.User != nil {
		user, err := env.Store.GetOrCreateUser(ev.User)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		c.User = user
	}

	if ev.Chat != nil {
		channel, err := env.Store.GetChannel(ev.Chat.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("resolve channel: %w", err)
		}
		c.Channel = channel
	}

	if groupID := ev.MediaGroupID(); groupID != "" && c.Channel != nil {
		group, created, err := env.Store.GetOrCreateMediaGroup(groupID, ev.MessageID(), c.Channel.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("resolve media group: %w", err)
		}
		c.MediaGroup = group
		c.MediaGroupCreator = created
	}

	return c, nil
}

// Reply sends text into the event's chat. markup may be a reply keyboard, an
// inline keyboard or nil.
func (c *Context) Reply(ctx context.Context, text string, markup interface{}) error {
	_, err := c.Env.Gw.SendText(ctx, c.Ev.Chat.ID, text, markup)
	return err
}

// Answer acknowledges a callback press; a no-op for plain messages.
func (c *Context) Answer(ctx context.Context, text string) {
	if c.Ev.Callback == nil {
		return
	}
	if err := c.Env.Gw.AnswerCallback(ctx, c.Ev.Callback.ID, text); err != nil {
		c.Env.Log.Warn("answer callback failed", zap.Error(err))
	}
}

// DeleteMessage removes the event's message, typically a consumed menu.
func (c *Context) DeleteMessage(ctx context.Context) {
	if c.Ev.Message == nil {
		return
	}
	if err := c.Env.Gw.DeleteMessage(ctx, c.Ev.Chat.ID, c.Ev.MessageID()); err != nil {
		c.Env.Log.Warn("delete message failed", zap.Error(err))
	}
}

// SetState persists a conversation-state transition for the acting user.
func (c *Context) SetState(state models.State) error {
	if c.User == nil {
		return fmt.Errorf("set state: no acting user")
	}
	return c.Env.Store.SetUserState(c.User, state)
}

// SetCurrentChannel points the acting user at the channel being configured.
func (c *Context) SetCurrentChannel(channelID int64) error {
	if c.User == nil {
		return fmt.Errorf("set current channel: no acting user")
	}
	return c.Env.Store.SetCurrentChannel(c.User, &channelID)
}

// GoIdle collapses the conversation to the idle state and clears the channel
// being configured.
func (c *Context) GoIdle() error {
	if c.User == nil {
		return nil
	}
	if err := c.Env.Store.SetCurrentChannel(c.User, nil); err != nil {
		return err
	}
	return c.Env.Store.SetUserState(c.User, models.Idle)
}

// CurrentChannel loads the channel the acting user is configuring. ErrSkip
// when no channel is selected, which means the conversation got out of sync.
func (c *Context) CurrentChannel() (*models.ChannelSettings, error) {
	if c.User == nil || c.User.CurrentChannelID == nil {
		return nil, ErrSkip
	}
	channel, err := c.Env.Store.GetChannel(*c.User.CurrentChannelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSkip
	}
	return channel, err
}

// CallbackArg returns the i-th colon-separated field of the callback payload.
func (c *Context) CallbackArg(i int) string {
	parts := strings.Split(c.Ev.CallbackData(), ":")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// CanChangeInfo checks the acting user's change-info permission on a channel.
// Channel creators pass regardless of the explicit permission bit.
func (c *Context) CanChangeInfo(ctx context.Context, channelID int64) (bool, error) {
	member, err := c.Env.Gw.GetChatMember(ctx, channelID, c.Ev.User.ID)
	if err != nil {
		return false, err
	}
	return member.CanChangeInfo || member.IsCreator(), nil
}

// CanSendMessages checks the acting user's send permission on a channel.
func (c *Context) CanSendMessages(ctx context.Context, channelID int64) (bool, error) {
	member, err := c.Env.Gw.GetChatMember(ctx, channelID, c.Ev.User.ID)
	if err != nil {
		return false, err
	}
	return member.CanSendMessages || member.IsCreator(), nil
}
