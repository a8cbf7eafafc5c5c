package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"channelhelper/backend/internal/gateway"
	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/storage"
	"channelhelper/backend/internal/texts"
)

func registerChannelManager(env *Env, g *router.Group) {
	registerFooterButton("Settings")

	g.HandleBackground("add-channel",
		router.And(router.IsForwarded(), router.Not(router.InChannel())),
		adapt(env, "add-channel", addChannel))

	g.Handle("start",
		router.Or(
			router.Command("start", "reset", "cancel"),
			router.TextIsFold("cancel", "home", "reset"),
			router.CallbackPattern("^(home|cancel)$"),
		),
		adapt(env, "start", start))

	g.Handle("settings-menu",
		router.Or(
			router.And(router.TextIs("Settings"), router.StateIs(models.Idle)),
			router.And(router.TextIs("Back"), router.StateIs(models.ChannelSettingsMenu)),
		),
		adapt(env, "settings-menu", settingsMenu))

	g.HandleBackground("update-channels",
		router.CallbackPattern("^update_channels$"),
		adapt(env, "update-channels", updateChannels))

	g.Handle("channel-settings-menu",
		router.CallbackPattern("^change_settings_menu:.*$"),
		adapt(env, "channel-settings-menu", channelSettingsMenu))

	g.Handle("remove-channel-confirm",
		router.And(router.TextIs("Remove"), router.StateIs(models.ChannelSettingsMenu)),
		adapt(env, "remove-channel-confirm", removeChannelConfirm))

	g.Handle("remove-channel",
		router.And(router.IsText(), router.StateIs(models.PreRemoveChannel)),
		adapt(env, "remove-channel", removeChannel))
}

// addChannel puts a channel under management when a user forwards one of its
// posts into the private chat. Both the bot's membership and the user's admin
// status on the channel are verified against the platform.
func addChannel(ctx context.Context, c *Context) error {
	possible := c.Ev.ForwardedFromChannel()
	if possible == nil || !c.Ev.InPrivate() {
		return nil
	}

	botMember, err := c.Env.Gw.GetChatMember(ctx, possible.ID, c.Env.Gw.Me().ID)
	if err != nil && !errors.Is(err, gateway.ErrUnauthorized) {
		return fmt.Errorf("check bot membership: %w", err)
	}
	if err != nil || botMember.Left() {
		return c.Reply(ctx, texts.Get("bot_not_member"), nil)
	}

	userMember, err := c.Env.Gw.GetChatMember(ctx, possible.ID, c.Ev.User.ID)
	if err != nil {
		return fmt.Errorf("check user membership: %w", err)
	}
	if !userMember.IsAdmin() {
		return c.Reply(ctx, texts.Get("not_admin"), nil)
	}

	reply := texts.Get("channel_updated")
	channel, err := c.Env.Store.GetChannel(possible.ID)
	if errors.Is(err, storage.ErrNotFound) {
		reply = texts.Get("channel_added")
		channel = &models.ChannelSettings{
			ChannelID: possible.ID,
			AddedByID: c.User.UserID,
			AddedBy:   c.User,
		}
	} else if err != nil {
		return err
	}

	channel.UpdateFromChat(possible)
	if err := c.Env.Store.SaveChannel(channel); err != nil {
		return fmt.Errorf("save channel %d: %w", possible.ID, err)
	}
	if err := c.Env.Store.AddChannelUser(possible.ID, c.User); err != nil {
		return fmt.Errorf("attach admin to channel %d: %w", possible.ID, err)
	}
	return c.Reply(ctx, reply, nil)
}

// start is the global reset: /start, /cancel, /reset, the literal
// Cancel/Home/Reset texts and the home/cancel callbacks all collapse the
// conversation to idle and show the main menu.
func start(ctx context.Context, c *Context) error {
	if c.Ev.Callback != nil {
		c.Answer(ctx, "")
		c.DeleteMessage(ctx)
	} else if c.Ev.IsCommand() && c.Ev.Command() == "start" {
		if err := c.Reply(ctx, texts.Get("start"), nil); err != nil {
			return err
		}
	}

	if c.Ev.TextEquals(true, "cancel", "home", "reset") && c.User.State != models.Idle {
		if err := c.Reply(ctx, texts.Get("action_cancelled"), nil); err != nil {
			return err
		}
	}

	if err := c.GoIdle(); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("what_to_do"), startKeyboard())
}

func settingsMenu(ctx context.Context, c *Context) error {
	footer := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Update Channels", "update_channels"),
		tgbotapi.NewInlineKeyboardButtonData("Back", "cancel"),
	}
	menu, err := c.channelSelectorMenu("change_settings_menu", footer...)
	if err != nil {
		return err
	}
	if menu == nil {
		return c.Reply(ctx, texts.Get("no_channels_hint"), nil)
	}

	if err := c.SetState(models.SettingsMenu); err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Get("settings_intro"), replyKeyboard([]string{"Cancel"})); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("what_to_do"), menu)
}

// updateChannels refreshes the cached titles and usernames of every channel
// the user administers. Channels the bot lost access to are marked zombie;
// a successful lookup clears the flag.
func updateChannels(ctx context.Context, c *Context) error {
	channels, err := c.Env.Store.UserChannels(c.User)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return c.Reply(ctx, texts.Get("no_channels"), nil)
	}

	for _, channel := range channels {
		info, err := c.Env.Gw.GetChat(ctx, channel.ChannelID)
		if errors.Is(err, gateway.ErrUnauthorized) {
			if err := c.Env.Store.SetChannelZombie(channel.ChannelID, true); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			c.Env.Log.Warn("channel refresh failed",
				zap.Int64("channel_id", channel.ChannelID), zap.Error(err))
			continue
		}
		channel.Title = info.Title
		channel.Username = info.UserName
		channel.Zombie = false
		if err := c.Env.Store.SaveChannel(channel); err != nil {
			return err
		}
	}

	c.Answer(ctx, "")
	return c.Reply(ctx, texts.Get("channels_updated"), nil)
}

func channelSettingsMenu(ctx context.Context, c *Context) error {
	channelID, err := strconv.ParseInt(c.CallbackArg(1), 10, 64)
	if err != nil {
		c.Answer(ctx, "")
		return nil
	}
	c.DeleteMessage(ctx)

	if err := c.SetCurrentChannel(channelID); err != nil {
		return err
	}
	if err := c.SetState(models.ChannelSettingsMenu); err != nil {
		return err
	}

	channel, err := c.Env.Store.GetChannel(channelID)
	if err != nil {
		return err
	}
	keyboard := replyKeyboard([]string{"Remove"}, []string{"Back", "Cancel"})
	return c.Reply(ctx, texts.Format("channel_settings_for", channel.Name()), keyboard)
}

func removeChannelConfirm(ctx context.Context, c *Context) error {
	channel, err := c.CurrentChannel()
	if err != nil {
		return err
	}
	if err := c.SetState(models.PreRemoveChannel); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Format("remove_confirm", channel.Name()), replyKeyboard([]string{"Yes", "No"}))
}

// removeChannel handles the yes/no confirmation. Removing detaches the user
// from the channel; when no administrator is left, the channel record and
// everything it owns are deleted.
func removeChannel(ctx context.Context, c *Context) error {
	// The global reset owns these words.
	if c.Ev.TextEquals(true, "cancel", "home", "reset") {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Ev.Text())) {
	case "yes":
		channel, err := c.CurrentChannel()
		if err != nil {
			return err
		}
		remaining, err := c.Env.Store.RemoveChannelUser(channel.ChannelID, c.User)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := c.Env.Store.DeleteChannel(channel.ChannelID); err != nil {
				return err
			}
		}
		if err := c.Reply(ctx, texts.Get("channel_removed"), nil); err != nil {
			return err
		}
	case "no":
	default:
		return c.Reply(ctx, texts.Get("yes_or_no"), nil)
	}
	return start(ctx, c)
}
