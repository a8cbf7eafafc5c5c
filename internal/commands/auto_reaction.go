package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/gomoji"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/texts"
)

func registerAutoReaction(env *Env, g *router.Group) {
	registerStartButton("Reactions")

	g.Handle("reactions-menu",
		router.And(router.TextIs("Reactions"), router.StateIs(models.Idle)),
		adapt(env, "reactions-menu", reactionsMenu))

	g.HandleBackground("pre-set-reactions",
		router.CallbackPattern("^change_reactions:.*$"),
		adapt(env, "pre-set-reactions", preSetReactions))

	g.Handle("set-reactions",
		router.And(router.IsText(), router.StateIs(models.SetReactions)),
		adapt(env, "set-reactions", setReactions))

	g.HandleBackground("reaction-toggle",
		router.CallbackPattern("^reaction:.*"),
		adapt(env, "reaction-toggle", toggleReaction))
}

func reactionsMenu(ctx context.Context, c *Context) error {
	menu, err := c.channelSelectorMenu("change_reactions")
	if err != nil {
		return err
	}
	if menu == nil {
		if err := c.Reply(ctx, texts.Get("reactions_intro"), nil); err != nil {
			return err
		}
		return c.Reply(ctx, texts.Get("no_channels"), nil)
	}

	if err := c.SetState(models.SetReactionsMenu); err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Get("reactions_intro"), replyKeyboard([]string{"Cancel"})); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("channels_list"), menu)
}

func preSetReactions(ctx context.Context, c *Context) error {
	channelID, err := strconv.ParseInt(c.CallbackArg(1), 10, 64)
	if err != nil {
		c.Answer(ctx, "")
		return nil
	}

	allowed, err := c.CanChangeInfo(ctx, channelID)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Reply(ctx, texts.Get("need_change_info_reactions"), nil)
	}

	channel, err := c.Env.Store.GetChannel(channelID)
	if err != nil {
		return err
	}
	if err := c.SetCurrentChannel(channelID); err != nil {
		return err
	}
	if err := c.SetState(models.SetReactions); err != nil {
		return err
	}

	c.Answer(ctx, "")
	c.DeleteMessage(ctx)

	current := strings.Join(channel.Reactions, ", ")
	if current == "" {
		current = "-"
	}
	return c.Reply(ctx, texts.Format("reactions_new", channel.Name(), current),
		replyKeyboard([]string{"Clear", "Cancel"}))
}

func setReactions(ctx context.Context, c *Context) error {
	// The global reset owns these words.
	if c.Ev.TextEquals(true, "cancel", "home", "reset") {
		return nil
	}

	text := strings.TrimSpace(c.Ev.Text())
	if text == "" {
		return c.Reply(ctx, texts.Get("need_emojis"), nil)
	}

	channel, err := c.CurrentChannel()
	if err != nil {
		return err
	}

	if text == "Clear" {
		channel.Reactions = nil
		if err := c.Env.Store.SaveChannel(channel); err != nil {
			return err
		}
		return c.Reply(ctx, texts.Format("reactions_cleared", channel.Name()),
			replyKeyboard([]string{"Clear", "Home"}))
	}

	var reactions []string
	for _, e := range gomoji.CollectAll(text) {
		reactions = append(reactions, e.Character)
	}
	if len(reactions) == 0 {
		return c.Reply(ctx, texts.Get("no_emojis"), nil)
	}

	channel.Reactions = reactions
	if err := c.Env.Store.SaveChannel(channel); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Format("reactions_set", channel.Name(), strings.Join(reactions, ", ")),
		replyKeyboard([]string{"Clear", "Home"}))
}

// toggleReaction handles a press on one of the reaction buttons under a
// channel post. A user holds at most one reaction per message; pressing the
// held emoji again is rejected without mutation.
func toggleReaction(ctx context.Context, c *Context) error {
	if c.Channel == nil || len(c.Channel.Reactions) == 0 {
		c.Answer(ctx, texts.Get("reaction_error"))
		return nil
	}

	messageID, err := strconv.Atoi(c.CallbackArg(1))
	emoji := c.CallbackArg(2)
	if err != nil || !containsString(c.Channel.Reactions, emoji) {
		c.Answer(ctx, texts.Get("reaction_error"))
		return nil
	}

	changed, err := c.Env.Store.ToggleReaction(c.Channel.ChannelID, messageID, emoji, c.User)
	if err != nil {
		c.Answer(ctx, texts.Get("reaction_error"))
		return err
	}
	if !changed {
		c.Answer(ctx, texts.Get("already_reacted"))
		return nil
	}

	c.Answer(ctx, texts.Format("reacted_with", emoji))

	markup, err := c.reactionMarkup(c.Channel, messageID)
	if err != nil {
		return err
	}
	return c.Env.Gw.EditReplyMarkup(ctx, c.Channel.ChannelID, messageID, markup)
}

// reactionMarkup renders the reaction button row with current counts.
func (c *Context) reactionMarkup(channel *models.ChannelSettings, messageID int) (*tgbotapi.InlineKeyboardMarkup, error) {
	counts, err := c.Env.Store.ReactionCounts(channel.ChannelID, messageID, channel.Reactions)
	if err != nil {
		return nil, err
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, rc := range counts {
		label := rc.Emoji
		if rc.Count > 0 {
			label = fmt.Sprintf("%s %d", rc.Emoji, rc.Count)
		}
		data := fmt.Sprintf("reaction:%d:%s", messageID, rc.Emoji)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(buttons)
	return &markup, nil
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
