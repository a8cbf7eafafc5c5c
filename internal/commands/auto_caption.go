package commands

import (
	"context"
	"strconv"
	"strings"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/texts"
)

func registerAutoCaption(env *Env, g *router.Group) {
	registerStartButton("Auto Caption")

	g.Handle("caption-menu",
		router.And(router.TextIs("Auto Caption"), router.StateIs(models.Idle)),
		adapt(env, "caption-menu", captionMenu))

	g.HandleBackground("pre-set-caption",
		router.CallbackPattern("^change_caption:.*$"),
		adapt(env, "pre-set-caption", preSetCaption))

	g.Handle("set-caption",
		router.And(router.IsText(), router.StateIs(models.SetCaption)),
		adapt(env, "set-caption", setCaption))
}

func captionMenu(ctx context.Context, c *Context) error {
	menu, err := c.channelSelectorMenu("change_caption")
	if err != nil {
		return err
	}
	if menu == nil {
		if err := c.Reply(ctx, texts.Get("caption_intro"), nil); err != nil {
			return err
		}
		return c.Reply(ctx, texts.Get("no_channels"), nil)
	}

	if err := c.SetState(models.SetCaptionMenu); err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Get("caption_intro"), replyKeyboard([]string{"Cancel"})); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("channels_list"), menu)
}

// preSetCaption re-checks the user's change-info permission before letting
// them edit the caption. A failed check leaves the conversation untouched.
func preSetCaption(ctx context.Context, c *Context) error {
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
		return c.Reply(ctx, texts.Get("need_change_info_caption"), nil)
	}

	channel, err := c.Env.Store.GetChannel(channelID)
	if err != nil {
		return err
	}
	if err := c.SetCurrentChannel(channelID); err != nil {
		return err
	}
	if err := c.SetState(models.SetCaption); err != nil {
		return err
	}

	c.Answer(ctx, "")
	c.DeleteMessage(ctx)
	return c.Reply(ctx, texts.Format("caption_new", channel.Name(), channel.Caption),
		replyKeyboard([]string{"Clear", "Cancel"}))
}

func setCaption(ctx context.Context, c *Context) error {
	// The global reset owns these words.
	if c.Ev.TextEquals(true, "cancel", "home", "reset") {
		return nil
	}

	caption := strings.TrimSpace(c.Ev.Text())
	if caption == "" {
		return c.Reply(ctx, texts.Get("need_text"), nil)
	}

	channel, err := c.CurrentChannel()
	if err != nil {
		return err
	}

	reply := texts.Format("caption_set", channel.Name(), caption)
	if caption == "Clear" {
		caption = ""
		reply = texts.Format("caption_cleared", channel.Name())
	}

	channel.Caption = caption
	if err := c.Env.Store.SaveChannel(channel); err != nil {
		return err
	}
	return c.Reply(ctx, reply, replyKeyboard([]string{"Home"}))
}
