package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/texts"
)

func registerAutoImageCaption(env *Env, g *router.Group) {
	registerStartButton("Image Caption")

	g.Handle("image-caption-menu",
		router.And(router.TextIs("Image Caption"), router.StateIs(models.Idle)),
		adapt(env, "image-caption-menu", imageCaptionMenu))

	g.HandleBackground("image-caption-next",
		router.Or(
			router.CallbackPattern("^next_action:.*$"),
			router.And(router.TextIsFold("back"), router.StateIs(models.SetImageCaption)),
		),
		adapt(env, "image-caption-next", imageCaptionNext))

	g.HandleBackground("pre-set-image-caption",
		router.CallbackPattern("^change_image_caption$"),
		adapt(env, "pre-set-image-caption", preSetImageCaption))

	g.Handle("image-caption-position-menu",
		router.CallbackPattern("^change_image_caption_position$"),
		adapt(env, "image-caption-position-menu", imageCaptionPositionMenu))

	g.Handle("set-image-caption-position",
		router.CallbackPattern("^set_image_caption_position:.*$"),
		adapt(env, "set-image-caption-position", setImageCaptionPosition))

	g.Handle("set-image-caption",
		router.And(router.IsText(), router.StateIs(models.SetImageCaption)),
		adapt(env, "set-image-caption", setImageCaption))
}

func imageCaptionMenu(ctx context.Context, c *Context) error {
	menu, err := c.channelSelectorMenu("next_action")
	if err != nil {
		return err
	}
	if menu == nil {
		if err := c.Reply(ctx, texts.Get("image_caption_intro"), nil); err != nil {
			return err
		}
		return c.Reply(ctx, texts.Get("no_channels"), nil)
	}

	if err := c.SetState(models.SetImageCaptionMenu); err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Get("image_caption_intro"), replyKeyboard([]string{"Cancel"})); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("channels_list"), menu)
}

// imageCaptionNext shows the caption/position submenu. Reached from the
// channel selector and from the Back button of the text-input step, so the
// channel id comes from either the payload or the selected channel.
func imageCaptionNext(ctx context.Context, c *Context) error {
	var channelID int64
	if c.User.CurrentChannelID != nil {
		channelID = *c.User.CurrentChannelID
	} else {
		id, err := strconv.ParseInt(c.CallbackArg(1), 10, 64)
		if err != nil {
			c.Answer(ctx, "")
			c.DeleteMessage(ctx)
			return nil
		}
		channelID = id
	}

	allowed, err := c.CanChangeInfo(ctx, channelID)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Reply(ctx, texts.Get("need_change_info_image"), nil)
	}

	if err := c.SetCurrentChannel(channelID); err != nil {
		return err
	}
	if err := c.SetState(models.SetImageCaptionNext); err != nil {
		return err
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change Caption", "change_image_caption"),
			tgbotapi.NewInlineKeyboardButtonData("Change Position", "change_image_caption_position"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Home", "home"),
		),
	)

	if c.Ev.Callback != nil {
		c.Answer(ctx, "")
		return c.Env.Gw.EditText(ctx, c.Ev.Chat.ID, c.Ev.MessageID(), texts.Get("what_to_do"), &markup)
	}
	return c.Reply(ctx, texts.Get("what_to_do"), &markup)
}

func preSetImageCaption(ctx context.Context, c *Context) error {
	channel, err := c.CurrentChannel()
	if err != nil {
		return err
	}

	allowed, err := c.CanChangeInfo(ctx, channel.ChannelID)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Reply(ctx, texts.Get("need_change_info_image"), nil)
	}

	if err := c.SetState(models.SetImageCaption); err != nil {
		return err
	}

	c.Answer(ctx, "")
	c.DeleteMessage(ctx)
	return c.Reply(ctx, texts.Format("caption_new", channel.Name(), channel.ImageCaption),
		replyKeyboard([]string{"Clear", "Back"}, []string{"Cancel"}))
}

// positionGrid renders the nine anchors as a compass with the current one
// bracketed.
func positionGrid(current models.Direction) tgbotapi.InlineKeyboardMarkup {
	button := func(d models.Direction) tgbotapi.InlineKeyboardButton {
		label := strings.ToUpper(string(d))
		if d == current {
			label = "[" + label + "]"
		}
		return tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("set_image_caption_position:%s", d))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(models.NorthWest), button(models.North), button(models.NorthEast)),
		tgbotapi.NewInlineKeyboardRow(button(models.West), button(models.Center), button(models.East)),
		tgbotapi.NewInlineKeyboardRow(button(models.SouthWest), button(models.South), button(models.SouthEast)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Back", "next_action:")),
	)
}

func imageCaptionPositionMenu(ctx context.Context, c *Context) error {
	channel, err := c.CurrentChannel()
	if err != nil {
		return err
	}
	c.Answer(ctx, "")
	markup := positionGrid(channel.ImageCaptionDirection)
	return c.Env.Gw.EditText(ctx, c.Ev.Chat.ID, c.Ev.MessageID(), texts.Get("position_prompt"), &markup)
}

func setImageCaptionPosition(ctx context.Context, c *Context) error {
	direction := models.Direction(c.CallbackArg(1))
	channel, err := c.CurrentChannel()
	if err != nil || !direction.Valid() {
		c.Answer(ctx, "")
		c.DeleteMessage(ctx)
		return nil
	}

	channel.ImageCaptionDirection = direction
	if err := c.Env.Store.SaveChannel(channel); err != nil {
		return err
	}

	c.Answer(ctx, "")
	markup := positionGrid(direction)
	return c.Env.Gw.EditReplyMarkup(ctx, c.Ev.Chat.ID, c.Ev.MessageID(), &markup)
}

func setImageCaption(ctx context.Context, c *Context) error {
	// Cancel/Home/Reset belong to the global reset, Back to the submenu.
	if c.Ev.TextEquals(true, "cancel", "home", "reset", "back") {
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

	reply := texts.Format("image_caption_set", channel.Name(), caption)
	if caption == "Clear" {
		caption = ""
		reply = texts.Format("caption_cleared", channel.Name())
	}

	channel.ImageCaption = caption
	if err := c.Env.Store.SaveChannel(channel); err != nil {
		return err
	}
	return c.Reply(ctx, reply, replyKeyboard([]string{"Home", "Back"}))
}
