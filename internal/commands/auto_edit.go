package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"channelhelper/backend/internal/gateway"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/storage"
	"channelhelper/backend/internal/texts"
	"channelhelper/backend/internal/watermark"
)

func registerAutoEdit(env *Env, g *router.Group) {
	g.HandleBackground("auto-edit",
		router.And(router.InChannel(), router.Or(router.IsText(), router.IsMedia())),
		adapt(env, "auto-edit", autoEdit))
}

// autoEdit is the channel-post processor. For every new post it applies at
// most one in-place edit (caption append, watermark, reaction buttons) and
// then forwards the result downstream when a target is configured.
func autoEdit(ctx context.Context, c *Context) error {
	if c.Ev.Edited || c.Channel == nil || c.Channel.Zombie {
		return nil
	}

	// Posts arriving from an upstream forward connection (or re-forwarded
	// from this channel itself) already carry their edits; pass them through
	// unedited. Any other forward is treated as a fresh post.
	if upstream, err := c.upstreamOrigin(); err != nil {
		return err
	} else if upstream {
		return c.forwardDownstream(ctx)
	}

	channel := c.Channel
	if channel.Caption == "" && channel.ImageCaption == "" && len(channel.Reactions) == 0 {
		return c.forwardDownstream(ctx)
	}

	// Members 2..N of a media group skip caption and media edits; the
	// representative already carries them. Buttons and forwarding still
	// apply per message.
	captionAllowed := c.MediaGroup == nil || (c.MediaGroupCreator && !c.MediaGroup.Edited)

	newCaption := c.newCaption()
	markup, err := c.newReactionMarkup()
	if err != nil {
		return err
	}

	switch {
	case captionAllowed && channel.ImageCaption != "" && c.Ev.Photo() != nil:
		err = c.editWatermarkedPhoto(ctx, newCaption, markup)
	case captionAllowed && newCaption != "" && !c.Ev.IsMedia():
		err = c.Env.Gw.EditText(ctx, channel.ChannelID, c.Ev.MessageID(), newCaption, markup)
	case captionAllowed && newCaption != "":
		err = c.Env.Gw.EditCaption(ctx, channel.ChannelID, c.Ev.MessageID(), newCaption, markup)
	case markup != nil:
		err = c.Env.Gw.EditReplyMarkup(ctx, channel.ChannelID, c.Ev.MessageID(), markup)
	}
	if err != nil {
		return c.handleEditFailure(ctx, err)
	}

	if captionAllowed && c.MediaGroup != nil {
		if err := c.Env.Store.MarkMediaGroupEdited(c.MediaGroup); err != nil {
			return err
		}
	}

	return c.forwardDownstream(ctx)
}

// upstreamOrigin reports whether the post is the product of a forward
// connection: forwarded from this channel itself, or from a managed channel
// whose forward target is this one.
func (c *Context) upstreamOrigin() (bool, error) {
	from := c.Ev.ForwardedFromChannel()
	if from == nil {
		return false, nil
	}
	if from.ID == c.Channel.ChannelID {
		return true, nil
	}
	origin, err := c.Env.Store.GetChannel(from.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return origin.ForwardToID != nil && *origin.ForwardToID == c.Channel.ChannelID, nil
}

// newCaption concatenates the post text with the configured caption, or
// returns "" when no caption is configured or the text already ends with it.
func (c *Context) newCaption() string {
	caption := strings.TrimSpace(c.Channel.Caption)
	if caption == "" {
		return ""
	}
	text := strings.TrimSpace(c.Ev.Text())
	if strings.HasSuffix(text, caption) {
		return ""
	}
	if text == "" {
		return caption
	}
	return fmt.Sprintf("%s\n\n%s", text, caption)
}

// newReactionMarkup builds the reaction button row, creating the per-emoji
// reaction records on first render. Nil when no reactions are configured.
func (c *Context) newReactionMarkup() (*tgbotapi.InlineKeyboardMarkup, error) {
	if len(c.Channel.Reactions) == 0 {
		return nil, nil
	}
	for _, emoji := range c.Channel.Reactions {
		if _, err := c.Env.Store.GetOrCreateReaction(c.Channel.ChannelID, c.Ev.MessageID(), emoji); err != nil {
			return nil, err
		}
	}
	return c.reactionMarkup(c.Channel, c.Ev.MessageID())
}

// editWatermarkedPhoto downloads the largest photo size, renders the image
// caption onto it and replaces the post's media.
func (c *Context) editWatermarkedPhoto(ctx context.Context, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	photo := c.Ev.Photo()
	data, _, err := c.Env.Gw.DownloadFile(ctx, photo.FileID)
	if err != nil {
		return err
	}

	fontPath := c.Channel.ImageCaptionFont
	if fontPath == "" {
		fontPath = c.Env.FontPath
	}
	out, err := watermark.Render(data, c.Channel.ImageCaption, watermark.Options{
		Anchor:       string(c.Channel.ImageCaptionDirection),
		AlphaPercent: c.Channel.ImageCaptionAlpha,
		FontPath:     fontPath,
	})
	if err != nil {
		return fmt.Errorf("watermark message %d: %w", c.Ev.MessageID(), err)
	}

	if caption == "" {
		caption = strings.TrimSpace(c.Ev.Text())
	}
	return c.Env.Gw.EditMedia(ctx, c.Channel.ChannelID, c.Ev.MessageID(), out, caption, markup)
}

// forwardDownstream forwards the post to the configured target channel.
func (c *Context) forwardDownstream(ctx context.Context) error {
	if c.Channel.ForwardToID == nil {
		return nil
	}
	_, err := c.Env.Gw.ForwardMessage(ctx, *c.Channel.ForwardToID, c.Channel.ChannelID, c.Ev.MessageID())
	if err != nil {
		return c.handleEditFailure(ctx, err)
	}
	return nil
}

// handleEditFailure applies the pipeline's failure policy: a revoked
// authorization marks the channel zombie and notifies, best effort, the user
// who added it; a malformed call is logged and dropped.
func (c *Context) handleEditFailure(ctx context.Context, err error) error {
	if errors.Is(err, gateway.ErrUnauthorized) {
		if zerr := c.Env.Store.SetChannelZombie(c.Channel.ChannelID, true); zerr != nil {
			return zerr
		}
		notice := texts.Format("zombie_notice", c.Channel.Name())
		if _, nerr := c.Env.Gw.SendText(ctx, c.Channel.AddedByID, notice, nil); nerr != nil {
			if errors.Is(nerr, gateway.ErrUnauthorized) {
				if uerr := c.Env.Store.SetUserZombie(c.Channel.AddedByID, true); uerr != nil {
					c.Env.Log.Warn("marking user zombie failed",
						zap.Int64("user_id", c.Channel.AddedByID), zap.Error(uerr))
				}
			}
			c.Env.Log.Warn("zombie notification failed",
				zap.Int64("channel_id", c.Channel.ChannelID), zap.Error(nerr))
		}
		return nil
	}
	if errors.Is(err, gateway.ErrBadRequest) {
		c.Env.Log.Warn("edit rejected",
			zap.Int64("channel_id", c.Channel.ChannelID),
			zap.Int("message_id", c.Ev.MessageID()),
			zap.Error(err))
		return nil
	}
	return err
}
