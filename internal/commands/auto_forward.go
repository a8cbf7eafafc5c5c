package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/texts"
)

func registerAutoForward(env *Env, g *router.Group) {
	registerStartButton("Forwarder")

	g.Handle("forwarder-menu",
		router.And(router.TextIs("Forwarder"), router.StateIs(models.Idle)),
		adapt(env, "forwarder-menu", forwarderMenu))

	g.HandleBackground("forward-from",
		router.CallbackPattern("^forward_from:.*$"),
		adapt(env, "forward-from", forwardFrom))

	g.HandleBackground("forward-to",
		router.CallbackPattern("^forward_to:.*$"),
		adapt(env, "forward-to", forwardTo))
}

func forwarderMenu(ctx context.Context, c *Context) error {
	menu, err := c.channelSelectorMenu("forward_from")
	if err != nil {
		return err
	}
	if menu == nil {
		if err := c.Reply(ctx, texts.Get("forwarder_intro"), nil); err != nil {
			return err
		}
		return c.Reply(ctx, texts.Get("no_channels"), nil)
	}

	if err := c.SetState(models.SetForwarderMenu); err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Get("forwarder_intro"), replyKeyboard([]string{"Cancel"})); err != nil {
		return err
	}
	return c.Reply(ctx, texts.Get("forward_from_label"), menu)
}

// forwardFrom selects the source channel and shows the existing forward
// connections before asking for the target.
func forwardFrom(ctx context.Context, c *Context) error {
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
		return c.Reply(ctx, texts.Get("need_change_info"), nil)
	}

	from, err := c.Env.Store.GetChannel(channelID)
	if err != nil {
		return err
	}
	if err := c.SetCurrentChannel(channelID); err != nil {
		return err
	}
	if err := c.SetState(models.SetForwarderTo); err != nil {
		return err
	}
	c.Answer(ctx, "")

	var connections []string
	if from.ForwardTo != nil {
		connections = append(connections, fmt.Sprintf("%s ➡️ %s", from.Name(), from.ForwardTo.Name()))
	}
	incoming, err := c.Env.Store.ChannelsForwardingTo(channelID)
	if err != nil {
		return err
	}
	for _, channel := range incoming {
		connections = append(connections, fmt.Sprintf("%s ⬅️ %s", from.Name(), channel.Name()))
	}
	if len(connections) > 0 {
		if err := c.Reply(ctx, texts.Format("forward_connections", strings.Join(connections, "\n- ")), nil); err != nil {
			return err
		}
	}

	menu, err := c.channelSelectorMenu(fmt.Sprintf("forward_to:%d", channelID))
	if err != nil {
		return err
	}
	if err := c.Reply(ctx, texts.Format("forward_from_to", from.Name()), menu); err != nil {
		return err
	}
	c.DeleteMessage(ctx)
	return nil
}

// forwardTo persists the source-to-target connection. The user needs send
// permission on the target channel.
func forwardTo(ctx context.Context, c *Context) error {
	fromID, errFrom := strconv.ParseInt(c.CallbackArg(1), 10, 64)
	toID, errTo := strconv.ParseInt(c.CallbackArg(2), 10, 64)
	if errFrom != nil || errTo != nil {
		c.Answer(ctx, "")
		return nil
	}

	allowed, err := c.CanSendMessages(ctx, toID)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Reply(ctx, texts.Get("need_send_messages"), nil)
	}

	from, err := c.Env.Store.GetChannel(fromID)
	if err != nil {
		return err
	}
	to, err := c.Env.Store.GetChannel(toID)
	if err != nil {
		return err
	}

	from.ForwardToID = &to.ChannelID
	from.ForwardTo = to
	if err := c.Env.Store.SaveChannel(from); err != nil {
		return err
	}

	if err := c.Reply(ctx, texts.Format("forward_set", from.Name(), to.Name()), nil); err != nil {
		return err
	}
	return start(ctx, c)
}
