package commands

import (
	"context"

	"channelhelper/backend/internal/router"
	"channelhelper/backend/internal/texts"
)

func registerBuiltins(env *Env, g *router.Group) {
	g.Handle("help", router.Command("help"), adapt(env, "help", help))
}

func help(ctx context.Context, c *Context) error {
	return c.Reply(ctx, texts.Get("help"), nil)
}
