package commands

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"channelhelper/backend/internal/models"
	"channelhelper/backend/internal/router"
)

// handlerFunc is the feature-handler shape: explicit context in, error out.
type handlerFunc func(ctx context.Context, c *Context) error

// adapt builds a fresh Context per invocation and maps ErrSkip to a silent
// no-op, so a handler whose settings records are missing simply does not run.
func adapt(env *Env, name string, fn handlerFunc) router.HandlerFunc {
	return func(ctx context.Context, ev *router.Event) {
		c, err := NewContext(ctx, env, ev)
		if err != nil {
			env.Log.Error("context construction failed",
				zap.String("handler", name),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			return
		}
		if err := fn(ctx, c); err != nil && !errors.Is(err, ErrSkip) {
			env.Log.Error("handler failed",
				zap.String("handler", name),
				zap.String("event_id", ev.ID),
				zap.Error(err))
		}
	}
}

// Start-menu buttons registered by the feature modules. Header and footer
// rows stay on their own line; main buttons are chunked into the grid.
var startButtons struct {
	header []string
	main   []string
	footer []string
}

func registerStartButton(name string) { startButtons.main = append(startButtons.main, name) }

func registerFooterButton(name string) { startButtons.footer = append(startButtons.footer, name) }

// startKeyboard renders the main reply keyboard from the registered buttons.
func startKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]string
	if len(startButtons.header) > 0 {
		rows = append(rows, startButtons.header)
	}
	for i := 0; i < len(startButtons.main); i += menuColumns {
		end := i + menuColumns
		if end > len(startButtons.main) {
			end = len(startButtons.main)
		}
		rows = append(rows, startButtons.main[i:end])
	}
	if len(startButtons.footer) > 0 {
		rows = append(rows, startButtons.footer)
	}
	return replyKeyboard(rows...)
}

// RegisterAll wires every feature module into the registry in a fixed order.
// Called exactly once at startup; the resulting table is never mutated.
func RegisterAll(env *Env, reg *router.Registry) {
	startButtons.header = nil
	startButtons.main = nil
	startButtons.footer = nil

	registerBuiltins(env, reg.Group("builtins"))
	registerChannelManager(env, reg.Group("channel-manager"))
	registerAutoCaption(env, reg.Group("auto-caption"))
	registerAutoImageCaption(env, reg.Group("auto-image-caption"))
	registerAutoReaction(env, reg.Group("auto-reaction"))
	registerAutoForward(env, reg.Group("auto-forwarder"))
	registerAutoEdit(env, reg.CatchAllGroup("auto-edit"))
}

// StateResolver adapts the settings store into the dispatcher's state lookup.
func StateResolver(env *Env) router.StateResolver {
	return func(ctx context.Context, user *tgbotapi.User) models.State {
		settings, err := env.Store.GetOrCreateUser(user)
		if err != nil {
			env.Log.Warn("state lookup failed", zap.Int64("user_id", user.ID), zap.Error(err))
			return models.Idle
		}
		return settings.State
	}
}
