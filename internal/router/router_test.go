package router

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"channelhelper/backend/internal/models"
)

func privateMessage(text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
			From:      &tgbotapi.User{ID: 100, UserName: "tester"},
		},
	}
}

func channelPost(text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		ChannelPost: &tgbotapi.Message{
			MessageID: 7,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: -1001, Type: "channel", Title: "My Channel"},
		},
	}
}

func callback(data string) *tgbotapi.Update {
	return &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb1",
			Data: data,
			From: &tgbotapi.User{ID: 100},
			Message: &tgbotapi.Message{
				MessageID: 3,
				Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
			},
		},
	}
}

func TestNewEvent_Normalization(t *testing.T) {
	// Arrange & Act
	msg := NewEvent(privateMessage("hello"))
	post := NewEvent(channelPost("news"))
	cb := NewEvent(callback("reaction:42:👍"))
	edited := NewEvent(&tgbotapi.Update{EditedChannelPost: channelPost("x").ChannelPost})
	unknown := NewEvent(&tgbotapi.Update{})

	// Assert
	assert.NotNil(t, msg.User)
	assert.True(t, msg.InPrivate())
	assert.Equal(t, "hello", msg.Text())

	assert.Nil(t, post.User)
	assert.True(t, post.InChannel())
	assert.Equal(t, models.Idle, post.State)

	assert.NotNil(t, cb.Callback)
	assert.Equal(t, "reaction:42:👍", cb.CallbackData())
	assert.Equal(t, int64(100), cb.User.ID)

	assert.True(t, edited.Edited)
	assert.Nil(t, unknown)
}

func TestEvent_TextFallsBackToCaption(t *testing.T) {
	u := channelPost("")
	u.ChannelPost.Caption = "a caption"
	u.ChannelPost.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}}

	ev := NewEvent(u)

	assert.Equal(t, "a caption", ev.Text())
	assert.True(t, ev.IsMedia())
	assert.Equal(t, "big", ev.Photo().FileID)
}

func TestPredicates(t *testing.T) {
	msg := NewEvent(privateMessage("Cancel"))
	cmd := NewEvent(privateMessage("/start"))
	cmd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	post := NewEvent(channelPost("news"))
	cb := NewEvent(callback("change_image_caption"))

	tests := []struct {
		name string
		pred Predicate
		ev   *Event
		want bool
	}{
		{"any", Any(), post, true},
		{"in channel", InChannel(), post, true},
		{"in channel vs private", InChannel(), msg, false},
		{"in private", InPrivate(), msg, true},
		{"text", IsText(), msg, true},
		{"text excludes commands", IsText(), cmd, false},
		{"text excludes callbacks", IsText(), cb, false},
		{"text is fold", TextIsFold("cancel"), msg, true},
		{"text is exact misses", TextIs("cancel"), msg, false},
		{"command", Command("start", "help"), cmd, true},
		{"command wrong name", Command("help"), cmd, false},
		{"callback anchored", CallbackPattern("^change_image_caption$"), cb, true},
		{"callback anchored longer", CallbackPattern("^change_image_caption_position$"), cb, false},
		{"state", StateIs(models.Idle), msg, true},
		{"state other", StateIs(models.SetCaption), msg, false},
		{"state ignores channel posts", StateIs(models.Idle), post, false},
		{"text is ignores channel posts", TextIs("news"), post, false},
		{"text is fold ignores channel posts", TextIsFold("news"), post, false},
		{"and", And(InPrivate(), IsText()), msg, true},
		{"and short-circuits", And(InChannel(), IsText()), msg, false},
		{"or", Or(InChannel(), InPrivate()), msg, true},
		{"not", Not(InChannel()), msg, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Matches(tt.ev))
		})
	}
}

func TestDispatcher_GroupOrderAndCatchAll(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	var mu sync.Mutex
	var calls []string
	record := func(name string) HandlerFunc {
		return func(context.Context, *Event) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
		}
	}

	commands := reg.Group("commands")
	commands.Handle("start", Command("start"), record("start"))
	commands.Handle("replies", And(InPrivate(), IsText()), record("replies"))
	fallback := reg.CatchAllGroup("fallback")
	fallback.Handle("catch-all", Any(), record("catch-all"))

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	defer d.Close()

	// Act: a plain text message matches a lower group, so the catch-all
	// must not run.
	d.Dispatch(context.Background(), privateMessage("hello"))
	// A channel post matches nothing below the catch-all.
	d.Dispatch(context.Background(), channelPost("news"))

	// Assert
	assert.Equal(t, []string{"replies", "catch-all"}, calls)
}

func TestDispatcher_MenuWordChannelPostReachesCatchAll(t *testing.T) {
	// Arrange: the real table shape, a conversation group above a catch-all.
	reg := NewRegistry()
	var calls []string
	menu := reg.Group("menu")
	menu.Handle("settings-menu",
		And(TextIs("Settings"), StateIs(models.Idle)),
		func(context.Context, *Event) { calls = append(calls, "settings-menu") })
	menu.Handle("reset", TextIsFold("cancel", "home", "reset"),
		func(context.Context, *Event) { calls = append(calls, "reset") })
	fallback := reg.CatchAllGroup("fallback")
	fallback.Handle("posts", InChannel(), func(context.Context, *Event) { calls = append(calls, "posts") })

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	defer d.Close()

	// Act: channel posts whose text collides with menu and reset words.
	d.Dispatch(context.Background(), channelPost("Settings"))
	d.Dispatch(context.Background(), channelPost("cancel"))

	// Assert: posts never advance a conversation; the catch-all sees both.
	assert.Equal(t, []string{"posts", "posts"}, calls)
}

func TestDispatcher_AllMatchingHandlersRun(t *testing.T) {
	reg := NewRegistry()
	var calls []string
	g := reg.Group("g")
	g.Handle("first", IsText(), func(context.Context, *Event) { calls = append(calls, "first") })
	g.Handle("second", InPrivate(), func(context.Context, *Event) { calls = append(calls, "second") })

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	defer d.Close()

	d.Dispatch(context.Background(), privateMessage("hello"))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_PanicDoesNotStopOthers(t *testing.T) {
	reg := NewRegistry()
	var ran bool
	g := reg.Group("g")
	g.Handle("boom", Any(), func(context.Context, *Event) { panic("boom") })
	g.Handle("after", Any(), func(context.Context, *Event) { ran = true })

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	defer d.Close()

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), privateMessage("hello"))
	})
	assert.True(t, ran)
}

func TestDispatcher_ResolvesStateOncePerEvent(t *testing.T) {
	reg := NewRegistry()
	var seen []models.State
	g := reg.Group("g")
	g.Handle("a", StateIs(models.SetCaption), func(_ context.Context, ev *Event) { seen = append(seen, ev.State) })
	g.Handle("b", StateIs(models.SetCaption), func(_ context.Context, ev *Event) { seen = append(seen, ev.State) })

	resolved := 0
	resolve := func(context.Context, *tgbotapi.User) models.State {
		resolved++
		return models.SetCaption
	}
	d := NewDispatcher(reg, resolve, zap.NewNop(), 1)
	defer d.Close()

	d.Dispatch(context.Background(), privateMessage("new caption"))

	assert.Equal(t, 1, resolved)
	assert.Equal(t, []models.State{models.SetCaption, models.SetCaption}, seen)
}

func TestDispatcher_BackgroundQueueing(t *testing.T) {
	// Queued updates run their background handlers inline on the worker, so
	// a single worker drains a burst without re-submitting to itself.
	reg := NewRegistry()
	var mu sync.Mutex
	ran := 0
	g := reg.Group("g")
	g.HandleBackground("bg", Any(), func(context.Context, *Event) {
		mu.Lock()
		ran++
		mu.Unlock()
	})

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	for i := 0; i < 8; i++ {
		d.DispatchBackground(context.Background(), privateMessage("hello"))
	}
	d.Close()

	assert.Equal(t, 8, ran)
}

func TestDispatcher_DispatchAfterCloseIsDropped(t *testing.T) {
	reg := NewRegistry()
	var ran bool
	g := reg.Group("g")
	g.HandleBackground("bg", Any(), func(context.Context, *Event) { ran = true })

	d := NewDispatcher(reg, nil, zap.NewNop(), 1)
	d.Close()

	// Updates racing shutdown are dropped, never a send on a closed channel.
	assert.NotPanics(t, func() {
		d.DispatchBackground(context.Background(), privateMessage("hello"))
		d.Dispatch(context.Background(), privateMessage("hello"))
	})
	assert.False(t, ran)
}

func TestDispatcher_BackgroundHandlerRuns(t *testing.T) {
	reg := NewRegistry()
	done := make(chan struct{})
	g := reg.Group("g")
	g.HandleBackground("bg", Any(), func(context.Context, *Event) { close(done) })

	d := NewDispatcher(reg, nil, zap.NewNop(), 2)

	d.Dispatch(context.Background(), privateMessage("hello"))
	d.Close()

	select {
	case <-done:
	default:
		t.Fatal("background handler did not run before Close returned")
	}
}
