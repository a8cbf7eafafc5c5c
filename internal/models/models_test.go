package models

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestStateValid(t *testing.T) {
	for _, state := range AllStates {
		assert.True(t, state.Valid(), string(state))
	}
	assert.False(t, State("definitely not a state").Valid())
	assert.False(t, State("").Valid())
}

func TestDirectionValid(t *testing.T) {
	for _, direction := range AllDirections {
		assert.True(t, direction.Valid(), string(direction))
	}
	assert.False(t, Direction("x").Valid())
}

func TestChannelName(t *testing.T) {
	withTitle := &ChannelSettings{Title: "My Channel", Username: "mychan"}
	assert.Equal(t, "My Channel", withTitle.Name())

	withoutTitle := &ChannelSettings{Username: "mychan"}
	assert.Equal(t, "@mychan", withoutTitle.Name())
}

func TestChannelUpdateFromChat(t *testing.T) {
	channel := &ChannelSettings{}
	channel.UpdateFromChat(&tgbotapi.Chat{Title: "News", UserName: "news"})

	assert.Equal(t, "News", channel.Title)
	assert.Equal(t, "news", channel.Username)
}

func TestBeforeSaveAttachesAddedBy(t *testing.T) {
	owner := &UserSettings{UserID: 1}
	channel := &ChannelSettings{ChannelID: -100, AddedBy: owner}

	assert.NoError(t, channel.BeforeSave(nil))

	// Arrange invariant: the adding user is part of the admin set.
	assert.Len(t, channel.Users, 1)
	assert.Equal(t, owner, channel.Users[0])

	// A second save must not duplicate the entry.
	assert.NoError(t, channel.BeforeSave(nil))
	assert.Len(t, channel.Users, 1)
}

func TestUserUpdateFromUser(t *testing.T) {
	user := &UserSettings{UserID: 7}
	user.UpdateFromUser(&tgbotapi.User{UserName: "tester", FirstName: "Jane", LastName: "Doe"})

	assert.Equal(t, "tester", user.Username)
	assert.Equal(t, "Jane Doe", user.FullName)
	assert.Equal(t, "7@tester", user.String())
}
