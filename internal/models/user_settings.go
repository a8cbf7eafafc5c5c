package models

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserSettings holds one Telegram user's conversation state and profile data,
// scoped per bot identity so several bots can share one database.
type UserSettings struct {
	UserID   int64  `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BotToken string `gorm:"size:200;index" json:"-"`

	Username string `gorm:"size:200"`
	FullName string `gorm:"size:200"`

	State State `gorm:"size:100;default:idle"`

	// CurrentChannelID points at the channel the user is configuring right
	// now. Nil while idle.
	CurrentChannelID *int64
	CurrentChannel   *ChannelSettings `gorm:"foreignKey:CurrentChannelID;references:ChannelID"`

	// Zombie marks a user the bot can no longer reach (blocked, deactivated).
	Zombie bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *UserSettings) String() string {
	return fmt.Sprintf("%d@%s", u.UserID, u.Username)
}

// UpdateFromUser refreshes the cached profile fields from a Telegram user.
func (u *UserSettings) UpdateFromUser(user *tgbotapi.User) {
	if user == nil {
		return
	}
	u.Username = user.UserName
	u.FullName = user.FirstName
	if user.LastName != "" {
		u.FullName = user.FirstName + " " + user.LastName
	}
}
