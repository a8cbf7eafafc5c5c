package models

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ChannelSettings holds everything the bot does to posts of one channel:
// appended caption, image watermark, reaction buttons and the downstream
// forward target.
type ChannelSettings struct {
	ChannelID int64  `gorm:"primaryKey;autoIncrement:false" json:"channel_id"`
	BotToken  string `gorm:"size:200;index" json:"-"`

	Username string `gorm:"size:200"`
	Title    string `gorm:"size:200"`

	AddedByID int64
	AddedBy   *UserSettings   `gorm:"foreignKey:AddedByID;references:UserID"`
	Users     []*UserSettings `gorm:"many2many:channel_users"`

	Caption string

	ImageCaption          string
	ImageCaptionDirection Direction `gorm:"size:2;default:sw"`
	// ImageCaptionAlpha is the opacity of the overlay text in percent.
	ImageCaptionAlpha int    `gorm:"default:80"`
	ImageCaptionFont  string `gorm:"size:200"`

	// Reactions is the ordered emoji list rendered as inline buttons under
	// every post.
	Reactions pq.StringArray `gorm:"type:text[]"`

	// ForwardTo chains this channel's posts into another managed channel.
	ForwardToID *int64
	ForwardTo   *ChannelSettings `gorm:"foreignKey:ForwardToID;references:ChannelID"`

	// Zombie marks a channel the bot lost access to. The auto-edit pipeline
	// skips zombies until a successful gateway call clears the flag.
	Zombie bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name returns a human-readable channel name for chat replies.
func (c *ChannelSettings) Name() string {
	if c.Title != "" {
		return c.Title
	}
	return "@" + c.Username
}

// UpdateFromChat refreshes the cached title and username from a Telegram chat.
func (c *ChannelSettings) UpdateFromChat(chat *tgbotapi.Chat) {
	if chat == nil {
		return
	}
	c.Username = chat.UserName
	c.Title = chat.Title
}

// BeforeSave keeps the invariant that the adding user is always part of the
// channel's administrator set.
func (c *ChannelSettings) BeforeSave(tx *gorm.DB) error {
	if c.AddedBy != nil && len(c.Users) == 0 {
		c.Users = append(c.Users, c.AddedBy)
	}
	return nil
}
