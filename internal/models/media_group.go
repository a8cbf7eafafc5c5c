package models

import (
	"fmt"
	"time"
)

// MediaGroup correlates the messages of one multi-attachment post. Telegram
// delivers each attachment as its own message sharing a media_group_id; only
// the first recorded member (the representative) carries caption edits, the
// Edited flag keeps later members from re-applying them.
type MediaGroup struct {
	ID uint `gorm:"primaryKey"`

	MediaGroupID string `gorm:"size:100;uniqueIndex:idx_mediagroup_bot"`
	BotToken     string `gorm:"size:200;uniqueIndex:idx_mediagroup_bot"`

	// MessageID is the representative message of the group.
	MessageID int
	Edited    bool

	ChannelID int64
	Channel   *ChannelSettings `gorm:"foreignKey:ChannelID;references:ChannelID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *MediaGroup) String() string {
	return fmt.Sprintf("%s:%d", m.MediaGroupID, m.MessageID)
}
