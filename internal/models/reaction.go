package models

import "time"

// Reaction accumulates the users who pressed one emoji button on one
// channel message. A user belongs to at most one Reaction per message; the
// toggle operation in the storage layer enforces that.
type Reaction struct {
	ID uint `gorm:"primaryKey"`

	Emoji     string `gorm:"size:100;uniqueIndex:idx_reaction_msg"`
	MessageID int    `gorm:"uniqueIndex:idx_reaction_msg"`
	ChannelID int64  `gorm:"uniqueIndex:idx_reaction_msg"`

	Channel *ChannelSettings `gorm:"foreignKey:ChannelID;references:ChannelID"`
	Users   []*UserSettings  `gorm:"many2many:reaction_users"`

	CreatedAt time.Time
}

// ReactionCount is the rendered view of one reaction button: the emoji and
// how many users picked it.
type ReactionCount struct {
	Emoji string
	Count int
}
