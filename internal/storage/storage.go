package storage

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"channelhelper/backend/internal/models"
)

// ErrNotFound is returned when a settings record does not exist. Handlers
// treat it as "feature not applicable", not as a failure.
var ErrNotFound = errors.New("storage: record not found")

// Storage is the persistence interface consumed by the command handlers and
// the auto-edit pipeline.
type Storage interface {
	GetOrCreateUser(user *tgbotapi.User) (*models.UserSettings, error)
	SaveUser(u *models.UserSettings) error
	SetUserState(u *models.UserSettings, state models.State) error
	SetCurrentChannel(u *models.UserSettings, channelID *int64) error
	SetUserZombie(userID int64, zombie bool) error
	UserChannels(u *models.UserSettings) ([]*models.ChannelSettings, error)

	GetChannel(channelID int64) (*models.ChannelSettings, error)
	SaveChannel(c *models.ChannelSettings) error
	DeleteChannel(channelID int64) error
	AddChannelUser(channelID int64, u *models.UserSettings) error
	RemoveChannelUser(channelID int64, u *models.UserSettings) (remaining int64, err error)
	ChannelsForwardingTo(channelID int64) ([]*models.ChannelSettings, error)
	SetChannelZombie(channelID int64, zombie bool) error

	GetOrCreateMediaGroup(mediaGroupID string, messageID int, channelID int64) (group *models.MediaGroup, created bool, err error)
	MarkMediaGroupEdited(group *models.MediaGroup) error

	GetOrCreateReaction(channelID int64, messageID int, emoji string) (*models.Reaction, error)
	ReactionCounts(channelID int64, messageID int, emojis []string) ([]models.ReactionCount, error)
	ToggleReaction(channelID int64, messageID int, emoji string, u *models.UserSettings) (changed bool, err error)
}

// Service implements Storage on top of PostgreSQL (via gorm) and Redis.
// Redis carries the cross-process atomic claims (media-group representative);
// it may be nil, in which case only the database guards are used.
type Service struct {
	DB       *gorm.DB
	Redis    *redis.Client
	BotToken string
	Ctx      context.Context

	locks messageLocks
}

// NewService creates a Storage backed by db and rdb, scoped to one bot token.
func NewService(db *gorm.DB, rdb *redis.Client, botToken string) *Service {
	return &Service{
		DB:       db,
		Redis:    rdb,
		BotToken: botToken,
		Ctx:      context.Background(),
	}
}

// Migrate creates or updates the schema for all entities.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.UserSettings{},
		&models.ChannelSettings{},
		&models.MediaGroup{},
		&models.Reaction{},
	)
}

// GetOrCreateUser loads the settings record for a Telegram user, creating it
// on first contact, and refreshes the cached profile fields.
func (s *Service) GetOrCreateUser(user *tgbotapi.User) (*models.UserSettings, error) {
	if user == nil {
		return nil, fmt.Errorf("get or create user: %w", ErrNotFound)
	}

	settings := models.UserSettings{UserID: user.ID, BotToken: s.BotToken}
	err := s.DB.Where("user_id = ? AND bot_token = ?", user.ID, s.BotToken).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("get or create user %d: %w", user.ID, err)
	}

	settings.UpdateFromUser(user)
	// The user just reached the bot, so any earlier unreachable mark is stale.
	settings.Zombie = false
	if err := s.DB.Save(&settings).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return &settings, nil
}

func (s *Service) SaveUser(u *models.UserSettings) error {
	return s.DB.Save(u).Error
}

// SetUserState writes the conversation state through immediately so a crash
// mid-conversation leaves the user resumable.
func (s *Service) SetUserState(u *models.UserSettings, state models.State) error {
	if !state.Valid() {
		return fmt.Errorf("set user state: unknown state %q", state)
	}
	u.State = state
	return s.DB.Model(&models.UserSettings{}).
		Where("user_id = ? AND bot_token = ?", u.UserID, u.BotToken).
		Update("state", state).Error
}

// SetCurrentChannel updates which channel the user is configuring. A nil
// channelID clears the reference.
func (s *Service) SetCurrentChannel(u *models.UserSettings, channelID *int64) error {
	u.CurrentChannelID = channelID
	u.CurrentChannel = nil
	return s.DB.Model(&models.UserSettings{}).
		Where("user_id = ? AND bot_token = ?", u.UserID, u.BotToken).
		Update("current_channel_id", channelID).Error
}

// SetUserZombie marks a user the bot can no longer reach. GetOrCreateUser
// clears the flag on the user's next contact.
func (s *Service) SetUserZombie(userID int64, zombie bool) error {
	return s.DB.Model(&models.UserSettings{}).
		Where("user_id = ? AND bot_token = ?", userID, s.BotToken).
		Update("zombie", zombie).Error
}

// UserChannels returns the channels the user administers through this bot.
func (s *Service) UserChannels(u *models.UserSettings) ([]*models.ChannelSettings, error) {
	var channels []*models.ChannelSettings
	err := s.DB.
		Joins("JOIN channel_users cu ON cu.channel_settings_channel_id = channel_settings.channel_id").
		Where("cu.user_settings_user_id = ? AND channel_settings.bot_token = ?", u.UserID, u.BotToken).
		Order("channel_settings.created_at").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("user channels for %d: %w", u.UserID, err)
	}
	return channels, nil
}

// GetChannel loads channel settings, or ErrNotFound when the channel is not
// managed by this bot.
func (s *Service) GetChannel(channelID int64) (*models.ChannelSettings, error) {
	var channel models.ChannelSettings
	err := s.DB.Preload("ForwardTo").
		Where("channel_id = ? AND bot_token = ?", channelID, s.BotToken).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("channel %d: %w", channelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("channel %d: %w", channelID, err)
	}
	return &channel, nil
}

func (s *Service) SaveChannel(c *models.ChannelSettings) error {
	if c.BotToken == "" {
		c.BotToken = s.BotToken
	}
	return s.DB.Save(c).Error
}

// DeleteChannel removes a channel together with its reactions and media
// groups, and detaches every reference pointing at it.
func (s *Service) DeleteChannel(channelID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var reactions []*models.Reaction
		if err := tx.Where("channel_id = ?", channelID).Find(&reactions).Error; err != nil {
			return err
		}
		for _, reaction := range reactions {
			if err := tx.Model(reaction).Association("Users").Clear(); err != nil {
				return err
			}
		}
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.MediaGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UserSettings{}).
			Where("current_channel_id = ?", channelID).
			Update("current_channel_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ChannelSettings{}).
			Where("forward_to_id = ?", channelID).
			Update("forward_to_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM channel_users WHERE channel_settings_channel_id = ?", channelID).Error; err != nil {
			return err
		}
		return tx.Where("channel_id = ? AND bot_token = ?", channelID, s.BotToken).
			Delete(&models.ChannelSettings{}).Error
	})
}

// AddChannelUser adds a user to the channel's administrator set.
func (s *Service) AddChannelUser(channelID int64, u *models.UserSettings) error {
	channel := models.ChannelSettings{ChannelID: channelID, BotToken: s.BotToken}
	return s.DB.Model(&channel).Association("Users").Append(u)
}

// RemoveChannelUser detaches a user from the channel and reports how many
// administrators remain.
func (s *Service) RemoveChannelUser(channelID int64, u *models.UserSettings) (int64, error) {
	channel := models.ChannelSettings{ChannelID: channelID, BotToken: s.BotToken}
	if err := s.DB.Model(&channel).Association("Users").Delete(u); err != nil {
		return 0, err
	}
	return s.DB.Model(&channel).Association("Users").Count(), nil
}

// ChannelsForwardingTo lists channels configured to forward into channelID.
func (s *Service) ChannelsForwardingTo(channelID int64) ([]*models.ChannelSettings, error) {
	var channels []*models.ChannelSettings
	err := s.DB.Where("forward_to_id = ? AND bot_token = ?", channelID, s.BotToken).
		Find(&channels).Error
	return channels, err
}

// SetChannelZombie flags or clears a channel as unreachable.
func (s *Service) SetChannelZombie(channelID int64, zombie bool) error {
	return s.DB.Model(&models.ChannelSettings{}).
		Where("channel_id = ? AND bot_token = ?", channelID, s.BotToken).
		Update("zombie", zombie).Error
}
