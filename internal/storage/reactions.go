package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"channelhelper/backend/internal/models"
)

// messageLocks serializes read-modify-write cycles per (channel, message) so
// concurrent reaction presses cannot lose updates.
type messageLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (m *messageLocks) lock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks == nil {
		m.locks = make(map[string]*sync.Mutex)
	}
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func messageKey(channelID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", channelID, messageID)
}

const reactionLockTTL = 5 * time.Second

// acquireReactionLock takes the cross-process SetNX lock for one message's
// reactions. Without Redis, or when it is unreachable or contended past the
// TTL, the caller proceeds anyway: the in-process mutex and the transaction
// still uphold the at-most-one-reaction invariant; the lock only narrows the
// multi-process race window. The returned func releases the lock.
func (s *Service) acquireReactionLock(channelID int64, messageID int) func() {
	if s.Redis == nil {
		return func() {}
	}
	key := "reactionlock:" + s.BotToken + ":" + messageKey(channelID, messageID)
	deadline := time.Now().Add(reactionLockTTL)
	for {
		ok, err := s.Redis.SetNX(s.Ctx, key, 1, reactionLockTTL).Result()
		if err != nil {
			return func() {}
		}
		if ok {
			return func() { s.Redis.Del(s.Ctx, key) }
		}
		if time.Now().After(deadline) {
			return func() {}
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// GetOrCreateMediaGroup records the first seen member of a media group as its
// representative. The returned created flag tells the caller whether this
// message is the representative. When Redis is available a SetNX claim makes
// the decision atomic across processes.
func (s *Service) GetOrCreateMediaGroup(mediaGroupID string, messageID int, channelID int64) (*models.MediaGroup, bool, error) {
	claimed := true
	if s.Redis != nil {
		key := "mediagroup:" + s.BotToken + ":" + mediaGroupID
		ok, err := s.Redis.SetNX(s.Ctx, key, messageID, 24*time.Hour).Result()
		if err == nil {
			claimed = ok
		}
		// On a Redis error the database unique index still decides.
	}

	group := models.MediaGroup{
		MediaGroupID: mediaGroupID,
		BotToken:     s.BotToken,
		MessageID:    messageID,
		ChannelID:    channelID,
	}
	result := s.DB.Where("media_group_id = ? AND bot_token = ?", mediaGroupID, s.BotToken).
		FirstOrCreate(&group)
	if result.Error != nil {
		return nil, false, fmt.Errorf("media group %s: %w", mediaGroupID, result.Error)
	}
	created := result.RowsAffected > 0 && claimed
	return &group, created, nil
}

// MarkMediaGroupEdited flags the group so later members skip caption edits.
func (s *Service) MarkMediaGroupEdited(group *models.MediaGroup) error {
	group.Edited = true
	return s.DB.Model(&models.MediaGroup{}).
		Where("id = ?", group.ID).
		Update("edited", true).Error
}

// GetOrCreateReaction loads the accumulating reaction record for one emoji on
// one message, creating it on first render of the buttons.
func (s *Service) GetOrCreateReaction(channelID int64, messageID int, emoji string) (*models.Reaction, error) {
	reaction := models.Reaction{
		Emoji:     emoji,
		MessageID: messageID,
		ChannelID: channelID,
	}
	err := s.DB.Where("emoji = ? AND message_id = ? AND channel_id = ?", emoji, messageID, channelID).
		FirstOrCreate(&reaction).Error
	if err != nil {
		return nil, fmt.Errorf("reaction %s on %d: %w", emoji, messageID, err)
	}
	return &reaction, nil
}

// ReactionCounts returns the button row data for a message, creating missing
// reaction records along the way. Order follows the configured emoji list.
func (s *Service) ReactionCounts(channelID int64, messageID int, emojis []string) ([]models.ReactionCount, error) {
	counts := make([]models.ReactionCount, 0, len(emojis))
	for _, emoji := range emojis {
		reaction, err := s.GetOrCreateReaction(channelID, messageID, emoji)
		if err != nil {
			return nil, err
		}
		total := s.DB.Model(reaction).Association("Users").Count()
		counts = append(counts, models.ReactionCount{Emoji: emoji, Count: int(total)})
	}
	return counts, nil
}

// ToggleReaction moves the user onto the given emoji for a message. It
// returns changed=false when the user already holds exactly that reaction.
// A user holds at most one reaction per message: picking a new emoji removes
// the previous one.
func (s *Service) ToggleReaction(channelID int64, messageID int, emoji string, u *models.UserSettings) (bool, error) {
	lock := s.locks.lock(messageKey(channelID, messageID))
	lock.Lock()
	defer lock.Unlock()
	release := s.acquireReactionLock(channelID, messageID)
	defer release()

	var clicked models.Reaction
	err := s.DB.Where("emoji = ? AND message_id = ? AND channel_id = ?", emoji, messageID, channelID).
		First(&clicked).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("reaction %s on %d: %w", emoji, messageID, ErrNotFound)
	}
	if err != nil {
		return false, err
	}

	changed := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Table("reaction_users").
			Where("reaction_id = ? AND user_settings_user_id = ?", clicked.ID, u.UserID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil // already reacted with this emoji
		}

		var others []*models.Reaction
		err = tx.Joins("JOIN reaction_users ru ON ru.reaction_id = reactions.id").
			Where("reactions.message_id = ? AND reactions.channel_id = ? AND ru.user_settings_user_id = ?",
				messageID, channelID, u.UserID).
			Find(&others).Error
		if err != nil {
			return err
		}
		for _, other := range others {
			if err := tx.Model(other).Association("Users").Delete(u); err != nil {
				return err
			}
		}

		if err := tx.Model(&clicked).Association("Users").Append(u); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}
