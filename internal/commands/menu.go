package commands

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// menuColumns is the default width of generated button grids.
const menuColumns = 2

// buildMenu chunks inline buttons into rows of menuColumns, with optional
// header and footer rows kept on their own line.
func buildMenu(header, footer []tgbotapi.InlineKeyboardButton, buttons ...tgbotapi.InlineKeyboardButton) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(header) > 0 {
		rows = append(rows, header)
	}
	for i := 0; i < len(buttons); i += menuColumns {
		end := i + menuColumns
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	if len(footer) > 0 {
		rows = append(rows, footer)
	}
	return rows
}

// channelSelectorMenu renders one inline button per channel the user
// administers, carrying "<prefix>:<channel_id>" as payload. Returns nil when
// the user has no channels.
func (c *Context) channelSelectorMenu(prefix string, footer ...tgbotapi.InlineKeyboardButton) (*tgbotapi.InlineKeyboardMarkup, error) {
	channels, err := c.Env.Store.UserChannels(c.User)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, nil
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, channel := range channels {
		data := fmt.Sprintf("%s:%d", prefix, channel.ChannelID)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(channel.Name(), data))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(buildMenu(nil, footer, buttons...)...)
	return &markup, nil
}

// replyKeyboard builds a one-time-visible reply keyboard from string rows.
func replyKeyboard(rows ...[]string) tgbotapi.ReplyKeyboardMarkup {
	var keyboard [][]tgbotapi.KeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.KeyboardButton
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewReplyKeyboard(keyboard...)
}
