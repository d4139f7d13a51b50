package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Client sends messages through the Telegram bot without exposing the bot itself.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error
}
