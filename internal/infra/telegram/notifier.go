package telegram

import (
	"context"
	"fmt"
	"html"

	domaintg "uniportal_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// Notifier shows reminders as messages in the student's chat.
type Notifier struct {
	client domaintg.Client
	chatID int64
}

func NewNotifier(client domaintg.Client, chatID int64) *Notifier {
	return &Notifier{client: client, chatID: chatID}
}

func (n *Notifier) Notify(ctx context.Context, title, body string) error {
	return n.client.SendMessage(ctx, n.chatID, formatNotification(title, body), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
}

func formatNotification(title, body string) string {
	return fmt.Sprintf("🔔 <b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body))
}
