package telegram

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
// Outgoing messages pass through a token bucket to stay under Telegram's flood limits.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
}

func NewTelebotAdapter(b *telebot.Bot, perSecond float64) *TelebotAdapter {
	return &TelebotAdapter{bot: b, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID}
	if _, err := tba.bot.Send(recipient, text, options); err != nil {
		return fmt.Errorf("telegram send to %d: %w", recipientChatID, err)
	}
	return nil
}
