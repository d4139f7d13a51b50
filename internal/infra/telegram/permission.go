package telegram

import (
	"context"
	"fmt"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/notification"
	domaintg "uniportal_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	readyTitle = "UniPortal Ready!"
	readyBody  = "Notifications are now enabled. You'll be alerted about classes and exams."
)

var (
	permissionMenu = &telebot.ReplyMarkup{}
	btnAllow       = permissionMenu.Data("✅ Allow", "perm_grant")
	btnDeny        = permissionMenu.Data("🚫 Deny", "perm_deny")
)

func init() {
	permissionMenu.Inline(permissionMenu.Row(btnAllow, btnDeny))
}

// PermissionPrompter reads the saved permission and asks the student with inline
// buttons. The answer arrives later through the callback handlers.
type PermissionPrompter struct {
	*app.StoredPermissionProbe
	client domaintg.Client
	chatID int64
}

func NewPermissionPrompter(stored *app.StoredPermissionProbe, client domaintg.Client, chatID int64) *PermissionPrompter {
	return &PermissionPrompter{StoredPermissionProbe: stored, client: client, chatID: chatID}
}

// Request sends the prompt and reports the permission as still undecided.
func (p *PermissionPrompter) Request(ctx context.Context) (notification.Permission, error) {
	text := "UniPortal can send you reminders about classes and exams here. Allow notifications?"
	if err := p.client.SendMessage(ctx, p.chatID, text, &telebot.SendOptions{ReplyMarkup: permissionMenu}); err != nil {
		return notification.PermissionDefault, fmt.Errorf("failed to send permission prompt: %w", err)
	}
	return notification.PermissionDefault, nil
}

// RegisterPermissionHandlers wires the Allow and Deny buttons.
func RegisterPermissionHandlers(
	ctx context.Context,
	b *telebot.Bot,
	gate *app.PermissionGate,
	dashboardService *app.DashboardService,
	delivery app.Deliverer,
	studentTelegramID int64,
	baseLogger *logrus.Entry,
) {
	answer := func(p notification.Permission) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			logCtx := baseLogger.WithFields(logrus.Fields{"handler": "permission", "sender_id": c.Sender().ID, "answer": p})
			if c.Sender().ID != studentTelegramID {
				logCtx.Warn("Unauthorized permission answer")
				return c.Respond(&telebot.CallbackResponse{Text: "Not allowed."})
			}

			gate.Set(p)
			if err := dashboardService.SetPermission(ctx, p); err != nil {
				logCtx.WithError(err).Error("Failed to persist notification permission")
			}
			_ = c.Respond(&telebot.CallbackResponse{Text: "Saved."})

			if p == notification.PermissionGranted {
				delivery.Deliver(ctx, readyTitle, readyBody)
				return nil
			}
			return c.Send("Okay, reminders will only appear in /notifications.")
		}
	}

	b.Handle(&btnAllow, answer(notification.PermissionGranted))
	b.Handle(&btnDeny, answer(notification.PermissionDenied))
}
