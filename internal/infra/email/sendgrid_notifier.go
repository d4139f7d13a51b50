package email

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Notifier delivers reminders as e-mails to the student.
type Notifier struct {
	client    mailSender
	from      *mail.Email
	to        *mail.Email
	subjectFn func(title string) string
}

func NewNotifier(apiKey, fromName, fromEmail, toEmail string) *Notifier {
	return newNotifier(sendgrid.NewSendClient(apiKey), fromName, fromEmail, toEmail)
}

func newNotifier(client mailSender, fromName, fromEmail, toEmail string) *Notifier {
	return &Notifier{
		client:    client,
		from:      mail.NewEmail(fromName, fromEmail),
		to:        mail.NewEmail("", toEmail),
		subjectFn: func(title string) string { return "[" + fromName + "] " + title },
	}
}

func (n *Notifier) Notify(ctx context.Context, title, body string) error {
	htmlContent := fmt.Sprintf("<h3>%s</h3><p>%s</p>", html.EscapeString(title), html.EscapeString(body))
	message := mail.NewSingleEmail(n.from, n.subjectFn(title), n.to, body, htmlContent)

	res, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
