package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const helpText = "UniPortal reminders\n\n" +
	"`/timetable` - weekly timetable\n" +
	"`/today` - today's classes\n" +
	"`/add_class <Day> <HH:MM> <CODE> <Subject>` - add a weekly class\n" +
	"`/remove_class <Day> <CODE> <H:MM AM|PM>` - remove a class\n" +
	"`/exams` - upcoming exams\n" +
	"`/add_exam <YYYY-MM-DD> <Name>` - add an exam\n" +
	"`/remove_exam <id>` - remove an exam\n" +
	"`/notifications` - recent reminders\n" +
	"`/clear_notifications` - clear them\n" +
	"`/check` - check for due reminders now\n" +
	"`/test` - send a test notification\n" +
	"`/permission` - allow or deny notifications\n" +
	"`/notes` - your notes\n" +
	"`/note <Title> | <Text>` - add a note\n" +
	"`/edit_note <id> <Title> | <Text>` - edit a note\n" +
	"`/delete_note <id>` - delete a note\n" +
	"`/profile [name|id|major|email|semester <value>]` - show or edit your profile\n" +
	"`/gpa <CODE:GRADE:UNITS>... [save <Name>]` - compute a GPA, optionally saving the semester\n" +
	"`/add_semester <Name> <Points> <Units>` - save a semester\n" +
	"`/cgpa` - cumulative GPA\n" +
	"`/help` - this message"

func RegisterBotCommands(b *telebot.Bot, studentTelegramID int64, userName func() string, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID != studentTelegramID {
			logCtx.Info("User is unknown")
			return c.Send("Hi! This bot serves a single student's dashboard.")
		}
		name := strings.TrimSpace(userName())
		if name == "" {
			name = c.Sender().FirstName
		}
		return c.Send(fmt.Sprintf("Welcome back, %s! I'll remind you about classes and exams. Use /help for the command list.", name))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != studentTelegramID {
			return c.Send("No commands are available for you.")
		}
		return c.Send(helpText, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
