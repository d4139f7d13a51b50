package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/grades"
	"uniportal_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	testTitle = "Test Notification"
	testBody  = "If you see this, notifications are working! ✅"
)

// Resumer runs an immediate reminder pass.
type Resumer interface {
	Resume() int
}

// RegisterStudentHandlers registers the dashboard commands. Only the configured
// student may use them.
func RegisterStudentHandlers(
	ctx context.Context,
	b *telebot.Bot,
	dashboardService *app.DashboardService,
	feed *app.Feed,
	delivery app.Deliverer,
	gate *app.PermissionGate,
	resumer Resumer,
	prompter *PermissionPrompter,
	studentTelegramID int64,
	baseLogger *logrus.Entry,
) {
	// guard wraps a handler with logging and the sender check.
	guard := func(command string, h func(c telebot.Context, log *logrus.Entry) error) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")
			if c.Sender().ID != studentTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Sorry, this dashboard belongs to someone else.")
			}
			return h(c, handlerLogger)
		})
	}

	guard("/add_class", func(c telebot.Context, log *logrus.Entry) error {
		// /add_class <Day> <HH:MM> <CODE> <Subject...>
		args := c.Args()
		if len(args) < 4 {
			return c.Send("Usage: /add_class <Day> <HH:MM> <CODE> <Subject>\nExample: /add_class Monday 09:00 CSC301 Data Structures")
		}
		session, err := dashboardService.AddClass(ctx, args[0], args[1], args[2], strings.Join(args[3:], " "))
		switch {
		case errors.Is(err, app.ErrClassConflict):
			log.WithError(err).Warn("Class conflict")
			return c.Send(fmt.Sprintf("Time conflict, %v", err))
		case errors.Is(err, app.ErrNotSchoolDay):
			return c.Send("Classes can only be added Monday to Friday.")
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid class: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to add class")
			return c.Send("Could not add the class, please try again later.")
		case err != nil:
			log.WithError(err).Error("Class added but not persisted")
		}
		day, _ := schedule.ParseWeekday(args[0])
		return c.Send(editReply(fmt.Sprintf("Added %s (%s) on %s at %s.", session.Code, session.Subject, day, session.Time), err))
	})

	guard("/remove_class", func(c telebot.Context, log *logrus.Entry) error {
		// /remove_class <Day> <CODE> <H:MM AM|PM>
		args := c.Args()
		if len(args) < 3 {
			return c.Send("Usage: /remove_class <Day> <CODE> <H:MM AM|PM>")
		}
		t := schedule.TimeOfDay(strings.Join(args[2:], " "))
		err := dashboardService.RemoveClass(ctx, args[0], args[1], t)
		switch {
		case errors.Is(err, app.ErrClassNotFound):
			return c.Send("No such class on that day.")
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid input: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to remove class")
			return c.Send("Could not remove the class, please try again later.")
		case err != nil:
			log.WithError(err).Error("Class removed but not persisted")
		}
		return c.Send(editReply("Class removed.", err))
	})

	guard("/timetable", func(c telebot.Context, log *logrus.Entry) error {
		return c.Send(formatTimetable(dashboardService.Snapshot(ctx).Timetable))
	})

	guard("/today", func(c telebot.Context, log *logrus.Entry) error {
		return c.Send(formatToday(time.Now(), dashboardService.Snapshot(ctx).Timetable))
	})

	guard("/add_exam", func(c telebot.Context, log *logrus.Entry) error {
		// /add_exam <YYYY-MM-DD> <Name...>
		args := c.Args()
		if len(args) < 2 {
			return c.Send("Usage: /add_exam <YYYY-MM-DD> <Name>")
		}
		exam, err := dashboardService.AddExam(ctx, strings.Join(args[1:], " "), args[0])
		switch {
		case errors.Is(err, app.ErrExamInPast):
			return c.Send("The exam date must be today or later.")
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid exam: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to add exam")
			return c.Send("Could not add the exam, please try again later.")
		case err != nil:
			log.WithError(err).Error("Exam added but not persisted")
		}
		log.WithField("exam_id", exam.ID).Info("Exam added via bot")
		return c.Send(editReply(fmt.Sprintf("Exam %s added for %s.\nid: %s", exam.Name, exam.Date, exam.ID), err))
	})

	guard("/remove_exam", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /remove_exam <id>  (ids are listed by /exams)")
		}
		err := dashboardService.RemoveExam(ctx, args[0])
		switch {
		case errors.Is(err, app.ErrExamNotFound):
			return c.Send("No exam with that id.")
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to remove exam")
			return c.Send("Could not remove the exam, please try again later.")
		case err != nil:
			log.WithError(err).Error("Exam removed but not persisted")
		}
		return c.Send(editReply("Exam removed.", err))
	})

	guard("/exams", func(c telebot.Context, log *logrus.Entry) error {
		return c.Send(formatExams(dashboardService.UpcomingExams(schedule.DateOf(time.Now()))))
	})

	guard("/notifications", func(c telebot.Context, log *logrus.Entry) error {
		return c.Send(formatFeed(feed.Entries()))
	})

	guard("/clear_notifications", func(c telebot.Context, log *logrus.Entry) error {
		if err := feed.Clear(ctx); err != nil {
			log.WithError(err).Error("Failed to clear notifications")
			return c.Send("Notifications cleared here, but saving failed.")
		}
		return c.Send("Notifications cleared.")
	})

	guard("/check", func(c telebot.Context, log *logrus.Entry) error {
		delivered := resumer.Resume()
		if delivered == 0 {
			return c.Send("All caught up, nothing due right now.")
		}
		return c.Send(fmt.Sprintf("Sent %d reminder(s).", delivered))
	})

	guard("/test", func(c telebot.Context, log *logrus.Entry) error {
		route := delivery.Deliver(ctx, testTitle, testBody)
		log.WithField("route", route).Info("Test notification delivered")
		return c.Send(testReply(route, gate.State()))
	})

	guard("/permission", func(c telebot.Context, log *logrus.Entry) error {
		if _, err := prompter.Request(ctx); err != nil {
			log.WithError(err).Error("Failed to send permission prompt")
			return c.Send("Could not show the permission prompt.")
		}
		return nil
	})

	guard("/gpa", func(c telebot.Context, log *logrus.Entry) error {
		// /gpa [CODE:GRADE:UNITS ...] [save <Name...>]
		args := c.Args()
		courseArgs, saveName, save := args, "", false
		for i, a := range args {
			if strings.EqualFold(a, "save") {
				courseArgs, saveName, save = args[:i], strings.Join(args[i+1:], " "), true
				break
			}
		}

		var reply string
		var saveErr error
		if len(courseArgs) > 0 {
			courses, err := parseCourses(courseArgs)
			if err != nil {
				return c.Send(fmt.Sprintf("%v\nUsage: /gpa CSC301:A:3 MTH201:B:2 [save <Name>]", err))
			}
			result, err := dashboardService.SetCourses(ctx, courses)
			if err != nil {
				log.WithError(err).Error("Courses not persisted")
				saveErr = err
			}
			reply = formatResult("GPA", result)
		} else if !save {
			courses := dashboardService.Courses()
			if len(courses) == 0 {
				return c.Send("Usage: /gpa CSC301:A:3 MTH201:B:2 [save <Name>]")
			}
			reply = formatResult("GPA", grades.CalculateGPA(courses))
		}

		if save {
			sem, err := dashboardService.SaveSemester(ctx, saveName)
			switch {
			case errors.Is(err, app.ErrInvalidInput):
				return c.Send(fmt.Sprintf("Invalid semester: %v", err))
			case err != nil && !errors.Is(err, app.ErrNotSaved):
				log.WithError(err).Error("Failed to save semester")
				return c.Send("Could not save the semester, please try again later.")
			case err != nil:
				log.WithError(err).Error("Semester saved but not persisted")
				saveErr = err
			}
			reply = strings.TrimSpace(reply + fmt.Sprintf("\nSaved %s (%d courses) with GPA %.2f.", sem.Name, len(sem.Courses), sem.GPA))
		}
		return c.Send(editReply(reply, saveErr))
	})

	guard("/add_semester", func(c telebot.Context, log *logrus.Entry) error {
		// /add_semester <Name...> <TotalPoints> <TotalUnits>
		args := c.Args()
		if len(args) < 3 {
			return c.Send("Usage: /add_semester <Name> <TotalPoints> <TotalUnits>")
		}
		points, errP := strconv.ParseFloat(args[len(args)-2], 64)
		units, errU := strconv.Atoi(args[len(args)-1])
		if errP != nil || errU != nil {
			return c.Send("Points and units must be numbers.")
		}
		sem, err := dashboardService.AddSemester(ctx, strings.Join(args[:len(args)-2], " "), points, units)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid semester: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to add semester")
			return c.Send("Could not save the semester, please try again later.")
		case err != nil:
			log.WithError(err).Error("Semester added but not persisted")
		}
		return c.Send(editReply(fmt.Sprintf("Saved %s with GPA %.2f.", sem.Name, sem.GPA), err))
	})

	guard("/cgpa", func(c telebot.Context, log *logrus.Entry) error {
		result, semesters := dashboardService.CGPA()
		if len(semesters) == 0 {
			return c.Send("No semesters saved. Add one with /add_semester.")
		}
		var sb strings.Builder
		for _, s := range semesters {
			fmt.Fprintf(&sb, "%s: %.2f\n", s.Name, s.GPA)
		}
		sb.WriteString(formatResult("CGPA", result))
		return c.Send(sb.String())
	})

	guard("/notes", func(c telebot.Context, log *logrus.Entry) error {
		return c.Send(formatNotes(dashboardService.Notes()))
	})

	saveNote := func(c telebot.Context, log *logrus.Entry, id string, args []string) error {
		title, content := parseNote(args)
		note, err := dashboardService.SaveNote(ctx, id, title, content)
		switch {
		case errors.Is(err, app.ErrNoteNotFound):
			return c.Send("No note with that id.")
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid note: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to save note")
			return c.Send("Could not save the note, please try again later.")
		case err != nil:
			log.WithError(err).Error("Note saved but not persisted")
		}
		return c.Send(editReply(fmt.Sprintf("Note %q saved.\nid: %s", note.Title, note.ID), err))
	}

	guard("/note", func(c telebot.Context, log *logrus.Entry) error {
		// /note <Title> | <Text...>
		if len(c.Args()) == 0 {
			return c.Send("Usage: /note <Title> | <Text>")
		}
		return saveNote(c, log, "", c.Args())
	})

	guard("/edit_note", func(c telebot.Context, log *logrus.Entry) error {
		// /edit_note <id> <Title> | <Text...>
		args := c.Args()
		if len(args) < 2 {
			return c.Send("Usage: /edit_note <id> <Title> | <Text>  (ids are listed by /notes)")
		}
		return saveNote(c, log, args[0], args[1:])
	})

	guard("/delete_note", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /delete_note <id>  (ids are listed by /notes)")
		}
		err := dashboardService.DeleteNote(ctx, args[0])
		switch {
		case errors.Is(err, app.ErrNoteNotFound):
			return c.Send("No note with that id.")
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to delete note")
			return c.Send("Could not delete the note, please try again later.")
		case err != nil:
			log.WithError(err).Error("Note deleted but not persisted")
		}
		return c.Send(editReply("Note deleted.", err))
	})

	guard("/profile", func(c telebot.Context, log *logrus.Entry) error {
		// /profile, or /profile <name|id|major|email|semester> <value...>
		args := c.Args()
		if len(args) == 0 {
			return c.Send(formatProfile(dashboardService.Profile()))
		}
		if len(args) < 2 {
			return c.Send("Usage: /profile <name|id|major|email|semester> <value>")
		}
		profile, err := dashboardService.UpdateProfile(ctx, args[0], strings.Join(args[1:], " "))
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			return c.Send(fmt.Sprintf("Invalid profile update: %v", err))
		case err != nil && !errors.Is(err, app.ErrNotSaved):
			log.WithError(err).Error("Failed to update profile")
			return c.Send("Could not update the profile, please try again later.")
		case err != nil:
			log.WithError(err).Error("Profile updated but not persisted")
		}
		return c.Send(editReply(formatProfile(profile), err))
	})
}
