// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// Error and status messages.
const (
	msgInternalError     = "Something went wrong. Please try again later."
	msgUnknownCommand    = "Unknown command. Send /help to see what I can do."
	msgNoActiveQuiz      = "You have no quiz in progress. Pick a test with /canada or /uk."
	msgQuizUnavailable   = "Could not start the quiz, please try again later."
	msgNoQuestions       = "There are no questions for this selection yet."
	msgChapterNotFound   = "That chapter is no longer available. Send /practice to pick another one."
	msgStaleQuestion     = "This question is no longer active."
	msgAnswerFirst       = "Answer the question first."
	msgAlreadyAnswered   = "You have already answered this question. Tap Next ▶️ to continue."
	msgQuizFinished      = "This quiz is already finished."
	msgAmbiguousAnswer   = "That matches more than one option. Please tap a button or send the option letter."
	msgUnrecognized      = "I could not match that to any option. Tap a button or send A, B, C or D."
	msgChooseCountry     = "Which test do you want to practise for?"
	msgPracticeCountry   = "Practice by chapter. Which test?"
	msgChooseChapterTmpl = "%s chapters. Pick one to practise all of its questions:"
)

// lowTimeWarning is the remaining time below which the timer is highlighted.
const lowTimeWarning = 5 * time.Minute

// maxMessageLength is the Telegram limit for message text.
const maxMessageLength = 4096

var optionLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// md escapes plain text for MarkdownV2.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func bold(s string) string {
	return "*" + md(s) + "*"
}

func italic(s string) string {
	return "_" + md(s) + "_"
}

// newMessage creates a message with MarkdownV2 parse mode.
func newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return msg
}

// newPlainMessage creates a plain message without MarkdownV2 parse mode.
func newPlainMessage(chatID int64, text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, text)
}

// newEdit creates an edit with MarkdownV2 parse mode.
func newEdit(chatID int64, msgID int, text string) tgbotapi.EditMessageTextConfig {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	return edit
}

// welcomeMessage builds the /start message.
func welcomeMessage() string {
	var sb strings.Builder

	sb.WriteString(bold("Citizenship Test Practice"))
	sb.WriteString("\n\n")
	sb.WriteString(md("Prepare for the Canadian and British citizenship tests with real-style multiple-choice questions."))
	sb.WriteString("\n\n")
	sb.WriteString(md("📚 Practice: one chapter at a time, with explanations after every answer."))
	sb.WriteString("\n")
	sb.WriteString(md("🎯 Quiz: random questions from the whole guide, with instant feedback."))
	sb.WriteString("\n")
	sb.WriteString(md("⏱ Mock test: a timed simulation of the real test. Results at the end."))
	sb.WriteString("\n\n")
	sb.WriteString(md("You need 75% to pass. Pick a test to begin:"))

	return sb.String()
}

// helpMessage builds the /help message.
func helpMessage() string {
	lines := []string{
		bold("Commands"),
		"",
		md("/canada - Canadian citizenship test"),
		md("/uk - Life in the UK test"),
		md("/practice - practise a single chapter"),
		md("/score - show progress of the current quiz"),
		md("/stop - finish the current quiz now"),
		md("/help - this message"),
		"",
		md("You can answer by tapping a button or by sending the option letter, its number or its text."),
	}
	return strings.Join(lines, "\n")
}

// modeTitle returns a human-readable mode name.
func modeTitle(mode entities.Mode) string {
	switch mode {
	case entities.ModePractice:
		return "Practice"
	case entities.ModeQuiz:
		return "Quiz"
	case entities.ModeMock:
		return "Mock test"
	default:
		return string(mode)
	}
}

// formatModeMenu builds the message shown with the mode keyboard of a country.
func formatModeMenu(country entities.Country, quizSize, mockSize int, mockLimit time.Duration) string {
	return fmt.Sprintf(
		"%s\n\n%s\n%s\n%s",
		bold(country.Title()+" citizenship test"),
		md("📚 Practice: study one chapter."),
		md(fmt.Sprintf("🎯 Quiz: %d random questions.", quizSize)),
		md(fmt.Sprintf("⏱ Mock test: %d questions in %s.", mockSize, formatLimit(mockLimit))),
	)
}

// formatChapterMenu builds the chapter list of a country.
func formatChapterMenu(country entities.Country, chapters []entities.ChapterSummary) string {
	var sb strings.Builder
	sb.WriteString(md(fmt.Sprintf(msgChooseChapterTmpl, country.Title())))
	sb.WriteString("\n\n")
	for i, ch := range chapters {
		sb.WriteString(md(fmt.Sprintf("%d. %s (%d questions)", i+1, ch.Name, ch.Count)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatRemaining renders a duration as MM:SS.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// formatLimit renders a time limit in minutes.
func formatLimit(d time.Duration) string {
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

// formatTimer renders the countdown line of a timed session.
func formatTimer(remaining time.Duration) string {
	if remaining < lowTimeWarning {
		return md("⚠️ Time left: " + formatRemaining(remaining))
	}
	return md("⏱ Time left: " + formatRemaining(remaining))
}

// formatHeader renders the first lines of a question message.
func formatHeader(s *entities.QuizSession) string {
	title := s.Country.Title() + " · " + modeTitle(s.Mode)
	if s.Chapter != "" {
		title += " · " + s.Chapter
	}

	lines := []string{
		bold(title),
		md(fmt.Sprintf("Question %d of %d · answered %d", s.CurrentIndex+1, s.Total(), s.AnsweredCount())),
	}
	if s.IsTimed() {
		lines = append(lines, formatTimer(s.Remaining))
	}
	return strings.Join(lines, "\n")
}

// formatQuestion renders the current question of a session. In modes with live
// feedback an answered question also shows whether the answer was right.
func formatQuestion(s *entities.QuizSession) string {
	q := s.Current()

	var sb strings.Builder
	sb.WriteString(formatHeader(s))
	sb.WriteString("\n\n")
	sb.WriteString(bold(q.Text))
	sb.WriteString("\n\n")

	answer := s.Answers[s.CurrentIndex]
	for i, option := range q.Options {
		marker := optionLabel(i) + "."
		if s.Mode.FreeNavigation() && option == answer {
			marker = "✅ " + marker
		}
		sb.WriteString(md(marker + " " + option))
		sb.WriteString("\n")
	}

	if s.Mode.LiveFeedback() && answer != entities.Unanswered {
		sb.WriteString("\n")
		sb.WriteString(formatFeedback(q, answer))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// formatFeedback renders the verdict on an answer together with the explanation.
func formatFeedback(q entities.Question, answer string) string {
	var sb strings.Builder
	if q.IsCorrect(answer) {
		sb.WriteString(bold("✅ Correct!"))
	} else {
		sb.WriteString(bold("❌ Incorrect."))
		sb.WriteString(md(" Your answer: " + answer))
		sb.WriteString("\n")
		sb.WriteString(md("Correct answer: "))
		sb.WriteString(bold(q.CorrectAnswer))
	}
	if q.Explanation != "" {
		sb.WriteString("\n\n")
		sb.WriteString(italic(q.Explanation))
	}
	return sb.String()
}

// resultTier returns the headline for a percentage.
func resultTier(percentage float64) string {
	switch {
	case percentage >= 80:
		return "Excellent!"
	case percentage >= 60:
		return "Good job!"
	default:
		return "Keep practicing!"
	}
}

// formatResult renders the final message of a completed session.
func formatResult(s *entities.QuizSession, score entities.Score, passMark float64) string {
	var sb strings.Builder

	sb.WriteString(bold("🏁 " + modeTitle(s.Mode) + " complete: " + resultTier(score.Percentage)))
	sb.WriteString("\n")
	if s.CompletionReason == entities.CompletedTimeExpired {
		sb.WriteString(md("⏰ Time's up!"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(md(fmt.Sprintf("Score: %d out of %d (%.0f%%)", score.Correct, score.Total, score.Percentage)))
	sb.WriteString("\n")
	if unanswered := s.Total() - s.AnsweredCount(); unanswered > 0 {
		sb.WriteString(md(fmt.Sprintf("Unanswered: %d", unanswered)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if score.Passed {
		sb.WriteString(bold("PASSED ✅"))
		if s.Mode == entities.ModeMock {
			sb.WriteString("\n")
			sb.WriteString(md(fmt.Sprintf("🎉 Congratulations! You're ready for the real %s test.", s.Country.Title())))
		}
	} else {
		sb.WriteString(bold("FAILED ❌"))
		sb.WriteString("\n")
		sb.WriteString(md(fmt.Sprintf("You need %.0f%% to pass. Keep practicing! 💪", passMark)))
	}

	result := sb.String()
	if review := formatReview(s); review != "" && len(result)+len(review)+2 <= maxMessageLength {
		result += "\n\n" + review
	}
	return result
}

// formatReview lists the questions answered incorrectly, as many as fit in one message.
func formatReview(s *entities.QuizSession) string {
	var sb strings.Builder
	header := bold("Review")
	budget := maxMessageLength / 2

	written := 0
	for i, q := range s.Questions {
		answer := s.Answers[i]
		if q.IsCorrect(answer) {
			continue
		}

		given := answer
		if given == entities.Unanswered {
			given = "no answer"
		}
		entry := md(fmt.Sprintf("%d. %s", i+1, q.Text)) + "\n" +
			md("   ✗ "+given) + "\n" +
			md("   ✓ "+q.CorrectAnswer) + "\n"
		if sb.Len()+len(entry) > budget {
			sb.WriteString(md("…"))
			break
		}
		sb.WriteString(entry)
		written++
	}

	if written == 0 {
		return ""
	}
	return header + "\n" + strings.TrimRight(sb.String(), "\n")
}

// formatStatus renders the /score reply for a session in progress.
func formatStatus(s *entities.QuizSession, score entities.Score) string {
	lines := []string{
		formatHeader(s),
		"",
		md(fmt.Sprintf("Progress: %d of %d answered (%.0f%%)", s.AnsweredCount(), s.Total(), progress(s))),
	}
	if s.Mode.LiveFeedback() {
		lines = append(lines, md(fmt.Sprintf("Correct so far: %d", score.Correct)))
	}
	return strings.Join(lines, "\n")
}

// progress returns the answered share of a session in percent.
func progress(s *entities.QuizSession) float64 {
	if s.Total() == 0 {
		return 0
	}
	return 100 * float64(s.AnsweredCount()) / float64(s.Total())
}

func optionLabel(i int) string {
	if i < len(optionLetters) {
		return optionLetters[i]
	}
	return fmt.Sprintf("%d", i+1)
}
