package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

const jumpButtonsPerRow = 6

// buildCountryKeyboard lets the user pick a test. With a mode the session
// starts right away, otherwise the mode menu of the country is shown.
func buildCountryKeyboard(mode entities.Mode) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, country := range entities.Countries {
		data := buildMenuCallback(country)
		if mode != "" {
			data = buildModeCallback(country, mode)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(countryFlag(country)+" "+country.Title(), data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// buildModeKeyboard builds the mode menu of a country.
func buildModeKeyboard(country entities.Country) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Practice", buildModeCallback(country, entities.ModePractice)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Quiz", buildModeCallback(country, entities.ModeQuiz)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ Mock test", buildModeCallback(country, entities.ModeMock)),
		),
	)
}

// buildChapterKeyboard builds one button per chapter.
func buildChapterKeyboard(country entities.Country, chapters []entities.ChapterSummary) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(chapters))
	for i, ch := range chapters {
		label := strconv.Itoa(i+1) + ". " + ch.Name
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildChapterCallback(country, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildQuestionKeyboard builds the keyboard of the current question.
//
// Modes with live feedback show the options until the question is answered and
// then only navigation. Mock tests always show the options, navigation and a
// grid to jump to any question.
func buildQuestionKeyboard(s *entities.QuizSession) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	q := s.Current()
	answered := s.IsAnswered(s.CurrentIndex)
	if s.Mode.FreeNavigation() || !answered {
		for i, option := range q.Options {
			label := optionLabel(i) + ". " + option
			if answered && option == s.Answers[s.CurrentIndex] {
				label = "✅ " + label
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, buildAnswerCallback(s.CurrentIndex, i)),
			))
		}
	}

	if nav := buildNavRow(s); len(nav) > 0 {
		rows = append(rows, nav)
	}

	if s.Mode.FreeNavigation() {
		rows = append(rows, buildJumpRows(s)...)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func buildNavRow(s *entities.QuizSession) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton

	if s.CurrentIndex > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️ Back", buildNavCallback(navBack, s.CurrentIndex)))
	}

	last := s.CurrentIndex == s.Total()-1
	canAdvance := s.Mode.FreeNavigation() || s.IsAnswered(s.CurrentIndex)
	switch {
	case canAdvance && last:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🏁 See results", buildNavCallback(navNext, s.CurrentIndex)))
	case canAdvance:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ▶️", buildNavCallback(navNext, s.CurrentIndex)))
	}

	if s.Mode.FreeNavigation() && !last {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🏁 Finish", buildNavCallback(navFinish, s.CurrentIndex)))
	}

	return row
}

// buildJumpRows builds the question grid of a mock test. Answered questions are
// marked, the current one is bracketed.
func buildJumpRows(s *entities.QuizSession) [][]tgbotapi.InlineKeyboardButton {
	var (
		rows [][]tgbotapi.InlineKeyboardButton
		row  []tgbotapi.InlineKeyboardButton
	)

	for i := range s.Questions {
		label := strconv.Itoa(i + 1)
		switch {
		case i == s.CurrentIndex:
			label = "[" + label + "]"
		case s.IsAnswered(i):
			label += "✓"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, buildJumpCallback(i)))
		if len(row) == jumpButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// buildResultKeyboard offers to repeat the same kind of session or pick another test.
func buildResultKeyboard(s *entities.QuizSession) tgbotapi.InlineKeyboardMarkup {
	var menu []tgbotapi.InlineKeyboardButton
	for _, country := range entities.Countries {
		menu = append(menu, tgbotapi.NewInlineKeyboardButtonData(
			countryFlag(country)+" "+country.Title(),
			buildMenuCallback(country),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Try again", buildModeCallback(s.Country, s.Mode)),
		),
		menu,
	)
}

func countryFlag(c entities.Country) string {
	switch c {
	case entities.CountryCanada:
		return "🇨🇦"
	case entities.CountryUK:
		return "🇬🇧"
	default:
		return "🏳️"
	}
}
