package telegram

import (
	"strconv"
	"strings"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// Callback action constants.
const (
	actionMenu    = "menu"
	actionMode    = "mode"
	actionChapter = "chapter"
	actionAnswer  = "ans"
	actionNav     = "nav"
	actionJump    = "jump"
)

// Navigation sub-actions.
const (
	navNext   = "next"
	navBack   = "back"
	navFinish = "finish"
)

// callbackData represents structured callback data.
type callbackData struct {
	Action string
	Params []string
	Raw    string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")
	return callbackData{
		Action: parts[0],
		Params: parts[1:],
		Raw:    data,
	}
}

// param returns the i-th parameter or an empty string.
func (cd callbackData) param(i int) string {
	if i < 0 || i >= len(cd.Params) {
		return ""
	}
	return cd.Params[i]
}

// intParam parses the i-th parameter as a non-negative integer.
func (cd callbackData) intParam(i int) (int, bool) {
	n, err := strconv.Atoi(cd.param(i))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// buildMenuCallback builds callback data for opening the mode menu of a country.
func buildMenuCallback(country entities.Country) string {
	return callbackData{
		Action: actionMenu,
		Params: []string{string(country)},
	}.encode()
}

// buildModeCallback builds callback data for starting a session of mode.
func buildModeCallback(country entities.Country, mode entities.Mode) string {
	return callbackData{
		Action: actionMode,
		Params: []string{string(country), string(mode)},
	}.encode()
}

// buildChapterCallback builds callback data for starting practice on a chapter.
// Chapters are addressed by position because names do not fit in 64 bytes.
func buildChapterCallback(country entities.Country, index int) string {
	return callbackData{
		Action: actionChapter,
		Params: []string{string(country), strconv.Itoa(index)},
	}.encode()
}

// buildAnswerCallback builds callback data for choosing an option of a question.
func buildAnswerCallback(questionIndex, optionIndex int) string {
	return callbackData{
		Action: actionAnswer,
		Params: []string{strconv.Itoa(questionIndex), strconv.Itoa(optionIndex)},
	}.encode()
}

// buildNavCallback builds callback data for next, back and finish buttons.
func buildNavCallback(subAction string, questionIndex int) string {
	return callbackData{
		Action: actionNav,
		Params: []string{subAction, strconv.Itoa(questionIndex)},
	}.encode()
}

// buildJumpCallback builds callback data for the question grid of mock tests.
func buildJumpCallback(questionIndex int) string {
	return callbackData{
		Action: actionJump,
		Params: []string{strconv.Itoa(questionIndex)},
	}.encode()
}
