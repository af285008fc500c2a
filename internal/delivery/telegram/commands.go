package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

// handleStart greets the user and offers both tests.
func (h *Handler) handleStart() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		msg := newMessage(chatID, welcomeMessage())
		msg.ReplyMarkup = buildCountryKeyboard("")
		return h.send(msg)
	}
}

// handleHelp lists the commands.
func (h *Handler) handleHelp() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		return h.send(newMessage(chatID, helpMessage()))
	}
}

func (h *Handler) handleUnknown() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		return h.send(newPlainMessage(chatID, msgUnknownCommand))
	}
}

// handleCountry shows the mode menu of a country.
func (h *Handler) handleCountry(country entities.Country) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		msg := newMessage(chatID, h.modeMenuText(country))
		msg.ReplyMarkup = buildModeKeyboard(country)
		return h.send(msg)
	}
}

// handlePractice shows the chapters of the country given as argument, or asks for one.
func (h *Handler) handlePractice(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		args = strings.TrimSpace(args)
		if args == "" {
			msg := newPlainMessage(chatID, msgPracticeCountry)
			msg.ReplyMarkup = buildCountryKeyboard(entities.ModePractice)
			return h.send(msg)
		}

		country, err := entities.ParseCountry(args)
		if err != nil {
			msg := newPlainMessage(chatID, msgChooseCountry)
			msg.ReplyMarkup = buildCountryKeyboard(entities.ModePractice)
			return h.send(msg)
		}

		text, kb, err := h.chapterMenu(ctx, country)
		if err != nil {
			return err
		}
		msg := newMessage(chatID, text)
		msg.ReplyMarkup = kb
		return h.send(msg)
	}
}

// handleScore shows the progress of the active session.
func (h *Handler) handleScore() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		session, err := h.quizService.ActiveFor(ctx, chatID)
		if errors.Is(err, service.ErrSessionNotFound) {
			return h.send(newPlainMessage(chatID, msgNoActiveQuiz))
		}
		if err != nil {
			return err
		}

		if !session.IsActive() {
			messageID, _ := h.quizStorage.GetMessageID(session.ID)
			return h.showResult(ctx, chatID, messageID, session)
		}

		return h.send(newMessage(chatID, formatStatus(session, h.quizService.Score(session))))
	}
}

// handleStop finishes the active session and shows its result.
func (h *Handler) handleStop() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		session, err := h.quizService.ActiveFor(ctx, chatID)
		if errors.Is(err, service.ErrSessionNotFound) {
			return h.send(newPlainMessage(chatID, msgNoActiveQuiz))
		}
		if err != nil {
			return err
		}

		session, err = h.quizService.Finish(ctx, session.ID)
		if err != nil {
			return err
		}

		messageID, _ := h.quizStorage.GetMessageID(session.ID)
		return h.showResult(ctx, chatID, messageID, session)
	}
}

// handleTextAnswer treats free text as an answer to the current question.
func (h *Handler) handleTextAnswer(text string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		session, err := h.quizService.ActiveFor(ctx, chatID)
		if errors.Is(err, service.ErrSessionNotFound) {
			return h.send(newPlainMessage(chatID, msgNoActiveQuiz))
		}
		if err != nil {
			return err
		}
		if !session.IsActive() {
			messageID, _ := h.quizStorage.GetMessageID(session.ID)
			return h.showResult(ctx, chatID, messageID, session)
		}

		if !session.Mode.FreeNavigation() && session.IsAnswered(session.CurrentIndex) {
			return h.send(newPlainMessage(chatID, msgAlreadyAnswered))
		}

		next, err := h.quizService.Answer(ctx, session.ID, session.CurrentIndex, text)
		switch {
		case errors.Is(err, service.ErrAmbiguousAnswer):
			return h.send(newPlainMessage(chatID, msgAmbiguousAnswer))
		case errors.Is(err, entities.ErrInvalidAnswer):
			return h.send(newPlainMessage(chatID, msgUnrecognized))
		case errors.Is(err, entities.ErrSessionCompleted):
			messageID, _ := h.quizStorage.GetMessageID(session.ID)
			return h.showResult(ctx, chatID, messageID, next)
		case err != nil:
			return err
		}

		h.logger.Debug("text answer accepted",
			zap.Int64("chat_id", chatID),
			zap.Int("question", next.CurrentIndex),
		)
		return h.showSessionInNewMessage(ctx, chatID, next)
	}
}

func (h *Handler) modeMenuText(country entities.Country) string {
	policy, ok := h.settings.Policies[country]
	if !ok {
		policy = service.DefaultCountryPolicy()
	}
	return formatModeMenu(country, policy.Size(entities.ModeQuiz), policy.Size(entities.ModeMock), policy.TimeLimit(entities.ModeMock))
}

func (h *Handler) chapterMenu(ctx context.Context, country entities.Country) (string, tgbotapi.InlineKeyboardMarkup, error) {
	chapters, err := h.quizService.Chapters(ctx, country)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, fmt.Errorf("list %s chapters: %w", country, err)
	}
	return formatChapterMenu(country, chapters), buildChapterKeyboard(country, chapters), nil
}
