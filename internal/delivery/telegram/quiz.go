package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

// startSession starts a session for the chat and shows its first question.
// When messageID is set, that message is turned into the question.
func (h *Handler) startSession(ctx context.Context, chatID int64, messageID int, req service.StartRequest) error {
	req.Owner = chatID

	if prev, err := h.quizService.ActiveFor(ctx, chatID); err == nil {
		if oldID, ok := h.quizStorage.GetMessageID(prev.ID); ok && oldID != messageID {
			h.clearKeyboard(chatID, oldID)
		}
	}

	session, err := h.quizService.Start(ctx, req)
	if err != nil {
		h.logger.Error("failed to start quiz session",
			zap.Int64("chat_id", chatID),
			zap.String("country", string(req.Country)),
			zap.String("mode", string(req.Mode)),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, entities.ErrInsufficientQuestions),
			errors.Is(err, entities.ErrCountryNotFound):
			return h.send(newPlainMessage(chatID, msgNoQuestions))
		case errors.Is(err, entities.ErrChapterNotFound):
			return h.send(newPlainMessage(chatID, msgChapterNotFound))
		default:
			return h.send(newPlainMessage(chatID, msgQuizUnavailable))
		}
	}

	if messageID != 0 {
		return h.showSession(ctx, chatID, messageID, session)
	}
	return h.showSessionInNewMessage(ctx, chatID, session)
}

// showSession edits messageID to show the session's current state.
// A completed session is replaced by its result.
func (h *Handler) showSession(ctx context.Context, chatID int64, messageID int, session *entities.QuizSession) error {
	if !session.IsActive() {
		return h.showResult(ctx, chatID, messageID, session)
	}

	edit := newEdit(chatID, messageID, formatQuestion(session))
	kb := buildQuestionKeyboard(session)
	edit.ReplyMarkup = &kb

	if err := h.send(edit); err != nil {
		return err
	}
	h.quizStorage.StoreMessageID(session.ID, messageID)
	return nil
}

// showSessionInNewMessage sends the session's current state as a new message and
// removes the keyboard from the message that showed it before.
func (h *Handler) showSessionInNewMessage(ctx context.Context, chatID int64, session *entities.QuizSession) error {
	if !session.IsActive() {
		return h.showResult(ctx, chatID, 0, session)
	}

	if oldID, ok := h.quizStorage.GetMessageID(session.ID); ok {
		h.clearKeyboard(chatID, oldID)
	}

	msg := newMessage(chatID, formatQuestion(session))
	msg.ReplyMarkup = buildQuestionKeyboard(session)

	sent, err := h.sendMessage(msg)
	if err != nil {
		return err
	}
	h.quizStorage.StoreMessageID(session.ID, sent.MessageID)
	return nil
}

// showResult shows the result of a completed session and discards it.
func (h *Handler) showResult(ctx context.Context, chatID int64, messageID int, session *entities.QuizSession) error {
	score := h.quizService.Score(session)
	text := formatResult(session, score, h.settings.PassMark)
	kb := buildResultKeyboard(session)

	if err := h.quizService.Discard(ctx, session.ID); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		h.logger.Warn("failed to discard quiz session",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
	}

	if messageID != 0 {
		edit := newEdit(chatID, messageID, text)
		edit.ReplyMarkup = &kb
		if err := h.send(edit); err == nil {
			return nil
		}
	}

	msg := newMessage(chatID, text)
	msg.ReplyMarkup = kb
	return h.send(msg)
}

// NotifyExpired shows the result of a session whose time ran out.
func (h *Handler) NotifyExpired(ctx context.Context, session *entities.QuizSession, _ entities.Score) {
	chatID, ok := h.quizStorage.OwnerOf(session.ID)
	if !ok {
		return
	}
	messageID, _ := h.quizStorage.GetMessageID(session.ID)

	h.logger.Info("quiz time expired",
		zap.Int64("chat_id", chatID),
		zap.String("session_id", session.ID.String()),
	)

	if err := h.showResult(ctx, chatID, messageID, session); err != nil {
		h.logger.Error("failed to notify expired session",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

func (h *Handler) clearKeyboard(chatID int64, messageID int) {
	h.request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	}))
}
