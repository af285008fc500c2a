package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := decodeCallback(cb.Data)
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	var (
		notice string
		err    error
	)

	switch data.Action {
	case actionMenu:
		err = h.handleMenuCallback(chatID, messageID, data)
	case actionMode:
		err = h.handleModeCallback(ctx, chatID, messageID, data)
	case actionChapter:
		err = h.handleChapterCallback(ctx, chatID, messageID, data)
	case actionAnswer:
		notice, err = h.handleAnswerCallback(ctx, chatID, messageID, data)
	case actionNav:
		notice, err = h.handleNavCallback(ctx, chatID, messageID, data)
	case actionJump:
		notice, err = h.handleJumpCallback(ctx, chatID, messageID, data)
	default:
		h.logger.Debug("unknown callback", zap.String("data", cb.Data))
	}

	if err != nil {
		h.logger.Error("callback failed",
			zap.Int64("chat_id", chatID),
			zap.String("data", cb.Data),
			zap.Error(err),
		)
		notice = msgInternalError
	}

	// Remove the user's "clock".
	h.answerCallback(cb.ID, notice)
}

func (h *Handler) handleMenuCallback(chatID int64, messageID int, data callbackData) error {
	country, err := entities.ParseCountry(data.param(0))
	if err != nil {
		return err
	}

	edit := newEdit(chatID, messageID, h.modeMenuText(country))
	kb := buildModeKeyboard(country)
	edit.ReplyMarkup = &kb
	return h.send(edit)
}

func (h *Handler) handleModeCallback(ctx context.Context, chatID int64, messageID int, data callbackData) error {
	country, err := entities.ParseCountry(data.param(0))
	if err != nil {
		return err
	}
	mode, err := entities.ParseMode(data.param(1))
	if err != nil {
		return err
	}

	if mode == entities.ModePractice {
		text, kb, err := h.chapterMenu(ctx, country)
		if err != nil {
			return err
		}
		edit := newEdit(chatID, messageID, text)
		edit.ReplyMarkup = &kb
		return h.send(edit)
	}

	return h.startSession(ctx, chatID, messageID, service.StartRequest{
		Country: country,
		Mode:    mode,
	})
}

func (h *Handler) handleChapterCallback(ctx context.Context, chatID int64, messageID int, data callbackData) error {
	country, err := entities.ParseCountry(data.param(0))
	if err != nil {
		return err
	}
	index, ok := data.intParam(1)
	if !ok {
		return errors.New("invalid chapter index")
	}

	chapters, err := h.quizService.Chapters(ctx, country)
	if err != nil {
		return err
	}
	if index >= len(chapters) {
		return h.send(newPlainMessage(chatID, msgChapterNotFound))
	}

	return h.startSession(ctx, chatID, messageID, service.StartRequest{
		Country: country,
		Mode:    entities.ModePractice,
		Chapter: chapters[index].Name,
	})
}

func (h *Handler) handleAnswerCallback(ctx context.Context, chatID int64, messageID int, data callbackData) (string, error) {
	questionIndex, ok1 := data.intParam(0)
	optionIndex, ok2 := data.intParam(1)
	if !ok1 || !ok2 {
		return "", errors.New("invalid answer callback")
	}

	session, notice, err := h.sessionForMessage(ctx, chatID, messageID)
	if session == nil || err != nil {
		return notice, err
	}
	if questionIndex >= session.Total() || optionIndex >= len(session.Questions[questionIndex].Options) {
		return msgStaleQuestion, nil
	}

	option := session.Questions[questionIndex].Options[optionIndex]
	next, err := h.quizService.Answer(ctx, session.ID, questionIndex, option)
	if notice, ok := transitionNotice(err); ok {
		if next != nil && !next.IsActive() {
			return notice, h.showSession(ctx, chatID, messageID, next)
		}
		return notice, nil
	}
	if err != nil {
		return "", err
	}

	return answerNotice(next, questionIndex), h.showSession(ctx, chatID, messageID, next)
}

func (h *Handler) handleNavCallback(ctx context.Context, chatID int64, messageID int, data callbackData) (string, error) {
	session, notice, err := h.sessionForMessage(ctx, chatID, messageID)
	if session == nil || err != nil {
		return notice, err
	}

	var next *entities.QuizSession
	switch data.param(0) {
	case navNext:
		next, err = h.quizService.Advance(ctx, session.ID)
	case navBack:
		next, err = h.quizService.Back(ctx, session.ID)
	case navFinish:
		next, err = h.quizService.Finish(ctx, session.ID)
	default:
		return "", errors.New("invalid navigation callback")
	}

	if notice, ok := transitionNotice(err); ok {
		if next != nil && !next.IsActive() {
			return notice, h.showSession(ctx, chatID, messageID, next)
		}
		return notice, nil
	}
	if err != nil {
		return "", err
	}

	return "", h.showSession(ctx, chatID, messageID, next)
}

func (h *Handler) handleJumpCallback(ctx context.Context, chatID int64, messageID int, data callbackData) (string, error) {
	index, ok := data.intParam(0)
	if !ok {
		return "", errors.New("invalid jump callback")
	}

	session, notice, err := h.sessionForMessage(ctx, chatID, messageID)
	if session == nil || err != nil {
		return notice, err
	}

	next, err := h.quizService.Jump(ctx, session.ID, index)
	if notice, ok := transitionNotice(err); ok {
		if next != nil && !next.IsActive() {
			return notice, h.showSession(ctx, chatID, messageID, next)
		}
		return notice, nil
	}
	if err != nil {
		return "", err
	}

	return "", h.showSession(ctx, chatID, messageID, next)
}

// sessionForMessage returns the chat's active session if messageID is the message showing it.
// Otherwise it returns a notice for the user and no session.
func (h *Handler) sessionForMessage(ctx context.Context, chatID int64, messageID int) (*entities.QuizSession, string, error) {
	session, err := h.quizService.ActiveFor(ctx, chatID)
	if errors.Is(err, service.ErrSessionNotFound) {
		h.clearKeyboard(chatID, messageID)
		return nil, msgNoActiveQuiz, nil
	}
	if err != nil {
		return nil, "", err
	}

	if current, ok := h.quizStorage.GetMessageID(session.ID); ok && current != messageID {
		h.clearKeyboard(chatID, messageID)
		return nil, msgStaleQuestion, nil
	}

	if !session.IsActive() {
		return nil, msgQuizFinished, h.showResult(ctx, chatID, messageID, session)
	}

	return session, "", nil
}

// transitionNotice turns a rejected transition into a message for the user.
func transitionNotice(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, entities.ErrSessionCompleted):
		return msgQuizFinished, true
	case errors.Is(err, entities.ErrUnansweredQuestion):
		return msgAnswerFirst, true
	case errors.Is(err, entities.ErrOutOfOrderAnswer),
		errors.Is(err, entities.ErrQuestionIndexOutOfRange),
		errors.Is(err, entities.ErrInvalidAnswer):
		return msgStaleQuestion, true
	default:
		return "", false
	}
}

// answerNotice is the toast shown after an answer. Mock tests give no feedback.
func answerNotice(s *entities.QuizSession, questionIndex int) string {
	if !s.Mode.LiveFeedback() {
		return ""
	}
	if s.Questions[questionIndex].IsCorrect(s.Answers[questionIndex]) {
		return "✅ Correct!"
	}
	return "❌ Incorrect"
}
