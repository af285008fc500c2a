package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

// Settings holds the presentation parameters of the bot.
type Settings struct {
	PassMark      float64
	Policies      map[entities.Country]service.CountryPolicy
	RatePerSecond float64
	RateBurst     int
}

type Handler struct {
	bot         Bot
	logger      *zap.Logger
	quizService QuizService
	quizStorage QuizStorage
	settings    Settings
	limiter     *chatLimiter
}

func NewHandler(
	bot Bot,
	logger *zap.Logger,
	quizService QuizService,
	quizStorage QuizStorage,
	settings Settings,
) *Handler {
	return &Handler{
		bot:         bot,
		logger:      logger,
		quizService: quizService,
		quizStorage: quizStorage,
		settings:    settings,
		limiter:     newChatLimiter(settings.RatePerSecond, settings.RateBurst),
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	defer h.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		cb := update.CallbackQuery
		if cb.Message == nil {
			h.logger.Debug("callback without message", zap.String("data", cb.Data))
			return
		}
		h.logger.Debug("callback received",
			zap.Int64("chat_id", cb.Message.Chat.ID),
			zap.String("data", cb.Data),
		)
		if !h.limiter.allow(cb.Message.Chat.ID) {
			h.answerCallback(cb.ID, "")
			return
		}
		h.handleCallback(ctx, cb)
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	h.logger.Debug("update received",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text),
	)

	var fn HandlerFunc
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			fn = h.handleStart()
		case "canada":
			fn = h.handleCountry(entities.CountryCanada)
		case "uk":
			fn = h.handleCountry(entities.CountryUK)
		case "practice":
			fn = h.handlePractice(msg.CommandArguments())
		case "score":
			fn = h.handleScore()
		case "stop":
			fn = h.handleStop()
		case "help":
			fn = h.handleHelp()
		default:
			fn = h.handleUnknown()
		}
	} else {
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		fn = h.handleTextAnswer(msg.Text)
	}

	_ = h.withRateLimit(h.withErrorHandling(fn))(ctx, chatID)
}

func (h *Handler) send(c tgbotapi.Chattable) error {
	_, err := h.sendMessage(c)
	return err
}

// sendMessage sends c and returns the resulting message.
// Edits that leave a message unchanged are not treated as errors.
func (h *Handler) sendMessage(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := h.bot.Send(c)
	if err != nil {
		if isNotModified(err) {
			return m, nil
		}
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
		return m, err
	}
	return m, nil
}

// request performs an API call whose result is not a message, such as
// deleting a message or answering a callback.
func (h *Handler) request(c tgbotapi.Chattable) {
	if _, err := h.bot.Request(c); err != nil && !isNotModified(err) {
		h.logger.Debug("telegram request failed", zap.Error(err))
	}
}

func (h *Handler) answerCallback(callbackID, text string) {
	h.request(tgbotapi.NewCallback(callbackID, text))
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
