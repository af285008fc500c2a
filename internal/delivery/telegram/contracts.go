package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

// Bot is the part of the Telegram Bot API the handler uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type QuizService interface {
	Chapters(ctx context.Context, country entities.Country) ([]entities.ChapterSummary, error)
	Start(ctx context.Context, req service.StartRequest) (*entities.QuizSession, error)
	ActiveFor(ctx context.Context, owner int64) (*entities.QuizSession, error)
	Answer(ctx context.Context, id uuid.UUID, index int, answer string) (*entities.QuizSession, error)
	Advance(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Back(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Jump(ctx context.Context, id uuid.UUID, index int) (*entities.QuizSession, error)
	Finish(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Score(session *entities.QuizSession) entities.Score
	Discard(ctx context.Context, id uuid.UUID) error
}

// QuizStorage tracks which chat owns a session and which message shows it.
type QuizStorage interface {
	OwnerOf(id uuid.UUID) (int64, bool)
	StoreMessageID(id uuid.UUID, messageID int)
	GetMessageID(id uuid.UUID) (int, bool)
}
