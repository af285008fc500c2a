package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

type QuizService interface {
	Chapters(ctx context.Context, country entities.Country) ([]entities.ChapterSummary, error)
	Start(ctx context.Context, req service.StartRequest) (*entities.QuizSession, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Answer(ctx context.Context, id uuid.UUID, index int, answer string) (*entities.QuizSession, error)
	Advance(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Back(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Jump(ctx context.Context, id uuid.UUID, index int) (*entities.QuizSession, error)
	Finish(ctx context.Context, id uuid.UUID) (*entities.QuizSession, error)
	Score(session *entities.QuizSession) entities.Score
	Discard(ctx context.Context, id uuid.UUID) error
}
