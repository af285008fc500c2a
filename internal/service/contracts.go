package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// QuestionBank supplies questions per country.
type QuestionBank interface {
	All(ctx context.Context, country entities.Country) ([]entities.Question, error)
	Chapter(ctx context.Context, country entities.Country, name string) ([]entities.Question, error)
	Chapters(ctx context.Context, country entities.Country) ([]entities.ChapterSummary, error)
}

// SessionStore keeps active sessions in memory.
type SessionStore interface {
	Store(session *entities.QuizSession)
	Get(id uuid.UUID) (*entities.QuizSession, bool)
	Swap(old, next *entities.QuizSession) bool
	Delete(id uuid.UUID)
	Bind(owner int64, id uuid.UUID) (prev uuid.UUID, hadPrev bool)
	ActiveFor(owner int64) (uuid.UUID, bool)
	OwnerOf(id uuid.UUID) (int64, bool)
	Timed() []*entities.QuizSession
	CompletedBefore(t time.Time) []uuid.UUID
}

// ExpiryNotifier is told about sessions completed by the countdown.
type ExpiryNotifier interface {
	NotifyExpired(ctx context.Context, session *entities.QuizSession, score entities.Score)
}

// CountryPolicy holds the per-country quiz parameters.
type CountryPolicy struct {
	QuizSize      int
	MockSize      int
	QuizTimeLimit time.Duration
	MockTimeLimit time.Duration
}

// DefaultCountryPolicy returns the Canadian defaults.
func DefaultCountryPolicy() CountryPolicy {
	return CountryPolicy{
		QuizSize:      entities.DefaultQuizSize,
		MockSize:      entities.DefaultQuizSize,
		MockTimeLimit: entities.DefaultMockTimeLimit,
	}
}

// Size returns the default number of questions for mode.
func (p CountryPolicy) Size(mode entities.Mode) int {
	if mode == entities.ModeMock {
		return p.MockSize
	}
	return p.QuizSize
}

// TimeLimit returns the countdown for mode; zero means untimed.
func (p CountryPolicy) TimeLimit(mode entities.Mode) time.Duration {
	switch mode {
	case entities.ModeMock:
		return p.MockTimeLimit
	case entities.ModeQuiz:
		return p.QuizTimeLimit
	default:
		return 0
	}
}
