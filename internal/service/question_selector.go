package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

var ErrChapterRequired = errors.New("practice mode requires a chapter")

// QuestionSelector decides which questions feed a new session.
type QuestionSelector struct {
	bank     QuestionBank
	policies map[entities.Country]CountryPolicy
}

// NewQuestionSelector creates a new QuestionSelector.
func NewQuestionSelector(bank QuestionBank, policies map[entities.Country]CountryPolicy) *QuestionSelector {
	return &QuestionSelector{
		bank:     bank,
		policies: policies,
	}
}

// Policy returns the configured policy for country, or the defaults.
func (s *QuestionSelector) Policy(country entities.Country) CountryPolicy {
	if p, ok := s.policies[country]; ok {
		return p
	}
	return DefaultCountryPolicy()
}

// Select builds start parameters for the request.
// Practice sessions use one chapter verbatim; quiz and mock sessions sample the whole bank.
func (s *QuestionSelector) Select(ctx context.Context, req StartRequest) (StartParams, error) {
	policy := s.Policy(req.Country)
	params := StartParams{
		Country:   req.Country,
		Mode:      req.Mode,
		TimeLimit: policy.TimeLimit(req.Mode),
	}

	switch req.Mode {
	case entities.ModePractice:
		if strings.TrimSpace(req.Chapter) == "" {
			return StartParams{}, ErrChapterRequired
		}
		questions, err := s.bank.Chapter(ctx, req.Country, req.Chapter)
		if err != nil {
			return StartParams{}, fmt.Errorf("get chapter %q: %w", req.Chapter, err)
		}
		params.Chapter = req.Chapter
		params.Questions = uniqueByID(questions)

	case entities.ModeQuiz, entities.ModeMock:
		pool, err := s.bank.All(ctx, req.Country)
		if err != nil {
			return StartParams{}, fmt.Errorf("get questions: %w", err)
		}
		params.Pool = pool
		params.Size = req.Size
		if params.Size <= 0 {
			params.Size = policy.Size(req.Mode)
		}

	default:
		return StartParams{}, fmt.Errorf("%w: %s", entities.ErrUnknownMode, req.Mode)
	}

	if len(params.Questions) == 0 && len(params.Pool) == 0 {
		return StartParams{}, entities.ErrInsufficientQuestions
	}

	return params, nil
}

// uniqueByID removes questions with a repeated ID while preserving the original order.
func uniqueByID(questions []entities.Question) []entities.Question {
	seen := make(map[string]struct{}, len(questions))
	out := make([]entities.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
