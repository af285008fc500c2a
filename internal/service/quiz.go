package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

var (
	ErrSessionNotFound  = errors.New("quiz session not found")
	ErrConcurrentUpdate = errors.New("quiz session was modified concurrently")
)

const maxUpdateAttempts = 3

// StartRequest is what a host asks for when a user starts a quiz.
type StartRequest struct {
	Owner   int64 // host-side owner such as a chat ID; zero for anonymous sessions
	Country entities.Country
	Mode    entities.Mode
	Chapter string
	Size    int
}

// QuizService runs quiz sessions on top of the engine and keeps them in the store.
type QuizService struct {
	bank     QuestionBank
	selector *QuestionSelector
	engine   *SessionEngine
	matcher  *AnswerMatcher
	store    SessionStore
	logger   *zap.Logger
}

func NewQuizService(
	bank QuestionBank,
	selector *QuestionSelector,
	engine *SessionEngine,
	store SessionStore,
	logger *zap.Logger,
) *QuizService {
	return &QuizService{
		bank:     bank,
		selector: selector,
		engine:   engine,
		matcher:  NewAnswerMatcher(),
		store:    store,
		logger:   logger,
	}
}

// Chapters lists the chapters of a country with their question counts.
func (s *QuizService) Chapters(ctx context.Context, country entities.Country) ([]entities.ChapterSummary, error) {
	return s.bank.Chapters(ctx, country)
}

// Start creates a new session. A previous session of the same owner is discarded.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (*entities.QuizSession, error) {
	params, err := s.selector.Select(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := s.engine.StartSession(params)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.store.Store(session)
	if req.Owner != 0 {
		if prev, ok := s.store.Bind(req.Owner, session.ID); ok {
			s.store.Delete(prev)
			s.logger.Debug("previous quiz session discarded",
				zap.Int64("owner", req.Owner),
				zap.String("session_id", prev.String()),
			)
		}
	}

	s.logger.Info("quiz session started",
		zap.String("session_id", session.ID.String()),
		zap.String("country", string(session.Country)),
		zap.String("mode", string(session.Mode)),
		zap.String("chapter", session.Chapter),
		zap.Int("total_questions", session.Total()),
		zap.Duration("time_limit", session.TimeLimit),
	)

	return session, nil
}

// Get returns the session with its countdown brought up to date.
func (s *QuizService) Get(_ context.Context, id uuid.UUID) (*entities.QuizSession, error) {
	return s.load(id)
}

// ActiveFor returns the session bound to owner.
func (s *QuizService) ActiveFor(_ context.Context, owner int64) (*entities.QuizSession, error) {
	id, ok := s.store.ActiveFor(owner)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.load(id)
}

// Answer records an answer for the question at index.
func (s *QuizService) Answer(_ context.Context, id uuid.UUID, index int, answer string) (*entities.QuizSession, error) {
	return s.update(id, "answer", func(cur *entities.QuizSession) (*entities.QuizSession, error) {
		if !cur.IsActive() {
			return cur, entities.ErrSessionCompleted
		}
		if index < 0 || index >= cur.Total() {
			return cur, fmt.Errorf("%w: %d", entities.ErrQuestionIndexOutOfRange, index)
		}
		option, err := s.matcher.Resolve(cur.Questions[index], answer)
		if err != nil {
			return cur, err
		}
		return s.engine.SelectAnswer(cur, index, option)
	})
}

// Advance moves to the next question or completes the session after the last one.
func (s *QuizService) Advance(_ context.Context, id uuid.UUID) (*entities.QuizSession, error) {
	return s.update(id, "advance", s.engine.Advance)
}

// Back moves to the previous question.
func (s *QuizService) Back(_ context.Context, id uuid.UUID) (*entities.QuizSession, error) {
	return s.update(id, "back", s.engine.GoBack)
}

// Jump moves to the question at index.
func (s *QuizService) Jump(_ context.Context, id uuid.UUID, index int) (*entities.QuizSession, error) {
	return s.update(id, "jump", func(cur *entities.QuizSession) (*entities.QuizSession, error) {
		return s.engine.JumpTo(cur, index)
	})
}

// Finish ends the session early.
func (s *QuizService) Finish(_ context.Context, id uuid.UUID) (*entities.QuizSession, error) {
	return s.update(id, "finish", func(cur *entities.QuizSession) (*entities.QuizSession, error) {
		return s.engine.FinishNow(cur), nil
	})
}

// Score returns the session's current score.
func (s *QuizService) Score(session *entities.QuizSession) entities.Score {
	return s.engine.Score(session)
}

// Discard drops the session from the store.
func (s *QuizService) Discard(_ context.Context, id uuid.UUID) error {
	if _, ok := s.store.Get(id); !ok {
		return ErrSessionNotFound
	}
	s.store.Delete(id)
	s.logger.Debug("quiz session discarded", zap.String("session_id", id.String()))
	return nil
}

// SyncTimers brings every timed session up to date and returns those that expired.
func (s *QuizService) SyncTimers(now time.Time) []*entities.QuizSession {
	var expired []*entities.QuizSession
	for _, session := range s.store.Timed() {
		next := s.engine.Sync(session, now)
		if next == session || !s.store.Swap(session, next) {
			continue
		}
		if !next.IsActive() {
			s.logCompleted(next)
			expired = append(expired, next)
		}
	}
	return expired
}

// PurgeCompleted drops sessions that were completed more than retention ago.
func (s *QuizService) PurgeCompleted(now time.Time, retention time.Duration) int {
	ids := s.store.CompletedBefore(now.Add(-retention))
	for _, id := range ids {
		s.store.Delete(id)
	}
	if len(ids) > 0 {
		s.logger.Debug("completed quiz sessions purged", zap.Int("count", len(ids)))
	}
	return len(ids)
}

// load fetches a session and applies any wall-clock time that passed since its last sync.
func (s *QuizService) load(id uuid.UUID) (*entities.QuizSession, error) {
	for range maxUpdateAttempts {
		session, ok := s.store.Get(id)
		if !ok {
			return nil, ErrSessionNotFound
		}

		synced := s.engine.Sync(session, s.engine.now())
		if synced == session {
			return session, nil
		}
		if s.store.Swap(session, synced) {
			if !synced.IsActive() {
				s.logCompleted(synced)
			}
			return synced, nil
		}
	}
	return nil, ErrConcurrentUpdate
}

// update runs a transition on the latest stored version of a session.
// If another writer replaced the session in the meantime, the transition is retried.
func (s *QuizService) update(
	id uuid.UUID,
	op string,
	transition func(*entities.QuizSession) (*entities.QuizSession, error),
) (*entities.QuizSession, error) {
	for range maxUpdateAttempts {
		session, err := s.load(id)
		if err != nil {
			return nil, err
		}

		next, err := transition(session)
		if err != nil {
			s.logger.Debug("quiz transition rejected",
				zap.String("session_id", id.String()),
				zap.String("op", op),
				zap.Error(err),
			)
			return session, err
		}
		if next == session {
			return session, nil
		}
		if !s.store.Swap(session, next) {
			continue
		}

		if session.IsActive() && !next.IsActive() {
			s.logCompleted(next)
		}
		return next, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *QuizService) logCompleted(session *entities.QuizSession) {
	score := s.engine.Score(session)
	s.logger.Info("quiz session completed",
		zap.String("session_id", session.ID.String()),
		zap.String("mode", string(session.Mode)),
		zap.String("reason", string(session.CompletionReason)),
		zap.Int("correct", score.Correct),
		zap.Int("total", score.Total),
		zap.Float64("percentage", score.Percentage),
	)
}
