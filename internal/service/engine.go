package service

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// StartParams describes a session to start.
type StartParams struct {
	Country   entities.Country
	Mode      entities.Mode
	Chapter   string
	Pool      []entities.Question // sampled when Questions is empty
	Questions []entities.Question // used verbatim, in order
	Size      int                 // sample size; DefaultQuizSize when zero
	TimeLimit time.Duration       // countdown; mock sessions fall back to DefaultMockTimeLimit
}

// SessionEngine implements the quiz session state machine.
// Every transition returns a new session and leaves its argument untouched.
type SessionEngine struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	passMark float64
}

// NewSessionEngine creates an engine seeded from the current time.
func NewSessionEngine(passMark float64) *SessionEngine {
	return NewSessionEngineWith(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now, passMark)
}

// NewSessionEngineWith creates an engine with an explicit random source and clock.
func NewSessionEngineWith(rng *rand.Rand, now func() time.Time, passMark float64) *SessionEngine {
	if passMark <= 0 {
		passMark = entities.DefaultPassMark
	}
	return &SessionEngine{
		rng:      rng,
		now:      now,
		passMark: passMark,
	}
}

// StartSession creates a session in progress at question 0.
func (e *SessionEngine) StartSession(p StartParams) (*entities.QuizSession, error) {
	if _, err := entities.ParseMode(string(p.Mode)); err != nil {
		return nil, err
	}

	var questions []entities.Question
	if len(p.Questions) > 0 {
		questions = append([]entities.Question(nil), p.Questions...)
	} else {
		size := p.Size
		if size <= 0 {
			size = entities.DefaultQuizSize
		}
		questions = e.sample(uniqueByID(p.Pool), size)
	}
	if len(questions) == 0 {
		return nil, entities.ErrInsufficientQuestions
	}

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	timeLimit := p.TimeLimit
	if p.Mode == entities.ModeMock && timeLimit <= 0 {
		timeLimit = entities.DefaultMockTimeLimit
	}
	if timeLimit < 0 {
		timeLimit = 0
	}

	now := e.now()
	visited := make([]bool, len(questions))
	visited[0] = true

	return &entities.QuizSession{
		ID:            uuid.New(),
		Country:       p.Country,
		Mode:          p.Mode,
		Chapter:       p.Chapter,
		Questions:     questions,
		Answers:       make([]string, len(questions)),
		Visited:       visited,
		TimeLimit:     timeLimit,
		Remaining:     timeLimit,
		TimerSyncedAt: now,
		Status:        entities.StatusInProgress,
		StartedAt:     now,
	}, nil
}

// SelectAnswer records answer for the question at index, replacing any previous answer.
func (e *SessionEngine) SelectAnswer(s *entities.QuizSession, index int, answer string) (*entities.QuizSession, error) {
	if !s.IsActive() {
		return s, entities.ErrSessionCompleted
	}
	if index < 0 || index >= s.Total() {
		return s, fmt.Errorf("%w: %d", entities.ErrQuestionIndexOutOfRange, index)
	}
	if s.Mode.FreeNavigation() {
		if !s.Visited[index] {
			return s, fmt.Errorf("%w: question %d was not visited", entities.ErrOutOfOrderAnswer, index)
		}
	} else if index != s.CurrentIndex {
		return s, fmt.Errorf("%w: got %d, current is %d", entities.ErrOutOfOrderAnswer, index, s.CurrentIndex)
	}
	if answer == entities.Unanswered || s.Questions[index].OptionIndex(answer) < 0 {
		return s, fmt.Errorf("%w: %q", entities.ErrInvalidAnswer, answer)
	}

	next := s.Clone()
	next.Answers[index] = answer
	next.CorrectAnswers = next.CountCorrect()
	return next, nil
}

// Advance moves to the next question, completing the session after the last one.
// Outside mock mode the current question must be answered first.
func (e *SessionEngine) Advance(s *entities.QuizSession) (*entities.QuizSession, error) {
	if !s.IsActive() {
		return s, entities.ErrSessionCompleted
	}
	if !s.Mode.FreeNavigation() && !s.IsAnswered(s.CurrentIndex) {
		return s, entities.ErrUnansweredQuestion
	}

	next := s.Clone()
	if next.CurrentIndex == next.Total()-1 {
		next.Complete(entities.CompletedLastQuestion, e.now())
		return next, nil
	}
	next.CurrentIndex++
	next.Visited[next.CurrentIndex] = true
	return next, nil
}

// JumpTo moves directly to index. Mock sessions may jump anywhere; other modes
// may only reach questions whose predecessors are all answered.
func (e *SessionEngine) JumpTo(s *entities.QuizSession, index int) (*entities.QuizSession, error) {
	if !s.IsActive() {
		return s, entities.ErrSessionCompleted
	}
	if index < 0 || index >= s.Total() {
		return s, fmt.Errorf("%w: %d", entities.ErrQuestionIndexOutOfRange, index)
	}
	if !s.Mode.FreeNavigation() && index > s.FirstUnanswered() {
		return s, fmt.Errorf("%w: answer question %d first", entities.ErrUnansweredQuestion, s.FirstUnanswered())
	}

	next := s.Clone()
	next.CurrentIndex = index
	next.Visited[index] = true
	return next, nil
}

// GoBack moves to the previous question. It is a no-op at the first question.
func (e *SessionEngine) GoBack(s *entities.QuizSession) (*entities.QuizSession, error) {
	if !s.IsActive() {
		return s, entities.ErrSessionCompleted
	}
	if s.CurrentIndex == 0 {
		return s, nil
	}

	next := s.Clone()
	next.CurrentIndex--
	return next, nil
}

// Tick subtracts elapsed from the remaining time and completes the session when it runs out.
// Untimed and completed sessions are returned unchanged.
func (e *SessionEngine) Tick(s *entities.QuizSession, elapsed time.Duration) *entities.QuizSession {
	if !s.IsActive() || !s.IsTimed() || elapsed <= 0 {
		return s
	}

	next := s.Clone()
	next.Remaining -= elapsed
	next.TimerSyncedAt = next.TimerSyncedAt.Add(elapsed)
	if next.Remaining <= 0 {
		next.Remaining = 0
		next.Complete(entities.CompletedTimeExpired, e.now())
	}
	return next
}

// Sync applies the whole seconds of wall-clock time elapsed since the timer was last
// synchronized, so missed ticks never accumulate drift.
func (e *SessionEngine) Sync(s *entities.QuizSession, now time.Time) *entities.QuizSession {
	if !s.IsActive() || !s.IsTimed() {
		return s
	}
	elapsed := now.Sub(s.TimerSyncedAt).Truncate(time.Second)
	return e.Tick(s, elapsed)
}

// FinishNow ends the session immediately. Finishing a completed session changes nothing.
func (e *SessionEngine) FinishNow(s *entities.QuizSession) *entities.QuizSession {
	if !s.IsActive() {
		return s
	}
	next := s.Clone()
	next.Complete(entities.CompletedFinished, e.now())
	return next
}

// Score returns the current result of the session.
func (e *SessionEngine) Score(s *entities.QuizSession) entities.Score {
	return entities.NewScore(s.CountCorrect(), s.Total(), e.passMark)
}

// PassMark returns the percentage required to pass.
func (e *SessionEngine) PassMark() float64 {
	return e.passMark
}

// sample draws size distinct questions uniformly at random.
// A pool smaller than size is returned whole, in random order.
func (e *SessionEngine) sample(pool []entities.Question, size int) []entities.Question {
	if size > len(pool) {
		size = len(pool)
	}

	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}

	e.mu.Lock()
	// Partial Fisher-Yates: the first size slots end up a uniform sample.
	for i := 0; i < size; i++ {
		j := i + e.rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	e.mu.Unlock()

	out := make([]entities.Question, size)
	for i := 0; i < size; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}
