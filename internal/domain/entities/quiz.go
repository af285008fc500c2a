package entities

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Unanswered marks an answer slot the user has not filled yet.
const Unanswered = ""

const (
	DefaultQuizSize      = 20
	DefaultMockTimeLimit = 30 * time.Minute
	DefaultPassMark      = 75.0
)

var (
	ErrUnknownMode             = errors.New("unknown quiz mode")
	ErrInsufficientQuestions   = errors.New("not enough questions to start a session")
	ErrOutOfOrderAnswer        = errors.New("answer is not for the current question")
	ErrUnansweredQuestion      = errors.New("current question has no answer")
	ErrSessionCompleted        = errors.New("quiz session is completed")
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")
	ErrInvalidAnswer           = errors.New("answer is not one of the options")
)

// Mode is the kind of quiz attempt.
type Mode string

const (
	ModePractice Mode = "practice" // one chapter, untimed, feedback after every answer
	ModeQuiz     Mode = "quiz"     // random questions, feedback after every answer
	ModeMock     Mode = "mock"     // timed full-length simulation, free navigation
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePractice, ModeQuiz, ModeMock:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// FreeNavigation reports whether questions may be visited and answered in any order.
func (m Mode) FreeNavigation() bool {
	return m == ModeMock
}

// LiveFeedback reports whether correctness is revealed right after an answer.
func (m Mode) LiveFeedback() bool {
	return m != ModeMock
}

// SessionStatus is the state of the quiz session state machine.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// CompletionReason records which transition completed a session.
type CompletionReason string

const (
	CompletedLastQuestion CompletionReason = "last_question"
	CompletedTimeExpired  CompletionReason = "time_expired"
	CompletedFinished     CompletionReason = "finished"
)

// QuizSession is one attempt at a fixed sequence of questions.
// Transitions never mutate a session in place; they return a modified copy.
type QuizSession struct {
	ID               uuid.UUID
	Country          Country
	Mode             Mode
	Chapter          string // set for practice sessions
	Questions        []Question
	Answers          []string // one slot per question, Unanswered until answered
	Visited          []bool   // questions the user has been shown
	CurrentIndex     int
	CorrectAnswers   int           // running score
	TimeLimit        time.Duration // zero for untimed sessions
	Remaining        time.Duration
	TimerSyncedAt    time.Time // wall-clock instant Remaining was last brought up to date
	Status           SessionStatus
	CompletionReason CompletionReason
	StartedAt        time.Time
	CompletedAt      *time.Time
}

// IsActive reports whether the session still accepts transitions.
func (qs *QuizSession) IsActive() bool {
	return qs.Status == StatusInProgress
}

// IsTimed reports whether a countdown applies to the session.
func (qs *QuizSession) IsTimed() bool {
	return qs.TimeLimit > 0
}

// Total returns the number of questions in the session.
func (qs *QuizSession) Total() int {
	return len(qs.Questions)
}

// Current returns the question at the current index.
func (qs *QuizSession) Current() Question {
	return qs.Questions[qs.CurrentIndex]
}

// IsAnswered reports whether the question at index has an answer.
func (qs *QuizSession) IsAnswered(index int) bool {
	return index >= 0 && index < len(qs.Answers) && qs.Answers[index] != Unanswered
}

// AnsweredCount returns the number of filled answer slots.
func (qs *QuizSession) AnsweredCount() int {
	n := 0
	for _, a := range qs.Answers {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// FirstUnanswered returns the lowest unanswered index, or Total() if every question is answered.
func (qs *QuizSession) FirstUnanswered() int {
	for i, a := range qs.Answers {
		if a == Unanswered {
			return i
		}
	}
	return len(qs.Answers)
}

// CountCorrect counts answers equal to their question's correct answer.
func (qs *QuizSession) CountCorrect() int {
	correct := 0
	for i, a := range qs.Answers {
		if qs.Questions[i].IsCorrect(a) {
			correct++
		}
	}
	return correct
}

// Complete marks the session as completed at the given instant.
func (qs *QuizSession) Complete(reason CompletionReason, at time.Time) {
	qs.Status = StatusCompleted
	qs.CompletionReason = reason
	qs.CompletedAt = &at
}

// Clone returns a copy whose mutable slices are independent of the original.
// Questions are immutable and stay shared.
func (qs *QuizSession) Clone() *QuizSession {
	c := *qs
	c.Answers = append([]string(nil), qs.Answers...)
	c.Visited = append([]bool(nil), qs.Visited...)
	if qs.CompletedAt != nil {
		at := *qs.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// Score is the result of a session.
type Score struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// NewScore computes the rounded percentage and the pass verdict.
func NewScore(correct, total int, passMark float64) Score {
	var pct float64
	if total > 0 {
		pct = math.Round(100 * float64(correct) / float64(total))
	}
	return Score{
		Correct:    correct,
		Total:      total,
		Percentage: pct,
		Passed:     total > 0 && pct >= passMark,
	}
}
