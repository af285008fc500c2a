package api

import (
	"time"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

type startSessionRequest struct {
	Country string `json:"country" binding:"required"`
	Mode    string `json:"mode" binding:"required"`
	Chapter string `json:"chapter"`
	Size    int    `json:"size" binding:"min=0"`
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type jumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

type questionView struct {
	Index   int      `json:"index"`
	ID      string   `json:"id"`
	Chapter string   `json:"chapter"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type answerView struct {
	Index       int    `json:"index"`
	Answer      string `json:"answer,omitempty"`
	Answered    bool   `json:"answered"`
	Correct     *bool  `json:"correct,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type sessionView struct {
	ID               string          `json:"id"`
	Country          string          `json:"country"`
	Mode             string          `json:"mode"`
	Chapter          string          `json:"chapter,omitempty"`
	Status           string          `json:"status"`
	CompletionReason string          `json:"completion_reason,omitempty"`
	CurrentIndex     int             `json:"current_index"`
	Total            int             `json:"total"`
	Answered         int             `json:"answered"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
	RemainingSeconds *int            `json:"remaining_seconds,omitempty"`
	Current          questionView    `json:"current_question"`
	Answers          []answerView    `json:"answers"`
	Score            *entities.Score `json:"score,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

type scoreView struct {
	Status   string          `json:"status"`
	Answered int             `json:"answered"`
	Total    int             `json:"total"`
	Score    *entities.Score `json:"score,omitempty"`
}

// newScoreView follows the same reveal rule as newSessionView.
func newScoreView(s *entities.QuizSession, score entities.Score) scoreView {
	v := scoreView{
		Status:   string(s.Status),
		Answered: s.AnsweredCount(),
		Total:    s.Total(),
	}
	if s.Mode.LiveFeedback() || !s.IsActive() {
		v.Score = &score
	}
	return v
}

// newSessionView renders a session. Correctness and the running score are only
// revealed in modes with live feedback, or once the session is completed.
func newSessionView(s *entities.QuizSession, score entities.Score) sessionView {
	reveal := s.Mode.LiveFeedback() || !s.IsActive()

	cur := s.Current()
	v := sessionView{
		ID:               s.ID.String(),
		Country:          string(s.Country),
		Mode:             string(s.Mode),
		Chapter:          s.Chapter,
		Status:           string(s.Status),
		CompletionReason: string(s.CompletionReason),
		CurrentIndex:     s.CurrentIndex,
		Total:            s.Total(),
		Answered:         s.AnsweredCount(),
		Current: questionView{
			Index:   s.CurrentIndex,
			ID:      cur.ID,
			Chapter: cur.Chapter,
			Text:    cur.Text,
			Options: cur.Options,
		},
		Answers:     make([]answerView, 0, s.Total()),
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}

	if s.IsTimed() {
		v.TimeLimitSeconds = int(s.TimeLimit / time.Second)
		remaining := int(s.Remaining / time.Second)
		v.RemainingSeconds = &remaining
	}

	for i, a := range s.Answers {
		av := answerView{Index: i, Answer: a, Answered: a != entities.Unanswered}
		if reveal && av.Answered {
			correct := s.Questions[i].IsCorrect(a)
			av.Correct = &correct
			av.Explanation = s.Questions[i].Explanation
		}
		v.Answers = append(v.Answers, av)
	}

	if reveal {
		v.Score = &score
	}

	return v
}
