package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/repository"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/storage"
)

func chapterOf(name string, questions []entities.Question) entities.Chapter {
	for i := range questions {
		questions[i].ID = name + "-" + questions[i].ID
		questions[i].Chapter = name
	}
	return entities.Chapter{Name: name, Questions: questions}
}

func newTestQuizService(t *testing.T) (*QuizService, *storage.QuizStorage, *fakeClock) {
	t.Helper()

	bank := repository.NewQuestionRepositoryFromChapters(map[entities.Country][]entities.Chapter{
		entities.CountryCanada: {
			chapterOf("History", makeQuestions(4)),
			chapterOf("Symbols", makeQuestions(3)),
		},
	})
	policies := map[entities.Country]CountryPolicy{
		entities.CountryCanada: {
			QuizSize:      3,
			MockSize:      5,
			MockTimeLimit: time.Minute,
		},
	}

	engine, clock := newTestEngine()
	store := storage.NewQuizStorage()
	svc := NewQuizService(bank, NewQuestionSelector(bank, policies), engine, store, zap.NewNop())
	return svc, store, clock
}

func TestQuizService_Start(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	tests := []struct {
		name      string
		req       StartRequest
		wantTotal int
		wantLimit time.Duration
		wantErr   error
	}{
		{
			name:      "practice uses the whole chapter",
			req:       StartRequest{Country: entities.CountryCanada, Mode: entities.ModePractice, Chapter: "Symbols"},
			wantTotal: 3,
		},
		{
			name:      "quiz uses the policy size",
			req:       StartRequest{Country: entities.CountryCanada, Mode: entities.ModeQuiz},
			wantTotal: 3,
		},
		{
			name:      "mock uses the policy size and limit",
			req:       StartRequest{Country: entities.CountryCanada, Mode: entities.ModeMock},
			wantTotal: 5,
			wantLimit: time.Minute,
		},
		{
			name:      "explicit size",
			req:       StartRequest{Country: entities.CountryCanada, Mode: entities.ModeQuiz, Size: 6},
			wantTotal: 6,
		},
		{
			name:    "practice without chapter",
			req:     StartRequest{Country: entities.CountryCanada, Mode: entities.ModePractice},
			wantErr: ErrChapterRequired,
		},
		{
			name:    "unknown chapter",
			req:     StartRequest{Country: entities.CountryCanada, Mode: entities.ModePractice, Chapter: "Geography"},
			wantErr: entities.ErrChapterNotFound,
		},
		{
			name:    "country without questions",
			req:     StartRequest{Country: entities.CountryUK, Mode: entities.ModeQuiz},
			wantErr: entities.ErrCountryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Start(ctx, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if s.Total() != tt.wantTotal {
				t.Fatalf("expected %d questions, got %d", tt.wantTotal, s.Total())
			}
			if s.TimeLimit != tt.wantLimit {
				t.Fatalf("expected limit %v, got %v", tt.wantLimit, s.TimeLimit)
			}
		})
	}
}

func TestQuizService_StartReplacesOwnerSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	first, err := svc.Start(ctx, StartRequest{Owner: 42, Country: entities.CountryCanada, Mode: entities.ModeQuiz})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := svc.Start(ctx, StartRequest{Owner: 42, Country: entities.CountryCanada, Mode: entities.ModeMock})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.Get(ctx, first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("previous session must be discarded, got %v", err)
	}
	active, err := svc.ActiveFor(ctx, 42)
	if err != nil {
		t.Fatalf("ActiveFor: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("expected active session %s, got %s", second.ID, active.ID)
	}
	if _, err := svc.ActiveFor(ctx, 7); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for another owner, got %v", err)
	}
}

func TestQuizService_PracticeRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModePractice, Chapter: "Symbols"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// "a" is the first option, "2" the second.
	inputs := []string{"a", "2", "Right"}
	for i, in := range inputs {
		if s, err = svc.Answer(ctx, s.ID, i, in); err != nil {
			t.Fatalf("Answer(%d, %q): %v", i, in, err)
		}
		if s, err = svc.Advance(ctx, s.ID); err != nil {
			t.Fatalf("Advance(%d): %v", i, err)
		}
	}

	if s.IsActive() {
		t.Fatalf("session must be completed after the last question")
	}
	score := svc.Score(s)
	if score.Correct != 2 || score.Total != 3 || score.Percentage != 67 || score.Passed {
		t.Fatalf("unexpected score %+v", score)
	}

	if _, err := svc.Advance(ctx, s.ID); !errors.Is(err, entities.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
}

func TestQuizService_RejectedTransitionKeepsSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModeQuiz})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	got, err := svc.Advance(ctx, s.ID)
	if !errors.Is(err, entities.ErrUnansweredQuestion) {
		t.Fatalf("expected ErrUnansweredQuestion, got %v", err)
	}
	if got == nil || got.ID != s.ID || got.CurrentIndex != 0 {
		t.Fatalf("rejected transition must return the unchanged session")
	}

	if _, err := svc.Answer(ctx, s.ID, 0, "nonsense"); !errors.Is(err, entities.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
	if _, err := svc.Answer(ctx, s.ID, 9, "a"); !errors.Is(err, entities.ErrQuestionIndexOutOfRange) {
		t.Fatalf("expected ErrQuestionIndexOutOfRange, got %v", err)
	}
}

func TestQuizService_AnswerAfterFinish(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModeQuiz})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Finish(ctx, s.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	tests := []struct {
		name   string
		index  int
		answer string
	}{
		{name: "valid option", index: 0, answer: "right"},
		{name: "garbled input", index: 0, answer: "zzzz not an option"},
		{name: "index past end", index: 99, answer: "x"},
		{name: "negative index", index: -1, answer: "right"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Answer(ctx, s.ID, tt.index, tt.answer)
			if !errors.Is(err, entities.ErrSessionCompleted) {
				t.Fatalf("expected ErrSessionCompleted, got %v", err)
			}
			if got == nil || got.IsActive() || got.AnsweredCount() != 0 {
				t.Fatalf("finished session must be returned unchanged, got %+v", got)
			}
		})
	}
}

func TestQuizService_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModeMock})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Answer(ctx, s.ID, 0, "right")
			switch {
			case err == nil:
				mu.Lock()
				successes++
				mu.Unlock()
			case errors.Is(err, ErrConcurrentUpdate):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes == 0 {
		t.Fatalf("expected at least one answer to be stored")
	}
	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Answers[0] != "right" || got.CorrectAnswers != 1 {
		t.Fatalf("unexpected answer %q with score %d", got.Answers[0], got.CorrectAnswers)
	}
}

func TestQuizService_GetAppliesElapsedTime(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModeMock})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.advance(20 * time.Second)
	got, err := svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Remaining != 40*time.Second {
		t.Fatalf("expected 40s remaining, got %v", got.Remaining)
	}

	clock.advance(time.Minute)
	got, err = svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive() || got.CompletionReason != entities.CompletedTimeExpired {
		t.Fatalf("expected expired session, got %q/%q", got.Status, got.CompletionReason)
	}
	if _, err := svc.Answer(ctx, s.ID, 0, "right"); !errors.Is(err, entities.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted after expiry, got %v", err)
	}
}

func TestQuizService_SyncTimersAndPurge(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestQuizService(t)

	mock, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModeMock})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	practice, err := svc.Start(ctx, StartRequest{Country: entities.CountryCanada, Mode: entities.ModePractice, Chapter: "History"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.advance(30 * time.Second)
	if expired := svc.SyncTimers(clock.now()); len(expired) != 0 {
		t.Fatalf("nothing should expire yet, got %d", len(expired))
	}

	clock.advance(time.Minute)
	expired := svc.SyncTimers(clock.now())
	if len(expired) != 1 || expired[0].ID != mock.ID {
		t.Fatalf("expected the mock session to expire, got %d sessions", len(expired))
	}
	if again := svc.SyncTimers(clock.now()); len(again) != 0 {
		t.Fatalf("an expired session must be reported once, got %d", len(again))
	}

	if n := svc.PurgeCompleted(clock.now().Add(30*time.Minute), time.Hour); n != 0 {
		t.Fatalf("nothing is old enough to purge, got %d", n)
	}
	if n := svc.PurgeCompleted(clock.now().Add(2*time.Hour), time.Hour); n != 1 {
		t.Fatalf("expected one purged session, got %d", n)
	}
	if _, ok := store.Get(mock.ID); ok {
		t.Fatalf("purged session is still stored")
	}
	if _, ok := store.Get(practice.ID); !ok {
		t.Fatalf("active session must not be purged")
	}
}

type recordingNotifier struct {
	sessions []*entities.QuizSession
	scores   []entities.Score
}

func (n *recordingNotifier) NotifyExpired(_ context.Context, session *entities.QuizSession, score entities.Score) {
	n.sessions = append(n.sessions, session)
	n.scores = append(n.scores, score)
}

func TestCountdown_RunOnceNotifiesExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Owner: 1, Country: entities.CountryCanada, Mode: entities.ModeMock})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.Answer(ctx, s.ID, 0, "right"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	notifier := &recordingNotifier{}
	countdown := NewCountdown(svc, 0, zap.NewNop())
	countdown.now = clock.now
	countdown.SetNotifier(notifier)

	countdown.RunOnce(ctx)
	if len(notifier.sessions) != 0 {
		t.Fatalf("no session should expire yet")
	}

	clock.advance(61 * time.Second)
	countdown.RunOnce(ctx)
	if len(notifier.sessions) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.sessions))
	}
	want := entities.Score{Correct: 1, Total: 5, Percentage: 20}
	if notifier.scores[0] != want {
		t.Fatalf("expected score %+v, got %+v", want, notifier.scores[0])
	}

	countdown.RunOnce(ctx)
	if len(notifier.sessions) != 1 {
		t.Fatalf("expired session must be notified once, got %d", len(notifier.sessions))
	}
}

func TestQuizService_Discard(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestQuizService(t)

	s, err := svc.Start(ctx, StartRequest{Owner: 5, Country: entities.CountryCanada, Mode: entities.ModeQuiz})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Discard(ctx, s.ID); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := svc.Discard(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.ActiveFor(ctx, 5); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("owner binding must be dropped, got %v", err)
	}
}
