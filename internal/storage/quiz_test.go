package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

func newSession(timeLimit time.Duration) *entities.QuizSession {
	return &entities.QuizSession{
		ID:        uuid.New(),
		Mode:      entities.ModeQuiz,
		TimeLimit: timeLimit,
		Remaining: timeLimit,
		Status:    entities.StatusInProgress,
	}
}

func TestQuizStorage_Swap(t *testing.T) {
	s := NewQuizStorage()
	v1 := newSession(0)
	s.Store(v1)

	v2 := v1.Clone()
	if !s.Swap(v1, v2) {
		t.Fatalf("swap from the stored version must succeed")
	}

	v3 := v1.Clone()
	if s.Swap(v1, v3) {
		t.Fatalf("swap from a stale version must fail")
	}
	if got, _ := s.Get(v1.ID); got != v2 {
		t.Fatalf("stored version changed after a failed swap")
	}

	s.Delete(v1.ID)
	if s.Swap(v2, v3) {
		t.Fatalf("swap of a deleted session must fail")
	}
}

func TestQuizStorage_SwapIsExclusive(t *testing.T) {
	s := NewQuizStorage()
	base := newSession(0)
	s.Store(base)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Swap(base, base.Clone()) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful swap, got %d", wins)
	}
}

func TestQuizStorage_OwnerBinding(t *testing.T) {
	s := NewQuizStorage()
	first := newSession(0)
	second := newSession(0)
	s.Store(first)
	s.Store(second)

	if _, had := s.Bind(10, first.ID); had {
		t.Fatalf("owner had no session yet")
	}
	s.StoreMessageID(first.ID, 100)

	prev, had := s.Bind(10, second.ID)
	if !had || prev != first.ID {
		t.Fatalf("expected previous session %s, got %s (%v)", first.ID, prev, had)
	}
	if _, had := s.Bind(10, second.ID); had {
		t.Fatalf("rebinding the same session must not report a previous one")
	}

	// Deleting the replaced session keeps the new binding.
	s.Delete(first.ID)
	if id, ok := s.ActiveFor(10); !ok || id != second.ID {
		t.Fatalf("expected active session %s, got %s", second.ID, id)
	}
	if _, ok := s.GetMessageID(first.ID); ok {
		t.Fatalf("message ID of a deleted session must be dropped")
	}

	if owner, ok := s.OwnerOf(second.ID); !ok || owner != 10 {
		t.Fatalf("expected owner 10, got %d", owner)
	}
	s.Delete(second.ID)
	if _, ok := s.ActiveFor(10); ok {
		t.Fatalf("owner binding must be dropped with the session")
	}
	if _, ok := s.OwnerOf(second.ID); ok {
		t.Fatalf("reverse binding must be dropped with the session")
	}
}

func TestQuizStorage_TimedAndCompleted(t *testing.T) {
	s := NewQuizStorage()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	untimed := newSession(0)
	timed := newSession(time.Minute)
	old := newSession(time.Minute)
	old.Complete(entities.CompletedTimeExpired, now.Add(-2*time.Hour))
	recent := newSession(0)
	recent.Complete(entities.CompletedFinished, now.Add(-time.Minute))

	for _, session := range []*entities.QuizSession{untimed, timed, old, recent} {
		s.Store(session)
	}

	got := s.Timed()
	if len(got) != 1 || got[0] != timed {
		t.Fatalf("expected only the active timed session, got %d sessions", len(got))
	}

	ids := s.CompletedBefore(now.Add(-time.Hour))
	if len(ids) != 1 || ids[0] != old.ID {
		t.Fatalf("expected only the old session, got %v", ids)
	}
}
