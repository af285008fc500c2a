package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// QuizStorage provides in-memory storage for active quiz sessions.
// Sessions can be bound to an owner (a chat) and remember the message
// that shows their current question.
type QuizStorage struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entities.QuizSession
	owners   map[int64]uuid.UUID
	ownerOf  map[uuid.UUID]int64
	messages map[uuid.UUID]int
}

// NewQuizStorage creates a new QuizStorage.
func NewQuizStorage() *QuizStorage {
	return &QuizStorage{
		sessions: make(map[uuid.UUID]*entities.QuizSession),
		owners:   make(map[int64]uuid.UUID),
		ownerOf:  make(map[uuid.UUID]int64),
		messages: make(map[uuid.UUID]int),
	}
}

// Store saves a session under its ID, replacing any previous version.
func (s *QuizStorage) Store(session *entities.QuizSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// Get retrieves a session by ID.
func (s *QuizStorage) Get(id uuid.UUID) (*entities.QuizSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Swap replaces old with next only if old is still the stored version.
func (s *QuizStorage) Swap(old, next *entities.QuizSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.sessions[old.ID]; !ok || cur != old {
		return false
	}
	s.sessions[next.ID] = next
	return true
}

// Delete removes a session together with its owner binding and message ID.
func (s *QuizStorage) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	delete(s.messages, id)
	if owner, ok := s.ownerOf[id]; ok {
		delete(s.ownerOf, id)
		if s.owners[owner] == id {
			delete(s.owners, owner)
		}
	}
}

// Bind makes id the active session of owner and returns the session it replaced.
func (s *QuizStorage) Bind(owner int64, id uuid.UUID) (prev uuid.UUID, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev = s.owners[owner]
	if hadPrev && prev == id {
		return uuid.Nil, false
	}
	s.owners[owner] = id
	s.ownerOf[id] = owner
	return prev, hadPrev
}

// ActiveFor returns the session bound to owner.
func (s *QuizStorage) ActiveFor(owner int64) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.owners[owner]
	return id, ok
}

// OwnerOf returns the owner a session is bound to.
func (s *QuizStorage) OwnerOf(id uuid.UUID) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.ownerOf[id]
	return owner, ok
}

// Timed returns the in-progress sessions that run a countdown.
func (s *QuizStorage) Timed() []*entities.QuizSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.QuizSession, 0)
	for _, session := range s.sessions {
		if session.IsActive() && session.IsTimed() {
			out = append(out, session)
		}
	}
	return out
}

// CompletedBefore returns the IDs of sessions completed before t.
func (s *QuizStorage) CompletedBefore(t time.Time) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for id, session := range s.sessions {
		if !session.IsActive() && session.CompletedAt != nil && session.CompletedAt.Before(t) {
			out = append(out, id)
		}
	}
	return out
}

// StoreMessageID remembers the message showing the session's current question.
func (s *QuizStorage) StoreMessageID(id uuid.UUID, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = messageID
}

// GetMessageID retrieves the message showing the session's current question.
func (s *QuizStorage) GetMessageID(id uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messageID, ok := s.messages[id]
	return messageID, ok
}
