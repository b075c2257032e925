package session

import (
	"sync"
)

// Store — хранилище состояний диалогов, ключ — Telegram user id.
// Передается во Flow Engine явно, чтобы в тестах подменять реализацию.
type Store interface {
	Get(userID int64) (*Session, bool)
	Set(userID int64, s *Session)
	Clear(userID int64)
}

// MemoryStore хранит сессии в памяти процесса. Потеря незавершенных
// диалогов при рестарте допустима.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*Session),
	}
}

func (s *MemoryStore) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *MemoryStore) Set(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = sess
}

func (s *MemoryStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}
