package chat

import (
	"context"
	"sync"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

// MemoryRepository keeps sessions for the life of the process.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

func (r *MemoryRepository) CreateSession(_ context.Context, session chat.Session) error {
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.messages[session.ID] = make([]chat.Message, 0, 16)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (r *MemoryRepository) AppendMessage(_ context.Context, message chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[message.SessionID]; !ok {
		return ErrSessionNotFound
	}
	r.messages[message.SessionID] = append(r.messages[message.SessionID], message)
	return nil
}

func (r *MemoryRepository) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages, ok := r.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
