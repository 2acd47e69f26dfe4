package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyContent    = errors.New("message content is empty")
)

// Repository persists sessions and their transcripts.
type Repository interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, message chat.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Service encapsulates conversation state management.
type Service struct {
	repo Repository
}

// NewService bootstraps the chat service on an in-memory repository.
func NewService() *Service {
	return NewServiceWithRepository(NewMemoryRepository())
}

// NewServiceWithRepository bootstraps the chat service on repo.
func NewServiceWithRepository(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateSession provisions a new anonymous session.
func (s *Service) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	if title == "" {
		title = "Chat " + time.Now().Format("2006-01-02 15:04")
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if message.Content == "" {
		return chat.Message{}, ErrEmptyContent
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.AppendMessage(ctx, message); err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.repo.GetSession(ctx, sessionID)
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.repo.ListMessages(ctx, sessionID)
}
