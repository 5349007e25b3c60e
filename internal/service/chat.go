package service

import (
	"context"
	"time"

	"github.com/aura-systems/aura/internal/domain"
)

// ChatRepository defines the repository interface for chat persistence
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) (int64, error)
	GetSession(ctx context.Context, id int64) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID int64) ([]*domain.ChatSession, error)
	DeleteSession(ctx context.Context, id int64) error
	CreateMessage(ctx context.Context, message *domain.ChatMessage) (int64, error)
	ListMessages(ctx context.Context, sessionID int64) ([]*domain.ChatMessage, error)
}

// Answerer defines the retrieval/generation operations the chat flow needs
type Answerer interface {
	Answer(ctx context.Context, query string, brainID int64, history []domain.ChatTurn, maxContextDocs int) (*Answer, error)
	Title(ctx context.Context, firstMessage string) string
}

// ChatService manages chat sessions backed by a brain.
type ChatService struct {
	repo   ChatRepository
	rag    Answerer
	brains BrainAuthorizer
	now    func() time.Time
}

// NewChatService creates a new ChatService instance
func NewChatService(repo ChatRepository, rag Answerer, brains BrainAuthorizer) *ChatService {
	return &ChatService{
		repo:   repo,
		rag:    rag,
		brains: brains,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a session against a brain. The title comes from the
// first message via the low-cost model; title failures never block creation.
func (s *ChatService) CreateSession(ctx context.Context, p domain.Principal, brainID int64, firstMessage string) (*domain.ChatSession, error) {
	if _, err := s.brains.Authorize(ctx, p, brainID); err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.ChatSession{
		BrainID:   brainID,
		UserID:    p.UserID,
		Title:     s.rag.Title(ctx, firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.repo.CreateSession(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = id

	return session, nil
}

// ListSessions returns the principal's sessions.
func (s *ChatService) ListSessions(ctx context.Context, p domain.Principal) ([]*domain.ChatSession, error) {
	return s.repo.ListSessions(ctx, p.UserID)
}

// ListMessages returns a session's messages after access checks.
func (s *ChatService) ListMessages(ctx context.Context, p domain.Principal, sessionID int64) ([]*domain.ChatMessage, error) {
	session, err := s.authorizeSession(ctx, p, sessionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, session.ID)
}

// DeleteSession removes a session the principal owns.
func (s *ChatService) DeleteSession(ctx context.Context, p domain.Principal, sessionID int64) error {
	session, err := s.authorizeSession(ctx, p, sessionID)
	if err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, session.ID)
}

// SendMessage runs one RAG turn: access check, answer generation against the
// session's brain with prior turns as history, then persistence of both the
// user message and the assistant reply with its sources.
func (s *ChatService) SendMessage(ctx context.Context, p domain.Principal, sessionID int64, content string) (*domain.ChatMessage, *Answer, error) {
	session, err := s.authorizeSession(ctx, p, sessionID)
	if err != nil {
		return nil, nil, err
	}

	previous, err := s.repo.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}

	history := make([]domain.ChatTurn, 0, len(previous))
	for _, m := range previous {
		history = append(history, domain.ChatTurn{Role: m.Role, Content: m.Content})
	}

	answer, err := s.rag.Answer(ctx, content, session.BrainID, history, 0)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	userMessage := &domain.ChatMessage{
		SessionID: session.ID,
		Role:      domain.ChatRoleUser,
		Content:   content,
		CreatedAt: now,
	}
	if _, err := s.repo.CreateMessage(ctx, userMessage); err != nil {
		return nil, nil, err
	}

	assistantMessage := &domain.ChatMessage{
		SessionID: session.ID,
		Role:      domain.ChatRoleAssistant,
		Content:   answer.Text,
		Sources:   answer.Sources,
		CreatedAt: now,
	}
	id, err := s.repo.CreateMessage(ctx, assistantMessage)
	if err != nil {
		return nil, nil, err
	}
	assistantMessage.ID = id

	return assistantMessage, answer, nil
}

// authorizeSession checks both session ownership and brain visibility. A
// session against a brain the principal can no longer read is unusable.
func (s *ChatService) authorizeSession(ctx context.Context, p domain.Principal, sessionID int64) (*domain.ChatSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.UserID != p.UserID {
		return nil, domain.ErrAccessDenied
	}

	if _, err := s.brains.Authorize(ctx, p, session.BrainID); err != nil {
		return nil, err
	}

	return session, nil
}
