package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aura-systems/aura/internal/domain"
)

// MockChatRepository is a mock implementation of ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) (int64, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) GetSession(ctx context.Context, id int64) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) ListSessions(ctx context.Context, userID int64) ([]*domain.ChatSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) DeleteSession(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, message *domain.ChatMessage) (int64, error) {
	args := m.Called(ctx, message)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, sessionID int64) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

// MockAnswerer is a mock implementation of Answerer
type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, query string, brainID int64, history []domain.ChatTurn, maxContextDocs int) (*Answer, error) {
	args := m.Called(ctx, query, brainID, history, maxContextDocs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Answer), args.Error(1)
}

func (m *MockAnswerer) Title(ctx context.Context, firstMessage string) string {
	args := m.Called(ctx, firstMessage)
	return args.String(0)
}

// MockBrainAuthorizer is a mock implementation of BrainAuthorizer
type MockBrainAuthorizer struct {
	mock.Mock
}

func (m *MockBrainAuthorizer) Authorize(ctx context.Context, p domain.Principal, brainID int64) (*domain.Brain, error) {
	args := m.Called(ctx, p, brainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brain), args.Error(1)
}

func TestCreateSession_UsesGeneratedTitle(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	brains.On("Authorize", mock.Anything, p, int64(3)).Return(ownedBrain(3, 10, 100, domain.VisibilityPrivate), nil)
	rag.On("Title", mock.Anything, "how do refunds work?").Return("Refund Policy")
	repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *domain.ChatSession) bool {
		return s.BrainID == 3 && s.UserID == 100 && s.Title == "Refund Policy"
	})).Return(int64(55), nil)

	svc := NewChatService(repo, rag, brains)
	session, err := svc.CreateSession(context.Background(), p, 3, "how do refunds work?")

	assert.NoError(t, err)
	assert.Equal(t, int64(55), session.ID)
	repo.AssertExpectations(t)
}

func TestCreateSession_DeniedBrain(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 200, OrgID: 10}
	brains.On("Authorize", mock.Anything, p, int64(3)).Return(nil, domain.ErrAccessDenied)

	svc := NewChatService(repo, rag, brains)
	_, err := svc.CreateSession(context.Background(), p, 3, "hello")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestSendMessage_PersistsBothTurns(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	session := &domain.ChatSession{ID: 55, BrainID: 3, UserID: 100}
	repo.On("GetSession", mock.Anything, int64(55)).Return(session, nil)
	brains.On("Authorize", mock.Anything, p, int64(3)).Return(ownedBrain(3, 10, 100, domain.VisibilityPrivate), nil)
	repo.On("ListMessages", mock.Anything, int64(55)).Return([]*domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "earlier question"},
		{Role: domain.ChatRoleAssistant, Content: "earlier answer"},
	}, nil)

	page := 2
	sources := []domain.Source{{DocumentID: 7, Content: "Refunds take 30 days.", Score: 0.9, Page: &page}}
	rag.On("Answer", mock.Anything, "and after 30 days?", int64(3), mock.MatchedBy(func(history []domain.ChatTurn) bool {
		return len(history) == 2 && history[0].Content == "earlier question"
	}), 0).Return(&Answer{Text: "They are no longer possible.", Sources: sources, UsedContext: true}, nil)

	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *domain.ChatMessage) bool {
		return msg.Role == domain.ChatRoleUser && msg.Content == "and after 30 days?"
	})).Return(int64(1), nil)
	repo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *domain.ChatMessage) bool {
		return msg.Role == domain.ChatRoleAssistant && msg.Content == "They are no longer possible." && len(msg.Sources) == 1
	})).Return(int64(2), nil)

	svc := NewChatService(repo, rag, brains)
	message, answer, err := svc.SendMessage(context.Background(), p, 55, "and after 30 days?")

	assert.NoError(t, err)
	assert.Equal(t, int64(2), message.ID)
	assert.True(t, answer.UsedContext)
	repo.AssertExpectations(t)
}

func TestSendMessage_OtherUsersSessionDenied(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	repo.On("GetSession", mock.Anything, int64(55)).Return(&domain.ChatSession{ID: 55, BrainID: 3, UserID: 100}, nil)

	svc := NewChatService(repo, rag, brains)
	_, _, err := svc.SendMessage(context.Background(), domain.Principal{UserID: 200, OrgID: 10}, 55, "hi")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	rag.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessage_RevokedBrainAccessDenied(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	repo.On("GetSession", mock.Anything, int64(55)).Return(&domain.ChatSession{ID: 55, BrainID: 3, UserID: 100}, nil)
	brains.On("Authorize", mock.Anything, p, int64(3)).Return(nil, domain.ErrAccessDenied)

	svc := NewChatService(repo, rag, brains)
	_, _, err := svc.SendMessage(context.Background(), p, 55, "hi")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDeleteSession_OwnerOnly(t *testing.T) {
	repo := new(MockChatRepository)
	rag := new(MockAnswerer)
	brains := new(MockBrainAuthorizer)

	p := domain.Principal{UserID: 100, OrgID: 10}
	repo.On("GetSession", mock.Anything, int64(55)).Return(&domain.ChatSession{ID: 55, BrainID: 3, UserID: 100}, nil)
	brains.On("Authorize", mock.Anything, p, int64(3)).Return(ownedBrain(3, 10, 100, domain.VisibilityPrivate), nil)
	repo.On("DeleteSession", mock.Anything, int64(55)).Return(nil)

	svc := NewChatService(repo, rag, brains)
	assert.NoError(t, svc.DeleteSession(context.Background(), p, 55))
	repo.AssertExpectations(t)
}

func TestDeleteSession_NotFound(t *testing.T) {
	repo := new(MockChatRepository)

	repo.On("GetSession", mock.Anything, int64(99)).Return(nil, domain.ErrSessionNotFound)

	svc := NewChatService(repo, new(MockAnswerer), new(MockBrainAuthorizer))
	err := svc.DeleteSession(context.Background(), domain.Principal{UserID: 100}, 99)

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
