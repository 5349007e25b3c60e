package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-systems/aura/internal/domain"
)

type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func NewChatRepositoryWithTx(tx pgx.Tx) *ChatRepository {
	return &ChatRepository{db: tx}
}

func (r *ChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO chat_sessions (brain_id, user_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id`,
		session.BrainID, session.UserID, session.Title,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *ChatRepository) GetSession(ctx context.Context, id int64) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := r.db.QueryRow(ctx,
		`SELECT id, brain_id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.BrainID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID int64) ([]*domain.ChatSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, brain_id, user_id, title, created_at, updated_at
		 FROM chat_sessions
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(&s.ID, &s.BrainID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *ChatRepository) DeleteSession(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, msg *domain.ChatMessage) (int64, error) {
	sources, err := json.Marshal(msg.Sources)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO chat_messages (session_id, role, content, sources, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id`,
		msg.SessionID, string(msg.Role), msg.Content, sources,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	// Keep the session's recency ordering in step with its messages.
	_, err = r.db.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`,
		msg.SessionID,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, sessionID int64) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, sources, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var (
			m       domain.ChatMessage
			role    string
			sources []byte
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &sources, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.ChatRole(role)
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, err
			}
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
