package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
)

var messageColumns = `m.id, m.conversation_id, m.sender_id, m.content, m.is_edited, m.edited_at, m.created_at, m.updated_at, ` +
	prefixedSummaryColumns("s", "sender")

// MessageRepository abstracts message persistence.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (models.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) (models.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message and bumps the conversation's updated_at so that
// conversation lists sort by latest activity.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var id uuid.UUID
	if err = tx.GetContext(ctx, &id, `INSERT INTO messages (conversation_id, sender_id, content)
        VALUES ($1, $2, $3) RETURNING id`, conversationID, senderID, content); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	if err = tx.GetContext(ctx, &msg, `SELECT `+messageColumns+`
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        WHERE m.id = $1`, id); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetByID fetches a message with its sender.
func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+`
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        WHERE m.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, apperrors.NotFound("message not found")
	}
	return msg, err
}

// ListByConversation returns a conversation's messages, oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	err := r.db.SelectContext(ctx, &messages, `SELECT `+messageColumns+`
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        WHERE m.conversation_id = $1
        ORDER BY m.created_at ASC`, conversationID)
	return messages, err
}

// UpdateContent replaces the text and marks the message as edited.
func (r *MessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) (models.Message, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content = $2, is_edited = TRUE, edited_at = $3, updated_at = $3
        WHERE id = $1`, id, content, editedAt)
	if err != nil {
		return models.Message{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if count == 0 {
		return models.Message{}, apperrors.NotFound("message not found")
	}
	return r.GetByID(ctx, id)
}

// Delete hard-deletes a message.
func (r *MessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("message not found")
	}
	return nil
}
