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

const conversationColumns = `c.id, c.name, c.is_group, c.direct_key, c.created_at, c.updated_at`

var participantColumns = `p.conversation_id, p.user_id, p.role, p.joined_at, p.last_read_at, ` + prefixedSummaryColumns("u", "user")

// NewConversation describes a conversation to insert.
type NewConversation struct {
	Name      *string
	IsGroup   bool
	DirectKey *string
}

// ConversationRepository abstracts conversation and membership persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv NewConversation, participants []models.NewParticipant) (models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (models.Conversation, bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationDetails, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (models.Conversation, error)
	ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error)
	GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (models.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	AddParticipants(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID, role models.ParticipantRole) ([]uuid.UUID, error)
	RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ReleaseDirectKey(ctx context.Context, conversationID uuid.UUID) error
	UpdateParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) (models.Participant, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) (bool, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts the conversation and its initial participants atomically.
// A second 1:1 conversation for the same pair fails with Conflict.
func (r *ConversationRepo) Create(ctx context.Context, conv NewConversation, participants []models.NewParticipant) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var created models.Conversation
	if err = tx.GetContext(ctx, &created, `INSERT INTO conversations (name, is_group, direct_key)
        VALUES ($1, $2, $3)
        RETURNING id, name, is_group, direct_key, created_at, updated_at`, conv.Name, conv.IsGroup, conv.DirectKey); err != nil {
		return models.Conversation{}, conflictOr(err, "a direct conversation already exists between these users")
	}

	for _, p := range participants {
		if _, err = tx.ExecContext(ctx, `INSERT INTO conversation_participants (conversation_id, user_id, role) VALUES ($1, $2, $3)`,
			created.ID, p.UserID, p.Role); err != nil {
			return models.Conversation{}, conflictOr(err, "user is already a participant")
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return created, nil
}

// GetByID fetches a conversation.
func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations c WHERE c.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperrors.NotFound("conversation not found")
	}
	return conv, err
}

// FindByDirectKey returns the 1:1 conversation for a pair key.
func (r *ConversationRepo) FindByDirectKey(ctx context.Context, key string) (models.Conversation, bool, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations c WHERE c.direct_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, nil
	}
	if err != nil {
		return models.Conversation{}, false, err
	}
	return conv, true, nil
}

type conversationRow struct {
	models.Conversation
	UnreadCount int `db:"unread_count"`
}

// ListForUser returns the user's conversations, most recently active first,
// each with its participants, latest message and unread count.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationDetails, error) {
	rows := make([]conversationRow, 0)
	err := r.db.SelectContext(ctx, &rows, `SELECT `+conversationColumns+`,
            (SELECT COUNT(*) FROM messages m
                WHERE m.conversation_id = c.id
                AND m.sender_id <> $1
                AND (me.last_read_at IS NULL OR m.created_at > me.last_read_at)) AS unread_count
        FROM conversations c
        JOIN conversation_participants me ON me.conversation_id = c.id AND me.user_id = $1
        ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.ConversationDetails, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	participants := make([]models.Participant, 0)
	if err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+`
        FROM conversation_participants p
        JOIN users u ON u.id = p.user_id
        WHERE p.conversation_id = ANY($1::uuid[])
        ORDER BY p.joined_at ASC`, uuidArray(ids)); err != nil {
		return nil, err
	}

	lastMessages := make([]models.Message, 0)
	if err := r.db.SelectContext(ctx, &lastMessages, `SELECT DISTINCT ON (m.conversation_id) `+messageColumns+`
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        WHERE m.conversation_id = ANY($1::uuid[])
        ORDER BY m.conversation_id, m.created_at DESC`, uuidArray(ids)); err != nil {
		return nil, err
	}

	byConversation := make(map[uuid.UUID][]models.Participant, len(rows))
	for _, p := range participants {
		byConversation[p.ConversationID] = append(byConversation[p.ConversationID], p)
	}
	lastByConversation := make(map[uuid.UUID]models.Message, len(lastMessages))
	for _, m := range lastMessages {
		lastByConversation[m.ConversationID] = m
	}

	for _, row := range rows {
		details := models.ConversationDetails{
			Conversation: row.Conversation,
			Participants: byConversation[row.ID],
			UnreadCount:  row.UnreadCount,
		}
		if details.Participants == nil {
			details.Participants = []models.Participant{}
		}
		if last, ok := lastByConversation[row.ID]; ok {
			last := last
			details.LastMessage = &last
		}
		result = append(result, details)
	}
	return result, nil
}

// UpdateName renames a conversation.
func (r *ConversationRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `UPDATE conversations SET name = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, name, is_group, direct_key, created_at, updated_at`, id, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperrors.NotFound("conversation not found")
	}
	return conv, err
}

// ListParticipants returns members in join order.
func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error) {
	participants := make([]models.Participant, 0)
	err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+`
        FROM conversation_participants p
        JOIN users u ON u.id = p.user_id
        WHERE p.conversation_id = $1
        ORDER BY p.joined_at ASC`, conversationID)
	return participants, err
}

// GetParticipant fetches a single membership.
func (r *ConversationRepo) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (models.Participant, error) {
	var participant models.Participant
	err := r.db.GetContext(ctx, &participant, `SELECT `+participantColumns+`
        FROM conversation_participants p
        JOIN users u ON u.id = p.user_id
        WHERE p.conversation_id = $1 AND p.user_id = $2`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, apperrors.NotFound("participant not found")
	}
	return participant, err
}

// IsParticipant checks membership.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID)
	return exists, err
}

// AddParticipants inserts memberships, skipping users already present, and
// returns the ids that were actually added.
func (r *ConversationRepo) AddParticipants(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID, role models.ParticipantRole) ([]uuid.UUID, error) {
	added := make([]uuid.UUID, 0, len(userIDs))
	if len(userIDs) == 0 {
		return added, nil
	}
	err := r.db.SelectContext(ctx, &added, `INSERT INTO conversation_participants (conversation_id, user_id, role)
        SELECT $1, u, $3 FROM unnest($2::uuid[]) AS u
        ON CONFLICT (conversation_id, user_id) DO NOTHING
        RETURNING user_id`, conversationID, uuidArray(userIDs), role)
	return added, err
}

// RemoveParticipant deletes a membership and, in the same transaction,
// deletes the conversation once nobody is left. A 1:1 conversation that
// drops to one member releases its direct_key so the pair can start a new
// one. It reports whether the conversation was deleted.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count == 0 {
		err = apperrors.NotFound("participant not found")
		return false, err
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = $1`, conversationID); err != nil {
		return false, err
	}

	deleted := false
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, conversationID); err != nil {
			return false, err
		}
		deleted = true
	} else if remaining < 2 {
		if _, err = tx.ExecContext(ctx, releaseDirectKeySQL, conversationID); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return deleted, nil
}

const releaseDirectKeySQL = `UPDATE conversations SET direct_key = NULL, updated_at = NOW() WHERE id = $1 AND direct_key IS NOT NULL`

// ReleaseDirectKey detaches a 1:1 conversation from its pair key. The
// conversation and its history stay readable by the remaining member.
func (r *ConversationRepo) ReleaseDirectKey(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, releaseDirectKeySQL, conversationID)
	return err
}

// UpdateParticipantRole changes the role of an existing member.
func (r *ConversationRepo) UpdateParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) (models.Participant, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_participants SET role = $3 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, role)
	if err != nil {
		return models.Participant{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Participant{}, err
	}
	if count == 0 {
		return models.Participant{}, apperrors.NotFound("participant not found")
	}
	return r.GetParticipant(ctx, conversationID, userID)
}

// MarkRead sets last_read_at for the member. It reports false when userID
// is not a member.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_participants SET last_read_at = $3 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, at)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
