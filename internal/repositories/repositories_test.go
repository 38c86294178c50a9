package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestContactCreateMapsUniqueViolationToConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)

	mock.ExpectQuery(`INSERT INTO contacts`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactAcceptRequiresPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewContactRepo(db)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE contacts SET status = 'ACCEPTED'`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "initiator_id", "receiver_id", "status", "created_at"}))

	_, err := repo.Accept(context.Background(), id)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCreateInsertsParticipantsInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	a, b := uuid.New(), uuid.New()
	key := models.DirectKey(a, b)
	convID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(nil, false, key).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_group", "direct_key", "created_at", "updated_at"}).
			AddRow(convID.String(), nil, false, key, now, now))
	mock.ExpectExec(`INSERT INTO conversation_participants`).
		WithArgs(convID, a, models.RoleMember).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO conversation_participants`).
		WithArgs(convID, b, models.RoleMember).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conv, err := repo.Create(context.Background(), NewConversation{DirectKey: &key}, []models.NewParticipant{
		{UserID: a, Role: models.RoleMember},
		{UserID: b, Role: models.RoleMember},
	})
	require.NoError(t, err)
	assert.Equal(t, convID, conv.ID)
	assert.False(t, conv.IsGroup)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCreateDuplicateDirectKeyRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	key := models.DirectKey(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO conversations`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), NewConversation{DirectKey: &key}, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveParticipantDeletesEmptyConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	convID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM conversation_participants`).
		WithArgs(convID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conversation_participants`).
		WithArgs(convID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM conversations WHERE id = \$1`).
		WithArgs(convID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.RemoveParticipant(context.Background(), convID, userID)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveParticipantKeepsConversationWithMembers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	convID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM conversation_participants`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conversation_participants`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	deleted, err := repo.RemoveParticipant(context.Background(), convID, userID)
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveParticipantReleasesDirectKeyOfHalfEmptyConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	convID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM conversation_participants`).
		WithArgs(convID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conversation_participants`).
		WithArgs(convID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE conversations SET direct_key = NULL`).
		WithArgs(convID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.RemoveParticipant(context.Background(), convID, userID)
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveParticipantNotMember(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM conversation_participants`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.RemoveParticipant(context.Background(), uuid.New(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadReportsMembership(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectExec(`UPDATE conversation_participants SET last_read_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkRead(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageCreateBumpsConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)
	convID, senderID, msgID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(convID, senderID, "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(msgID.String()))
	mock.ExpectExec(`UPDATE conversations SET updated_at`).
		WithArgs(convID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT m.id`).
		WithArgs(msgID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "content", "is_edited", "edited_at", "created_at", "updated_at",
			"sender.id", "sender.username", "sender.first_name", "sender.last_name", "sender.image_url",
		}).AddRow(msgID.String(), convID.String(), senderID.String(), "hello", false, nil, now, now,
			senderID.String(), "ada", nil, nil, nil))
	mock.ExpectCommit()

	msg, err := repo.Create(context.Background(), convID, senderID, "hello")
	require.NoError(t, err)
	assert.Equal(t, msgID, msg.ID)
	assert.Equal(t, senderID, msg.Sender.ID)
	require.NotNil(t, msg.Sender.Username)
	assert.Equal(t, "ada", *msg.Sender.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectExec(`DELETE FROM messages`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpsertUsesSingleStatement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	id := uuid.New()
	now := time.Now()
	profile := models.ExternalProfile{ExternalID: "user_123", Email: "ada@example.com", Username: "ada"}

	mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(external_id\) DO UPDATE`).
		WithArgs("user_123", "ada@example.com", "ada", "", "", "", true, now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "external_id", "email", "username", "first_name", "last_name", "image_url",
			"is_online", "last_seen_at", "created_at", "updated_at",
		}).AddRow(id.String(), "user_123", "ada@example.com", "ada", nil, nil, nil, true, now, now, now))

	user, err := repo.Upsert(context.Background(), profile, true, now)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.True(t, user.IsOnline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteByExternalIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE external_id`).
		WithArgs("user_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.DeleteByExternalID(context.Background(), "user_missing")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteByExternalIDDropsEmptiedConversations(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	userID, groupID, directID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE external_id`).
		WithArgs("user_gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`SELECT conversation_id FROM conversation_participants WHERE user_id`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}).
			AddRow(groupID.String()).
			AddRow(directID.String()))
	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM conversations c\s+WHERE c.id = ANY\(\$1\)\s+AND NOT EXISTS`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE conversations SET direct_key = NULL`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.DeleteByExternalID(context.Background(), "user_gone")
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteByExternalIDWithoutConversations(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE external_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`SELECT conversation_id FROM conversation_participants`).
		WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}))
	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.DeleteByExternalID(context.Background(), "user_lonely")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitAllowsUntilLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewRateLimitRepo(client, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, count, err := repo.Allow(ctx, "rl:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(i), count)
	}

	ok, _, err := repo.Allow(ctx, "rl:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, mr.TTL("rl:test"), time.Duration(0))

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = repo.Allow(ctx, "rl:test", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
