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

const userColumns = `id, external_id, email, username, first_name, last_name, image_url, is_online, last_seen_at, created_at, updated_at`

// UserRepository abstracts user persistence.
type UserRepository interface {
	Upsert(ctx context.Context, profile models.ExternalProfile, markOnline bool, at time.Time) (models.User, error)
	UpdateByExternalID(ctx context.Context, profile models.ExternalProfile) (models.User, error)
	DeleteByExternalID(ctx context.Context, externalID string) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error)
	Search(ctx context.Context, query string, except uuid.UUID, limit int) ([]models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) (models.PresenceStatus, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
	ListPresence(ctx context.Context, ids []uuid.UUID) ([]models.PresenceStatus, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Upsert inserts or refreshes the user identified by profile.ExternalID in a
// single statement, so concurrent first requests cannot create duplicates.
// markOnline also sets is_online and last_seen_at to at.
func (r *UserRepo) Upsert(ctx context.Context, profile models.ExternalProfile, markOnline bool, at time.Time) (models.User, error) {
	var lastSeen *time.Time
	if markOnline {
		lastSeen = &at
	}
	query := `INSERT INTO users (external_id, email, username, first_name, last_name, image_url, is_online, last_seen_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
        ON CONFLICT (external_id) DO UPDATE SET
            email = EXCLUDED.email,
            username = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            image_url = EXCLUDED.image_url,
            is_online = users.is_online OR EXCLUDED.is_online,
            last_seen_at = COALESCE(EXCLUDED.last_seen_at, users.last_seen_at),
            updated_at = NOW()
        RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query,
		profile.ExternalID, profile.Email, profile.Username, profile.FirstName, profile.LastName, profile.ImageURL,
		markOnline, lastSeen)
	return user, err
}

// UpdateByExternalID refreshes profile fields of an existing user only.
// Empty fields keep their stored value.
func (r *UserRepo) UpdateByExternalID(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	query := `UPDATE users SET
            email = COALESCE(NULLIF($2, ''), email),
            username = COALESCE(NULLIF($3, ''), username),
            first_name = COALESCE(NULLIF($4, ''), first_name),
            last_name = COALESCE(NULLIF($5, ''), last_name),
            image_url = COALESCE(NULLIF($6, ''), image_url),
            updated_at = NOW()
        WHERE external_id = $1
        RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query,
		profile.ExternalID, profile.Email, profile.Username, profile.FirstName, profile.LastName, profile.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	}
	return user, err
}

// DeleteByExternalID hard-deletes a user and returns its local id.
// Memberships cascade; in the same transaction, conversations the user was
// the last member of are deleted and 1:1 conversations release their
// direct_key.
func (r *UserRepo) DeleteByExternalID(ctx context.Context, externalID string) (uuid.UUID, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var id uuid.UUID
	err = tx.GetContext(ctx, &id, `SELECT id FROM users WHERE external_id = $1 FOR UPDATE`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		err = apperrors.NotFound("user not found")
		return uuid.Nil, err
	}
	if err != nil {
		return uuid.Nil, err
	}

	var conversationIDs []uuid.UUID
	if err = tx.SelectContext(ctx, &conversationIDs, `SELECT conversation_id FROM conversation_participants WHERE user_id = $1`, id); err != nil {
		return uuid.Nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return uuid.Nil, err
	}

	if len(conversationIDs) > 0 {
		ids := uuidArray(conversationIDs)
		if _, err = tx.ExecContext(ctx, `DELETE FROM conversations c
            WHERE c.id = ANY($1)
              AND NOT EXISTS (SELECT 1 FROM conversation_participants p WHERE p.conversation_id = c.id)`, ids); err != nil {
			return uuid.Nil, err
		}
		if _, err = tx.ExecContext(ctx, `UPDATE conversations SET direct_key = NULL, updated_at = NOW()
            WHERE id = ANY($1) AND direct_key IS NOT NULL`, ids); err != nil {
			return uuid.Nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches a user by local id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	}
	return user, err
}

// ListExcept returns every user but id, newest first.
func (r *UserRepo) ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	users := make([]models.User, 0)
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY created_at DESC`, id)
	return users, err
}

// Search matches query case-insensitively against email, username and names.
func (r *UserRepo) Search(ctx context.Context, query string, except uuid.UUID, limit int) ([]models.User, error) {
	pattern := "%" + query + "%"
	users := make([]models.User, 0)
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users
        WHERE id <> $1
        AND (email ILIKE $2 OR username ILIKE $2 OR first_name ILIKE $2 OR last_name ILIKE $2)
        ORDER BY username NULLS LAST, email
        LIMIT $3`, except, pattern, limit)
	return users, err
}

// UpdateProfile changes the user-editable fields that are set in update.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `UPDATE users SET
            first_name = COALESCE($2, first_name),
            last_name = COALESCE($3, last_name),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, update.FirstName, update.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperrors.NotFound("user not found")
	}
	return user, err
}

// ExistingIDs returns the subset of ids that belong to a user.
func (r *UserRepo) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	found := make([]uuid.UUID, 0, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	err := r.db.SelectContext(ctx, &found, `SELECT id FROM users WHERE id = ANY($1::uuid[])`, uuidArray(ids))
	return found, err
}

// SetPresence records the online flag and last-seen time.
func (r *UserRepo) SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) (models.PresenceStatus, error) {
	var status models.PresenceStatus
	err := r.db.GetContext(ctx, &status, `UPDATE users SET is_online = $2, last_seen_at = $3, updated_at = NOW()
        WHERE id = $1 RETURNING id, is_online, last_seen_at`, id, online, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PresenceStatus{}, apperrors.NotFound("user not found")
	}
	return status, err
}

// TouchLastSeen only moves last_seen_at forward.
func (r *UserRepo) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// ListPresence returns the presence fields of the given users.
func (r *UserRepo) ListPresence(ctx context.Context, ids []uuid.UUID) ([]models.PresenceStatus, error) {
	statuses := make([]models.PresenceStatus, 0, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	err := r.db.SelectContext(ctx, &statuses, `SELECT id, is_online, last_seen_at FROM users
        WHERE id = ANY($1::uuid[]) ORDER BY is_online DESC, last_seen_at DESC NULLS LAST`, uuidArray(ids))
	return statuses, err
}
