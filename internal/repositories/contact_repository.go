package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
)

const contactColumns = `c.id, c.initiator_id, c.receiver_id, c.status, c.created_at`

// ContactRepository abstracts the contact graph.
type ContactRepository interface {
	Create(ctx context.Context, initiatorID, receiverID uuid.UUID) (models.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Contact, error)
	FindBetween(ctx context.Context, a, b uuid.UUID) (models.Contact, bool, error)
	Accept(ctx context.Context, id uuid.UUID) (models.Contact, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error)
	ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error)
	ListOutgoingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error)
	AreAccepted(ctx context.Context, a, b uuid.UUID) (bool, error)
	AcceptedContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ContactRepo is a sqlx implementation of ContactRepository.
type ContactRepo struct {
	db *sqlx.DB
}

// NewContactRepo constructs a ContactRepo.
func NewContactRepo(db *sqlx.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// Create inserts a PENDING edge. The unordered-pair unique index turns a
// concurrent duplicate into a Conflict.
func (r *ContactRepo) Create(ctx context.Context, initiatorID, receiverID uuid.UUID) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `INSERT INTO contacts (initiator_id, receiver_id, status)
        VALUES ($1, $2, 'PENDING')
        RETURNING id, initiator_id, receiver_id, status, created_at`, initiatorID, receiverID)
	if err != nil {
		return models.Contact{}, conflictOr(err, "a contact request already exists between these users")
	}
	return contact, nil
}

// GetByID fetches a single edge.
func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `SELECT `+contactColumns+` FROM contacts c WHERE c.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, apperrors.NotFound("contact request not found")
	}
	return contact, err
}

// FindBetween returns the edge between a and b in either direction.
func (r *ContactRepo) FindBetween(ctx context.Context, a, b uuid.UUID) (models.Contact, bool, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `SELECT `+contactColumns+` FROM contacts c
        WHERE (c.initiator_id = $1 AND c.receiver_id = $2) OR (c.initiator_id = $2 AND c.receiver_id = $1)`, a, b)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, false, nil
	}
	if err != nil {
		return models.Contact{}, false, err
	}
	return contact, true, nil
}

// Accept moves a PENDING edge to ACCEPTED.
func (r *ContactRepo) Accept(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact, `UPDATE contacts SET status = 'ACCEPTED'
        WHERE id = $1 AND status = 'PENDING'
        RETURNING id, initiator_id, receiver_id, status, created_at`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, apperrors.NotFound("contact request not found")
	}
	return contact, err
}

// Delete removes an edge regardless of status.
func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NotFound("contact request not found")
	}
	return nil
}

// ListAccepted returns accepted edges touching userID.
func (r *ContactRepo) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return r.listEdges(ctx, `c.status = 'ACCEPTED' AND (c.initiator_id = $1 OR c.receiver_id = $1)`, userID)
}

// ListIncomingPending returns pending requests received by userID.
func (r *ContactRepo) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return r.listEdges(ctx, `c.status = 'PENDING' AND c.receiver_id = $1`, userID)
}

// ListOutgoingPending returns pending requests sent by userID.
func (r *ContactRepo) ListOutgoingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return r.listEdges(ctx, `c.status = 'PENDING' AND c.initiator_id = $1`, userID)
}

func (r *ContactRepo) listEdges(ctx context.Context, where string, userID uuid.UUID) ([]models.ContactEdge, error) {
	query := `SELECT ` + contactColumns + `, ` + prefixedUserColumns("i", "initiator") + `, ` + prefixedUserColumns("rc", "receiver") + `
        FROM contacts c
        JOIN users i ON i.id = c.initiator_id
        JOIN users rc ON rc.id = c.receiver_id
        WHERE ` + where + `
        ORDER BY c.created_at DESC`
	edges := make([]models.ContactEdge, 0)
	err := r.db.SelectContext(ctx, &edges, query, userID)
	return edges, err
}

// AreAccepted reports whether a and b share an ACCEPTED edge.
func (r *ContactRepo) AreAccepted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM contacts
        WHERE status = 'ACCEPTED'
        AND ((initiator_id = $1 AND receiver_id = $2) OR (initiator_id = $2 AND receiver_id = $1)))`, a, b)
	return exists, err
}

// AcceptedContactIDs returns the ids of every accepted contact of userID.
func (r *ContactRepo) AcceptedContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.SelectContext(ctx, &ids, `SELECT CASE WHEN initiator_id = $1 THEN receiver_id ELSE initiator_id END
        FROM contacts
        WHERE status = 'ACCEPTED' AND (initiator_id = $1 OR receiver_id = $1)`, userID)
	return ids, err
}

// prefixedUserColumns selects every user column from alias as "prefix.column",
// which sqlx maps onto a nested struct tagged db:"prefix".
func prefixedUserColumns(alias, prefix string) string {
	cols := strings.Split(userColumns, ", ")
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, fmt.Sprintf(`%s.%s AS "%s.%s"`, alias, col, prefix, col))
	}
	return strings.Join(out, ", ")
}

// prefixedSummaryColumns is prefixedUserColumns for the public profile only.
func prefixedSummaryColumns(alias, prefix string) string {
	cols := []string{"id", "username", "first_name", "last_name", "image_url"}
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, fmt.Sprintf(`%s.%s AS "%s.%s"`, alias, col, prefix, col))
	}
	return strings.Join(out, ", ")
}
