package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"echo-service/internal/apperrors"
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// conflictOr maps a unique violation to a Conflict with message and returns
// any other error unchanged.
func conflictOr(err error, message string) error {
	if isUniqueViolation(err) {
		return apperrors.Wrap(apperrors.KindConflict, message, err)
	}
	return err
}

func uuidArray(ids []uuid.UUID) interface{} {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return pq.Array(out)
}
