package database

import (
	"errors"

	"github.com/lib/pq"

	apperrors "github.com/docscan/docscan-backend/pkg/errors"
)

// PostgreSQL error codes that map to client errors.
const (
	codeStringTooLong   = "22001"
	codeInvalidText     = "22P02"
	codeNotNull         = "23502"
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// checkFields names the column guarded by each check constraint.
var checkFields = map[string]string{
	"document_processing_audit_processing_duration_ms_check": "processing_duration_ms",
}

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error or has no specific mapping.
func MapPQError(err error) *apperrors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		return apperrors.Conflict("a record with these values already exists")

	case codeCheckViolation:
		if field, ok := checkFields[pqErr.Constraint]; ok {
			return apperrors.Validation(map[string]string{field: "must not be negative"})
		}
		return apperrors.BadRequest("data validation failed: " + pqErr.Constraint)

	case codeNotNull:
		return apperrors.Validation(map[string]string{column(pqErr, "required field"): "must not be empty"})

	case codeStringTooLong:
		return apperrors.Validation(map[string]string{column(pqErr, "value"): "is too long"})

	case codeInvalidText:
		return apperrors.BadRequest("malformed value: " + pqErr.Message)

	default:
		return nil
	}
}

func column(pqErr *pq.Error, fallback string) string {
	if pqErr.Column != "" {
		return pqErr.Column
	}
	return fallback
}
