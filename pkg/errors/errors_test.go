package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/docscan/docscan-backend/pkg/errors"
)

var errNoZone = errors.New("no zone")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *apperrors.AppError
		sentinel error
		code     string
		status   int
	}{
		{"not found", apperrors.NotFound("extraction job"), apperrors.ErrNotFound, apperrors.CodeNotFound, http.StatusNotFound},
		{"bad request", apperrors.BadRequest("document is empty"), apperrors.ErrBadRequest, apperrors.CodeBadRequest, http.StatusBadRequest},
		{"conflict", apperrors.Conflict("duplicate"), apperrors.ErrConflict, apperrors.CodeConflict, http.StatusConflict},
		{"validation", apperrors.Validation(map[string]string{"lines": "this field is required"}), apperrors.ErrValidation, apperrors.CodeValidation, http.StatusBadRequest},
		{"unprocessable", apperrors.Unprocessable("no zone"), apperrors.ErrUnprocessable, apperrors.CodeUnprocessable, http.StatusUnprocessableEntity},
		{"unprocessable cause", apperrors.UnprocessableCause(errors.New("no zone")), apperrors.ErrUnprocessable, apperrors.CodeUnprocessable, http.StatusUnprocessableEntity},
		{"too large", apperrors.PayloadTooLarge(4096), apperrors.ErrPayloadTooLarge, apperrors.CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
		})
	}

	assert.Equal(t, "extraction job not found", apperrors.NotFound("extraction job").Message)
	assert.Equal(t, "request body exceeds 4096 bytes", apperrors.PayloadTooLarge(4096).Message)
}

func TestUnprocessableCause_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("%w: got 1", errNoZone)
	err := apperrors.UnprocessableCause(cause)

	assert.ErrorIs(t, err, errNoZone)
	assert.ErrorIs(t, err, apperrors.ErrUnprocessable)
	assert.Equal(t, "no zone: got 1", err.Message)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(apperrors.NotFound("job")))
	assert.Equal(t, http.StatusUnprocessableEntity,
		apperrors.HTTPStatus(fmt.Errorf("decode: %w", apperrors.Unprocessable("no zone"))))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(fmt.Errorf("boom")))
}
