package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{NewPermissionDenied("no", "InternalSales", nil), CodePermissionDenied, http.StatusForbidden},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewUnauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{NewConflict("stale", nil), CodeConflict, http.StatusConflict},
		{NewInternalError(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			de := ToDomainError(tc.err)
			require.NotNil(t, de)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
			assert.True(t, IsCode(tc.err, tc.code))
		})
	}
}

func TestPermissionDeniedNamesRequirement(t *testing.T) {
	err := NewPermissionDenied("no", "PartnerAdmin of the assigned company", map[string]any{"status": "PENDING_ASSIGN"})
	de := ToDomainError(err)
	assert.Equal(t, "PartnerAdmin of the assigned company", de.Details["required"])
	assert.Equal(t, "PENDING_ASSIGN", de.Details["status"])
}

func TestToDomainErrorUnwrapsAndHidesUnknown(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", NewNotFound("user", map[string]any{"id": "u9"}))
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, "user not found", ToDomainError(wrapped).Message)

	cause := errors.New("connection reset")
	de := ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorIs(t, de, cause)

	assert.Nil(t, ToDomainError(nil))
	assert.False(t, IsCode(cause, CodeInternal))
}
