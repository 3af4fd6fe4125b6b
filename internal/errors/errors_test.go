package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("error string includes code and message", func(t *testing.T) {
		err := New(ErrCodeValidation, "bad input")
		assert.Equal(t, "VALIDATION_ERROR: bad input", err.Error())
	})

	t.Run("wrapped cause is unwrappable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeDatabase, "Database error", cause)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("as through fmt wrapping", func(t *testing.T) {
		inner := LockOperation("Failed to create code", errors.New("HTTP 500"))
		wrapped := fmt.Errorf("handling webhook: %w", inner)

		appErr, ok := AsAppError(wrapped)
		require.True(t, ok)
		assert.Equal(t, ErrCodeLockAPI, appErr.Code)
		assert.Equal(t, "Failed to create code", appErr.Message)
	})
}

func TestConstructors(t *testing.T) {
	t.Run("lock auth", func(t *testing.T) {
		err := LockAuth(errors.New("HTTP 401"))
		assert.Equal(t, ErrCodeLockAuth, err.Code)
		assert.Equal(t, "Failed to login to The Keys API", err.Message)
	})

	t.Run("missing required", func(t *testing.T) {
		err := MissingRequired("Missing arrival or departure dates")
		assert.Equal(t, ErrCodeMissingRequired, err.Code)
		assert.Equal(t, "Missing arrival or departure dates", err.Message)
	})

	t.Run("external names the service", func(t *testing.T) {
		err := External("smoobu", errors.New("timeout"))
		assert.Equal(t, ErrCodeExternal, err.Code)
		assert.Contains(t, err.Message, "smoobu")
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeLockAuth, GetCode(LockAuth(nil)))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	assert.True(t, IsAppError(Database(nil)))
	assert.False(t, IsAppError(errors.New("plain")))
}
