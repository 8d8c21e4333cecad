package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAndMessageOf(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundError("Vehicle not found"))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))
	assert.Equal(t, "Vehicle not found", MessageOf(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, "Internal server error", MessageOf(plain))
}

func TestDatabaseErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Database error: connection refused", err.Error())
}
