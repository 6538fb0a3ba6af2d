package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError_Creation(t *testing.T) {
	message := "order not found"
	err := NewNotFoundError(message)

	assert.NotNil(t, err)
	assert.Equal(t, message, err.Message)
	assert.Equal(t, message, err.Error())
}

func TestNotFoundError_IsNotFoundError(t *testing.T) {
	err := NewNotFoundError("routing not found")

	notFoundErr, ok := IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, notFoundErr)
	assert.Equal(t, "routing not found", notFoundErr.Message)
}

func TestNotFoundError_IsNotFoundError_Wrapped(t *testing.T) {
	err := fmt.Errorf("loading order: %w", NewNotFoundError("order 12 not found"))

	notFoundErr, ok := IsNotFoundError(err)
	assert.True(t, ok)
	assert.Equal(t, "order 12 not found", notFoundErr.Message)
}

func TestNotFoundError_IsNotFoundError_WithOtherError(t *testing.T) {
	err := errors.New("some other error")

	notFoundErr, ok := IsNotFoundError(err)
	assert.False(t, ok)
	assert.Nil(t, notFoundErr)
}

func TestValidationError_Creation(t *testing.T) {
	message := "validation failed"
	details := []ValidationDetail{
		{Field: "items", Message: "items must not be empty"},
		{Field: "tableId", Message: "tableId is required"},
	}

	err := NewValidationError(message, details...)

	assert.NotNil(t, err)
	assert.Equal(t, message, err.Message)
	assert.Equal(t, message, err.Error())
	assert.Len(t, err.Details, 2)

	ve, ok := IsValidationError(err)
	assert.True(t, ok)
	assert.Equal(t, "items", ve.Details[0].Field)
}

func TestForbiddenError_IsForbiddenError(t *testing.T) {
	var err error = NewForbiddenError("insufficient permissions")

	fe, ok := IsForbiddenError(err)
	assert.True(t, ok)
	assert.Equal(t, "insufficient permissions", fe.Error())

	_, ok = IsConflictError(err)
	assert.False(t, ok)
}

func TestUnauthorizedError_IsUnauthorizedError(t *testing.T) {
	ue, ok := IsUnauthorizedError(NewUnauthorizedError("missing token"))
	assert.True(t, ok)
	assert.Equal(t, "missing token", ue.Message)
}

func TestConflictAndDeadlockErrors(t *testing.T) {
	_, ok := IsConflictError(NewConflictError("routing already completed"))
	assert.True(t, ok)

	de, ok := IsDeadlockError(NewDeadlockError("max retries exceeded"))
	assert.True(t, ok)
	assert.Equal(t, "max retries exceeded", de.Error())
}
