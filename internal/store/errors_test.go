package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/inkcircle/inkcircle-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestError_ErrorWithCause(t *testing.T) {
	err := store.ErrNotFound.WithCause(errors.New("underlying error"))

	assert.Contains(t, err.Error(), "resource not found")
	assert.Contains(t, err.Error(), "underlying error")
	assert.Equal(t, http.StatusNotFound, err.HTTPCode())
}

func TestIndexConflict_MatchesAlreadyExists(t *testing.T) {
	err := fmt.Errorf("create user: %w", store.IndexConflict("email"))

	assert.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	var se *store.Error
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, "email", se.Index)
	}
}

func TestErrConflictRetriesExhausted_Distinct(t *testing.T) {
	assert.NotErrorIs(t, store.ErrConflictRetriesExhausted, store.ErrAlreadyExists)
	assert.ErrorIs(t, store.ErrConflictRetriesExhausted.WithCause(errors.New("x")), store.ErrConflictRetriesExhausted)
}
