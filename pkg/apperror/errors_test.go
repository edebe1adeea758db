package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	notFound := NewNotFound("Usuario no encontrado")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"app error", notFound, http.StatusNotFound, CodeNotFound},
		{"wrapped app error", fmt.Errorf("get user: %w", notFound), http.StatusNotFound, CodeNotFound},
		{"conflict", NewConflict("dup"), http.StatusConflict, CodeConflict},
		{"validation", NewValidation("bad"), http.StatusUnprocessableEntity, CodeValidation},
		{"plain error", errors.New("connection refused"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}

	assert.Nil(t, MapError(nil))
}

func TestAppError_WrapKeepsIdentity(t *testing.T) {
	sentinel := NewNotFound("Usuario no encontrado")
	cause := errors.New("sql: no rows in result set")

	wrapped := sentinel.Wrap(cause)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "no rows")
	assert.NotErrorIs(t, wrapped, NewNotFound("otro"))
}

func TestNewInternal_HidesCause(t *testing.T) {
	err := NewInternal(errors.New("pq: password authentication failed"))

	assert.Equal(t, MsgInternal, err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}
