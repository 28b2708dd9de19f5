package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrInvalidCredentials, KindInvalidCredentials},
		{"wrapped sentinel", fmt.Errorf("login: %w", ErrAccountLocked), KindAccountLocked},
		{"validation", Validation("invalid input", "email"), KindValidation},
		{"plain error", errors.New("driver: bad connection"), KindInternal},
		{"internal", Internal(errors.New("boom")), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_IsMatchesByKind(t *testing.T) {
	err := &Error{Kind: KindAccountLocked, Message: "different message"}
	assert.True(t, errors.Is(err, ErrAccountLocked))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", err.Error())
}

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{
			name:       "validation lists fields",
			err:        Validation("invalid registration data", "first_name", "password"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantFields: []string{"first_name", "password"},
		},
		{
			name:       "duplicate",
			err:        ErrDuplicateAccount,
			wantStatus: http.StatusBadRequest,
			wantCode:   "DUPLICATE_ACCOUNT",
		},
		{
			name:       "locked",
			err:        ErrAccountLocked,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ACCOUNT_LOCKED",
		},
		{
			name:       "invalid token is unauthorized",
			err:        ErrInvalidToken,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "raw error does not leak",
			err:        errors.New("Error 1045: Access denied for user"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantFields, httpErr.ToErrorResponse().Fields)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", httpErr.Message)
			}
		})
	}
}
