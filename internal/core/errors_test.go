// AngelaMos | 2026
// errors_test.go

package core

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError_MapsSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   error
	}{
		{"invalid input", fmt.Errorf("decode: %w", ErrInvalidInput), http.StatusBadRequest, ErrInvalidInput},
		{"token expired", fmt.Errorf("validate: %w", ErrTokenExpired), http.StatusUnauthorized, ErrTokenExpired},
		{"token invalid", fmt.Errorf("parse: %w", ErrTokenInvalid), http.StatusUnauthorized, ErrTokenInvalid},
		{"not found", fmt.Errorf("get role: %w", ErrNotFound), http.StatusNotFound, ErrNotFound},
		{"duplicate", fmt.Errorf("create: %w", ErrDuplicateKey), http.StatusConflict, ErrDuplicateKey},
		{"conflict", ErrConflict, http.StatusConflict, ErrConflict},
		{"forbidden", ErrForbidden, http.StatusForbidden, ErrForbidden},
		{"unknown", sql.ErrConnDone, http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			assert.Equal(t, tt.wantStatus, appErr.Code)
			assert.ErrorIs(t, appErr, tt.wantKind)
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New(`pq: relation "users" does not exist`)
	appErr := Internal("list users", cause)

	assert.Equal(t, "system error", appErr.Message)
	assert.ErrorIs(t, appErr, ErrInternal)
	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "list users")

	rec := httptest.NewRecorder()
	JSONError(rec, appErr)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "system error", body.Message)
	assert.Nil(t, body.Data)
}

func TestPass(t *testing.T) {
	domain := NotFoundError("role")

	assert.Nil(t, Pass("op", nil))
	assert.Same(t, domain, Pass("op", domain))

	wrapped := Pass("op", fmt.Errorf("outer: %w", domain))
	assert.ErrorIs(t, wrapped, ErrNotFound)

	internal := Pass("op", errors.New("boom"))
	assert.ErrorIs(t, internal, ErrInternal)
}

func TestAppError_IsComparesIdentity(t *testing.T) {
	locked := UnauthorizedError("account is locked")
	badCreds := UnauthorizedError("bad credentials")

	assert.ErrorIs(t, locked, ErrUnauthorized)
	assert.False(t, errors.Is(locked, badCreds))
	assert.ErrorIs(t, fmt.Errorf("login: %w", locked), locked)
}

func TestResponseEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":200,"message":"success","data":{"id":7}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	JSONError(rec, ConflictError("role already exists"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"code":409,"message":"role already exists","data":null}`, rec.Body.String())
}
