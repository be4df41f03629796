// AngelaMos | 2026
// request_test.go

package core

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type trimmedName struct {
	Name string `json:"name" validate:"required,min=3"`
}

func (t *trimmedName) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
}

func TestDecodeJSON_NormalizesBeforeValidating(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantName string
	}{
		{"valid", `{"name":"  alice "}`, true, "alice"},
		{"short once trimmed", `{"name":"  ab  "}`, false, ""},
		{"blank", `{"name":"   "}`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var dst trimmedName
			ok := DecodeJSON(rec, req, validator.New(), &dst)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, dst.Name)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
