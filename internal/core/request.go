// AngelaMos | 2026
// request.go

package core

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Normalizer is implemented by request bodies that canonicalise their
// fields before validation.
type Normalizer interface {
	Normalize()
}

// PathID parses a positive integer path parameter, writing a 400 response
// and returning false when it is malformed.
func PathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid "+param)
		return 0, false
	}
	return id, true
}

// DecodeJSON reads a JSON body into dst, normalises it when dst is a
// Normalizer, and validates it, writing a 400 response and returning false
// on failure.
func DecodeJSON(
	w http.ResponseWriter,
	r *http.Request,
	v *validator.Validate,
	dst any,
) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}

	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}

	if err := v.Struct(dst); err != nil {
		BadRequest(w, FormatValidationError(err))
		return false
	}

	return true
}
