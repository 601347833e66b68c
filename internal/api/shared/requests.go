package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxRequestBody caps admin API payloads. The largest legitimate request
// is a login body of a few hundred bytes.
const maxRequestBody = 64 << 10

var validate = validator.New()

// DecodeJSON decodes the request body into v. The body is size-capped and
// unknown fields are rejected, so a malformed or misdirected client fails
// loudly instead of half-parsing.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// ValidateRequest checks a decoded request against its validate struct
// tags. Types carrying their own Validate method (domain entities) use
// that instead.
func ValidateRequest(v interface{}) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
