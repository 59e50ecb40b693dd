// Package handler exposes the community API over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// errorStatuses maps domain errors to HTTP status and error code.
// The first matching entry wins.
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrSessionExpired, http.StatusUnauthorized, "session_expired"},
	{domain.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{domain.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{domain.ErrSystemRoleImmutable, http.StatusForbidden, "system_role_immutable"},
	{domain.ErrRootOwnerProtected, http.StatusForbidden, "root_owner_protected"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrDuplicateUsername, http.StatusConflict, "duplicate_username"},
	{domain.ErrDuplicateRole, http.StatusConflict, "duplicate_role"},
	{domain.ErrRoleInUse, http.StatusConflict, "role_in_use"},
}

// statusOf returns the HTTP status and error code for err.
func statusOf(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// api carries what every resource handler needs.
type api struct {
	validate    *validator.Validate
	maxBodySize int64
	logger      zerolog.Logger
}

func newAPI(maxBodySize int64, logger zerolog.Logger) *api {
	v := validator.New()
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &api{validate: v, maxBodySize: maxBodySize, logger: logger}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes the error response for err. Unexpected errors are logged and
// reported without detail.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	body := ErrorResponse{Error: code, Message: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
		body.Message = verr.Message
	}

	if status == http.StatusInternalServerError {
		a.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		body.Message = "internal server error"
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst and runs its validation tags.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if a.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxBodySize)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewValidationError("", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return domain.NewValidationError("", "malformed JSON body")
	}

	if err := a.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// fieldError turns a validator failure into a domain validation error.
func fieldError(fe validator.FieldError) *domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "%s is required", field)
	case "min":
		return domain.NewValidationError(field, "%s must be at least %s characters", field, fe.Param())
	case "max":
		return domain.NewValidationError(field, "%s must be at most %s characters", field, fe.Param())
	case "gt":
		return domain.NewValidationError(field, "%s must be greater than %s", field, fe.Param())
	case "oneof":
		return domain.NewValidationError(field, "%s must be one of: %s", field, fe.Param())
	default:
		return domain.NewValidationError(field, "%s is invalid", field)
	}
}
