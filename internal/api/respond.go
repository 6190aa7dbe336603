package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/chat"
	"github.com/dennisdiepolder/callscope/internal/identity"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/tenant"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// requestError is a client input error with a descriptive message
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, tenant.ErrMissingTenant),
		errors.Is(err, tenant.ErrInvalidTenant),
		errors.Is(err, storage.ErrInvalidPagination),
		errors.Is(err, storage.ErrEmptyPatch),
		errors.Is(err, analytics.ErrInvalidDate),
		errors.Is(err, analytics.ErrInvalidRange),
		errors.Is(err, analytics.ErrInvalidGranularity),
		errors.Is(err, analytics.ErrInvalidChannel),
		errors.Is(err, analytics.ErrInvalidLimit),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidRole),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, tenant.ErrUnknownTenant),
		errors.Is(err, identity.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, analytics.ErrUnknownMetric):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err at the handler boundary and writes the error body.
// Server errors carry the underlying message verbatim.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := statusFor(err)

	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// decodeJSON reads and validates a JSON request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest("invalid request: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", jsonName(fe)))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid e-mail address", jsonName(fe)))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", jsonName(fe), fe.Param()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must have %s length %s", jsonName(fe), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", jsonName(fe)))
		}
	}
	return &requestError{msg: strings.Join(msgs, "; ")}
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func jsonName(fe validator.FieldError) string {
	if fe.Field() != "" {
		return fe.Field()
	}
	return strings.ToLower(fe.StructField())
}
