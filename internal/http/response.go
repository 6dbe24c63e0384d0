// Package http serves the local dashboard: a server-rendered page plus the
// JSON endpoints its script calls.
//
// This file builds JSON responses and maps domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kitchenledger/internal/auth"
	"kitchenledger/internal/core"
	"kitchenledger/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// RetryAfter sets the Retry-After header, rounded up to whole seconds.
func (b *JSONResponseBuilder) RetryAfter(d time.Duration) *JSONResponseBuilder {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return b.Header("Retry-After", strconv.Itoa(secs))
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

type errorBody struct {
	Error      string `json:"error"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// StatusFor maps an error from the auth controller, the dashboard or the
// API client to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrWrongState):
		return http.StatusConflict
	case core.IsRejectedCredential(err), errors.Is(err, services.ErrSessionEnded):
		return http.StatusUnauthorized
	case core.IsService(err):
		return http.StatusBadGateway
	case core.IsNetwork(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse creates a {"error": ...} response for err. Unclassified
// errors are reported generically; their detail stays in the log.
func ErrorResponse(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Error, body.Field = verr.Msg, verr.Field
	}
	if status == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	return NewJSONResponse().Status(status).Body(body)
}

// MessageResponse is an error-shaped response that carries no domain error.
func MessageResponse(status int, msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Body(errorBody{Error: msg})
}
