package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardkeeper/fivecrowns/internal/game"
	"github.com/cardkeeper/fivecrowns/internal/store"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleCoreError maps an engine error onto the HTTP taxonomy: validation
// failures are 400, lifecycle violations 409, storage failures 500,
// anything else 500 internal.
func (eh *ErrorHandler) HandleCoreError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetReqID(r.Context())

	var validationErr *game.ValidationError
	if errors.As(err, &validationErr) {
		engineErr := NewError(ErrTypeValidation, validationErr.Message).
			WithRequestID(requestID).
			WithContext("path", r.URL.Path)
		if len(validationErr.Fields) > 0 {
			engineErr = engineErr.WithContext("fields", validationErr.Fields)
		}
		eh.write(w, r, http.StatusBadRequest, engineErr.Build())
		return
	}

	var stateErr *game.StateError
	if errors.As(err, &stateErr) {
		eh.write(w, r, http.StatusConflict, NewError(ErrTypeState, stateErr.Message).
			WithRequestID(requestID).
			WithContext("path", r.URL.Path).
			Build())
		return
	}

	var storageErr *store.StorageError
	if errors.As(err, &storageErr) {
		eh.write(w, r, http.StatusInternalServerError, NewError(ErrTypeStorage, storageErr.Error()).
			WithRequestID(requestID).
			WithContext("slot", storageErr.Slot).
			WithContext("path", r.URL.Path).
			Build())
		return
	}

	eh.write(w, r, http.StatusInternalServerError, NewError(ErrTypeInternal, err.Error()).
		WithRequestID(requestID).
		WithContext("path", r.URL.Path).
		Build())
}

// HandleValidationError handles request-shape validation failures.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	requestID := middleware.GetReqID(r.Context())
	eh.write(w, r, http.StatusBadRequest, NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(requestID).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		Build())
}

// HandleNotFound handles unknown resource lookups.
func (eh *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request, resource, id string) {
	requestID := middleware.GetReqID(r.Context())
	eh.write(w, r, http.StatusNotFound, NewError(ErrTypeNotFound, fmt.Sprintf("%s %q not found", resource, id)).
		WithRequestID(requestID).
		WithContext("path", r.URL.Path).
		Build())
}

func (eh *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	category := GetErrorCategory(engineErr.Type)

	logLevel := "ERROR"
	if category == CategoryValidation || category == CategoryState {
		logLevel = "WARN"
	}
	eh.logger.Printf(
		"error_occurred level=%s type=%s category=%s status=%d request_id=%s path=%s message=%q",
		logLevel, engineErr.Type, category, status, engineErr.RequestID, r.URL.Path, engineErr.Message,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(category))
	w.WriteHeader(status)
	if err := writeJSONBody(w, engineErr); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				requestID := middleware.GetReqID(r.Context())
				eh.logger.Printf(
					"panic_recovered request_id=%s path=%s method=%s panic=%v",
					requestID, r.URL.Path, r.Method, rvr,
				)
				eh.write(w, r, http.StatusInternalServerError, NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("panic", fmt.Sprintf("%v", rvr)).
					Build())
			}
		}()

		next.ServeHTTP(w, r)
	})
}
