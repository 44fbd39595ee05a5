// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/middleware"
	"github.com/sinkapp/sink/internal/service"
	"github.com/sinkapp/sink/internal/storage"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// RootHandler serves the service index and the router fallbacks.
type RootHandler struct {
	index dto.IndexResponse
}

// NewRootHandler creates a RootHandler. attachments reports whether object
// storage is configured so clients can hide the upload button.
func NewRootHandler(attachments bool) *RootHandler {
	return &RootHandler{index: dto.IndexResponse{
		Service:     "sink",
		Version:     Version,
		APIBase:     "/api/v1",
		Attachments: attachments,
	}}
}

// Index describes the API.
// GET /
func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.index)
}

// NotFound handles unmatched routes.
func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles routes matched with the wrong verb.
func (h *RootHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst
// at its zero value.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeInvalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
}

// handleServiceError maps domain errors to HTTP responses.
// Unknown errors are logged and reported as 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, "APARTMENT_NOT_FOUND", membership.Message(err))
	case errors.Is(err, directory.ErrFull):
		writeError(w, http.StatusConflict, "APARTMENT_FULL", membership.Message(err))
	case errors.Is(err, directory.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "NOT_APARTMENT_OWNER", membership.Message(err))
	case errors.Is(err, membership.ErrAlreadyInApartment):
		writeError(w, http.StatusConflict, "ALREADY_IN_APARTMENT", membership.Message(err))
	case errors.Is(err, membership.ErrUnableToAllocateCode):
		writeError(w, http.StatusServiceUnavailable, "CODE_ALLOCATION_FAILED", membership.Message(err))
	case errors.Is(err, directory.ErrInvalidInput), errors.Is(err, middleware.ErrCodeInvalid):
		writeError(w, http.StatusBadRequest, "INVALID_APARTMENT_CODE", membership.MessageInvalidInput)

	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists")
	case errors.Is(err, auth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address")
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing session")
	case errors.Is(err, middleware.ErrEmailTooLong), errors.Is(err, middleware.ErrPasswordTooLong),
		errors.Is(err, middleware.ErrDisplayNameTooLong), errors.Is(err, middleware.ErrDisplayNameInvalid),
		errors.Is(err, middleware.ErrTextInvalidEncoding):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())

	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "EVENT_NOT_FOUND", "Event not found")
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
	case errors.Is(err, service.ErrAttachmentsDisabled):
		writeError(w, http.StatusServiceUnavailable, "ATTACHMENTS_DISABLED", "Attachments are not available")
	case errors.Is(err, service.ErrForeignAttachment):
		writeError(w, http.StatusForbidden, "FOREIGN_ATTACHMENT", "Attachment does not belong to this apartment")
	case errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "ATTACHMENT_TOO_LARGE", "Attachment exceeds size limit")
	case errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "Unsupported attachment type")
	case errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_FILENAME", "Invalid attachment name")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())

	default:
		logger.Error("internal_error",
			"error", err,
			"endpoint", r.Method+" "+r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", membership.MessageFallback)
	}
}

var validationErrors = []error{
	service.ErrTitleRequired,
	service.ErrTitleTooLong,
	service.ErrStartsInPast,
	service.ErrEndsBeforeStart,
	service.ErrMessageEmpty,
	service.ErrMessageTooLong,
	service.ErrRoomRequired,
	service.ErrDueRequired,
	service.ErrInvalidAssignee,
	service.ErrFieldTooLong,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
