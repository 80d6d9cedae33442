package errors

import (
	stderrors "errors"
)

// Response status values.
const (
	StatusOK      = "ok"
	StatusLoading = "loading"
	StatusError   = "error"
)

// StatusResponse is the {status, message} body every non-200 answer uses.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ToResponse converts an AppError into the client-facing body. A loading
// pipeline is reported as "loading", everything else as "error".
func (e *AppError) ToResponse() StatusResponse {
	status := StatusError
	if e.Code == ErrCodePipelineLoading {
		status = StatusLoading
	}
	return StatusResponse{Status: status, Message: e.Message}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
