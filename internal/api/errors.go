package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/inkcircle/inkcircle-server/internal/errors"
	"github.com/inkcircle/inkcircle-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
// Unexpected 5xx errors are logged with their cause.
func RegisterErrorHandler(logger *slog.Logger) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		apiErr := toAPIError(status, message, errs)
		if apiErr.status >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed",
				"status", apiErr.status,
				"code", apiErr.Code,
				"error", errors.Join(errs...),
			)
		}
		return apiErr
	}
}

func toAPIError(status int, message string, errs []error) *APIError {
	var fieldErrs map[string]string
	for _, err := range errs {
		// Check if any of the errors are domain errors
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}

		// Store errors that escaped a service
		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			return storeAPIError(storeErr)
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return &APIError{
				status:  http.StatusGatewayTimeout,
				Code:    string(domainerrors.CodeInternal),
				Message: "request timed out",
			}
		}

		// Huma's own request validation reports one ErrorDetail per field
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			if fieldErrs == nil {
				fieldErrs = make(map[string]string)
			}
			fieldErrs[strings.TrimPrefix(detail.Location, "body.")] = detail.Message
		}
	}

	apiErr := &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
	if fieldErrs != nil {
		apiErr.status = http.StatusBadRequest
		apiErr.Code = string(domainerrors.CodeValidation)
		apiErr.Details = fieldErrs
	}
	if status >= http.StatusInternalServerError {
		// Never leak internal failure text to clients.
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func storeAPIError(err *store.Error) *APIError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &APIError{status: http.StatusNotFound, Code: string(domainerrors.CodeNotFound), Message: err.Message}
	case errors.Is(err, store.ErrAlreadyExists):
		return &APIError{status: http.StatusConflict, Code: string(domainerrors.CodeAlreadyExists), Message: err.Message}
	case errors.Is(err, store.ErrConflictRetriesExhausted):
		return &APIError{status: http.StatusConflict, Code: string(domainerrors.CodeConflict), Message: err.Message}
	default:
		return &APIError{status: err.HTTPCode(), Code: statusToCode(err.HTTPCode()), Message: err.Message}
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusBadGateway:
		return string(domainerrors.CodeUpstream)
	default:
		return string(domainerrors.CodeInternal)
	}
}
