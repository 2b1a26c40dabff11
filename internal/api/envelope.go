package api

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the version of the response envelope.
// Clients check "v" before reading anything else.
const EnvelopeVersion = 1

// APIEnvelope wraps every JSON response body.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int            `json:"v"`
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   *EnvelopeError `json:"error"`
}

// EnvelopeError is the error member of a failed response.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in APIEnvelope.
// It is registered as a huma transformer and sees both handler outputs and
// the *APIError values produced by RegisterErrorHandler.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch v.(type) {
	case APIEnvelope, *APIEnvelope:
		return v, nil
	}

	code, _ := strconv.Atoi(status)
	if err, ok := v.(error); ok || code >= http.StatusBadRequest {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   envelopeError(code, v, err),
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}

func envelopeError(status int, v any, err error) *EnvelopeError {
	if apiErr, ok := v.(*APIError); ok {
		code := apiErr.Code
		if code == "" {
			code = statusToCode(status)
		}
		return &EnvelopeError{Code: code, Message: apiErr.Message, Details: apiErr.Details}
	}

	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "request failed"
	}
	return &EnvelopeError{Code: statusToCode(status), Message: msg}
}
