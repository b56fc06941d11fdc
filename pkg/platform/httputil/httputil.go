// Package httputil maps domain errors onto the wire. Handlers return
// domain errors; the translation to status codes lives here and nowhere
// else.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "rtscore/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// statusFor maps error codes to HTTP status. Unknown codes fall through to
// 500.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeMissingTransactionReference:
		return http.StatusBadRequest
	case dErrors.CodeNotFound, dErrors.CodeNotYetAvailable:
		return http.StatusNotFound
	case dErrors.CodeScopeViolation, dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeConflict, dErrors.CodeInvalidTransition, dErrors.CodeWindowClosed, dErrors.CodeAlreadyFinalized:
		return http.StatusConflict
	case dErrors.CodeAllocationConflict:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON renders a success payload.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError renders a domain error. Internal errors omit the description
// so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)

	body := errorBody{Error: string(code)}
	if status != http.StatusInternalServerError {
		body.Description = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
