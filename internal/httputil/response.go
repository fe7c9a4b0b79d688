// Package httputil provides JSON request and response helpers for handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/R3E-Network/rentals/internal/errors"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code      apperrors.ErrorCode    `json:"code"`
	Error     string                 `json:"error"`
	Fields    []apperrors.FieldError `json:"fields,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	SignInURL string                 `json:"sign_in_url,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteServiceError writes se. Authentication failures carry signInURL so the
// client knows where to send the user.
func WriteServiceError(w http.ResponseWriter, se *apperrors.ServiceError, signInURL string) {
	body := ErrorBody{
		Code:    se.Code,
		Error:   se.Message,
		Fields:  se.Fields,
		Details: se.Details,
	}
	if se.HTTPStatus == http.StatusUnauthorized {
		body.SignInURL = signInURL
	}
	WriteJSON(w, se.HTTPStatus, body)
}

// WriteError writes err, mapping anything that is not a ServiceError to a
// generic internal error so no internal detail leaks.
func WriteError(w http.ResponseWriter, err error, signInURL string) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("Internal server error", err)
	}
	WriteServiceError(w, se, signInURL)
}

// BadRequest writes a 400 validation error with a single message.
func BadRequest(w http.ResponseWriter, message string) {
	WriteServiceError(w, &apperrors.ServiceError{
		Code:       apperrors.CodeValidationFailed,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}, "")
}

// DecodeJSON decodes the request body into v, rejecting unknown fields,
// trailing data and bodies over the size cap.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON: trailing data")
	}
	return nil
}
