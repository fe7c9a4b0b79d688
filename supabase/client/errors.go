package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// pgInsufficientPrivilege is the Postgres SQLSTATE raised when a row-level
// security policy rejects a write.
const pgInsufficientPrivilege = "42501"

// Error is a failed Supabase response. PostgREST errors carry a SQLSTATE code;
// GoTrue errors carry an error code and description.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("supabase %d: %s", e.StatusCode, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PermissionDenied reports whether the request was refused by authentication
// or by a row-level security policy.
func (e *Error) PermissionDenied() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == pgInsufficientPrivilege
}

// NoRows reports whether the request addressed a row that does not exist.
func (e *Error) NoRows() bool {
	return e.Code == "PGRST116" || e.StatusCode == http.StatusNotFound
}

type rawError struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

func parseError(body []byte, status int) *Error {
	out := &Error{StatusCode: status}

	var raw rawError
	if err := json.Unmarshal(body, &raw); err != nil {
		out.Message = strings.TrimSpace(string(body))
		return out
	}

	out.Code = strings.Trim(string(raw.Code), `"`)
	if raw.ErrorCode != "" {
		out.Code = raw.ErrorCode
	}
	if out.Code == "" {
		out.Code = raw.Error
	}
	out.Details = raw.Details
	out.Hint = raw.Hint

	for _, m := range []string{raw.Message, raw.Msg, raw.ErrorDescription, raw.Error} {
		if m != "" {
			out.Message = m
			break
		}
	}
	return out
}
