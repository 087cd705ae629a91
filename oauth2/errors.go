package oauth2

import "net/http"

// OAuth2 protocol error codes (RFC 6749 §5.2). These are ordinal string
// tokens and must be emitted exactly as written.
const (
	ErrorInvalidRequest          = "invalid_request"
	ErrorInvalidClient           = "invalid_client"
	ErrorInvalidGrant            = "invalid_grant"
	ErrorUnauthorizedClient      = "unauthorized_client"
	ErrorUnsupportedGrantType    = "unsupported_grant_type"
	ErrorUnsupportedResponseType = "unsupported_response_type"
	ErrorInvalidScope            = "invalid_scope"
	ErrorServerError             = "server_error"
	ErrorTemporarilyUnavailable  = "temporarily_unavailable"
)

// Error is a protocol-level error reply: a code from the RFC 6749 registry
// plus optional human-readable description and documentation URI.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

// NewError builds a protocol error.
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// StatusCode maps a protocol error code onto the HTTP status the token
// endpoint replies with: 401 for invalid_client, 500 for server_error,
// 400 for everything else.
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorInvalidClient:
		return http.StatusUnauthorized
	case ErrorServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Message returns the error as a response parameter bag.
func (e *Error) Message() *Message {
	m := NewMessage()
	m.Set(ParamError, e.Code)
	m.Set(ParamErrorDescription, e.Description)
	m.Set(ParamErrorURI, e.URI)
	return m
}
