// Package events defines the extension protocol between the token endpoint
// driver and the host application. Each extension point is an event object
// the driver fills in and hands to the host's Provider; the handler records
// its outcome on the event rather than through control flow, and the driver
// reads the outcome back, falling back to the event's default error code when
// a rejection carries none.
package events

import (
	"github.com/provenid/go-token-server/oauth2"
	"github.com/provenid/go-token-server/ticket"
)

// Status is the outcome a handler recorded on an event.
type Status int

const (
	// StatusUnset means the handler did not record an outcome.
	StatusUnset Status = iota

	// StatusValidated means the handler validated the request.
	StatusValidated

	// StatusRejected means the handler rejected the request.
	StatusRejected

	// StatusSkipped means the handler declined to take a position, leaving
	// the decision to the driver's defaults.
	StatusSkipped
)

// Base carries the tri-state outcome and the structured error of an event.
// Event types embed it.
type Base struct {
	status Status

	// Error fields populated by Reject. When Error is empty on a rejected
	// event, the driver substitutes the event's default error code.
	Error            string
	ErrorDescription string
	ErrorURI         string

	defaultError string
}

func newBase(defaultError string) Base {
	return Base{defaultError: defaultError}
}

// Validate marks the event as validated.
func (b *Base) Validate() {
	b.status = StatusValidated
}

// Reject marks the event as rejected with a protocol error. Any field may be
// left empty; an empty code falls back to the event's default.
func (b *Base) Reject(code, description, uri string) {
	b.status = StatusRejected
	b.Error = code
	b.ErrorDescription = description
	b.ErrorURI = uri
}

// Skip marks the event as skipped.
func (b *Base) Skip() {
	b.status = StatusSkipped
}

// Status returns the recorded outcome.
func (b *Base) Status() Status { return b.status }

// IsValidated reports whether the handler validated the event.
func (b *Base) IsValidated() bool { return b.status == StatusValidated }

// IsRejected reports whether the handler rejected the event.
func (b *Base) IsRejected() bool { return b.status == StatusRejected }

// IsSkipped reports whether the handler skipped the event.
func (b *Base) IsSkipped() bool { return b.status == StatusSkipped }

// ProtocolError resolves the event's rejection into a protocol error,
// substituting the default code when the handler omitted one.
func (b *Base) ProtocolError() *oauth2.Error {
	code := b.Error
	if code == "" {
		code = b.defaultError
	}
	return &oauth2.Error{Code: code, Description: b.ErrorDescription, URI: b.ErrorURI}
}

// ClientAuthentication is the event for the ValidateClientAuthentication
// extension point. The handler may Validate (providing the client_id it
// authenticated), Skip (public client, no authentication performed) or
// Reject. Default error: invalid_client.
type ClientAuthentication struct {
	Base

	// Request is the incoming parameter bag. Mutations are visible to the
	// rest of the pipeline.
	Request *oauth2.Message

	// ClientID and ClientSecret as resolved from the request body or the
	// HTTP Basic Authorization header.
	ClientID     string
	ClientSecret string
}

// NewClientAuthentication builds the event from the resolved credentials.
func NewClientAuthentication(request *oauth2.Message) *ClientAuthentication {
	return &ClientAuthentication{
		Base:         newBase(oauth2.ErrorInvalidClient),
		Request:      request,
		ClientID:     request.ClientID(),
		ClientSecret: request.ClientSecret(),
	}
}

// ValidateClient marks the event validated and records the authenticated
// client_id.
func (e *ClientAuthentication) ValidateClient(clientID string) {
	e.ClientID = clientID
	e.Validate()
}

// TokenRequest is the event for the ValidateTokenRequest extension point.
// For code and refresh-token grants it runs after ticket reconstruction and
// carries the reconstructed ticket; for the other grants it runs before grant
// dispatch with a nil ticket. Default error: invalid_request.
type TokenRequest struct {
	Base

	Request *oauth2.Message

	// ClientID resolved for the request: the authenticated client_id, or the
	// one the request presented when authentication was skipped.
	ClientID string

	// Ticket reconstructed from the code or refresh token, nil otherwise.
	Ticket *ticket.Ticket
}

// NewTokenRequest builds the event.
func NewTokenRequest(request *oauth2.Message, clientID string, tk *ticket.Ticket) *TokenRequest {
	return &TokenRequest{
		Base:     newBase(oauth2.ErrorInvalidRequest),
		Request:  request,
		ClientID: clientID,
		Ticket:   tk,
	}
}

// Grant is the event shared by the five grant extension points. The handler
// that accepts the grant calls Issue with the final ticket; for code and
// refresh grants the event already carries a copy of the reconstructed ticket
// which the handler may mutate and re-issue.
type Grant struct {
	Base

	Request *oauth2.Message

	// ClientID resolved for the request: the authenticated client_id, or the
	// one the request presented when authentication was skipped.
	ClientID string

	// Ticket is the ticket the grant produced. For reconstruction grants the
	// driver seeds it with a copy of the stored ticket so handler mutations
	// cannot leak into the serialized code or refresh token.
	Ticket *ticket.Ticket
}

func newGrant(request *oauth2.Message, clientID, defaultError string, tk *ticket.Ticket) *Grant {
	return &Grant{
		Base:     newBase(defaultError),
		Request:  request,
		ClientID: clientID,
		Ticket:   tk,
	}
}

// NewGrantAuthorizationCode builds the authorization_code grant event.
// Default error: invalid_grant.
func NewGrantAuthorizationCode(request *oauth2.Message, clientID string, tk *ticket.Ticket) *Grant {
	return newGrant(request, clientID, oauth2.ErrorInvalidGrant, tk)
}

// NewGrantRefreshToken builds the refresh_token grant event.
// Default error: invalid_grant.
func NewGrantRefreshToken(request *oauth2.Message, clientID string, tk *ticket.Ticket) *Grant {
	return newGrant(request, clientID, oauth2.ErrorInvalidGrant, tk)
}

// NewGrantResourceOwnerCredentials builds the password grant event.
// Default error: invalid_grant.
func NewGrantResourceOwnerCredentials(request *oauth2.Message, clientID string) *Grant {
	return newGrant(request, clientID, oauth2.ErrorInvalidGrant, nil)
}

// NewGrantClientCredentials builds the client_credentials grant event.
// Default error: unauthorized_client.
func NewGrantClientCredentials(request *oauth2.Message, clientID string) *Grant {
	return newGrant(request, clientID, oauth2.ErrorUnauthorizedClient, nil)
}

// NewGrantCustomExtension builds the event for extension grant types.
// Default error: unsupported_grant_type.
func NewGrantCustomExtension(request *oauth2.Message, clientID string) *Grant {
	return newGrant(request, clientID, oauth2.ErrorUnsupportedGrantType, nil)
}

// Issue records the granted ticket and validates the event.
func (e *Grant) Issue(tk *ticket.Ticket) {
	e.Ticket = tk
	e.Validate()
}

// TokenEndpoint is the post-grant inspection point: the host may replace the
// ticket or mark the response as fully handled, in which case the driver
// writes nothing and the host owns the reply.
type TokenEndpoint struct {
	Base

	Request *oauth2.Message

	// Ticket to mint tokens from. The handler may substitute it; a nil
	// ticket after the event is a server error.
	Ticket *ticket.Ticket

	handled bool
}

// NewTokenEndpoint builds the event.
func NewTokenEndpoint(request *oauth2.Message, tk *ticket.Ticket) *TokenEndpoint {
	return &TokenEndpoint{
		Base:    newBase(oauth2.ErrorServerError),
		Request: request,
		Ticket:  tk,
	}
}

// MarkHandled tells the driver the host has produced the response itself.
func (e *TokenEndpoint) MarkHandled() { e.handled = true }

// IsHandled reports whether the host took over the response.
func (e *TokenEndpoint) IsHandled() bool { return e.handled }

// TokenEndpointResponse is the final extension point: the host may inspect or
// rewrite the outgoing parameter bag before it is serialized to JSON.
type TokenEndpointResponse struct {
	Base

	Request *oauth2.Message

	// Response is the outgoing parameter bag. Mutations are emitted as-is.
	Response *oauth2.Message
}

// NewTokenEndpointResponse builds the event.
func NewTokenEndpointResponse(request, response *oauth2.Message) *TokenEndpointResponse {
	return &TokenEndpointResponse{
		Base:     newBase(oauth2.ErrorServerError),
		Request:  request,
		Response: response,
	}
}
