package events

import "context"

// Provider is the vtable of extension handlers a host application supplies to
// the token endpoint. Handlers record their outcome on the event; a returned
// error is a transport-level failure (typically context cancellation) and
// aborts the request without a protocol reply.
//
// Within one request the driver invokes the points in a strict, observable
// order: ValidateClientAuthentication, ValidateTokenRequest, exactly one
// grant handler, TokenEndpoint, TokenEndpointResponse.
type Provider interface {
	// ValidateClientAuthentication authenticates the client. Validate with
	// the client_id on success, Skip for public clients, Reject otherwise.
	ValidateClientAuthentication(ctx context.Context, e *ClientAuthentication) error

	// ValidateTokenRequest validates the request as a whole. For code and
	// refresh grants it runs with the reconstructed ticket attached; for the
	// other grants it runs before grant dispatch.
	ValidateTokenRequest(ctx context.Context, e *TokenRequest) error

	// GrantAuthorizationCode decides the authorization_code grant. The event
	// carries a copy of the ticket stored in the code.
	GrantAuthorizationCode(ctx context.Context, e *Grant) error

	// GrantRefreshToken decides the refresh_token grant. The event carries a
	// copy of the ticket stored in the refresh token.
	GrantRefreshToken(ctx context.Context, e *Grant) error

	// GrantResourceOwnerCredentials decides the password grant.
	GrantResourceOwnerCredentials(ctx context.Context, e *Grant) error

	// GrantClientCredentials decides the client_credentials grant.
	GrantClientCredentials(ctx context.Context, e *Grant) error

	// GrantCustomExtension decides any other grant_type value.
	GrantCustomExtension(ctx context.Context, e *Grant) error

	// TokenEndpoint lets the host inspect or replace the granted ticket, or
	// take over the response entirely.
	TokenEndpoint(ctx context.Context, e *TokenEndpoint) error

	// TokenEndpointResponse lets the host inspect or rewrite the outgoing
	// response parameters.
	TokenEndpointResponse(ctx context.Context, e *TokenEndpointResponse) error
}

// UnimplementedProvider is a Provider whose handlers all leave their events
// untouched. Hosts embed it and override the points they care about.
type UnimplementedProvider struct{}

var _ Provider = UnimplementedProvider{}

func (UnimplementedProvider) ValidateClientAuthentication(context.Context, *ClientAuthentication) error {
	return nil
}

func (UnimplementedProvider) ValidateTokenRequest(context.Context, *TokenRequest) error {
	return nil
}

func (UnimplementedProvider) GrantAuthorizationCode(context.Context, *Grant) error {
	return nil
}

func (UnimplementedProvider) GrantRefreshToken(context.Context, *Grant) error {
	return nil
}

func (UnimplementedProvider) GrantResourceOwnerCredentials(context.Context, *Grant) error {
	return nil
}

func (UnimplementedProvider) GrantClientCredentials(context.Context, *Grant) error {
	return nil
}

func (UnimplementedProvider) GrantCustomExtension(context.Context, *Grant) error {
	return nil
}

func (UnimplementedProvider) TokenEndpoint(context.Context, *TokenEndpoint) error {
	return nil
}

func (UnimplementedProvider) TokenEndpointResponse(context.Context, *TokenEndpointResponse) error {
	return nil
}
