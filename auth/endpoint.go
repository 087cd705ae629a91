// Package auth implements the token endpoint driver: the state machine that
// parses and classifies token requests, resolves client authentication,
// reconstructs and cross-checks tickets, dispatches the extension protocol
// and serializes the outbound tokens.
package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/provenid/go-token-server/events"
	"github.com/provenid/go-token-server/oauth2"
	"github.com/provenid/go-token-server/ticket"
)

// TokenEndpoint drives a token request from raw form to JSON reply. It owns
// no mutable state: a single instance serves concurrent requests, each one
// strictly sequential within itself.
type TokenEndpoint struct {
	options Options
	nowTime func() time.Time
}

// Handle processes one token request. Protocol failures are returned as a
// Response carrying the error parameter bag; a non-nil error is returned only
// for transport-level failure (context cancellation), in which case no
// response must be written.
func (e *TokenEndpoint) Handle(ctx context.Context, req *Request) (*Response, error) {
	// Preconditions. Each failure is invalid_request.
	if req.Method != http.MethodPost {
		return errorResponse(oauth2.ErrorInvalidRequest, "The token request must use the POST method"), nil
	}
	if !isFormContentType(req.ContentType) {
		return errorResponse(oauth2.ErrorInvalidRequest, "The token request must use the application/x-www-form-urlencoded content type"), nil
	}

	msg := oauth2.MessageFromValues(req.Form)

	grantType := msg.GrantType()
	if grantType == "" {
		return errorResponse(oauth2.ErrorInvalidRequest, "The mandatory grant_type parameter is missing"), nil
	}
	switch {
	case msg.IsAuthorizationCodeGrantType() && msg.Code() == "":
		return errorResponse(oauth2.ErrorInvalidRequest, "The mandatory code parameter is missing"), nil
	case msg.IsRefreshTokenGrantType() && msg.RefreshToken() == "":
		return errorResponse(oauth2.ErrorInvalidRequest, "The mandatory refresh_token parameter is missing"), nil
	case msg.IsPasswordGrantType() && (msg.Username() == "" || msg.Password() == ""):
		return errorResponse(oauth2.ErrorInvalidRequest, "The mandatory username and password parameters are missing"), nil
	}

	resolveClientCredentials(msg, req.Authorization)

	// Client authentication.
	clientAuth := events.NewClientAuthentication(msg)
	if err := e.dispatch(ctx, func(ctx context.Context) error {
		return e.options.Provider.ValidateClientAuthentication(ctx, clientAuth)
	}); err != nil {
		return nil, err
	}
	if clientAuth.IsRejected() {
		return errorResponseFrom(clientAuth.ProtocolError()), nil
	}

	clientAuthenticated := clientAuth.IsValidated()
	if !clientAuthenticated && msg.IsClientCredentialsGrantType() {
		return errorResponse(oauth2.ErrorInvalidGrant, "client authentication is required when using client_credentials"), nil
	}
	if clientAuthenticated && clientAuth.ClientID == "" {
		return errorResponse(oauth2.ErrorServerError, "The client_id was not set by ValidateClientAuthentication"), nil
	}
	if clientAuthenticated {
		msg.SetClientID(clientAuth.ClientID)
	}

	// ValidateTokenRequest runs up front for the grants that don't
	// reconstruct a prior ticket; for code and refresh grants it runs after
	// reconstruction so the handler sees the ticket.
	reconstructs := msg.IsAuthorizationCodeGrantType() || msg.IsRefreshTokenGrantType()
	if !reconstructs {
		validation := events.NewTokenRequest(msg, clientAuth.ClientID, nil)
		if err := e.dispatch(ctx, func(ctx context.Context) error {
			return e.options.Provider.ValidateTokenRequest(ctx, validation)
		}); err != nil {
			return nil, err
		}
		if validation.IsRejected() {
			return errorResponseFrom(validation.ProtocolError()), nil
		}
	}

	var (
		tk              *ticket.Ticket
		originalExpires *time.Time
		grant           *events.Grant
	)

	if reconstructs {
		reconstructed, errResp, err := e.reconstructTicket(ctx, msg, clientAuthenticated)
		if err != nil || errResp != nil {
			return errResp, err
		}
		tk = reconstructed
		if tk.ExpiresUTC != nil {
			expires := *tk.ExpiresUTC
			originalExpires = &expires
		}

		validation := events.NewTokenRequest(msg, clientAuth.ClientID, tk)
		if err := e.dispatch(ctx, func(ctx context.Context) error {
			return e.options.Provider.ValidateTokenRequest(ctx, validation)
		}); err != nil {
			return nil, err
		}
		if validation.IsRejected() {
			return errorResponseFrom(validation.ProtocolError()), nil
		}

		// The grant handler works on a copy so its mutations cannot leak
		// into the serialized code or refresh token.
		input := tk.Copy()
		if msg.IsAuthorizationCodeGrantType() {
			grant = events.NewGrantAuthorizationCode(msg, clientAuth.ClientID, tk.Copy())
			if err := e.dispatch(ctx, func(ctx context.Context) error {
				return e.options.Provider.GrantAuthorizationCode(ctx, grant)
			}); err != nil {
				return nil, err
			}
		} else {
			grant = events.NewGrantRefreshToken(msg, clientAuth.ClientID, tk.Copy())
			if err := e.dispatch(ctx, func(ctx context.Context) error {
				return e.options.Provider.GrantRefreshToken(ctx, grant)
			}); err != nil {
				return nil, err
			}
		}
		if grant.IsRejected() {
			return errorResponseFrom(grant.ProtocolError()), nil
		}
		if grant.Ticket == nil {
			return errorResponse(oauth2.ErrorInvalidGrant, "The authorization grant was not issued"), nil
		}
		tk = grant.Ticket

		// A handler that left the timestamps untouched anchored nothing:
		// reset them so outbound lifetimes are recomputed from configuration
		// instead of inheriting the code or refresh-token window.
		if equalTime(tk.IssuedUTC, input.IssuedUTC) {
			tk.IssuedUTC = nil
		}
		if equalTime(tk.ExpiresUTC, input.ExpiresUTC) {
			tk.ExpiresUTC = nil
		}
	} else {
		switch {
		case msg.IsPasswordGrantType():
			grant = events.NewGrantResourceOwnerCredentials(msg, clientAuth.ClientID)
			if err := e.dispatch(ctx, func(ctx context.Context) error {
				return e.options.Provider.GrantResourceOwnerCredentials(ctx, grant)
			}); err != nil {
				return nil, err
			}
			if errResp := grantOutcome(grant, "The resource owner credentials are invalid"); errResp != nil {
				return errResp, nil
			}
		case msg.IsClientCredentialsGrantType():
			grant = events.NewGrantClientCredentials(msg, clientAuth.ClientID)
			if err := e.dispatch(ctx, func(ctx context.Context) error {
				return e.options.Provider.GrantClientCredentials(ctx, grant)
			}); err != nil {
				return nil, err
			}
			if errResp := grantOutcome(grant, "The client credentials are invalid"); errResp != nil {
				return errResp, nil
			}
		default:
			grant = events.NewGrantCustomExtension(msg, clientAuth.ClientID)
			if err := e.dispatch(ctx, func(ctx context.Context) error {
				return e.options.Provider.GrantCustomExtension(ctx, grant)
			}); err != nil {
				return nil, err
			}
			if errResp := grantOutcome(grant, "The specified grant_type is not supported"); errResp != nil {
				return errResp, nil
			}
		}
		tk = grant.Ticket
	}

	// Post-grant normalization.
	endpointEvent := events.NewTokenEndpoint(msg, tk)
	if err := e.dispatch(ctx, func(ctx context.Context) error {
		return e.options.Provider.TokenEndpoint(ctx, endpointEvent)
	}); err != nil {
		return nil, err
	}
	if endpointEvent.IsHandled() {
		return &Response{HandledByProvider: true}, nil
	}
	tk = endpointEvent.Ticket
	if tk == nil {
		return errorResponse(oauth2.ErrorServerError, "The authentication ticket is unavailable"), nil
	}

	if clientAuthenticated {
		tk.SetConfidential()
	}
	if len(tk.GetScopes()) == 0 && msg.HasScope(oauth2.OpenIDScope) {
		if err := tk.SetScopes(oauth2.OpenIDScope); err != nil {
			return errorResponse(oauth2.ErrorServerError, "Failed to assign the default scope"), nil
		}
	}

	response, errResp, err := e.buildResponse(ctx, msg, tk, originalExpires)
	if err != nil || errResp != nil {
		return errResp, err
	}

	responseEvent := events.NewTokenEndpointResponse(msg, response)
	if err := e.dispatch(ctx, func(ctx context.Context) error {
		return e.options.Provider.TokenEndpointResponse(ctx, responseEvent)
	}); err != nil {
		return nil, err
	}

	return &Response{StatusCode: http.StatusOK, Params: responseEvent.Response}, nil
}

// reconstructTicket deserializes the code or refresh token and applies the
// cross-checks between the stored ticket and the incoming request, in order.
func (e *TokenEndpoint) reconstructTicket(ctx context.Context, msg *oauth2.Message, clientAuthenticated bool) (*ticket.Ticket, *Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		tk  *ticket.Ticket
		err error
	)
	if msg.IsAuthorizationCodeGrantType() {
		tk, err = e.options.AuthorizationCodeCodec.Unprotect(msg.Code())
	} else {
		tk, err = e.options.RefreshTokenCodec.Unprotect(msg.RefreshToken())
	}
	if err != nil || tk == nil {
		return nil, errorResponse(oauth2.ErrorInvalidGrant, "Invalid ticket"), nil
	}

	// Expiry must exist and be strictly in the future.
	if tk.ExpiresUTC == nil || !tk.ExpiresUTC.After(e.nowTime().UTC()) {
		return nil, errorResponse(oauth2.ErrorInvalidGrant, "Expired ticket"), nil
	}

	// A confidential refresh token may only be redeemed by an authenticated
	// client.
	if msg.IsRefreshTokenGrantType() && !clientAuthenticated && tk.IsConfidential() {
		return nil, errorResponse(oauth2.ErrorInvalidGrant, "Client authentication is required to refresh this token"), nil
	}

	// Refresh tokens issued to public clients may carry no presenters;
	// authorization codes never may.
	presenters := tk.GetPresenters()
	if msg.IsAuthorizationCodeGrantType() && len(presenters) == 0 {
		return nil, errorResponse(oauth2.ErrorServerError, "The authorization code doesn't contain any presenter"), nil
	}

	clientID := msg.ClientID()
	if msg.IsAuthorizationCodeGrantType() && clientID == "" {
		return nil, errorResponse(oauth2.ErrorInvalidRequest, "The mandatory client_id parameter is missing"), nil
	}
	if clientID != "" && len(presenters) > 0 && !tk.HasPresenter(clientID) {
		return nil, errorResponse(oauth2.ErrorInvalidGrant, "Ticket does not contain matching client_id"), nil
	}

	// An authorization code bound to a redirect_uri must be redeemed with
	// the exact same value; the binding is removed either way.
	if msg.IsAuthorizationCodeGrantType() {
		if stored := tk.GetRedirectURI(); stored != "" {
			tk.RemoveRedirectURI()
			switch {
			case msg.RedirectURI() == "":
				return nil, errorResponse(oauth2.ErrorInvalidRequest, "The mandatory redirect_uri parameter is missing"), nil
			case msg.RedirectURI() != stored:
				return nil, errorResponse(oauth2.ErrorInvalidGrant, "Authorization code does not contain matching redirect_uri"), nil
			}
		}
	}

	// resource/scope narrowing: the request may shrink the granted sets but
	// never widen them.
	if msg.Has(oauth2.ParamResource) {
		stored := tk.GetResources()
		if len(stored) == 0 {
			return nil, errorResponse(oauth2.ErrorInvalidGrant, "Token request cannot contain a resource parameter if the authorization request didn't contain one"), nil
		}
		requested := msg.GetResources()
		if !oauth2.ContainsAll(stored, requested) {
			return nil, errorResponse(oauth2.ErrorInvalidGrant, "Token request doesn't contain a valid resource parameter"), nil
		}
		if err := tk.SetResources(requested...); err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to narrow the granted resources"), nil
		}
	}
	if msg.Has(oauth2.ParamScope) {
		stored := tk.GetScopes()
		if len(stored) == 0 {
			return nil, errorResponse(oauth2.ErrorInvalidGrant, "Token request cannot contain a scope parameter if the authorization request didn't contain one"), nil
		}
		requested := msg.GetScopes()
		if !oauth2.ContainsAll(stored, requested) {
			return nil, errorResponse(oauth2.ErrorInvalidGrant, "Token request doesn't contain a valid scope parameter"), nil
		}
		if err := tk.SetScopes(requested...); err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to narrow the granted scopes"), nil
		}
	}

	return tk, nil, nil
}

// buildResponse mints the outbound tokens the request selects and assembles
// the response parameter bag.
func (e *TokenEndpoint) buildResponse(ctx context.Context, msg *oauth2.Message, tk *ticket.Ticket, originalExpires *time.Time) (*oauth2.Message, *Response, error) {
	now := e.nowTime().UTC()
	response := oauth2.NewMessage()

	// response_type acts as a token-kind selector only when explicitly
	// enabled; otherwise the selector behaves as if the parameter were
	// absent.
	selector := ""
	if e.options.EnableResponseTypeSelection {
		selector = msg.ResponseType()
	}
	selected := func(kind string) bool {
		if selector == "" {
			return true
		}
		for _, v := range oauth2.SplitList(selector) {
			if v == kind {
				return true
			}
		}
		return false
	}

	clamp := func(expires time.Time) time.Time {
		if !e.options.UseSlidingExpiration && msg.IsRefreshTokenGrantType() &&
			originalExpires != nil && originalExpires.Before(expires) {
			return *originalExpires
		}
		return expires
	}

	if selected(string(oauth2.TokenResponseType)) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		accessTicket := tk.Copy()
		accessTicket.SetUsage(ticket.UsageAccessToken)
		if err := accessTicket.SetAudiences(tk.GetResources()...); err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to assign the access token audiences"), nil
		}
		if accessTicket.ExpiresUTC == nil {
			expires := now.Add(e.options.AccessTokenLifetime)
			accessTicket.ExpiresUTC = &expires
		}
		clamped := clamp(*accessTicket.ExpiresUTC)
		accessTicket.ExpiresUTC = &clamped

		accessToken, err := e.options.AccessTokenCodec.Protect(accessTicket)
		if err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to serialize the access token"), nil
		}
		response.Set(oauth2.ParamAccessToken, accessToken)
		response.Set(oauth2.ParamTokenType, oauth2.BearerTokenType)

		lifetime := accessTicket.ExpiresUTC.Sub(now)
		response.Set(oauth2.ParamExpiresIn, strconv.FormatInt(int64(lifetime.Seconds()+0.5), 10))
	}

	if tk.HasScope(oauth2.OpenIDScope) && selected(string(oauth2.IDTokenResponseType)) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		identityTicket := tk.Copy()
		identityTicket.SetUsage(ticket.UsageIDToken)
		if err := identityTicket.SetAudiences(tk.GetPresenters()...); err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to assign the identity token audiences"), nil
		}
		if identityTicket.ExpiresUTC == nil {
			expires := now.Add(e.options.IdentityTokenLifetime)
			identityTicket.ExpiresUTC = &expires
		}
		clamped := clamp(*identityTicket.ExpiresUTC)
		identityTicket.ExpiresUTC = &clamped

		idToken, err := e.options.IdentityTokenCodec.Protect(identityTicket)
		if err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to serialize the identity token"), nil
		}
		response.Set(oauth2.ParamIDToken, idToken)
	}

	if tk.HasScope(oauth2.OfflineAccessScope) && selected(string(oauth2.RefreshTokenResponseType)) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		refreshTicket := tk.Copy()
		refreshTicket.SetUsage(ticket.UsageRefreshToken)
		if refreshTicket.ExpiresUTC == nil {
			expires := now.Add(e.options.RefreshTokenLifetime)
			refreshTicket.ExpiresUTC = &expires
		}
		clamped := clamp(*refreshTicket.ExpiresUTC)
		refreshTicket.ExpiresUTC = &clamped

		refreshToken, err := e.options.RefreshTokenCodec.Protect(refreshTicket)
		if err != nil {
			return nil, errorResponse(oauth2.ErrorServerError, "Failed to serialize the refresh token"), nil
		}
		response.Set(oauth2.ParamRefreshToken, refreshToken)
	}

	// Response-parameter economy: a code exchange always echoes resource and
	// scope; every other grant echoes them only when the granted sets differ
	// from what the request asked for.
	scopes, resources := tk.GetScopes(), tk.GetResources()
	if msg.IsAuthorizationCodeGrantType() {
		response.Set(oauth2.ParamResource, strings.Join(resources, " "))
		response.Set(oauth2.ParamScope, strings.Join(scopes, " "))
	} else {
		if msg.Has(oauth2.ParamResource) && !sameSet(msg.GetResources(), resources) {
			response.Set(oauth2.ParamResource, strings.Join(resources, " "))
		}
		if msg.Has(oauth2.ParamScope) && !sameSet(msg.GetScopes(), scopes) {
			response.Set(oauth2.ParamScope, strings.Join(scopes, " "))
		}
	}

	return response, nil, nil
}

// dispatch invokes one extension point, honouring cancellation on either side
// of the call.
func (e *TokenEndpoint) dispatch(ctx context.Context, handler func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := handler(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// grantOutcome resolves a non-reconstruction grant event into an error
// response, or nil when the grant issued a ticket.
func grantOutcome(grant *events.Grant, missingTicketDescription string) *Response {
	if grant.IsRejected() {
		return errorResponseFrom(grant.ProtocolError())
	}
	if grant.Ticket == nil {
		protocolErr := grant.ProtocolError()
		protocolErr.Description = missingTicketDescription
		return errorResponseFrom(protocolErr)
	}
	return nil
}

func errorResponse(code, description string) *Response {
	return errorResponseFrom(oauth2.NewError(code, description))
}

func errorResponseFrom(err *oauth2.Error) *Response {
	return &Response{StatusCode: err.StatusCode(), Params: err.Message()}
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameSet(a, b []string) bool {
	a, b = oauth2.DedupeList(a), oauth2.DedupeList(b)
	if len(a) != len(b) {
		return false
	}
	return oauth2.ContainsAll(a, b) && oauth2.ContainsAll(b, a)
}
