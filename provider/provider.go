// Package provider supplies a reference implementation of the token
// endpoint's extension protocol, backed by the clients and users
// repositories. Hosts with richer policy embed events.UnimplementedProvider
// and write their own handlers; this one covers the common cases and powers
// the bundled server.
package provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/provenid/go-token-server/clients"
	"github.com/provenid/go-token-server/events"
	"github.com/provenid/go-token-server/oauth2"
	"github.com/provenid/go-token-server/ticket"
	"github.com/provenid/go-token-server/users"
)

// Provider authenticates clients against a client repository and resource
// owners against a user repository.
type Provider struct {
	events.UnimplementedProvider

	clients clients.Repo
	users   users.UserRepo
}

var _ events.Provider = (*Provider)(nil)

// New creates a provider. The user repository may be nil when the password
// grant is not offered.
func New(clientRepo clients.Repo, userRepo users.UserRepo) (*Provider, error) {
	if clientRepo == nil {
		return nil, errors.New("[provider New] client repo is required")
	}
	return &Provider{clients: clientRepo, users: userRepo}, nil
}

// ValidateClientAuthentication authenticates the client: a request without a
// client_id is skipped (anonymous public client), a confidential client must
// present its secret, and a public client presenting no secret is skipped
// rather than authenticated.
func (p *Provider) ValidateClientAuthentication(_ context.Context, e *events.ClientAuthentication) error {
	if e.ClientID == "" {
		e.Skip()
		return nil
	}

	client, err := p.clients.Get(e.ClientID)
	if err != nil {
		e.Reject(oauth2.ErrorInvalidClient, "Unknown client", "")
		return nil
	}

	if client.IsPublic() && e.ClientSecret == "" {
		e.Skip()
		return nil
	}
	if !client.VerifySecret(e.ClientSecret) {
		e.Reject(oauth2.ErrorInvalidClient, "Invalid client credentials", "")
		return nil
	}

	e.ValidateClient(client.ID)
	return nil
}

// ValidateTokenRequest checks the requested scopes against the client's
// registration when the client is known.
func (p *Provider) ValidateTokenRequest(_ context.Context, e *events.TokenRequest) error {
	if e.ClientID != "" && e.Request.Has(oauth2.ParamScope) {
		client, err := p.clients.Get(e.ClientID)
		if err != nil {
			e.Reject(oauth2.ErrorInvalidClient, "Unknown client", "")
			return nil
		}
		if len(client.Scopes) > 0 {
			if err := client.ValidateScopes(e.Request.Scope()); err != nil {
				e.Reject(oauth2.ErrorInvalidScope, "The requested scope is not registered for this client", "")
				return nil
			}
		}
	}
	e.Validate()
	return nil
}

// GrantAuthorizationCode re-issues the reconstructed ticket unchanged: the
// cross-checks between code and request already ran in the driver.
func (p *Provider) GrantAuthorizationCode(_ context.Context, e *events.Grant) error {
	e.Issue(e.Ticket)
	return nil
}

// GrantRefreshToken re-issues the reconstructed ticket unchanged.
func (p *Provider) GrantRefreshToken(_ context.Context, e *events.Grant) error {
	e.Issue(e.Ticket)
	return nil
}

// GrantResourceOwnerCredentials authenticates the resource owner and builds
// a fresh ticket carrying the requested scopes.
func (p *Provider) GrantResourceOwnerCredentials(_ context.Context, e *events.Grant) error {
	if p.users == nil {
		e.Reject(oauth2.ErrorUnsupportedGrantType, "The password grant is not enabled", "")
		return nil
	}

	user, err := p.users.GetByUsername(e.Request.Username())
	if err != nil || user.Blocked || !user.VerifyPassword(e.Request.Password()) {
		e.Reject(oauth2.ErrorInvalidGrant, "The resource owner credentials are invalid", "")
		return nil
	}

	identity := ticket.NewIdentity("password",
		ticket.NewClaim(ticket.ClaimSubject, user.ID))
	if name := user.Name(); name != "" {
		identity.AddClaim(ticket.NewClaim(ticket.ClaimName, name).
			WithProperty(ticket.ClaimPropertyDestination, ticket.UsageIDToken))
	}
	if user.Email != "" {
		identity.AddClaim(ticket.NewClaim(ticket.ClaimEmail, user.Email).
			WithProperty(ticket.ClaimPropertyDestination, ticket.UsageIDToken))
	}

	tk := ticket.New(ticket.NewPrincipal(identity))
	if err := tk.SetScopes(e.Request.GetScopes()...); err != nil {
		return errors.Wrap(err, "[GrantResourceOwnerCredentials] invalid scope")
	}
	if err := tk.SetResources(e.Request.GetResources()...); err != nil {
		return errors.Wrap(err, "[GrantResourceOwnerCredentials] invalid resource")
	}
	if e.ClientID != "" {
		if err := tk.SetPresenters(e.ClientID); err != nil {
			return errors.Wrap(err, "[GrantResourceOwnerCredentials] invalid presenter")
		}
	}

	e.Issue(tk)
	return nil
}

// GrantClientCredentials builds a machine-to-machine ticket for the already
// authenticated client, restricted to its registered scopes.
func (p *Provider) GrantClientCredentials(_ context.Context, e *events.Grant) error {
	client, err := p.clients.Get(e.ClientID)
	if err != nil {
		e.Reject(oauth2.ErrorInvalidClient, "Unknown client", "")
		return nil
	}

	scopes := e.Request.GetScopes()
	if len(scopes) == 0 {
		scopes = client.Scopes
	}
	granted := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if client.HasScope(scope) {
			granted = append(granted, scope)
		}
	}

	identity := ticket.NewIdentity("client_credentials",
		ticket.NewClaim(ticket.ClaimSubject, client.ID))
	tk := ticket.New(ticket.NewPrincipal(identity))
	if err := tk.SetScopes(granted...); err != nil {
		return errors.Wrap(err, "[GrantClientCredentials] invalid scope")
	}
	if err := tk.SetResources(e.Request.GetResources()...); err != nil {
		return errors.Wrap(err, "[GrantClientCredentials] invalid resource")
	}
	if err := tk.SetPresenters(client.ID); err != nil {
		return errors.Wrap(err, "[GrantClientCredentials] invalid presenter")
	}

	e.Issue(tk)
	return nil
}

// IssueAuthorizationCode builds the ticket an authorization endpoint would
// store in a code for the given user and client. The bundled server has no
// interactive authorization endpoint; this is the programmatic equivalent
// used for provisioning and tests.
func (p *Provider) IssueAuthorizationCode(user *users.User, client *clients.Client, scope, resource, redirectURI, nonce string) (*ticket.Ticket, error) {
	identity := ticket.NewIdentity("authorization_code",
		ticket.NewClaim(ticket.ClaimSubject, user.ID))
	if name := user.Name(); name != "" {
		identity.AddClaim(ticket.NewClaim(ticket.ClaimName, name).
			WithProperty(ticket.ClaimPropertyDestination, ticket.UsageIDToken))
	}

	tk := ticket.New(ticket.NewPrincipal(identity))
	tk.SetUsage(ticket.UsageAuthorizationCode)
	if err := tk.SetScopes(oauth2.SplitList(scope)...); err != nil {
		return nil, err
	}
	if err := tk.SetResources(oauth2.SplitList(resource)...); err != nil {
		return nil, err
	}
	if err := tk.SetPresenters(client.ID); err != nil {
		return nil, err
	}
	if redirectURI != "" {
		tk.SetRedirectURI(redirectURI)
	}
	if nonce = strings.TrimSpace(nonce); nonce != "" {
		tk.SetNonce(nonce)
	}
	return tk, nil
}
