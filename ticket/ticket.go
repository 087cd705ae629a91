// Package ticket holds the authentication ticket: a principal, its claims and
// the authorization properties attached to it. A ticket is created when an
// authorization is granted, serialized into an authorization code or token,
// reconstructed at the token endpoint and finally used to mint the outbound
// tokens.
package ticket

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/provenid/go-token-server/oauth2"
)

// Reserved property keys. The leading dot keeps them clear of host-defined
// properties stored alongside.
const (
	PropertyAudiences    = ".audiences"
	PropertyPresenters   = ".presenters"
	PropertyResources    = ".resources"
	PropertyScopes       = ".scopes"
	PropertyNonce        = ".nonce"
	PropertyUsage        = ".usage"
	PropertyConfidential = ".confidential"
	PropertyRedirectURI  = ".redirect_uri"
)

// Usage values describing what a serialized ticket is: an authorization code
// or one of the three token kinds. Comparisons are case-insensitive.
const (
	UsageAuthorizationCode = "code"
	UsageAccessToken       = "access_token"
	UsageIDToken           = "id_token"
	UsageRefreshToken      = "refresh_token"
)

// Ticket aggregates an authenticated principal with the properties of the
// authorization decision: who may present it, whom the resulting tokens are
// for, which scopes and resources were granted, and its validity window.
type Ticket struct {
	Principal  *Principal
	Properties map[string]string
	IssuedUTC  *time.Time
	ExpiresUTC *time.Time
}

// New creates a ticket for the given principal with empty properties.
func New(principal *Principal) *Ticket {
	return &Ticket{
		Principal:  principal,
		Properties: make(map[string]string),
	}
}

// Copy returns a ticket whose Properties map is an independent copy. The
// Principal is shared by reference: it is treated as immutable for the
// duration of a request, while Properties are routinely narrowed and
// rewritten. Handlers that need to mutate identities use Principal.Clone.
func (t *Ticket) Copy() *Ticket {
	cp := &Ticket{
		Principal:  t.Principal,
		Properties: make(map[string]string, len(t.Properties)),
	}
	for k, v := range t.Properties {
		cp.Properties[k] = v
	}
	if t.IssuedUTC != nil {
		issued := *t.IssuedUTC
		cp.IssuedUTC = &issued
	}
	if t.ExpiresUTC != nil {
		expires := *t.ExpiresUTC
		cp.ExpiresUTC = &expires
	}
	return cp
}

// getList splits a list-valued property and removes ordinal duplicates.
func (t *Ticket) getList(key string) []string {
	return oauth2.DedupeList(oauth2.SplitList(t.Properties[key]))
}

// setList writes a deduplicated space-joined list property. Elements must not
// contain a space: the wire encoding is space-separated, so a space inside an
// element would corrupt the list on the next read.
func (t *Ticket) setList(key string, elements []string) error {
	for _, e := range elements {
		if strings.Contains(e, " ") {
			return errors.Errorf("[Ticket setList] element %q of %s contains a space", e, key)
		}
	}
	joined := oauth2.JoinList(elements)
	if joined == "" {
		delete(t.Properties, key)
		return nil
	}
	t.Properties[key] = joined
	return nil
}

// hasListMember reports ordinal membership on the space-split property value,
// without dedup.
func (t *Ticket) hasListMember(key, v string) bool {
	for _, e := range oauth2.SplitList(t.Properties[key]) {
		if e == v {
			return true
		}
	}
	return false
}

// GetAudiences returns the deduplicated audience list.
func (t *Ticket) GetAudiences() []string { return t.getList(PropertyAudiences) }

// GetPresenters returns the deduplicated presenter (client_id) list.
func (t *Ticket) GetPresenters() []string { return t.getList(PropertyPresenters) }

// GetResources returns the deduplicated resource indicator list.
func (t *Ticket) GetResources() []string { return t.getList(PropertyResources) }

// GetScopes returns the deduplicated scope list.
func (t *Ticket) GetScopes() []string { return t.getList(PropertyScopes) }

// SetAudiences writes the audience list.
func (t *Ticket) SetAudiences(audiences ...string) error {
	return t.setList(PropertyAudiences, audiences)
}

// SetPresenters writes the presenter list.
func (t *Ticket) SetPresenters(presenters ...string) error {
	return t.setList(PropertyPresenters, presenters)
}

// SetResources writes the resource indicator list.
func (t *Ticket) SetResources(resources ...string) error {
	return t.setList(PropertyResources, resources)
}

// SetScopes writes the scope list.
func (t *Ticket) SetScopes(scopes ...string) error {
	return t.setList(PropertyScopes, scopes)
}

// HasAudience reports whether v is among the ticket's audiences.
func (t *Ticket) HasAudience(v string) bool { return t.hasListMember(PropertyAudiences, v) }

// HasPresenter reports whether v is among the ticket's presenters.
func (t *Ticket) HasPresenter(v string) bool { return t.hasListMember(PropertyPresenters, v) }

// HasResource reports whether v is among the ticket's resources.
func (t *Ticket) HasResource(v string) bool { return t.hasListMember(PropertyResources, v) }

// HasScope reports whether v is among the ticket's scopes.
func (t *Ticket) HasScope(v string) bool { return t.hasListMember(PropertyScopes, v) }

// GetUsage returns the usage value, empty if unset.
func (t *Ticket) GetUsage() string { return t.Properties[PropertyUsage] }

// SetUsage records what this ticket will be serialized as.
func (t *Ticket) SetUsage(usage string) { t.Properties[PropertyUsage] = usage }

// IsAuthorizationCode reports whether the ticket usage is an authorization code.
func (t *Ticket) IsAuthorizationCode() bool {
	return strings.EqualFold(t.GetUsage(), UsageAuthorizationCode)
}

// IsAccessToken reports whether the ticket usage is an access token.
func (t *Ticket) IsAccessToken() bool {
	return strings.EqualFold(t.GetUsage(), UsageAccessToken)
}

// IsIdentityToken reports whether the ticket usage is an identity token.
func (t *Ticket) IsIdentityToken() bool {
	return strings.EqualFold(t.GetUsage(), UsageIDToken)
}

// IsRefreshToken reports whether the ticket usage is a refresh token.
func (t *Ticket) IsRefreshToken() bool {
	return strings.EqualFold(t.GetUsage(), UsageRefreshToken)
}

// IsConfidential reports whether the ticket originated from a
// client-authenticated request.
func (t *Ticket) IsConfidential() bool {
	return strings.EqualFold(t.Properties[PropertyConfidential], "true")
}

// SetConfidential marks the ticket as issued to an authenticated client.
func (t *Ticket) SetConfidential() {
	t.Properties[PropertyConfidential] = "true"
}

// GetNonce returns the nonce bound at authorization time, empty if unset.
func (t *Ticket) GetNonce() string { return t.Properties[PropertyNonce] }

// SetNonce binds the authorization request nonce to the ticket.
func (t *Ticket) SetNonce(nonce string) { t.Properties[PropertyNonce] = nonce }

// GetRedirectURI returns the redirect_uri the authorization code was bound
// to, empty if unset.
func (t *Ticket) GetRedirectURI() string { return t.Properties[PropertyRedirectURI] }

// SetRedirectURI binds the authorization request redirect_uri to the ticket.
func (t *Ticket) SetRedirectURI(uri string) { t.Properties[PropertyRedirectURI] = uri }

// RemoveRedirectURI drops the stored redirect_uri; the binding is single-use
// and must not leak into the outbound tokens.
func (t *Ticket) RemoveRedirectURI() { delete(t.Properties, PropertyRedirectURI) }
