package ticket

import "github.com/provenid/go-token-server/oauth2"

// Common claim types. Claim types are free-form strings. The JWT codec maps
// ClaimSubject onto the registered sub claim; name and email travel as
// ordinary identity claims.
const (
	ClaimSubject = "sub"
	ClaimName    = "name"
	ClaimEmail   = "email"
)

// ClaimPropertyDestination marks which token kinds a claim may be written
// into. The value is a space-separated set of destinations; an absent
// property means the claim goes everywhere.
const ClaimPropertyDestination = "destination"

// Claim is a single statement about an identity.
type Claim struct {
	Type       string
	Value      string
	Properties map[string]string
}

// NewClaim creates a claim without properties.
func NewClaim(claimType, value string) Claim {
	return Claim{Type: claimType, Value: value}
}

// WithProperty returns a copy of the claim with the property set.
func (c Claim) WithProperty(key, value string) Claim {
	props := make(map[string]string, len(c.Properties)+1)
	for k, v := range c.Properties {
		props[k] = v
	}
	props[key] = value
	c.Properties = props
	return c
}

// HasDestination reports whether destination is listed in the claim's
// destination property. Membership is ordinal on the space-split destination
// set; a claim without the property lists no destination and yields false.
func (c Claim) HasDestination(destination string) bool {
	value, ok := c.Properties[ClaimPropertyDestination]
	if !ok {
		return false
	}
	for _, d := range oauth2.SplitList(value) {
		if d == destination {
			return true
		}
	}
	return false
}

// copyClaim deep-copies a claim including its properties map.
func copyClaim(c Claim) Claim {
	cp := Claim{Type: c.Type, Value: c.Value}
	if c.Properties != nil {
		cp.Properties = make(map[string]string, len(c.Properties))
		for k, v := range c.Properties {
			cp.Properties[k] = v
		}
	}
	return cp
}

// Identity is one authenticated identity: a claim set plus an optional actor
// chain for delegation scenarios. The actor chain is a linked list, never a
// cycle.
type Identity struct {
	AuthenticationType string
	Claims             []Claim
	Actor              *Identity
}

// NewIdentity creates an identity with the given claims.
func NewIdentity(authenticationType string, claims ...Claim) *Identity {
	return &Identity{AuthenticationType: authenticationType, Claims: claims}
}

// AddClaim appends a claim to the identity.
func (i *Identity) AddClaim(c Claim) {
	i.Claims = append(i.Claims, c)
}

// FindFirst returns the value of the first claim of the given type, or "" if
// none exists.
func (i *Identity) FindFirst(claimType string) string {
	for _, c := range i.Claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// Subject returns the identity's subject claim value.
func (i *Identity) Subject() string {
	return i.FindFirst(ClaimSubject)
}

// Clone produces an independent identity keeping only the claims the filter
// accepts. The filter is applied transitively through the actor chain. A nil
// filter keeps every claim.
func (i *Identity) Clone(filter func(Claim) bool) *Identity {
	if i == nil {
		return nil
	}
	cp := &Identity{AuthenticationType: i.AuthenticationType}
	for _, c := range i.Claims {
		if filter == nil || filter(c) {
			cp.Claims = append(cp.Claims, copyClaim(c))
		}
	}
	cp.Actor = i.Actor.Clone(filter)
	return cp
}

// Principal is the set of identities a ticket authenticates. The first
// identity is the primary one; the subject of issued tokens comes from it.
type Principal struct {
	Identities []*Identity
}

// NewPrincipal creates a principal from one or more identities.
func NewPrincipal(identities ...*Identity) *Principal {
	return &Principal{Identities: identities}
}

// Primary returns the principal's first identity, or nil when the principal
// carries none.
func (p *Principal) Primary() *Identity {
	if p == nil || len(p.Identities) == 0 {
		return nil
	}
	return p.Identities[0]
}

// Subject returns the subject claim of the primary identity.
func (p *Principal) Subject() string {
	primary := p.Primary()
	if primary == nil {
		return ""
	}
	return primary.Subject()
}

// Clone produces an independent principal whose identities keep only the
// claims the filter accepts; mutation of the clone never observes through to
// the original. Filtering applies transitively through each actor chain.
func (p *Principal) Clone(filter func(Claim) bool) *Principal {
	if p == nil {
		return nil
	}
	cp := &Principal{Identities: make([]*Identity, 0, len(p.Identities))}
	for _, id := range p.Identities {
		cp.Identities = append(cp.Identities, id.Clone(filter))
	}
	return cp
}
