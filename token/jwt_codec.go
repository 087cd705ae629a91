package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/provenid/go-token-server/internal/utils"
	"github.com/provenid/go-token-server/ticket"
)

// Private claim names used to carry ticket state through a JWT. The reserved
// ticket properties travel as top-level claims (audiences as aud) so the
// reverse path can reconstruct the ticket, except the redirect_uri property,
// which is not carried; host-defined properties travel under "props".
const (
	claimScope        = "scope"
	claimUsage        = "usage"
	claimResources    = "resources"
	claimPresenters   = "presenters"
	claimNonce        = "nonce"
	claimConfidential = "confidential"
	claimProperties   = "props"
)

// registeredOrPrivate lists the claim names the codec owns; everything else
// in a parsed payload is treated as an identity claim.
var registeredOrPrivate = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "nbf": {}, "exp": {}, "iat": {}, "jti": {},
	claimScope: {}, claimUsage: {}, claimResources: {}, claimPresenters: {},
	claimNonce: {}, claimConfidential: {}, claimProperties: {},
}

// JWTCodec serializes tickets as signed JWTs (RFC 7519 canonical encoding).
type JWTCodec struct {
	usage           string
	issuer          string
	signer          Signer
	lifetime        time.Duration
	includeIssuedAt bool
	nowTime         func() time.Time
}

// JWTCodecOption modifies a JWTCodec.
type JWTCodecOption func(*JWTCodec)

// WithJWTLifetime sets the default lifetime applied when a ticket reaches the
// codec without an expiry.
func WithJWTLifetime(d time.Duration) JWTCodecOption {
	return func(c *JWTCodec) { c.lifetime = d }
}

// WithJWTIssuedAt makes the codec emit the iat claim.
func WithJWTIssuedAt() JWTCodecOption {
	return func(c *JWTCodec) { c.includeIssuedAt = true }
}

// WithJWTNowTime sets the now time function (primarily for testing).
func WithJWTNowTime(nowFunc func() time.Time) JWTCodecOption {
	return func(c *JWTCodec) { c.nowTime = nowFunc }
}

// NewJWTCodec creates a codec bound to a usage value, signing with the given
// signer and stamping the given issuer.
func NewJWTCodec(usage, issuer string, signer Signer, options ...JWTCodecOption) (*JWTCodec, error) {
	if usage == "" {
		return nil, errors.New("[NewJWTCodec] usage is required")
	}
	if signer == nil {
		return nil, errors.New("[NewJWTCodec] signer is required")
	}

	codec := &JWTCodec{
		usage:   usage,
		issuer:  issuer,
		signer:  signer,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(codec)
	}
	return codec, nil
}

// Usage returns the usage value the codec is bound to.
func (c *JWTCodec) Usage() string { return c.usage }

// Protect serializes the ticket as a signed JWT. The subject is the ticket's
// primary identity; the audience is a single string when the ticket carries
// at most one audience and an array otherwise; nbf and exp come from the
// ticket timestamps, filled from the codec clock and lifetime when unset.
func (c *JWTCodec) Protect(t *ticket.Ticket) (string, error) {
	if t == nil {
		return "", errors.New("[JWTCodec Protect] ticket is required")
	}
	primary := t.Principal.Primary()
	if primary == nil {
		return "", errors.New("[JWTCodec Protect] ticket has no primary identity")
	}
	if usage := t.GetUsage(); usage == "" {
		t.SetUsage(c.usage)
	} else if usage != c.usage {
		return "", errors.Errorf("[JWTCodec Protect] ticket usage %q does not match codec usage %q", usage, c.usage)
	}

	now := c.nowTime().UTC()
	if t.IssuedUTC == nil {
		t.IssuedUTC = &now
	}
	if t.ExpiresUTC == nil && c.lifetime > 0 {
		expires := now.Add(c.lifetime)
		t.ExpiresUTC = &expires
	}

	claims := jwt.MapClaims{
		"iss": c.issuer,
		"sub": primary.Subject(),
		"nbf": t.IssuedUTC.Unix(),
		"jti": uuid.New().String(),
	}
	if t.ExpiresUTC != nil {
		claims["exp"] = t.ExpiresUTC.Unix()
	}
	if c.includeIssuedAt {
		claims["iat"] = now.Unix()
	}

	switch audiences := t.GetAudiences(); len(audiences) {
	case 0:
	case 1:
		claims["aud"] = audiences[0]
	default:
		claims["aud"] = audiences
	}

	claims[claimUsage] = c.usage
	if scope := strings.Join(t.GetScopes(), " "); scope != "" {
		claims[claimScope] = scope
	}
	if resources := strings.Join(t.GetResources(), " "); resources != "" {
		claims[claimResources] = resources
	}
	if presenters := strings.Join(t.GetPresenters(), " "); presenters != "" {
		claims[claimPresenters] = presenters
	}
	if nonce := t.GetNonce(); nonce != "" {
		claims[claimNonce] = nonce
	}
	if t.IsConfidential() {
		claims[claimConfidential] = "true"
	}
	if props := hostProperties(t); len(props) > 0 {
		claims[claimProperties] = props
	}

	// Identity claims ride alongside the registered set. Claims carrying a
	// destination restriction are only written when this token kind is among
	// their destinations; a code or refresh token carries every claim value
	// regardless of destination. Claim properties, destinations included, are
	// not written, so Unprotect rebuilds claims without them.
	for _, claim := range primary.Claims {
		if claim.Type == ticket.ClaimSubject {
			continue
		}
		if _, owned := registeredOrPrivate[claim.Type]; owned {
			continue
		}
		if !c.claimAllowed(claim) {
			continue
		}
		claims[claim.Type] = claim.Value
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[JWTCodec Protect] failed to sign ticket")
	}
	return signed, nil
}

func (c *JWTCodec) claimAllowed(claim ticket.Claim) bool {
	if c.usage == ticket.UsageAuthorizationCode || c.usage == ticket.UsageRefreshToken {
		return true
	}
	if _, restricted := claim.Properties[ticket.ClaimPropertyDestination]; !restricted {
		return true
	}
	return claim.HasDestination(c.usage)
}

// Unprotect verifies the JWT and reconstructs the ticket from its claims.
// Expiry is not validated here: the driver applies the strict-future check
// against its own clock.
func (c *JWTCodec) Unprotect(value string) (*ticket.Ticket, error) {
	parsed, err := jwt.Parse(value, c.signer.GetVerificationKey, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, errors.Wrap(err, "[JWTCodec Unprotect] failed to parse token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("[JWTCodec Unprotect] unexpected claims type")
	}

	usage, _ := claims[claimUsage].(string)
	if !strings.EqualFold(usage, c.usage) {
		return nil, errors.Errorf("[JWTCodec Unprotect] token usage %q does not match codec usage %q", usage, c.usage)
	}

	identity := ticket.NewIdentity("jwt")
	if sub, _ := claims["sub"].(string); sub != "" {
		identity.AddClaim(ticket.NewClaim(ticket.ClaimSubject, sub))
	}
	for name, value := range claims {
		if _, owned := registeredOrPrivate[name]; owned {
			continue
		}
		if s, isString := value.(string); isString {
			identity.AddClaim(ticket.NewClaim(name, s))
		}
	}

	t := ticket.New(ticket.NewPrincipal(identity))
	t.SetUsage(usage)

	if aud, present := claims["aud"]; present {
		switch v := aud.(type) {
		case string:
			if err := t.SetAudiences(v); err != nil {
				return nil, err
			}
		case []any:
			if err := t.SetAudiences(utils.ToStringSlice(v)...); err != nil {
				return nil, err
			}
		}
	}
	if scope, _ := claims[claimScope].(string); scope != "" {
		t.Properties[ticket.PropertyScopes] = scope
	}
	if resources, _ := claims[claimResources].(string); resources != "" {
		t.Properties[ticket.PropertyResources] = resources
	}
	if presenters, _ := claims[claimPresenters].(string); presenters != "" {
		t.Properties[ticket.PropertyPresenters] = presenters
	}
	if nonce, _ := claims[claimNonce].(string); nonce != "" {
		t.SetNonce(nonce)
	}
	if confidential, _ := claims[claimConfidential].(string); strings.EqualFold(confidential, "true") {
		t.SetConfidential()
	}
	if props, _ := claims[claimProperties].(map[string]any); props != nil {
		for k, v := range props {
			if s, isString := v.(string); isString {
				t.Properties[k] = s
			}
		}
	}

	if nbf, nbfErr := claims.GetNotBefore(); nbfErr == nil && nbf != nil {
		issued := nbf.Time.UTC()
		t.IssuedUTC = &issued
	}
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expires := exp.Time.UTC()
		t.ExpiresUTC = &expires
	}

	return t, nil
}

// hostProperties returns the ticket properties outside the reserved set.
func hostProperties(t *ticket.Ticket) map[string]string {
	props := make(map[string]string)
	for k, v := range t.Properties {
		if len(k) > 0 && k[0] == '.' {
			continue
		}
		props[k] = v
	}
	return props
}
