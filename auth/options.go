package auth

import (
	"time"

	"github.com/pkg/errors"
	"github.com/provenid/go-token-server/events"
	"github.com/provenid/go-token-server/token"
)

// Default token lifetimes applied when Options leaves them zero.
const (
	DefaultAccessTokenLifetime   = 1 * time.Hour
	DefaultIdentityTokenLifetime = 1 * time.Hour
	DefaultRefreshTokenLifetime  = 7 * 24 * time.Hour
)

// Options configures a TokenEndpoint. Configuration is read-only for the
// duration of a request; replacing it requires externally coordinated
// replacement of the endpoint.
type Options struct {
	// Issuer is the issuer URI stamped into outbound tokens.
	Issuer string

	// Token lifetimes applied when a granted ticket carries no expiry.
	AccessTokenLifetime   time.Duration
	IdentityTokenLifetime time.Duration
	RefreshTokenLifetime  time.Duration

	// UseSlidingExpiration allows a refreshed token to receive a fresh
	// lifetime window. When disabled, tokens minted from a refresh-token
	// grant never outlive the refresh token they came from.
	UseSlidingExpiration bool

	// EnableResponseTypeSelection honours the response_type request
	// parameter as a selector for which token kinds appear in the response.
	// Non-standard; off by default, in which case the selector behaves as if
	// response_type were absent.
	EnableResponseTypeSelection bool

	// Codecs for the four serialized ticket kinds.
	AccessTokenCodec       token.Codec
	IdentityTokenCodec     token.Codec
	RefreshTokenCodec      token.Codec
	AuthorizationCodeCodec token.Codec

	// Provider supplies the host's extension handlers.
	Provider events.Provider
}

// TokenEndpointOption modifies a TokenEndpoint instance.
type TokenEndpointOption func(*TokenEndpoint)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) TokenEndpointOption {
	return func(e *TokenEndpoint) {
		e.nowTime = nowFunc
	}
}

// NewTokenEndpoint initializes the token endpoint driver with required
// dependencies. Optional configuration can be provided via options (e.g.
// WithNowTime for testing).
func NewTokenEndpoint(options Options, opts ...TokenEndpointOption) (*TokenEndpoint, error) {
	if options.Provider == nil {
		return nil, errors.New("[NewTokenEndpoint] Provider is required")
	}
	if options.AccessTokenCodec == nil {
		return nil, errors.New("[NewTokenEndpoint] AccessTokenCodec is required")
	}
	if options.IdentityTokenCodec == nil {
		return nil, errors.New("[NewTokenEndpoint] IdentityTokenCodec is required")
	}
	if options.RefreshTokenCodec == nil {
		return nil, errors.New("[NewTokenEndpoint] RefreshTokenCodec is required")
	}
	if options.AuthorizationCodeCodec == nil {
		return nil, errors.New("[NewTokenEndpoint] AuthorizationCodeCodec is required")
	}

	if options.AccessTokenLifetime == 0 {
		options.AccessTokenLifetime = DefaultAccessTokenLifetime
	}
	if options.IdentityTokenLifetime == 0 {
		options.IdentityTokenLifetime = DefaultIdentityTokenLifetime
	}
	if options.RefreshTokenLifetime == 0 {
		options.RefreshTokenLifetime = DefaultRefreshTokenLifetime
	}

	endpoint := &TokenEndpoint{
		options: options,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(endpoint)
	}
	return endpoint, nil
}
