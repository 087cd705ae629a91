package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultIDTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetUseSlidingExpiration() bool
	GetEnableResponseTypeSelection() bool
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 15 * time.Minute
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultIDTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (OAuth) GetUseSlidingExpiration() bool {
	return GetEnv("USE_SLIDING_EXPIRATION", "true") != "false"
}

// GetEnableResponseTypeSelection controls the non-standard use of the
// response_type parameter as a token-kind selector at the token endpoint.
func (OAuth) GetEnableResponseTypeSelection() bool {
	return GetEnv("ENABLE_RESPONSE_TYPE_SELECTION", "false") == "true"
}
