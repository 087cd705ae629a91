package server

// OAuth2 / OIDC API routes
const (
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteOAuth2Token           = "/oauth2/token"
	RouteMetrics               = "/metrics"
)
