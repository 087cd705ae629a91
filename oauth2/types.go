package oauth2

// ResponseType represents the OAuth 2.0 response type.
// At the authorization endpoint it determines what is returned to the client;
// at the token endpoint (when enabled) it acts as a selector for which token
// kinds appear in the response.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Returns an authorization code that must be exchanged for tokens at the token endpoint.
	// Example: /oauth/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"

	// NoneResponseType indicates that no credential is returned.
	// Used when the client only wants to establish an authenticated session.
	NoneResponseType ResponseType = "none"

	// TokenResponseType requests an access token directly (implicit flow component).
	TokenResponseType ResponseType = "token"

	// IDTokenResponseType requests an OpenID Connect ID token directly (implicit flow component).
	IDTokenResponseType ResponseType = "id_token"

	// RefreshTokenResponseType is the token-endpoint selector value for refresh tokens.
	// Non-standard: only honoured when response-type selection is enabled.
	RefreshTokenResponseType ResponseType = "refresh_token"
)

// ResponseModeType denotes how the authorization response parameters are returned to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Default for the code and none flows.
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment (after #).
	// Default for the implicit and hybrid flows.
	FragmentResponseMode ResponseModeType = "fragment"

	// FormPostResponseMode returns parameters via an auto-submitting HTML form POST.
	FormPostResponseMode ResponseModeType = "form_post"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, redirect_uri (when bound at issuance).
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, and client credentials for
	// tokens issued to confidential clients.
	RefreshTokenGrant GrantType = "refresh_token"

	// PasswordGrant exchanges resource owner credentials for tokens.
	// Token request includes: username, password.
	PasswordGrant GrantType = "password"

	// ClientCredentialsGrant allows machine-to-machine authentication.
	// Token request includes: client_id, client_secret, scope.
	// Client authentication is mandatory for this grant.
	ClientCredentialsGrant GrantType = "client_credentials"
)

// Well-known scope values with protocol-level meaning at the token endpoint.
const (
	// OpenIDScope requests an OpenID Connect ID token.
	OpenIDScope = "openid"

	// OfflineAccessScope requests a refresh token.
	OfflineAccessScope = "offline_access"
)

// BearerTokenType is the token_type value for all access tokens issued here.
const BearerTokenType = "Bearer"

// Well-known OAuth2 / OpenID Connect parameter names.
const (
	ParamGrantType        = "grant_type"
	ParamResponseType     = "response_type"
	ParamResponseMode     = "response_mode"
	ParamScope            = "scope"
	ParamResource         = "resource"
	ParamCode             = "code"
	ParamRefreshToken     = "refresh_token"
	ParamRedirectURI      = "redirect_uri"
	ParamUsername         = "username"
	ParamPassword         = "password"
	ParamClientID         = "client_id"
	ParamClientSecret     = "client_secret"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
	ParamErrorURI         = "error_uri"
	ParamAccessToken      = "access_token"
	ParamIDToken          = "id_token"
	ParamTokenType        = "token_type"
	ParamExpiresIn        = "expires_in"
	ParamNonce            = "nonce"
	ParamState            = "state"
)
