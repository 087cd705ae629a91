package server

import (
	"encoding/json"
	"net/http"

	"github.com/provenid/go-token-server/auth"
	"github.com/provenid/go-token-server/oauth2"
	"github.com/provenid/go-token-server/token"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.GetBaseURL()

		resp := map[string]any{
			"issuer":         baseURL,
			"token_endpoint": baseURL + RouteOAuth2Token,
			"jwks_uri":       baseURL + RouteWellKnownJWKS,

			"subject_types_supported": []string{"public"},

			// Signing algorithms
			"id_token_signing_alg_values_supported": []string{"RS256"},

			// Scopes
			"scopes_supported": []string{
				oauth2.OpenIDScope,        // Returns ID token
				"profile",                 // Returns name claims
				"email",                   // Returns email claim
				oauth2.OfflineAccessScope, // Returns refresh token
			},

			// Token endpoint auth methods
			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic", // Credentials in the Authorization header
				"client_secret_post",  // Credentials in POST body
				"none",                // For public clients
			},

			// Grant types
			"grant_types_supported": []string{
				string(oauth2.AuthorizationCodeGrant),
				string(oauth2.RefreshTokenGrant),
				string(oauth2.PasswordGrant),
				string(oauth2.ClientCredentialsGrant),
			},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks := &token.JWKS{Keys: []token.JWK{}}
		if s.signer != nil {
			keys, err := s.signer.GetJWKS()
			if err != nil {
				http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
				return
			}
			jwks = keys
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

// Token exchanges code/credentials for tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, err := s.endpoint.Handle(r.Context(), auth.FromHTTPRequest(r))
		if err != nil {
			// Request aborted: no response is written.
			log.Warn().Err(err).Msg("token request aborted")
			return
		}
		if response.HandledByProvider {
			return
		}

		params := response.Params.Params()
		if s.metrics != nil {
			if errorCode, failed := params[oauth2.ParamError]; failed {
				s.metrics.IncrementTokenFailures(errorCode)
			} else {
				s.metrics.IncrementTokensIssued(r.PostFormValue(oauth2.ParamGrantType))
			}
		}

		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "-1")
		w.WriteHeader(response.StatusCode)
		_ = json.NewEncoder(w).Encode(params)
	}
}
