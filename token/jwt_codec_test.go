package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/provenid/go-token-server/ticket"
	"github.com/provenid/go-token-server/token"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://op.example"
	testSecret = "0123456789abcdef0123456789abcdef"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return testNow }

func newAccessCodec(t *testing.T, options ...token.JWTCodecOption) *token.JWTCodec {
	t.Helper()
	options = append([]token.JWTCodecOption{token.WithJWTNowTime(nowFunc)}, options...)
	codec, err := token.NewJWTCodec(ticket.UsageAccessToken, testIssuer, token.NewHMACSigner(testSecret), options...)
	require.NoError(t, err)
	return codec
}

func accessTicket(t *testing.T) *ticket.Ticket {
	t.Helper()
	identity := ticket.NewIdentity("test",
		ticket.NewClaim(ticket.ClaimSubject, "user-1"),
		ticket.NewClaim(ticket.ClaimName, "John Doe"))
	tk := ticket.New(ticket.NewPrincipal(identity))
	require.NoError(t, tk.SetScopes("openid", "profile"))
	require.NoError(t, tk.SetAudiences("api-1"))
	require.NoError(t, tk.SetPresenters("client-1"))
	return tk
}

func TestJWTProtectUnprotectRoundTrip(t *testing.T) {
	codec := newAccessCodec(t, token.WithJWTLifetime(time.Hour))
	tk := accessTicket(t)
	tk.Properties["tenant"] = "tenant-1"

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	// Protect stamps the missing timestamps from the codec clock.
	require.Equal(t, testNow, *tk.IssuedUTC)
	require.Equal(t, testNow.Add(time.Hour), *tk.ExpiresUTC)

	parsed, err := codec.Unprotect(value)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Principal.Subject())
	require.Equal(t, []string{"openid", "profile"}, parsed.GetScopes())
	require.Equal(t, []string{"api-1"}, parsed.GetAudiences())
	require.Equal(t, []string{"client-1"}, parsed.GetPresenters())
	require.Equal(t, "tenant-1", parsed.Properties["tenant"])
	require.True(t, parsed.IsAccessToken())
	require.Equal(t, testNow.Unix(), parsed.IssuedUTC.Unix())
	require.Equal(t, testNow.Add(time.Hour).Unix(), parsed.ExpiresUTC.Unix())
}

func TestJWTAudienceSingleValueIsAString(t *testing.T) {
	codec := newAccessCodec(t)
	tk := accessTicket(t)

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	claims := parseClaims(t, value)
	require.Equal(t, "api-1", claims["aud"])
}

func TestJWTAudienceMultipleValuesAreAnArray(t *testing.T) {
	codec := newAccessCodec(t)
	tk := accessTicket(t)
	require.NoError(t, tk.SetAudiences("api-1", "api-2"))

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	claims := parseClaims(t, value)
	require.Equal(t, []any{"api-1", "api-2"}, claims["aud"])
}

func TestJWTRegisteredClaims(t *testing.T) {
	expires := testNow.Add(30 * time.Minute)
	codec := newAccessCodec(t, token.WithJWTIssuedAt())
	tk := accessTicket(t)
	tk.ExpiresUTC = &expires

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	claims := parseClaims(t, value)
	require.Equal(t, testIssuer, claims["iss"])
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, float64(testNow.Unix()), claims["nbf"])
	require.Equal(t, float64(expires.Unix()), claims["exp"])
	require.Equal(t, float64(testNow.Unix()), claims["iat"])
	require.NotEmpty(t, claims["jti"])
}

func TestJWTDestinationRestrictedClaims(t *testing.T) {
	identity := ticket.NewIdentity("test",
		ticket.NewClaim(ticket.ClaimSubject, "user-1"),
		ticket.NewClaim(ticket.ClaimEmail, "john@example.com").
			WithProperty(ticket.ClaimPropertyDestination, ticket.UsageIDToken),
		ticket.NewClaim("role", "admin"))
	tk := ticket.New(ticket.NewPrincipal(identity))

	codec := newAccessCodec(t)
	value, err := codec.Protect(tk)
	require.NoError(t, err)

	claims := parseClaims(t, value)
	// The email claim is restricted to identity tokens and must not leak
	// into an access token; the unrestricted role claim travels everywhere.
	_, hasEmail := claims[ticket.ClaimEmail]
	require.False(t, hasEmail)
	require.Equal(t, "admin", claims["role"])
}

func TestJWTUsageMismatchOnProtect(t *testing.T) {
	codec := newAccessCodec(t)
	tk := accessTicket(t)
	tk.SetUsage(ticket.UsageRefreshToken)

	_, err := codec.Protect(tk)
	require.Error(t, err)
}

func TestJWTUsageMismatchOnUnprotect(t *testing.T) {
	signer := token.NewHMACSigner(testSecret)
	refreshCodec, err := token.NewJWTCodec(ticket.UsageRefreshToken, testIssuer, signer, token.WithJWTNowTime(nowFunc))
	require.NoError(t, err)

	value, err := refreshCodec.Protect(accessTicket(t))
	require.NoError(t, err)

	accessCodec := newAccessCodec(t)
	parsed, err := accessCodec.Unprotect(value)
	require.Error(t, err)
	require.Nil(t, parsed)
}

func TestJWTUnprotectRejectsTamperedToken(t *testing.T) {
	codec := newAccessCodec(t)
	value, err := codec.Protect(accessTicket(t))
	require.NoError(t, err)

	otherCodec, err := token.NewJWTCodec(ticket.UsageAccessToken, testIssuer, token.NewHMACSigner("another-secret-another-secret-12"))
	require.NoError(t, err)

	parsed, err := otherCodec.Unprotect(value)
	require.Error(t, err)
	require.Nil(t, parsed)
}

func TestJWTKeyPairSignerSetsKidAndAlg(t *testing.T) {
	keyPair, err := token.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)
	signer := token.NewKeyPairSigner(keyPair)

	codec, err := token.NewJWTCodec(ticket.UsageAccessToken, testIssuer, signer, token.WithJWTNowTime(nowFunc))
	require.NoError(t, err)

	value, err := codec.Protect(accessTicket(t))
	require.NoError(t, err)

	parsed, _, err := jwtlib.NewParser().ParseUnverified(value, jwtlib.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, "RS256", parsed.Header["alg"])
	require.Equal(t, "kid-1", parsed.Header["kid"])

	// The signed token round-trips through the same codec.
	roundTripped, err := codec.Unprotect(value)
	require.NoError(t, err)
	require.Equal(t, "user-1", roundTripped.Principal.Subject())
}

func parseClaims(t *testing.T, value string) jwtlib.MapClaims {
	t.Helper()
	claims := jwtlib.MapClaims{}
	_, _, err := jwtlib.NewParser().ParseUnverified(value, claims)
	require.NoError(t, err)
	return claims
}
