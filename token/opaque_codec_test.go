package token_test

import (
	"testing"
	"time"

	"github.com/provenid/go-token-server/ticket"
	"github.com/provenid/go-token-server/token"
	"github.com/stretchr/testify/require"
)

var sealingKey = []byte("0123456789abcdef0123456789abcdef")

func newCodeCodec(t *testing.T, options ...token.OpaqueCodecOption) *token.OpaqueCodec {
	t.Helper()
	options = append([]token.OpaqueCodecOption{token.WithOpaqueNowTime(nowFunc)}, options...)
	codec, err := token.NewOpaqueCodec(ticket.UsageAuthorizationCode, sealingKey, options...)
	require.NoError(t, err)
	return codec
}

func TestOpaqueRoundTrip(t *testing.T) {
	codec := newCodeCodec(t, token.WithOpaqueLifetime(15*time.Minute))

	identity := ticket.NewIdentity("password",
		ticket.NewClaim(ticket.ClaimSubject, "user-1"),
		ticket.NewClaim(ticket.ClaimEmail, "john@example.com").
			WithProperty(ticket.ClaimPropertyDestination, ticket.UsageIDToken))
	tk := ticket.New(ticket.NewPrincipal(identity))
	require.NoError(t, tk.SetScopes("openid", "profile"))
	require.NoError(t, tk.SetPresenters("client-1"))
	require.NoError(t, tk.SetResources("api-1"))
	tk.SetRedirectURI("https://app/cb")
	tk.SetNonce("n-1")
	tk.SetConfidential()

	value, err := codec.Protect(tk)
	require.NoError(t, err)
	require.Equal(t, testNow.Add(15*time.Minute), *tk.ExpiresUTC)

	parsed, err := codec.Unprotect(value)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Principal.Subject())
	require.Equal(t, []string{"openid", "profile"}, parsed.GetScopes())
	require.Equal(t, []string{"client-1"}, parsed.GetPresenters())
	require.Equal(t, []string{"api-1"}, parsed.GetResources())
	require.Equal(t, "https://app/cb", parsed.GetRedirectURI())
	require.Equal(t, "n-1", parsed.GetNonce())
	require.True(t, parsed.IsConfidential())
	require.True(t, parsed.IsAuthorizationCode())
	require.Equal(t, testNow, parsed.IssuedUTC.UTC())

	// Claim properties survive, including the destination restriction.
	email := parsed.Principal.Primary().Claims[1]
	require.True(t, email.HasDestination(ticket.UsageIDToken))
}

func TestOpaqueRoundTripPreservesActorChain(t *testing.T) {
	codec := newCodeCodec(t)

	actor := ticket.NewIdentity("service", ticket.NewClaim(ticket.ClaimSubject, "service-1"))
	identity := ticket.NewIdentity("password", ticket.NewClaim(ticket.ClaimSubject, "user-1"))
	identity.Actor = actor
	tk := ticket.New(ticket.NewPrincipal(identity))

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	parsed, err := codec.Unprotect(value)
	require.NoError(t, err)
	require.NotNil(t, parsed.Principal.Primary().Actor)
	require.Equal(t, "service-1", parsed.Principal.Primary().Actor.Subject())
}

func TestOpaqueValuesAreNonDeterministic(t *testing.T) {
	codec := newCodeCodec(t)
	tk := ticket.New(ticket.NewPrincipal(ticket.NewIdentity("test", ticket.NewClaim(ticket.ClaimSubject, "user-1"))))

	first, err := codec.Protect(tk.Copy())
	require.NoError(t, err)
	second, err := codec.Protect(tk.Copy())
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestOpaqueUnprotectRejectsTamperedValue(t *testing.T) {
	codec := newCodeCodec(t)
	tk := ticket.New(ticket.NewPrincipal(ticket.NewIdentity("test", ticket.NewClaim(ticket.ClaimSubject, "user-1"))))

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	tampered := []byte(value)
	tampered[len(tampered)-1] ^= 'x'
	parsed, err := codec.Unprotect(string(tampered))
	require.Error(t, err)
	require.Nil(t, parsed)
}

func TestOpaqueUnprotectRejectsWrongKey(t *testing.T) {
	codec := newCodeCodec(t)
	tk := ticket.New(ticket.NewPrincipal(ticket.NewIdentity("test", ticket.NewClaim(ticket.ClaimSubject, "user-1"))))

	value, err := codec.Protect(tk)
	require.NoError(t, err)

	otherCodec, err := token.NewOpaqueCodec(ticket.UsageAuthorizationCode, []byte("another-key-another-key-32-bytes"))
	require.NoError(t, err)

	parsed, err := otherCodec.Unprotect(value)
	require.Error(t, err)
	require.Nil(t, parsed)
}

func TestOpaqueUsageMismatch(t *testing.T) {
	codeCodec := newCodeCodec(t)
	refreshCodec, err := token.NewOpaqueCodec(ticket.UsageRefreshToken, sealingKey)
	require.NoError(t, err)

	tk := ticket.New(ticket.NewPrincipal(ticket.NewIdentity("test", ticket.NewClaim(ticket.ClaimSubject, "user-1"))))
	value, err := codeCodec.Protect(tk)
	require.NoError(t, err)

	parsed, err := refreshCodec.Unprotect(value)
	require.Error(t, err)
	require.Nil(t, parsed)
}

func TestOpaqueRejectsShortKey(t *testing.T) {
	_, err := token.NewOpaqueCodec(ticket.UsageAuthorizationCode, []byte("short"))
	require.Error(t, err)
}

func TestOpaqueUnprotectRejectsGarbage(t *testing.T) {
	codec := newCodeCodec(t)

	for _, value := range []string{"", "!!!", "c2hvcnQ"} {
		parsed, err := codec.Unprotect(value)
		require.Error(t, err, "value %q", value)
		require.Nil(t, parsed)
	}
}
