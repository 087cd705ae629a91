package oauth2_test

import (
	"net/url"
	"testing"

	"github.com/provenid/go-token-server/oauth2"
	"github.com/stretchr/testify/require"
)

func TestMessageCaseInsensitiveParameterNames(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("Grant_Type", "authorization_code")

	require.Equal(t, "authorization_code", m.Get("grant_type"))
	require.Equal(t, "authorization_code", m.Get("GRANT_TYPE"))
	require.Equal(t, "authorization_code", m.GrantType())
}

func TestMessageValuesAreCaseSensitive(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("grant_type", "Authorization_Code")

	require.False(t, m.IsAuthorizationCodeGrantType())
}

func TestMessagePreservesUnknownParameters(t *testing.T) {
	m := oauth2.MessageFromValues(url.Values{
		"grant_type":   {"password"},
		"x-custom-ext": {"value-1"},
	})

	require.Equal(t, "value-1", m.Get("x-custom-ext"))
}

func TestMessageFromValuesKeepsFirstValueOnly(t *testing.T) {
	m := oauth2.MessageFromValues(url.Values{
		"scope": {"openid profile", "email"},
	})

	require.Equal(t, "openid profile", m.Scope())
}

func TestMessageSetEmptyRemoves(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("scope", "openid")
	m.Set("scope", "")

	require.False(t, m.Has("scope"))
	require.Empty(t, m.GetScopes())
}

func TestGetScopesSplitsOnSingleSpace(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("scope", " openid  profile email ")

	require.Equal(t, []string{"openid", "profile", "email"}, m.GetScopes())
}

func TestHasScopeOrdinalMembership(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("scope", "openid profile")

	require.True(t, m.HasScope("openid"))
	require.False(t, m.HasScope("OpenID"))
	require.False(t, m.HasScope("email"))
}

func TestGetResources(t *testing.T) {
	m := oauth2.NewMessage()
	require.Empty(t, m.GetResources())

	m.Set("resource", "api-1 api-2")
	require.Equal(t, []string{"api-1", "api-2"}, m.GetResources())
}

func TestJoinListDedupesByOrdinalEquality(t *testing.T) {
	require.Equal(t, "openid profile", oauth2.JoinList([]string{"openid", "profile", "openid"}))
	require.Equal(t, "openid OpenID", oauth2.JoinList([]string{"openid", "OpenID"}))
}

func TestSplitJoinRoundTrip(t *testing.T) {
	// SetScopes(GetScopes(s).dedup) == GetScopes(s).dedup for arbitrary input
	inputs := []string{
		"openid",
		"openid profile",
		"openid openid profile",
		"  a  b a  ",
		"",
	}
	for _, input := range inputs {
		deduped := oauth2.DedupeList(oauth2.SplitList(input))
		rejoined := oauth2.JoinList(deduped)
		require.Equal(t, deduped, oauth2.SplitList(rejoined), "input %q", input)
	}
}

func TestContainsAll(t *testing.T) {
	set := []string{"openid", "profile", "email"}

	require.True(t, oauth2.ContainsAll(set, nil))
	require.True(t, oauth2.ContainsAll(set, []string{"openid", "email"}))
	require.False(t, oauth2.ContainsAll(set, []string{"openid", "address"}))
	require.False(t, oauth2.ContainsAll(set, []string{"OPENID"}))
}

func TestMessageCopyIsIndependent(t *testing.T) {
	m := oauth2.NewMessage()
	m.Set("scope", "openid")

	cp := m.Copy()
	cp.Set("scope", "email")

	require.Equal(t, "openid", m.Scope())
	require.Equal(t, "email", cp.Scope())
}

func TestErrorStatusCodes(t *testing.T) {
	require.Equal(t, 401, oauth2.NewError(oauth2.ErrorInvalidClient, "").StatusCode())
	require.Equal(t, 500, oauth2.NewError(oauth2.ErrorServerError, "").StatusCode())
	require.Equal(t, 400, oauth2.NewError(oauth2.ErrorInvalidGrant, "").StatusCode())
	require.Equal(t, 400, oauth2.NewError(oauth2.ErrorInvalidRequest, "").StatusCode())
}
