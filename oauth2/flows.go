package oauth2

// Flow and grant classification predicates. All comparisons are
// case-sensitive ordinal: the protocol defines these values as case-sensitive
// string tokens, so "Code" is not the code flow.

// IsAuthorizationCodeFlow reports whether response_type is exactly "code".
func (m *Message) IsAuthorizationCodeFlow() bool {
	return m.ResponseType() == string(CodeResponseType)
}

// IsNoneFlow reports whether response_type is exactly "none".
func (m *Message) IsNoneFlow() bool {
	return m.ResponseType() == string(NoneResponseType)
}

// IsImplicitFlow reports whether the response_type set is exactly one of
// {id_token}, {token} or {id_token token}.
func (m *Message) IsImplicitFlow() bool {
	set := SplitList(m.ResponseType())
	switch len(set) {
	case 1:
		return containsOrdinal(set, string(IDTokenResponseType)) ||
			containsOrdinal(set, string(TokenResponseType))
	case 2:
		return containsOrdinal(set, string(IDTokenResponseType)) &&
			containsOrdinal(set, string(TokenResponseType))
	default:
		return false
	}
}

// IsHybridFlow reports whether the response_type set is exactly one of
// {code id_token}, {code token} or {code id_token token}.
func (m *Message) IsHybridFlow() bool {
	set := SplitList(m.ResponseType())
	if !containsOrdinal(set, string(CodeResponseType)) {
		return false
	}
	switch len(set) {
	case 2:
		return containsOrdinal(set, string(IDTokenResponseType)) ||
			containsOrdinal(set, string(TokenResponseType))
	case 3:
		return containsOrdinal(set, string(IDTokenResponseType)) &&
			containsOrdinal(set, string(TokenResponseType))
	default:
		return false
	}
}

// IsFragmentResponseMode reports whether the response parameters should be
// returned in the URI fragment. True when response_mode is exactly
// "fragment", or when response_mode is unset and the request uses the
// implicit or hybrid flow. An explicit non-fragment mode suppresses the
// inference.
func (m *Message) IsFragmentResponseMode() bool {
	mode := m.ResponseMode()
	if mode == string(FragmentResponseMode) {
		return true
	}
	if mode == "" {
		return m.IsImplicitFlow() || m.IsHybridFlow()
	}
	return false
}

// IsQueryResponseMode is the mirror rule for "query": explicit match, or the
// default when response_mode is unset and the flow is code or none.
func (m *Message) IsQueryResponseMode() bool {
	mode := m.ResponseMode()
	if mode == string(QueryResponseMode) {
		return true
	}
	if mode == "" {
		return m.IsAuthorizationCodeFlow() || m.IsNoneFlow()
	}
	return false
}

// IsFormPostResponseMode reports whether response_mode is exactly
// "form_post". Never inferred.
func (m *Message) IsFormPostResponseMode() bool {
	return m.ResponseMode() == string(FormPostResponseMode)
}

// IsAuthorizationCodeGrantType reports whether grant_type is exactly
// "authorization_code".
func (m *Message) IsAuthorizationCodeGrantType() bool {
	return m.GrantType() == string(AuthorizationCodeGrant)
}

// IsRefreshTokenGrantType reports whether grant_type is exactly "refresh_token".
func (m *Message) IsRefreshTokenGrantType() bool {
	return m.GrantType() == string(RefreshTokenGrant)
}

// IsPasswordGrantType reports whether grant_type is exactly "password".
func (m *Message) IsPasswordGrantType() bool {
	return m.GrantType() == string(PasswordGrant)
}

// IsClientCredentialsGrantType reports whether grant_type is exactly
// "client_credentials".
func (m *Message) IsClientCredentialsGrantType() bool {
	return m.GrantType() == string(ClientCredentialsGrant)
}
