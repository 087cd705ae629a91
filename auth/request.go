package auth

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/provenid/go-token-server/oauth2"
)

// Request is the minimal view of an HTTP request the token endpoint consumes,
// keeping the driver independent of the HTTP framework hosting it.
type Request struct {
	// Method is the HTTP request method.
	Method string

	// ContentType is the Content-Type header value, empty when absent.
	ContentType string

	// Authorization is the Authorization header value, empty when absent.
	Authorization string

	// Form holds the decoded request body parameters.
	Form url.Values
}

// FromHTTPRequest adapts a net/http request. The form body is parsed here so
// the driver never touches the body reader.
func FromHTTPRequest(r *http.Request) *Request {
	req := &Request{
		Method:        r.Method,
		ContentType:   r.Header.Get("Content-Type"),
		Authorization: r.Header.Get("Authorization"),
	}
	if err := r.ParseForm(); err == nil {
		req.Form = r.PostForm
	}
	return req
}

// Response is the driver's reply: a status code and the parameter bag to
// serialize as the JSON body. When HandledByProvider is set the host wrote
// the response itself and the caller must emit nothing.
type Response struct {
	StatusCode        int
	Params            *oauth2.Message
	HandledByProvider bool
}

// resolveClientCredentials populates client_id/client_secret from the HTTP
// Basic Authorization header when neither arrived in the body. A malformed
// header (bad base64, missing colon) is non-fatal: the request proceeds with
// the credentials unset and client authentication decides its fate.
func resolveClientCredentials(msg *oauth2.Message, authorization string) {
	if msg.Has(oauth2.ParamClientID) || msg.Has(oauth2.ParamClientSecret) {
		return
	}

	const prefix = "Basic "
	if !strings.HasPrefix(authorization, prefix) {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authorization[len(prefix):]))
	if err != nil {
		return
	}
	clientID, clientSecret, found := strings.Cut(string(decoded), ":")
	if !found {
		return
	}

	msg.SetClientID(clientID)
	msg.SetClientSecret(clientSecret)
}

// isFormContentType reports whether the Content-Type header denotes a URL
// encoded form body. The comparison is case-insensitive and tolerates media
// type parameters after a semicolon (e.g. "; charset=utf-8").
func isFormContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded")
}
