// Package token serializes authentication tickets to and from their wire
// forms: signed JWTs or opaque sealed strings. The authorization code and the
// three token kinds are four instances of the same Codec capability, each
// bound to a usage value that must match on the reverse path.
package token

import "github.com/provenid/go-token-server/ticket"

// Codec serializes a ticket to a string and back. Implementations are bound
// to a usage value (authorization code, access token, identity token or
// refresh token); Unprotect fails when the serialized usage does not match.
type Codec interface {
	// Usage returns the usage value this codec is bound to.
	Usage() string

	// Protect serializes the ticket. Missing issued/expires timestamps are
	// filled in from the codec's clock and configured lifetime before
	// serialization, mutating the passed ticket.
	Protect(t *ticket.Ticket) (string, error)

	// Unprotect reverses Protect. A ticket whose usage does not match the
	// codec's returns a nil ticket and an error.
	Unprotect(value string) (*ticket.Ticket, error)
}
