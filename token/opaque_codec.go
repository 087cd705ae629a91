package token

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/provenid/go-token-server/ticket"
	"golang.org/x/crypto/chacha20poly1305"
)

// OpaqueCodec serializes tickets into encrypted-and-authenticated opaque
// strings using XChaCha20-Poly1305 over a JSON wire form. Unlike the JWT
// codec it round-trips the complete ticket, actor chains included, which
// makes it the natural codec for authorization codes and refresh tokens.
type OpaqueCodec struct {
	usage    string
	aead     cipher.AEAD
	lifetime time.Duration
	nowTime  func() time.Time
}

// OpaqueCodecOption modifies an OpaqueCodec.
type OpaqueCodecOption func(*OpaqueCodec)

// WithOpaqueLifetime sets the default lifetime applied when a ticket reaches
// the codec without an expiry.
func WithOpaqueLifetime(d time.Duration) OpaqueCodecOption {
	return func(c *OpaqueCodec) { c.lifetime = d }
}

// WithOpaqueNowTime sets the now time function (primarily for testing).
func WithOpaqueNowTime(nowFunc func() time.Time) OpaqueCodecOption {
	return func(c *OpaqueCodec) { c.nowTime = nowFunc }
}

// NewOpaqueCodec creates a codec bound to a usage value sealing with the
// given 256-bit key.
func NewOpaqueCodec(usage string, key []byte, options ...OpaqueCodecOption) (*OpaqueCodec, error) {
	if usage == "" {
		return nil, errors.New("[NewOpaqueCodec] usage is required")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOpaqueCodec] invalid sealing key")
	}

	codec := &OpaqueCodec{
		usage:   usage,
		aead:    aead,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(codec)
	}
	return codec, nil
}

// Usage returns the usage value the codec is bound to.
func (c *OpaqueCodec) Usage() string { return c.usage }

// Wire form. The encoding is internal to the codec: output strings are opaque
// to every other component.

type wireClaim struct {
	Type       string            `json:"t"`
	Value      string            `json:"v"`
	Properties map[string]string `json:"p,omitempty"`
}

type wireIdentity struct {
	AuthenticationType string        `json:"at,omitempty"`
	Claims             []wireClaim   `json:"c,omitempty"`
	Actor              *wireIdentity `json:"a,omitempty"`
}

type wireTicket struct {
	Identities []wireIdentity    `json:"ids"`
	Properties map[string]string `json:"props,omitempty"`
	IssuedUTC  *time.Time        `json:"iss,omitempty"`
	ExpiresUTC *time.Time        `json:"exp,omitempty"`
}

func toWireIdentity(id *ticket.Identity) *wireIdentity {
	if id == nil {
		return nil
	}
	w := &wireIdentity{AuthenticationType: id.AuthenticationType}
	for _, c := range id.Claims {
		w.Claims = append(w.Claims, wireClaim{Type: c.Type, Value: c.Value, Properties: c.Properties})
	}
	w.Actor = toWireIdentity(id.Actor)
	return w
}

func fromWireIdentity(w *wireIdentity) *ticket.Identity {
	if w == nil {
		return nil
	}
	id := ticket.NewIdentity(w.AuthenticationType)
	for _, c := range w.Claims {
		id.AddClaim(ticket.Claim{Type: c.Type, Value: c.Value, Properties: c.Properties})
	}
	id.Actor = fromWireIdentity(w.Actor)
	return id
}

// Protect seals the ticket into an opaque base64url string.
func (c *OpaqueCodec) Protect(t *ticket.Ticket) (string, error) {
	if t == nil {
		return "", errors.New("[OpaqueCodec Protect] ticket is required")
	}
	if usage := t.GetUsage(); usage == "" {
		t.SetUsage(c.usage)
	} else if usage != c.usage {
		return "", errors.Errorf("[OpaqueCodec Protect] ticket usage %q does not match codec usage %q", usage, c.usage)
	}

	now := c.nowTime().UTC()
	if t.IssuedUTC == nil {
		t.IssuedUTC = &now
	}
	if t.ExpiresUTC == nil && c.lifetime > 0 {
		expires := now.Add(c.lifetime)
		t.ExpiresUTC = &expires
	}

	wire := wireTicket{
		Properties: t.Properties,
		IssuedUTC:  t.IssuedUTC,
		ExpiresUTC: t.ExpiresUTC,
	}
	if t.Principal != nil {
		for _, id := range t.Principal.Identities {
			wire.Identities = append(wire.Identities, *toWireIdentity(id))
		}
	}

	plaintext, err := json.Marshal(wire)
	if err != nil {
		return "", errors.Wrap(err, "[OpaqueCodec Protect] failed to encode ticket")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "[OpaqueCodec Protect] failed to generate nonce")
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unprotect opens an opaque string back into a ticket. A value sealed under
// a different key, tampered with, or carrying a different usage fails.
func (c *OpaqueCodec) Unprotect(value string) (*ticket.Ticket, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errors.Wrap(err, "[OpaqueCodec Unprotect] malformed value")
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("[OpaqueCodec Unprotect] value too short")
	}

	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[OpaqueCodec Unprotect] failed to open value")
	}

	var wire wireTicket
	if err := json.Unmarshal(plaintext, &wire); err != nil {
		return nil, errors.Wrap(err, "[OpaqueCodec Unprotect] failed to decode ticket")
	}

	identities := make([]*ticket.Identity, 0, len(wire.Identities))
	for i := range wire.Identities {
		identities = append(identities, fromWireIdentity(&wire.Identities[i]))
	}

	t := ticket.New(ticket.NewPrincipal(identities...))
	if wire.Properties != nil {
		t.Properties = wire.Properties
	}
	t.IssuedUTC = wire.IssuedUTC
	t.ExpiresUTC = wire.ExpiresUTC

	if !strings.EqualFold(t.GetUsage(), c.usage) {
		return nil, errors.Errorf("[OpaqueCodec Unprotect] ticket usage %q does not match codec usage %q", t.GetUsage(), c.usage)
	}
	return t, nil
}
