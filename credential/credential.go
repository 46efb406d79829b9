// Package credential implements the identity assertion carried by a key
// package: a basic credential binding an identity to a public verification
// key, and a bundle pairing it with the matching signing key.
package credential

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
)

// Type is the credential type discriminant (2 bytes).
type Type uint16

const (
	Basic Type = 1
	X509  Type = 2
)

func (t Type) String() string {
	switch t {
	case Basic:
		return "basic"
	case X509:
		return "x509"
	default:
		return fmt.Sprintf("credential_type(%d)", uint16(t))
	}
}

var ErrUnsupportedType = errors.New("credential: unsupported credential type")

// Credential is a basic credential.
type Credential struct {
	Identity        []byte
	SignatureScheme ciphersuite.SignatureScheme
	PublicKey       []byte
}

func (c *Credential) Type() Type { return Basic }

// Verify checks sig over payload with the credential's public key.
func (c *Credential) Verify(payload, sig []byte) error {
	return c.SignatureScheme.Verify(c.PublicKey, payload, sig)
}

func (c *Credential) Equal(o *Credential) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.SignatureScheme == o.SignatureScheme &&
		bytes.Equal(c.Identity, o.Identity) &&
		bytes.Equal(c.PublicKey, o.PublicKey)
}

// Encode writes credential_type, identity<u16>, signature_scheme, public_key<u16>.
func (c *Credential) Encode(w *codec.Writer) {
	w.Uint16(uint16(Basic))
	w.Opaque16(c.Identity)
	c.SignatureScheme.Encode(w)
	w.Opaque16(c.PublicKey)
}

func Decode(r *codec.Reader) (*Credential, error) {
	t, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	if Type(t) != Basic {
		return nil, codec.Malformed("KP-CODEC-301", fmt.Sprintf("unsupported credential type %d", t))
	}
	id, err := r.ReadOpaque16()
	if err != nil {
		return nil, err
	}
	scheme, err := ciphersuite.DecodeSignatureScheme(r)
	if err != nil {
		return nil, err
	}
	pub, err := r.ReadOpaque16()
	if err != nil {
		return nil, err
	}
	return &Credential{Identity: id, SignatureScheme: scheme, PublicKey: pub}, nil
}

// Bundle pairs a credential with its private signing key.
type Bundle struct {
	credential *Credential
	signingKey []byte
}

// NewBundle generates a signing keypair for scheme and wraps it in a basic
// credential for identity.
func NewBundle(identity []byte, ctype Type, scheme ciphersuite.SignatureScheme) (*Bundle, error) {
	return NewBundleWithRand(identity, ctype, scheme, rand.Reader)
}

// NewBundleWithRand is NewBundle with an explicit randomness source.
func NewBundleWithRand(identity []byte, ctype Type, scheme ciphersuite.SignatureScheme, rand io.Reader) (*Bundle, error) {
	if ctype != Basic {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ctype)
	}
	pub, priv, err := scheme.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("credential: generate %s key: %w", scheme, err)
	}
	return &Bundle{
		credential: &Credential{Identity: bytes.Clone(identity), SignatureScheme: scheme, PublicKey: pub},
		signingKey: priv,
	}, nil
}

func (b *Bundle) Credential() *Credential { return b.credential }

func (b *Bundle) SignatureScheme() ciphersuite.SignatureScheme {
	return b.credential.SignatureScheme
}

// Sign signs payload with the bundle's private key.
func (b *Bundle) Sign(payload []byte) ([]byte, error) {
	return b.credential.SignatureScheme.Sign(b.signingKey, payload)
}
