package keypackage

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/credential"
	"xdao.co/keypackage/extensions"
)

// Bundle pairs a signed key package with the private half of its HPKE init
// key. The private key is never part of the key package encoding.
type Bundle struct {
	keyPackage *KeyPackage
	privateKey []byte
}

// NewBundle generates a key package for the first candidate suite whose
// signature scheme matches cb, signed by cb. Candidates missing from reg are
// skipped.
//
// Construction is all-or-nothing: on error no bundle is returned and any
// generated key material is wiped.
func NewBundle(reg *ciphersuite.Registry, candidates []ciphersuite.Name, cb *credential.Bundle, exts []extensions.Extension) (*Bundle, error) {
	return NewBundleWithRand(reg, candidates, cb, exts, rand.Reader)
}

// NewBundleWithRand is NewBundle with an explicit randomness source for the
// init keypair.
func NewBundleWithRand(reg *ciphersuite.Registry, candidates []ciphersuite.Name, cb *credential.Bundle, exts []extensions.Extension, rand io.Reader) (*Bundle, error) {
	if t, dup := extensions.FindDuplicate(exts); dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, t)
	}
	cs, err := selectCiphersuite(reg, candidates, cb.SignatureScheme())
	if err != nil {
		return nil, err
	}

	pub, priv, err := cs.GenerateHPKEKeyPair(rand)
	if err != nil {
		return nil, fmt.Errorf("keypackage: generate init key: %w", err)
	}
	kp, err := NewBuilder(cs, pub, cb.Credential(), exts).Sign(cb)
	if err != nil {
		wipe(priv)
		return nil, err
	}
	return &Bundle{keyPackage: kp, privateKey: priv}, nil
}

func selectCiphersuite(reg *ciphersuite.Registry, candidates []ciphersuite.Name, scheme ciphersuite.SignatureScheme) (*ciphersuite.Ciphersuite, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCiphersuite
	}
	for _, name := range candidates {
		cs, err := reg.Lookup(name)
		if err != nil {
			continue
		}
		if cs.SignatureScheme() == scheme {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("%w: no candidate uses %s", ErrCiphersuiteSignatureSchemeMismatch, scheme)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (b *Bundle) KeyPackage() *KeyPackage { return b.keyPackage }

// PrivateKey returns a copy of the private HPKE init key.
func (b *Bundle) PrivateKey() []byte { return bytes.Clone(b.privateKey) }

// Update applies fn to a builder seeded with the current key package and
// re-signs it with cb. The bundle is only changed if both steps succeed.
func (b *Bundle) Update(cb *credential.Bundle, fn func(*Builder) error) error {
	builder := b.keyPackage.Builder()
	if err := fn(builder); err != nil {
		return err
	}
	kp, err := builder.Sign(cb)
	if err != nil {
		return err
	}
	b.keyPackage = kp
	return nil
}
