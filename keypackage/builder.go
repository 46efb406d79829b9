package keypackage

import (
	"bytes"
	"fmt"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
	"xdao.co/keypackage/credential"
	"xdao.co/keypackage/extensions"
)

// Builder holds the fields of a key package that has not been signed yet.
// It is the only place a key package's contents can change.
type Builder struct {
	version     ciphersuite.ProtocolVersion
	suite       *ciphersuite.Ciphersuite
	hpkeInitKey []byte
	credential  *credential.Credential
	extensions  []extensions.Extension
}

// NewBuilder starts an MLS10 key package. exts are kept as given, including
// any duplicates; Sign rejects those.
func NewBuilder(cs *ciphersuite.Ciphersuite, hpkeInitKey []byte, cred *credential.Credential, exts []extensions.Extension) *Builder {
	return &Builder{
		version:     ciphersuite.MLS10,
		suite:       cs,
		hpkeInitKey: bytes.Clone(hpkeInitKey),
		credential:  cred,
		extensions:  append([]extensions.Extension(nil), exts...),
	}
}

// AddExtension inserts e, replacing an existing extension of the same type in
// place.
func (b *Builder) AddExtension(e extensions.Extension) *Builder {
	b.extensions = extensions.Replace(b.extensions, e)
	return b
}

func (b *Builder) Extensions() []extensions.Extension {
	return append([]extensions.Extension(nil), b.extensions...)
}

func (b *Builder) UnsignedPayload() ([]byte, error) {
	w := codec.NewWriter()
	encodeUnsigned(w, b.version, b.suite.Name(), b.hpkeInitKey, b.credential, b.extensions)
	return w.Bytes()
}

// Sign signs the current contents with cb and returns the resulting key
// package. The builder is left untouched and may be signed again.
func (b *Builder) Sign(cb *credential.Bundle) (*KeyPackage, error) {
	if want := b.suite.SignatureScheme(); cb.SignatureScheme() != want {
		return nil, fmt.Errorf("%w: credential uses %s, %s requires %s",
			ErrCiphersuiteSignatureSchemeMismatch, cb.SignatureScheme(), b.suite.Name(), want)
	}
	if t, dup := extensions.FindDuplicate(b.extensions); dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, t)
	}
	payload, err := b.UnsignedPayload()
	if err != nil {
		return nil, err
	}
	sig, err := cb.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("keypackage: sign: %w", err)
	}
	return &KeyPackage{
		version:     b.version,
		suiteName:   b.suite.Name(),
		suite:       b.suite,
		hpkeInitKey: bytes.Clone(b.hpkeInitKey),
		credential:  b.credential,
		extensions:  b.Extensions(),
		signature:   sig,
	}, nil
}
