// Package keypackage implements the signed pre-key record that lets a party be
// added to a group without being online, and the bundle that owns its private
// init key.
//
// A KeyPackage is immutable once signed. To change one, copy it into a Builder,
// modify the builder and sign again; a signed KeyPackage therefore never
// carries a signature over stale contents.
//
// Wire layout, in order:
//
//	protocol_version  uint8
//	cipher_suite      uint16
//	hpke_init_key     opaque<0..2^16-1>
//	credential        Credential
//	extensions        Extension<0..2^16-1>
//	signature         opaque<0..2^16-1>
package keypackage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"xdao.co/keypackage/cidutil"
	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
	"xdao.co/keypackage/credential"
	"xdao.co/keypackage/extensions"
)

// KeyPackage is a signed key package, produced by Builder.Sign or by decoding.
type KeyPackage struct {
	version     ciphersuite.ProtocolVersion
	suiteName   ciphersuite.Name
	suite       *ciphersuite.Ciphersuite
	hpkeInitKey []byte
	credential  *credential.Credential
	extensions  []extensions.Extension
	signature   []byte
}

func (kp *KeyPackage) ProtocolVersion() ciphersuite.ProtocolVersion { return kp.version }
func (kp *KeyPackage) CiphersuiteName() ciphersuite.Name            { return kp.suiteName }
func (kp *KeyPackage) Ciphersuite() *ciphersuite.Ciphersuite        { return kp.suite }
func (kp *KeyPackage) HPKEInitKey() []byte                          { return bytes.Clone(kp.hpkeInitKey) }
func (kp *KeyPackage) Credential() *credential.Credential           { return kp.credential }
func (kp *KeyPackage) Signature() []byte                            { return bytes.Clone(kp.signature) }

// Extensions returns the extensions in wire order.
func (kp *KeyPackage) Extensions() []extensions.Extension {
	return append([]extensions.Extension(nil), kp.extensions...)
}

// Extension returns the first extension of type t.
func (kp *KeyPackage) Extension(t extensions.Type) (extensions.Extension, bool) {
	return extensions.Find(kp.extensions, t)
}

// KeyID returns the bytes of the KeyID extension.
func (kp *KeyPackage) KeyID() ([]byte, error) {
	e, ok := kp.Extension(extensions.KeyIDType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingExtension, extensions.KeyIDType)
	}
	id, ok := e.(extensions.KeyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T", ErrMissingExtension, extensions.KeyIDType, e)
	}
	return bytes.Clone(id.ID), nil
}

func (kp *KeyPackage) Lifetime() (extensions.Lifetime, bool) {
	e, ok := kp.Extension(extensions.LifetimeType)
	if !ok {
		return extensions.Lifetime{}, false
	}
	l, ok := e.(extensions.Lifetime)
	return l, ok
}

func (kp *KeyPackage) Capabilities() (extensions.Capabilities, bool) {
	e, ok := kp.Extension(extensions.CapabilitiesType)
	if !ok {
		return extensions.Capabilities{}, false
	}
	c, ok := e.(extensions.Capabilities)
	return c, ok
}

func encodeUnsigned(w *codec.Writer, v ciphersuite.ProtocolVersion, name ciphersuite.Name, initKey []byte, cred *credential.Credential, exts []extensions.Extension) {
	v.Encode(w)
	name.Encode(w)
	w.Opaque16(initKey)
	cred.Encode(w)
	extensions.EncodeList(w, exts)
}

// UnsignedPayload returns the bytes covered by the signature: every field
// except the signature, in wire order.
func (kp *KeyPackage) UnsignedPayload() ([]byte, error) {
	w := codec.NewWriter()
	encodeUnsigned(w, kp.version, kp.suiteName, kp.hpkeInitKey, kp.credential, kp.extensions)
	return w.Bytes()
}

// Encode appends the full encoding to w.
func (kp *KeyPackage) Encode(w *codec.Writer) {
	encodeUnsigned(w, kp.version, kp.suiteName, kp.hpkeInitKey, kp.credential, kp.extensions)
	w.Opaque16(kp.signature)
}

// Marshal returns the full encoding: UnsignedPayload followed by the signature.
func (kp *KeyPackage) Marshal() ([]byte, error) {
	w := codec.NewWriter()
	kp.Encode(w)
	return w.Bytes()
}

// Verify checks the key package against the current time.
func (kp *KeyPackage) Verify() error {
	return kp.VerifyAt(time.Now())
}

// VerifyAt checks, in order: extension types are unique, every extension
// validates at now, and the signature verifies over UnsignedPayload under the
// scheme the ciphersuite mandates. The first failure is returned.
func (kp *KeyPackage) VerifyAt(now time.Time) error {
	if t, dup := extensions.FindDuplicate(kp.extensions); dup {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, t)
	}
	ctx := extensions.ValidationContext{Now: now}
	for _, e := range kp.extensions {
		if err := e.Validate(ctx); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExtensionValidationFailed, e.Type(), err)
		}
	}
	scheme := kp.suite.SignatureScheme()
	if kp.credential.SignatureScheme != scheme {
		return fmt.Errorf("%w: credential uses %s, %s requires %s",
			ErrCiphersuiteSignatureSchemeMismatch, kp.credential.SignatureScheme, kp.suiteName, scheme)
	}
	payload, err := kp.UnsignedPayload()
	if err != nil {
		return err
	}
	if err := scheme.Verify(kp.credential.PublicKey, payload, kp.signature); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return nil
}

// Hash returns the digest of the full encoding under the suite's hash.
func (kp *KeyPackage) Hash() ([]byte, error) {
	b, err := kp.Marshal()
	if err != nil {
		return nil, err
	}
	return kp.suite.Hash(b)
}

// CID returns the content identifier of the full encoding.
func (kp *KeyPackage) CID() (string, error) {
	b, err := kp.Marshal()
	if err != nil {
		return "", err
	}
	return cidutil.String(b)
}

// Builder copies the key package into an unsigned builder.
func (kp *KeyPackage) Builder() *Builder {
	return &Builder{
		version:     kp.version,
		suite:       kp.suite,
		hpkeInitKey: bytes.Clone(kp.hpkeInitKey),
		credential:  kp.credential,
		extensions:  kp.Extensions(),
	}
}

// LogValue renders every field for diagnostics.
func (kp *KeyPackage) LogValue() slog.Value {
	exts := make([]string, 0, len(kp.extensions))
	for _, e := range kp.extensions {
		exts = append(exts, fmt.Sprintf("%s%+v", e.Type(), e))
	}
	attrs := []slog.Attr{
		slog.String("protocol_version", kp.version.String()),
		slog.String("ciphersuite", kp.suiteName.String()),
		slog.String("hpke_init_key", hex.EncodeToString(kp.hpkeInitKey)),
		slog.Any("extensions", exts),
		slog.String("signature", hex.EncodeToString(kp.signature)),
	}
	if kp.credential != nil {
		attrs = append(attrs,
			slog.String("identity", hex.EncodeToString(kp.credential.Identity)),
			slog.String("signature_scheme", kp.credential.SignatureScheme.String()),
			slog.String("public_key", hex.EncodeToString(kp.credential.PublicKey)),
		)
	}
	return slog.GroupValue(attrs...)
}
