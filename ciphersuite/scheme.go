package ciphersuite

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/cloudflare/circl/sign/ed448"

	"xdao.co/keypackage/codec"
)

// SignatureScheme identifies a signature algorithm on the wire (2 bytes).
type SignatureScheme uint16

const (
	ECDSASecp256r1SHA256 SignatureScheme = 0x0403
	ECDSASecp521r1SHA512 SignatureScheme = 0x0603
	Ed25519              SignatureScheme = 0x0807
	Ed448                SignatureScheme = 0x0808
	// Dilithium3 uses a private-use code point.
	Dilithium3 SignatureScheme = 0xFE03
)

var (
	ErrUnsupportedScheme = errors.New("ciphersuite: unsupported signature scheme")
	ErrInvalidSignature  = errors.New("ciphersuite: signature invalid")
	ErrInvalidKey        = errors.New("ciphersuite: invalid key")
)

var schemeNames = map[SignatureScheme]string{
	ECDSASecp256r1SHA256: "ecdsa_secp256r1_sha256",
	ECDSASecp521r1SHA512: "ecdsa_secp521r1_sha512",
	Ed25519:              "ed25519",
	Ed448:                "ed448",
	Dilithium3:           "dilithium3",
}

func (s SignatureScheme) String() string {
	if n, ok := schemeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("signature_scheme(0x%04x)", uint16(s))
}

// ParseSignatureScheme maps a scheme name (as printed by String) to its code.
func ParseSignatureScheme(name string) (SignatureScheme, error) {
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("ciphersuite: unknown signature scheme %q", name)
}

// Known reports whether s is a recognised wire value.
func (s SignatureScheme) Known() bool {
	_, ok := schemeNames[s]
	return ok
}

// Supported reports whether signing and verification are implemented for s.
// ecdsa_secp521r1_sha512 is recognised on the wire but has no implementation.
func (s SignatureScheme) Supported() bool {
	switch s {
	case ECDSASecp256r1SHA256, Ed25519, Ed448, Dilithium3:
		return true
	default:
		return false
	}
}

func (s SignatureScheme) Encode(w *codec.Writer) { w.Uint16(uint16(s)) }

func DecodeSignatureScheme(r *codec.Reader) (SignatureScheme, error) {
	v, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	s := SignatureScheme(v)
	if !s.Known() {
		return 0, codec.Malformed("KP-CODEC-201", fmt.Sprintf("unknown signature scheme 0x%04x", v))
	}
	return s, nil
}

// GenerateKey returns a fresh signing keypair in the scheme's wire form.
// The private key encoding is local to this package and never serialized
// into a key package.
func (s SignatureScheme) GenerateKey(rand io.Reader) (pub, priv []byte, err error) {
	switch s {
	case Ed25519:
		pk, sk, err := ed25519.GenerateKey(rand)
		if err != nil {
			return nil, nil, err
		}
		return pk, sk, nil
	case Ed448:
		pk, sk, err := ed448.GenerateKey(rand)
		if err != nil {
			return nil, nil, err
		}
		return pk, sk, nil
	case ECDSASecp256r1SHA256:
		sk, err := ecdsa.GenerateKey(elliptic.P256(), rand)
		if err != nil {
			return nil, nil, err
		}
		ek, err := sk.PublicKey.ECDH()
		if err != nil {
			return nil, nil, err
		}
		der, err := x509.MarshalPKCS8PrivateKey(sk)
		if err != nil {
			return nil, nil, err
		}
		return ek.Bytes(), der, nil
	case Dilithium3:
		pk, sk, err := mode3.GenerateKey(rand)
		if err != nil {
			return nil, nil, err
		}
		return pk.Bytes(), sk.Bytes(), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, s)
	}
}

// Sign signs message with a private key produced by GenerateKey.
func (s SignatureScheme) Sign(priv, message []byte) ([]byte, error) {
	switch s {
	case Ed25519:
		if len(priv) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: ed25519 private key length %d", ErrInvalidKey, len(priv))
		}
		return ed25519.Sign(ed25519.PrivateKey(priv), message), nil
	case Ed448:
		if len(priv) != ed448.PrivateKeySize {
			return nil, fmt.Errorf("%w: ed448 private key length %d", ErrInvalidKey, len(priv))
		}
		return ed448.Sign(ed448.PrivateKey(priv), message, ""), nil
	case ECDSASecp256r1SHA256:
		k, err := x509.ParsePKCS8PrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		sk, ok := k.(*ecdsa.PrivateKey)
		if !ok || sk.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: not a P-256 key", ErrInvalidKey)
		}
		digest := sha256.Sum256(message)
		return ecdsa.SignASN1(rand.Reader, sk, digest[:])
	case Dilithium3:
		var sk mode3.PrivateKey
		if err := sk.UnmarshalBinary(priv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(&sk, message, sig)
		return sig, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, s)
	}
}

// Verify checks sig over message under the public key pub.
func (s SignatureScheme) Verify(pub, message, sig []byte) error {
	switch s {
	case Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: ed25519 public key length %d", ErrInvalidKey, len(pub))
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), message, sig) {
			return ErrInvalidSignature
		}
		return nil
	case Ed448:
		if len(pub) != ed448.PublicKeySize {
			return fmt.Errorf("%w: ed448 public key length %d", ErrInvalidKey, len(pub))
		}
		if !ed448.Verify(ed448.PublicKey(pub), message, sig, "") {
			return ErrInvalidSignature
		}
		return nil
	case ECDSASecp256r1SHA256:
		x, y := elliptic.Unmarshal(elliptic.P256(), pub)
		if x == nil {
			return fmt.Errorf("%w: invalid P-256 point", ErrInvalidKey)
		}
		pk := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		digest := sha256.Sum256(message)
		if !ecdsa.VerifyASN1(pk, digest[:], sig) {
			return ErrInvalidSignature
		}
		return nil
	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		if len(sig) != mode3.SignatureSize {
			return ErrInvalidSignature
		}
		if !mode3.Verify(&pk, message, sig) {
			return ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, s)
	}
}
