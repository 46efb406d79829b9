// Package ciphersuite describes the protocol version and the named bundles of
// algorithms (signature scheme, hash, HPKE KEM/KDF/AEAD) a key package can be
// generated under.
//
// Descriptors are resolved through an explicit Registry value; there is no
// process-wide registry.
package ciphersuite

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/hpke"
	"golang.org/x/crypto/sha3"

	"xdao.co/keypackage/codec"
)

// ProtocolVersion tags the wire format version (1 byte).
type ProtocolVersion uint8

const (
	Reserved ProtocolVersion = 0
	MLS10    ProtocolVersion = 1
)

func (v ProtocolVersion) String() string {
	switch v {
	case MLS10:
		return "mls10"
	case Reserved:
		return "reserved"
	default:
		return fmt.Sprintf("protocol_version(%d)", uint8(v))
	}
}

func (v ProtocolVersion) Encode(w *codec.Writer) { w.Uint8(uint8(v)) }

func DecodeProtocolVersion(r *codec.Reader) (ProtocolVersion, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if ProtocolVersion(b) != MLS10 {
		return 0, codec.Malformed("KP-CODEC-202", fmt.Sprintf("unsupported protocol version %d", b))
	}
	return MLS10, nil
}

// Name identifies a ciphersuite on the wire (2 bytes).
type Name uint16

const (
	MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519        Name = 0x0001
	MLS10_128_DHKEMP256_AES128GCM_SHA256_P256             Name = 0x0002
	MLS10_128_DHKEMX25519_CHACHA20POLY1305_SHA256_Ed25519 Name = 0x0003
	MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448            Name = 0x0004
	MLS10_256_DHKEMP521_AES256GCM_SHA512_P521             Name = 0x0005
	MLS10_256_DHKEMX448_CHACHA20POLY1305_SHA512_Ed448     Name = 0x0006
	// XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3 is a private-use
	// post-quantum signing suite.
	XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3 Name = 0xF003
)

// CarveOut is the suite recognised on the wire whose signature scheme has no
// implementation here. Key packages under it are accepted without signature
// verification; see keypackage.Decoder.
//
// TODO(xdao): drop the bypass once ecdsa_secp521r1_sha512 signing lands.
const CarveOut = MLS10_256_DHKEMP521_AES256GCM_SHA512_P521

var suiteNames = map[Name]string{
	MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519:        "MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519",
	MLS10_128_DHKEMP256_AES128GCM_SHA256_P256:             "MLS10_128_DHKEMP256_AES128GCM_SHA256_P256",
	MLS10_128_DHKEMX25519_CHACHA20POLY1305_SHA256_Ed25519: "MLS10_128_DHKEMX25519_CHACHA20POLY1305_SHA256_Ed25519",
	MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448:            "MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448",
	MLS10_256_DHKEMP521_AES256GCM_SHA512_P521:             "MLS10_256_DHKEMP521_AES256GCM_SHA512_P521",
	MLS10_256_DHKEMX448_CHACHA20POLY1305_SHA512_Ed448:     "MLS10_256_DHKEMX448_CHACHA20POLY1305_SHA512_Ed448",
	XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3:    "XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3",
}

func (n Name) String() string {
	if s, ok := suiteNames[n]; ok {
		return s
	}
	return fmt.Sprintf("ciphersuite(0x%04x)", uint16(n))
}

func (n Name) Known() bool {
	_, ok := suiteNames[n]
	return ok
}

// ParseName maps a suite name to its code.
func ParseName(s string) (Name, error) {
	for n, str := range suiteNames {
		if str == s {
			return n, nil
		}
	}
	return 0, fmt.Errorf("ciphersuite: unknown ciphersuite %q", s)
}

func (n Name) Encode(w *codec.Writer) { w.Uint16(uint16(n)) }

func DecodeName(r *codec.Reader) (Name, error) {
	v, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	n := Name(v)
	if !n.Known() {
		return 0, codec.Malformed("KP-CODEC-203", fmt.Sprintf("unknown ciphersuite 0x%04x", v))
	}
	return n, nil
}

// HashAlg names the suite's hash function.
type HashAlg string

const (
	SHA256   HashAlg = "sha256"
	SHA512   HashAlg = "sha512"
	SHA3_256 HashAlg = "sha3-256"
)

// Digest returns hash(message) under alg.
func (alg HashAlg) Digest(message []byte) ([]byte, error) {
	switch alg {
	case SHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case SHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case SHA3_256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("ciphersuite: unsupported hash algorithm %q", alg)
	}
}

// Ciphersuite is the resolved descriptor for a Name.
//
// A descriptor whose signature scheme is not Supported is the explicit
// unsupported variant: it satisfies structural needs (hash, HPKE) but can
// neither sign nor verify.
type Ciphersuite struct {
	name   Name
	scheme SignatureScheme
	hash   HashAlg
	kem    hpke.KEM
	kdf    hpke.KDF
	aead   hpke.AEAD
}

// New returns a descriptor for the given algorithm choices.
func New(name Name, scheme SignatureScheme, hash HashAlg, kem hpke.KEM, kdf hpke.KDF, aead hpke.AEAD) *Ciphersuite {
	return &Ciphersuite{name: name, scheme: scheme, hash: hash, kem: kem, kdf: kdf, aead: aead}
}

func (c *Ciphersuite) Name() Name                       { return c.name }
func (c *Ciphersuite) SignatureScheme() SignatureScheme { return c.scheme }
func (c *Ciphersuite) HashAlg() HashAlg                 { return c.hash }

// Supported reports whether key packages under this suite can be signed and
// verified.
func (c *Ciphersuite) Supported() bool { return c.scheme.Supported() }

// HPKE returns the suite's HPKE configuration.
func (c *Ciphersuite) HPKE() hpke.Suite { return hpke.NewSuite(c.kem, c.kdf, c.aead) }

func (c *Ciphersuite) Hash(message []byte) ([]byte, error) { return c.hash.Digest(message) }

// GenerateHPKEKeyPair derives a fresh init keypair for the suite's KEM from
// seed material read from rand.
func (c *Ciphersuite) GenerateHPKEKeyPair(rand io.Reader) (pub, priv []byte, err error) {
	if !c.kem.IsValid() {
		return nil, nil, fmt.Errorf("ciphersuite: %s has no valid KEM", c.name)
	}
	scheme := c.kem.Scheme()
	seed := make([]byte, scheme.SeedSize())
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, fmt.Errorf("ciphersuite: read kem seed: %w", err)
	}
	pk, sk := scheme.DeriveKeyPair(seed)
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	priv, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

func (c *Ciphersuite) Sign(priv, message []byte) ([]byte, error) {
	return c.scheme.Sign(priv, message)
}

func (c *Ciphersuite) Verify(pub, message, sig []byte) error {
	return c.scheme.Verify(pub, message, sig)
}

func (c *Ciphersuite) String() string { return c.name.String() }
