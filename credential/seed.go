package credential

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"xdao.co/keypackage/ciphersuite"
)

// ParseSeedHex parses a 32-byte Ed25519 seed from hex, with an optional 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// NewBundleFromSeed returns an Ed25519 credential bundle derived
// deterministically from seed.
func NewBundleFromSeed(identity, seed []byte) (*Bundle, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("credential: seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Bundle{
		credential: &Credential{
			Identity:        bytes.Clone(identity),
			SignatureScheme: ciphersuite.Ed25519,
			PublicKey:       pub,
		},
		signingKey: priv,
	}, nil
}

// DeriveDeviceSeed deterministically derives a per-device Ed25519 seed from a
// root seed, so one root can back several credentials.
func DeriveDeviceSeed(rootSeed []byte, device string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if device == "" {
		return nil, fmt.Errorf("device cannot be empty")
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("xdao-keypackage-device-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("device:"))
	_, _ = h.Write([]byte(device))
	sum := h.Sum(nil)
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}
