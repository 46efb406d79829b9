package ciphersuite

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudflare/circl/hpke"
)

var ErrUnknownCiphersuite = errors.New("ciphersuite: not registered")

// Registry resolves ciphersuite names to descriptors.
//
// Construct one with NewRegistry and pass it to the code that needs it.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	suites map[Name]*Ciphersuite
}

// NewRegistry returns a registry holding every suite this module knows,
// including the unsupported carve-out suite.
func NewRegistry() *Registry {
	r := &Registry{suites: map[Name]*Ciphersuite{}}
	for _, cs := range []*Ciphersuite{
		New(MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519, Ed25519, SHA256,
			hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES128GCM),
		New(MLS10_128_DHKEMP256_AES128GCM_SHA256_P256, ECDSASecp256r1SHA256, SHA256,
			hpke.KEM_P256_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES128GCM),
		New(MLS10_128_DHKEMX25519_CHACHA20POLY1305_SHA256_Ed25519, Ed25519, SHA256,
			hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305),
		New(MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448, Ed448, SHA512,
			hpke.KEM_X448_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_AES256GCM),
		New(MLS10_256_DHKEMP521_AES256GCM_SHA512_P521, ECDSASecp521r1SHA512, SHA512,
			hpke.KEM_P521_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_AES256GCM),
		New(MLS10_256_DHKEMX448_CHACHA20POLY1305_SHA512_Ed448, Ed448, SHA512,
			hpke.KEM_X448_HKDF_SHA512, hpke.KDF_HKDF_SHA512, hpke.AEAD_ChaCha20Poly1305),
		New(XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3, Dilithium3, SHA3_256,
			hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES128GCM),
	} {
		r.suites[cs.name] = cs
	}
	return r
}

// Register adds a descriptor. Names may only be registered once.
func (r *Registry) Register(cs *Ciphersuite) error {
	if cs == nil {
		return fmt.Errorf("ciphersuite: nil descriptor")
	}
	if !cs.name.Known() {
		return fmt.Errorf("ciphersuite: %s has no wire name", cs.name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.suites[cs.name]; exists {
		return fmt.Errorf("ciphersuite: %s already registered", cs.name)
	}
	r.suites[cs.name] = cs
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name Name) (*Ciphersuite, error) {
	r.mu.RLock()
	cs, ok := r.suites[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCiphersuite, name)
	}
	return cs, nil
}

// All returns every registered descriptor, sorted by code.
func (r *Registry) All() []*Ciphersuite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Ciphersuite, 0, len(r.suites))
	for _, cs := range r.suites {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Supported returns the descriptors that can sign and verify, sorted by code.
func (r *Registry) Supported() []*Ciphersuite {
	all := r.All()
	out := all[:0]
	for _, cs := range all {
		if cs.Supported() {
			out = append(out, cs)
		}
	}
	return out
}
