// Package config loads the settings used to generate key packages.
package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/compliance"
	"xdao.co/keypackage/extensions"
)

// Config describes how key packages are generated and decoded.
//
// Example:
//
//	{
//	  "ciphersuites": ["MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519"],
//	  "signature_scheme": "ed25519",
//	  "lifetime": "720h",
//	  "key_id": "01020304",
//	  "capabilities": {"extensions": [1, 2, 3]},
//	  "compliance": "strict"
//	}
//
// Ciphersuites are candidates in preference order. Lifetime is a Go duration;
// empty means no Lifetime extension.
type Config struct {
	Ciphersuites    []string            `json:"ciphersuites"`
	SignatureScheme string              `json:"signature_scheme,omitempty"`
	Lifetime        string              `json:"lifetime,omitempty"`
	KeyID           string              `json:"key_id,omitempty"`
	Capabilities    *CapabilitiesConfig `json:"capabilities,omitempty"`
	Compliance      string              `json:"compliance,omitempty"`
}

// CapabilitiesConfig selects what the Capabilities extension advertises. The
// advertised ciphersuites default to Config.Ciphersuites.
type CapabilitiesConfig struct {
	Ciphersuites []string `json:"ciphersuites,omitempty"`
	Extensions   []uint16 `json:"extensions,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Ciphersuites) == 0 {
		return errors.New("config: at least one ciphersuite is required")
	}
	if _, err := c.CiphersuiteNames(); err != nil {
		return err
	}
	if c.SignatureScheme != "" {
		if _, err := ciphersuite.ParseSignatureScheme(c.SignatureScheme); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, err := c.LifetimeDuration(); err != nil {
		return err
	}
	if _, err := hex.DecodeString(c.KeyID); err != nil {
		return fmt.Errorf("config: key_id: %w", err)
	}
	if c.Capabilities != nil {
		if _, err := parseNames(c.Capabilities.Ciphersuites); err != nil {
			return err
		}
	}
	if _, err := compliance.Parse(c.Compliance); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func parseNames(names []string) ([]ciphersuite.Name, error) {
	out := make([]ciphersuite.Name, 0, len(names))
	seen := make(map[ciphersuite.Name]struct{}, len(names))
	for _, s := range names {
		n, err := ciphersuite.ParseName(s)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if _, ok := seen[n]; ok {
			return nil, fmt.Errorf("config: duplicate ciphersuite %q", s)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// CiphersuiteNames returns the candidate suites in preference order.
func (c Config) CiphersuiteNames() ([]ciphersuite.Name, error) {
	return parseNames(c.Ciphersuites)
}

// Scheme returns the configured signature scheme, defaulting to the scheme of
// the first candidate suite.
func (c Config) Scheme(reg *ciphersuite.Registry) (ciphersuite.SignatureScheme, error) {
	if c.SignatureScheme != "" {
		return ciphersuite.ParseSignatureScheme(c.SignatureScheme)
	}
	names, err := c.CiphersuiteNames()
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, errors.New("config: no ciphersuites")
	}
	cs, err := reg.Lookup(names[0])
	if err != nil {
		return 0, err
	}
	return cs.SignatureScheme(), nil
}

func (c Config) LifetimeDuration() (time.Duration, error) {
	if c.Lifetime == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Lifetime)
	if err != nil {
		return 0, fmt.Errorf("config: lifetime: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: lifetime must be positive")
	}
	return d, nil
}

func (c Config) ComplianceMode() (compliance.ComplianceMode, error) {
	return compliance.Parse(c.Compliance)
}

// Extensions returns the extensions to attach: Lifetime, KeyID and
// Capabilities, each only when configured.
func (c Config) Extensions() ([]extensions.Extension, error) {
	var out []extensions.Extension
	d, err := c.LifetimeDuration()
	if err != nil {
		return nil, err
	}
	if d > 0 {
		out = append(out, extensions.LifetimeFromNow(d))
	}
	if c.KeyID != "" {
		id, err := hex.DecodeString(c.KeyID)
		if err != nil {
			return nil, fmt.Errorf("config: key_id: %w", err)
		}
		out = append(out, extensions.KeyID{ID: id})
	}
	if c.Capabilities != nil {
		suites := c.Capabilities.Ciphersuites
		if len(suites) == 0 {
			suites = c.Ciphersuites
		}
		names, err := parseNames(suites)
		if err != nil {
			return nil, err
		}
		caps := extensions.Capabilities{
			Versions:     []ciphersuite.ProtocolVersion{ciphersuite.MLS10},
			Ciphersuites: names,
		}
		for _, t := range c.Capabilities.Extensions {
			caps.Extensions = append(caps.Extensions, extensions.Type(t))
		}
		out = append(out, caps)
	}
	return out, nil
}
