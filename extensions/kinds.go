package extensions

import (
	"errors"
	"fmt"
	"time"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
)

var (
	ErrLifetimeExpired     = errors.New("extensions: lifetime expired")
	ErrLifetimeNotYetValid = errors.New("extensions: lifetime not yet valid")
)

// LifetimeMargin is subtracted from the current time for LifetimeFromNow's
// lower bound to tolerate clock skew between members.
const LifetimeMargin = time.Hour

// Lifetime bounds the validity of a key package, in unix seconds.
type Lifetime struct {
	NotBefore uint64
	NotAfter  uint64
}

func NewLifetime(notBefore, notAfter time.Time) Lifetime {
	return Lifetime{NotBefore: unixSeconds(notBefore), NotAfter: unixSeconds(notAfter)}
}

// LifetimeFromNow returns a lifetime valid from LifetimeMargin ago until d from now.
func LifetimeFromNow(d time.Duration) Lifetime {
	now := time.Now()
	return NewLifetime(now.Add(-LifetimeMargin), now.Add(d))
}

func unixSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}

func (Lifetime) Type() Type { return LifetimeType }

func (l Lifetime) EncodeBody(w *codec.Writer) {
	w.Uint64(l.NotBefore)
	w.Uint64(l.NotAfter)
}

// Validate requires NotBefore <= now <= NotAfter.
func (l Lifetime) Validate(ctx ValidationContext) error {
	now := unixSeconds(ctx.Now)
	if now < l.NotBefore {
		return fmt.Errorf("%w: not before %d, now %d", ErrLifetimeNotYetValid, l.NotBefore, now)
	}
	if now > l.NotAfter {
		return fmt.Errorf("%w: not after %d, now %d", ErrLifetimeExpired, l.NotAfter, now)
	}
	return nil
}

func decodeLifetime(r *codec.Reader) (Extension, error) {
	nb, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	na, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return Lifetime{NotBefore: nb, NotAfter: na}, nil
}

// KeyID is an opaque identifier for the key package.
type KeyID struct {
	ID []byte
}

func (KeyID) Type() Type                       { return KeyIDType }
func (k KeyID) EncodeBody(w *codec.Writer)     { w.Opaque16(k.ID) }
func (KeyID) Validate(ValidationContext) error { return nil }

func decodeKeyID(r *codec.Reader) (Extension, error) {
	id, err := r.ReadOpaque16()
	if err != nil {
		return nil, err
	}
	return KeyID{ID: id}, nil
}

// ParentHash carries the parent hash of the owner's leaf.
type ParentHash struct {
	Hash []byte
}

func (ParentHash) Type() Type                       { return ParentHashType }
func (p ParentHash) EncodeBody(w *codec.Writer)     { w.Opaque8(p.Hash) }
func (ParentHash) Validate(ValidationContext) error { return nil }

func decodeParentHash(r *codec.Reader) (Extension, error) {
	h, err := r.ReadOpaque8()
	if err != nil {
		return nil, err
	}
	return ParentHash{Hash: h}, nil
}

// Capabilities advertises what the owner's client supports. Entries are not
// checked against known values, so newer peers can advertise newer codes.
type Capabilities struct {
	Versions     []ciphersuite.ProtocolVersion
	Ciphersuites []ciphersuite.Name
	Extensions   []Type
}

func (Capabilities) Type() Type                       { return CapabilitiesType }
func (Capabilities) Validate(ValidationContext) error { return nil }

func (c Capabilities) EncodeBody(w *codec.Writer) {
	w.Vector8(func(v *codec.Writer) error {
		for _, x := range c.Versions {
			v.Uint8(uint8(x))
		}
		return nil
	})
	w.Vector8(func(v *codec.Writer) error {
		for _, x := range c.Ciphersuites {
			v.Uint16(uint16(x))
		}
		return nil
	})
	w.Vector8(func(v *codec.Writer) error {
		for _, x := range c.Extensions {
			v.Uint16(uint16(x))
		}
		return nil
	})
}

func decodeCapabilities(r *codec.Reader) (Extension, error) {
	var c Capabilities
	vs, err := r.ReadVector8()
	if err != nil {
		return nil, err
	}
	for !vs.Empty() {
		v, err := vs.ReadUint8()
		if err != nil {
			return nil, err
		}
		c.Versions = append(c.Versions, ciphersuite.ProtocolVersion(v))
	}
	cs, err := r.ReadVector8()
	if err != nil {
		return nil, err
	}
	for !cs.Empty() {
		v, err := cs.ReadUint16()
		if err != nil {
			return nil, err
		}
		c.Ciphersuites = append(c.Ciphersuites, ciphersuite.Name(v))
	}
	es, err := r.ReadVector8()
	if err != nil {
		return nil, err
	}
	for !es.Empty() {
		v, err := es.ReadUint16()
		if err != nil {
			return nil, err
		}
		c.Extensions = append(c.Extensions, Type(v))
	}
	return c, nil
}
