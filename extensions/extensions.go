// Package extensions implements the typed, optional attributes attached to a
// key package and their list encoding.
//
// An extension list is encoded as a 2-byte total length followed by
// (2-byte type, 2-byte body length, body) triples in insertion order.
// Unrecognised types survive decoding as Unknown so they can be re-encoded
// byte for byte.
package extensions

import (
	"fmt"
	"time"

	"xdao.co/keypackage/codec"
)

// Type is the stable numeric tag of an extension kind.
type Type uint16

const (
	CapabilitiesType Type = 1
	LifetimeType     Type = 2
	KeyIDType        Type = 3
	ParentHashType   Type = 4
	RatchetTreeType  Type = 5
)

func (t Type) String() string {
	switch t {
	case CapabilitiesType:
		return "capabilities"
	case LifetimeType:
		return "lifetime"
	case KeyIDType:
		return "key_id"
	case ParentHashType:
		return "parent_hash"
	case RatchetTreeType:
		return "ratchet_tree"
	default:
		return fmt.Sprintf("extension(%d)", uint16(t))
	}
}

// ValidationContext carries the environment an extension validates against.
type ValidationContext struct {
	Now time.Time
}

// Extension is a single typed attribute.
type Extension interface {
	Type() Type
	// EncodeBody writes the extension body without the type/length header.
	EncodeBody(w *codec.Writer)
	// Validate reports whether the extension holds in ctx.
	Validate(ctx ValidationContext) error
}

// Unknown preserves an extension whose type this package does not decode.
type Unknown struct {
	ExtType Type
	Data    []byte
}

func (u Unknown) Type() Type                       { return u.ExtType }
func (u Unknown) EncodeBody(w *codec.Writer)       { w.Raw(u.Data) }
func (u Unknown) Validate(ValidationContext) error { return nil }

// EncodeList writes exts as a length-prefixed list of triples.
func EncodeList(w *codec.Writer, exts []Extension) {
	w.Vector16(func(c *codec.Writer) error {
		for _, e := range exts {
			body := codec.NewWriter()
			e.EncodeBody(body)
			b, err := body.Bytes()
			if err != nil {
				return err
			}
			c.Uint16(uint16(e.Type()))
			c.Opaque16(b)
		}
		return nil
	})
}

// FindDuplicate returns the first type tag that occurs more than once.
func FindDuplicate(exts []Extension) (Type, bool) {
	seen := make(map[Type]struct{}, len(exts))
	for _, e := range exts {
		t := e.Type()
		if _, ok := seen[t]; ok {
			return t, true
		}
		seen[t] = struct{}{}
	}
	return 0, false
}

// Find returns the first extension of type t.
func Find(exts []Extension, t Type) (Extension, bool) {
	for _, e := range exts {
		if e.Type() == t {
			return e, true
		}
	}
	return nil, false
}

// Replace returns exts with e substituted for any extension of the same type,
// or appended if there is none. The input slice is not modified.
func Replace(exts []Extension, e Extension) []Extension {
	out := make([]Extension, 0, len(exts)+1)
	replaced := false
	for _, x := range exts {
		if x.Type() == e.Type() {
			if !replaced {
				out = append(out, e)
				replaced = true
			}
			continue
		}
		out = append(out, x)
	}
	if !replaced {
		out = append(out, e)
	}
	return out
}
