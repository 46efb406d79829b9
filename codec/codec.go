// Package codec implements the canonical length-prefixed binary encoding used
// by key packages: fixed-width big-endian integers, opaque byte vectors with a
// 1- or 2-byte length prefix, and length-prefixed sequences of codable items.
package codec

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

const (
	maxVector8  = 0xFF
	maxVector16 = 0xFFFF
)

// Writer appends canonical encodings to an internal buffer.
//
// The first error is sticky: later writes are ignored and Bytes reports it.
type Writer struct {
	b   *cryptobyte.Builder
	err error
}

func NewWriter() *Writer {
	return &Writer{b: cryptobyte.NewBuilder(nil)}
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) Uint8(v uint8)   { w.b.AddUint8(v) }
func (w *Writer) Uint16(v uint16) { w.b.AddUint16(v) }
func (w *Writer) Uint32(v uint32) { w.b.AddUint32(v) }
func (w *Writer) Uint64(v uint64) { w.b.AddUint64(v) }

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) { w.b.AddBytes(b) }

// Opaque8 appends b behind a 1-byte length prefix.
func (w *Writer) Opaque8(b []byte) {
	if len(b) > maxVector8 {
		w.setErr(&Error{Kind: KindLengthOverflow, RuleID: "KP-CODEC-101", Message: fmt.Sprintf("opaque length %d exceeds 1-byte prefix", len(b))})
		return
	}
	w.b.AddUint8LengthPrefixed(func(c *cryptobyte.Builder) { c.AddBytes(b) })
}

// Opaque16 appends b behind a 2-byte length prefix.
func (w *Writer) Opaque16(b []byte) {
	if len(b) > maxVector16 {
		w.setErr(&Error{Kind: KindLengthOverflow, RuleID: "KP-CODEC-102", Message: fmt.Sprintf("opaque length %d exceeds 2-byte prefix", len(b))})
		return
	}
	w.b.AddUint16LengthPrefixed(func(c *cryptobyte.Builder) { c.AddBytes(b) })
}

// Vector8 encodes the items written by fn behind a 1-byte total length prefix.
func (w *Writer) Vector8(fn func(*Writer) error) {
	w.b.AddUint8LengthPrefixed(func(c *cryptobyte.Builder) { w.child(c, fn) })
}

// Vector16 encodes the items written by fn behind a 2-byte total length prefix.
func (w *Writer) Vector16(fn func(*Writer) error) {
	w.b.AddUint16LengthPrefixed(func(c *cryptobyte.Builder) { w.child(c, fn) })
}

func (w *Writer) child(c *cryptobyte.Builder, fn func(*Writer) error) {
	cw := &Writer{b: c}
	if err := fn(cw); err != nil {
		w.setErr(err)
		return
	}
	if cw.err != nil {
		w.setErr(cw.err)
	}
}

// Err returns the first error recorded so far.
func (w *Writer) Err() error { return w.err }

// Bytes returns the encoded bytes or the first error encountered.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	out, err := w.b.Bytes()
	if err != nil {
		// The only builder failures reachable here are child lengths that do
		// not fit their prefix.
		return nil, Wrap(KindLengthOverflow, "KP-CODEC-103", "vector exceeds length prefix", err)
	}
	return out, nil
}

// Reader consumes canonical encodings from a byte slice.
type Reader struct {
	s cryptobyte.String
}

func NewReader(b []byte) *Reader {
	return &Reader{s: cryptobyte.String(b)}
}

func truncated(what string) error {
	return Truncated("KP-CODEC-001", "truncated input reading "+what)
}

func (r *Reader) ReadUint8() (uint8, error) {
	var v uint8
	if !r.s.ReadUint8(&v) {
		return 0, truncated("uint8")
	}
	return v, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	var v uint16
	if !r.s.ReadUint16(&v) {
		return 0, truncated("uint16")
	}
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	var v uint32
	if !r.s.ReadUint32(&v) {
		return 0, truncated("uint32")
	}
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	var v uint64
	if !r.s.ReadUint64(&v) {
		return 0, truncated("uint64")
	}
	return v, nil
}

// ReadOpaque8 reads a 1-byte length-prefixed byte vector. The result does not
// alias the input; an empty vector is returned as nil.
func (r *Reader) ReadOpaque8() ([]byte, error) {
	var v cryptobyte.String
	if !r.s.ReadUint8LengthPrefixed(&v) {
		return nil, truncated("opaque8")
	}
	return clone(v), nil
}

// ReadOpaque16 reads a 2-byte length-prefixed byte vector.
func (r *Reader) ReadOpaque16() ([]byte, error) {
	var v cryptobyte.String
	if !r.s.ReadUint16LengthPrefixed(&v) {
		return nil, truncated("opaque16")
	}
	return clone(v), nil
}

// ReadVector8 returns a sub-reader over a 1-byte length-prefixed sequence.
func (r *Reader) ReadVector8() (*Reader, error) {
	var v cryptobyte.String
	if !r.s.ReadUint8LengthPrefixed(&v) {
		return nil, truncated("vector8")
	}
	return &Reader{s: v}, nil
}

// ReadVector16 returns a sub-reader over a 2-byte length-prefixed sequence.
func (r *Reader) ReadVector16() (*Reader, error) {
	var v cryptobyte.String
	if !r.s.ReadUint16LengthPrefixed(&v) {
		return nil, truncated("vector16")
	}
	return &Reader{s: v}, nil
}

func (r *Reader) Len() int     { return len(r.s) }
func (r *Reader) Empty() bool  { return r.s.Empty() }
func (r *Reader) Rest() []byte { return clone(r.s) }

// Finish fails if any input is left unread.
func (r *Reader) Finish() error {
	if !r.s.Empty() {
		return Malformed("KP-CODEC-002", fmt.Sprintf("%d trailing bytes", len(r.s)))
	}
	return nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return bytes.Clone(b)
}
