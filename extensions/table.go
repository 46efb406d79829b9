package extensions

import (
	"fmt"
	"sync"

	"xdao.co/keypackage/codec"
)

// DecodeFunc decodes one extension body. The reader holds exactly the body.
type DecodeFunc func(r *codec.Reader) (Extension, error)

// Table dispatches extension bodies to their decoder by type tag.
type Table struct {
	mu       sync.RWMutex
	decoders map[Type]DecodeFunc
}

// NewTable returns a table with the built-in kinds registered.
func NewTable() *Table {
	return &Table{decoders: map[Type]DecodeFunc{
		CapabilitiesType: decodeCapabilities,
		LifetimeType:     decodeLifetime,
		KeyIDType:        decodeKeyID,
		ParentHashType:   decodeParentHash,
	}}
}

// Register installs fn for t, replacing any existing decoder. A zero Table
// has no built-in kinds; use NewTable for those.
func (t *Table) Register(typ Type, fn DecodeFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.decoders == nil {
		t.decoders = make(map[Type]DecodeFunc)
	}
	t.decoders[typ] = fn
}

// Decode decodes a single body. Types without a decoder yield Unknown.
func (t *Table) Decode(typ Type, body []byte) (Extension, error) {
	t.mu.RLock()
	fn, ok := t.decoders[typ]
	t.mu.RUnlock()
	if !ok {
		return Unknown{ExtType: typ, Data: body}, nil
	}
	r := codec.NewReader(body)
	e, err := fn(r)
	if err != nil {
		return nil, err
	}
	if !r.Empty() {
		return nil, codec.Malformed("KP-CODEC-401", fmt.Sprintf("%d trailing bytes in %s extension", r.Len(), typ))
	}
	return e, nil
}

// DecodeList reads a length-prefixed list of extensions, preserving order.
// Duplicate types are not rejected here.
func (t *Table) DecodeList(r *codec.Reader) ([]Extension, error) {
	list, err := r.ReadVector16()
	if err != nil {
		return nil, err
	}
	var out []Extension
	for !list.Empty() {
		typ, err := list.ReadUint16()
		if err != nil {
			return nil, err
		}
		body, err := list.ReadOpaque16()
		if err != nil {
			return nil, err
		}
		e, err := t.Decode(Type(typ), body)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
