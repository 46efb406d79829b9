package extensions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/keypackage/ciphersuite"
	"xdao.co/keypackage/codec"
)

func encodeList(t *testing.T, exts []Extension) []byte {
	t.Helper()
	w := codec.NewWriter()
	EncodeList(w, exts)
	b, err := w.Bytes()
	require.NoError(t, err)
	return b
}

func TestList_RoundTripPreservesOrder(t *testing.T) {
	exts := []Extension{
		KeyID{ID: []byte{1, 2, 3, 4}},
		Lifetime{NotBefore: 10, NotAfter: 20},
		Capabilities{
			Versions:     []ciphersuite.ProtocolVersion{ciphersuite.MLS10},
			Ciphersuites: []ciphersuite.Name{ciphersuite.MLS10_128_DHKEMP256_AES128GCM_SHA256_P256},
			Extensions:   []Type{CapabilitiesType, LifetimeType, KeyIDType},
		},
		ParentHash{Hash: []byte{9, 9}},
	}
	b := encodeList(t, exts)

	r := codec.NewReader(b)
	got, err := NewTable().DecodeList(r)
	require.NoError(t, err)
	require.NoError(t, r.Finish())
	assert.Equal(t, exts, got)
}

func TestList_WireLayout(t *testing.T) {
	b := encodeList(t, []Extension{
		Capabilities{
			Versions:     []ciphersuite.ProtocolVersion{ciphersuite.MLS10},
			Ciphersuites: []ciphersuite.Name{ciphersuite.MLS10_128_DHKEMP256_AES128GCM_SHA256_P256},
			Extensions:   []Type{CapabilitiesType, LifetimeType, KeyIDType},
		},
		Lifetime{NotBefore: 0x6329b0d3, NotAfter: 0x63987ce3},
	})
	want := []byte{
		0, 36,
		0, 1, 0, 12, 1, 1, 2, 0, 2, 6, 0, 1, 0, 2, 0, 3,
		0, 2, 0, 16, 0, 0, 0, 0, 99, 41, 176, 211, 0, 0, 0, 0, 99, 152, 124, 227,
	}
	assert.Equal(t, want, b)
}

func TestList_UnknownTypePreserved(t *testing.T) {
	in := []byte{0, 9, 0, 5, 0, 5, 0xde, 0xad, 0xbe, 0xef, 0x00}
	r := codec.NewReader(in)
	got, err := NewTable().DecodeList(r)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Unknown{ExtType: RatchetTreeType, Data: []byte{0xde, 0xad, 0xbe, 0xef, 0x00}}, got[0])

	assert.Equal(t, in, encodeList(t, got))
}

func TestList_DuplicatesSurviveDecode(t *testing.T) {
	exts := []Extension{KeyID{ID: []byte{1}}, KeyID{ID: []byte{2}}}
	got, err := NewTable().DecodeList(codec.NewReader(encodeList(t, exts)))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	typ, dup := FindDuplicate(got)
	assert.True(t, dup)
	assert.Equal(t, KeyIDType, typ)
}

func TestList_TruncatedBody(t *testing.T) {
	// Declares a 10-byte list but carries 4.
	_, err := NewTable().DecodeList(codec.NewReader([]byte{0, 10, 0, 3, 0, 4}))
	assert.ErrorIs(t, err, codec.ErrTruncatedInput)

	// Triple declares a 4-byte body but the list only holds 2.
	_, err = NewTable().DecodeList(codec.NewReader([]byte{0, 6, 0, 3, 0, 4, 1, 2}))
	assert.ErrorIs(t, err, codec.ErrTruncatedInput)
}

func TestTable_TrailingBodyBytesMalformed(t *testing.T) {
	// Lifetime with 17 bytes.
	body := make([]byte, 17)
	_, err := NewTable().Decode(LifetimeType, body)
	assert.ErrorIs(t, err, codec.ErrMalformed)
	assert.Equal(t, "KP-CODEC-401", codec.RuleID(err))
}

type flag struct{ on bool }

func (flag) Type() Type { return Type(0xff00) }
func (f flag) EncodeBody(w *codec.Writer) {
	if f.on {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}
func (flag) Validate(ValidationContext) error { return nil }

func TestTable_RegisterCustomKind(t *testing.T) {
	tbl := NewTable()
	tbl.Register(Type(0xff00), func(r *codec.Reader) (Extension, error) {
		v, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return flag{on: v == 1}, nil
	})
	got, err := tbl.DecodeList(codec.NewReader(encodeList(t, []Extension{flag{on: true}})))
	require.NoError(t, err)
	assert.Equal(t, []Extension{flag{on: true}}, got)

	// Without registration the same bytes are opaque.
	got, err = NewTable().DecodeList(codec.NewReader(encodeList(t, []Extension{flag{on: true}})))
	require.NoError(t, err)
	assert.Equal(t, []Extension{Unknown{ExtType: Type(0xff00), Data: []byte{1}}}, got)
}

func TestTable_ZeroValueRegister(t *testing.T) {
	var tbl Table
	require.NotPanics(t, func() {
		tbl.Register(Type(0xff00), func(r *codec.Reader) (Extension, error) {
			v, err := r.ReadUint8()
			return flag{on: v == 1}, err
		})
	})
	got, err := tbl.DecodeList(codec.NewReader(encodeList(t, []Extension{flag{on: true}, KeyID{ID: []byte{1}}})))
	require.NoError(t, err)
	assert.Equal(t, []Extension{flag{on: true}, Unknown{ExtType: KeyIDType, Data: []byte{0, 1, 1}}}, got)
}

func TestLifetime_Validate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ctx := ValidationContext{Now: now}

	assert.NoError(t, NewLifetime(now, now.Add(600*time.Second)).Validate(ctx))
	assert.NoError(t, NewLifetime(now.Add(-time.Minute), now).Validate(ctx), "bounds are inclusive")

	err := NewLifetime(now.Add(-time.Hour), now.Add(-time.Second)).Validate(ctx)
	assert.ErrorIs(t, err, ErrLifetimeExpired)

	err = NewLifetime(now.Add(time.Second), now.Add(time.Hour)).Validate(ctx)
	assert.ErrorIs(t, err, ErrLifetimeNotYetValid)
}

func TestLifetimeFromNow(t *testing.T) {
	l := LifetimeFromNow(time.Minute)
	assert.NoError(t, l.Validate(ValidationContext{Now: time.Now()}))
	assert.Equal(t, uint64((LifetimeMargin + time.Minute).Seconds()), l.NotAfter-l.NotBefore)
}

func TestReplace(t *testing.T) {
	in := []Extension{KeyID{ID: []byte{1}}, Lifetime{NotBefore: 1, NotAfter: 2}}
	out := Replace(in, KeyID{ID: []byte{7}})
	assert.Equal(t, []Extension{KeyID{ID: []byte{7}}, Lifetime{NotBefore: 1, NotAfter: 2}}, out)
	assert.Equal(t, KeyID{ID: []byte{1}}, in[0], "input must not be modified")

	out = Replace(in, ParentHash{Hash: []byte{3}})
	assert.Len(t, out, 3)
	assert.Equal(t, ParentHash{Hash: []byte{3}}, out[2])
}

func TestFind(t *testing.T) {
	exts := []Extension{Lifetime{NotBefore: 1, NotAfter: 2}, KeyID{ID: []byte{5}}}
	e, ok := Find(exts, KeyIDType)
	require.True(t, ok)
	assert.Equal(t, KeyID{ID: []byte{5}}, e)

	_, ok = Find(exts, CapabilitiesType)
	assert.False(t, ok)
}
