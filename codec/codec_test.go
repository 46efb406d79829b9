package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_FixedWidthAndOpaque(t *testing.T) {
	w := NewWriter()
	w.Uint8(1)
	w.Uint16(0x0203)
	w.Uint32(0x04050607)
	w.Uint64(0x08090a0b0c0d0e0f)
	w.Opaque8([]byte{0xaa})
	w.Opaque16([]byte{0xbb, 0xcc})
	got, err := w.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{
		1,
		2, 3,
		4, 5, 6, 7,
		8, 9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf,
		1, 0xaa,
		0, 2, 0xbb, 0xcc,
	}, got)

	r := NewReader(got)
	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u8)
	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)
	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04050607), u32)
	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x08090a0b0c0d0e0f), u64)
	o8, err := r.ReadOpaque8()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, o8)
	o16, err := r.ReadOpaque16()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbb, 0xcc}, o16)
	assert.NoError(t, r.Finish())
}

func TestReader_OpaqueDoesNotAliasInput(t *testing.T) {
	in := []byte{0, 2, 7, 8}
	v, err := NewReader(in).ReadOpaque16()
	require.NoError(t, err)
	in[2] = 0
	assert.Equal(t, byte(7), v[0], "decoded vector aliases input")
}

func TestReader_EmptyOpaqueIsNil(t *testing.T) {
	v, err := NewReader([]byte{0, 0}).ReadOpaque16()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestReader_Truncated(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		read func(r *Reader) error
	}{
		{"uint16", []byte{0x01}, func(r *Reader) error { _, err := r.ReadUint16(); return err }},
		{"uint64", []byte{0, 0, 0, 0}, func(r *Reader) error { _, err := r.ReadUint64(); return err }},
		// Declares 5 bytes, carries 1.
		{"opaque16", []byte{0x00, 0x05, 0x01}, func(r *Reader) error { _, err := r.ReadOpaque16(); return err }},
		{"vector16", []byte{0x00, 0x05, 0x01}, func(r *Reader) error { _, err := r.ReadVector16(); return err }},
		{"opaque8", []byte{0x02}, func(r *Reader) error { _, err := r.ReadOpaque8(); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(NewReader(tc.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTruncatedInput)
			assert.ErrorIs(t, err, ErrDecoding)
			assert.Equal(t, "KP-CODEC-001", RuleID(err))
		})
	}
}

func TestReader_FinishRejectsTrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadUint8()
	require.NoError(t, err)
	err = r.Finish()
	assert.ErrorIs(t, err, ErrMalformed)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestWriter_Opaque8Overflow(t *testing.T) {
	w := NewWriter()
	w.Opaque8(make([]byte, 256))
	_, err := w.Bytes()
	assert.ErrorIs(t, err, ErrLengthOverflow)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.NotErrorIs(t, err, ErrDecoding)
}

func TestWriter_Opaque16Overflow(t *testing.T) {
	w := NewWriter()
	w.Opaque16(make([]byte, 0x10000))
	_, err := w.Bytes()
	assert.ErrorIs(t, err, ErrLengthOverflow)
}

func TestWriter_NestedVectorOverflow(t *testing.T) {
	w := NewWriter()
	w.Vector8(func(c *Writer) error {
		for i := 0; i < 200; i++ {
			c.Uint16(uint16(i))
		}
		return nil
	})
	_, err := w.Bytes()
	assert.ErrorIs(t, err, ErrLengthOverflow)
	assert.Equal(t, "KP-CODEC-103", RuleID(err))
}

func TestWriter_NestedErrorIsSticky(t *testing.T) {
	boom := errors.New("boom")
	w := NewWriter()
	w.Vector16(func(c *Writer) error { return boom })
	w.Uint8(1)
	_, err := w.Bytes()
	assert.ErrorIs(t, err, boom)
}

func TestVector16_RoundTrip(t *testing.T) {
	w := NewWriter()
	w.Vector16(func(c *Writer) error {
		c.Uint16(1)
		c.Opaque16([]byte("abc"))
		return nil
	})
	b, err := w.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 7}, b[:2], "total length prefix")

	r := NewReader(b)
	sub, err := r.ReadVector16()
	require.NoError(t, err)
	assert.Equal(t, 7, sub.Len())
	tag, err := sub.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), tag)
	body, err := sub.ReadOpaque16()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
	assert.True(t, sub.Empty())
	assert.True(t, r.Empty())
}
