package ciphersuite

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/keypackage/codec"
)

func TestSignatureSchemes_SignVerify(t *testing.T) {
	for _, s := range []SignatureScheme{Ed25519, Ed448, ECDSASecp256r1SHA256, Dilithium3} {
		t.Run(s.String(), func(t *testing.T) {
			pub, priv, err := s.GenerateKey(rand.Reader)
			require.NoError(t, err)

			msg := []byte("key package payload")
			sig, err := s.Sign(priv, msg)
			require.NoError(t, err)
			require.NoError(t, s.Verify(pub, msg, sig))

			err = s.Verify(pub, []byte("tampered"), sig)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestSignatureScheme_ECDSASignaturesAreRandomized(t *testing.T) {
	s := ECDSASecp256r1SHA256
	pub, priv, err := s.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("key package payload")
	var a, b []byte
	require.NotPanics(t, func() {
		a, err = s.Sign(priv, msg)
		require.NoError(t, err)
		b, err = s.Sign(priv, msg)
		require.NoError(t, err)
	})
	assert.NotEqual(t, a, b)
	assert.NoError(t, s.Verify(pub, msg, a))
	assert.NoError(t, s.Verify(pub, msg, b))
}

func TestSignatureScheme_P521Unsupported(t *testing.T) {
	s := ECDSASecp521r1SHA512
	assert.True(t, s.Known())
	assert.False(t, s.Supported())

	_, _, err := s.GenerateKey(rand.Reader)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	_, err = s.Sign([]byte{1}, []byte("m"))
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	assert.ErrorIs(t, s.Verify([]byte{1}, []byte("m"), nil), ErrUnsupportedScheme)
}

func TestSignatureScheme_VerifyRejectsBadKey(t *testing.T) {
	err := Ed25519.Verify([]byte{1, 2, 3}, []byte("m"), make([]byte, 64))
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = ECDSASecp256r1SHA256.Verify([]byte{4, 1, 2}, []byte("m"), []byte{0x30})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseSignatureScheme(t *testing.T) {
	s, err := ParseSignatureScheme("ed448")
	require.NoError(t, err)
	assert.Equal(t, Ed448, s)

	_, err = ParseSignatureScheme("rsa")
	assert.Error(t, err)
}

func TestRegistry_SupportedExcludesCarveOut(t *testing.T) {
	reg := NewRegistry()
	assert.Len(t, reg.All(), 7)

	supported := reg.Supported()
	assert.Len(t, supported, 6)
	for _, cs := range supported {
		assert.NotEqual(t, CarveOut, cs.Name())
	}

	cs, err := reg.Lookup(CarveOut)
	require.NoError(t, err)
	assert.False(t, cs.Supported())
	assert.Equal(t, ECDSASecp521r1SHA512, cs.SignatureScheme())
}

func TestRegistry_LookupUnknown(t *testing.T) {
	_, err := NewRegistry().Lookup(Name(0x0bad))
	assert.ErrorIs(t, err, ErrUnknownCiphersuite)
}

func TestRegistry_RegisterRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	cs, err := reg.Lookup(MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519)
	require.NoError(t, err)
	assert.Error(t, reg.Register(cs))
	assert.Error(t, reg.Register(nil))
}

func TestCiphersuite_HPKEKeyPairSizes(t *testing.T) {
	reg := NewRegistry()
	want := map[Name]int{
		MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519:     32,
		MLS10_128_DHKEMP256_AES128GCM_SHA256_P256:          65,
		MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448:         56,
		MLS10_256_DHKEMP521_AES256GCM_SHA512_P521:          133,
		XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3: 32,
	}
	for name, size := range want {
		cs, err := reg.Lookup(name)
		require.NoError(t, err)
		pub, priv, err := cs.GenerateHPKEKeyPair(rand.Reader)
		require.NoError(t, err, name.String())
		assert.Len(t, pub, size, name.String())
		assert.NotEmpty(t, priv)
	}
}

func TestCiphersuite_HashLengths(t *testing.T) {
	reg := NewRegistry()
	for name, size := range map[Name]int{
		MLS10_128_DHKEMX25519_AES128GCM_SHA256_Ed25519:     32,
		MLS10_256_DHKEMX448_AES256GCM_SHA512_Ed448:         64,
		XDAO_128_DHKEMX25519_AES128GCM_SHA3_256_Dilithium3: 32,
	} {
		cs, err := reg.Lookup(name)
		require.NoError(t, err)
		h, err := cs.Hash([]byte("x"))
		require.NoError(t, err)
		assert.Len(t, h, size)
	}
}

func TestDecodeName_UnknownIsMalformed(t *testing.T) {
	_, err := DecodeName(codec.NewReader([]byte{0x0b, 0xad}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrMalformed))
	assert.Equal(t, "KP-CODEC-203", codec.RuleID(err))

	_, err = DecodeName(codec.NewReader([]byte{0x00}))
	assert.ErrorIs(t, err, codec.ErrTruncatedInput)
}

func TestDecodeProtocolVersion(t *testing.T) {
	v, err := DecodeProtocolVersion(codec.NewReader([]byte{1}))
	require.NoError(t, err)
	assert.Equal(t, MLS10, v)

	_, err = DecodeProtocolVersion(codec.NewReader([]byte{0}))
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestParseName_RoundTripsString(t *testing.T) {
	for _, cs := range NewRegistry().All() {
		n, err := ParseName(cs.Name().String())
		require.NoError(t, err)
		assert.Equal(t, cs.Name(), n)
	}
}
