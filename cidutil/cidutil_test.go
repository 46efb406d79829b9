package cidutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_Deterministic(t *testing.T) {
	a, err := String([]byte("key package"))
	require.NoError(t, err)
	b, err := String([]byte("key package"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "bafk"), "raw CIDv1 base32 starts with bafk, got %s", a)

	c, err := String([]byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMatches(t *testing.T) {
	data := []byte{1, 0, 1}
	s, err := String(data)
	require.NoError(t, err)

	ok, err := Matches(s, data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(s, []byte{1, 0, 2})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Matches("not-a-cid", data)
	assert.Error(t, err)
}
