package envelope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalds/AntigravityManager/internal/common"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return common.GenerateRandByteArray(32)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)

	plaintexts := []string{
		"hello",
		"",
		`with „unicode" and émojis 🚀`,
		strings.Repeat("x", 4096),
	}
	for _, pt := range plaintexts {
		enc, err := Encrypt(pt, key)
		require.NoError(t, err)

		parts := strings.Split(enc, ":")
		require.Len(t, parts, 3)
		assert.Len(t, parts[0], 32, "iv is 16 hex-encoded bytes")
		assert.Len(t, parts[1], 32, "tag is 16 hex-encoded bytes")

		got, ok := Decrypt(enc, key)
		require.True(t, ok)
		assert.Equal(t, pt, got)
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	key := testKey(t)

	a, err := Encrypt("same", key)
	require.NoError(t, err)
	b, err := Encrypt("same", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecrypt_PlaintextJSONPassThrough(t *testing.T) {
	key := testKey(t)

	for _, v := range []string{`{"a":1}`, `[1,2,3]`} {
		got, ok := Decrypt(v, key)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestDecrypt_ShapeMismatchPassThrough(t *testing.T) {
	key := testKey(t)

	for _, v := range []string{"plain text", "a:b", "a:b:c:d", ""} {
		got, ok := Decrypt(v, key)
		require.True(t, ok, "value %q", v)
		assert.Equal(t, v, got)
	}
}

func TestDecrypt_WrongKeyReturnsNotOK(t *testing.T) {
	enc, err := Encrypt("secret", testKey(t))
	require.NoError(t, err)

	got, ok := Decrypt(enc, testKey(t))
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestDecrypt_BadHexReturnsNotOK(t *testing.T) {
	key := testKey(t)

	_, ok := Decrypt("zz:00:11", key)
	assert.False(t, ok)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := testKey(t)
	enc, err := Encrypt("secret", key)
	require.NoError(t, err)

	parts := strings.Split(enc, ":")
	// Flip a ciphertext nibble.
	last := parts[2]
	var flipped byte = '0'
	if last[0] == '0' {
		flipped = '1'
	}
	parts[2] = string(flipped) + last[1:]

	_, ok := Decrypt(strings.Join(parts, ":"), key)
	assert.False(t, ok)
}
