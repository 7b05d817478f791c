package tokenblob

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/wirecodec"
)

func TestBuildUnifiedToken_RoundTrip(t *testing.T) {
	blob, err := BuildUnifiedToken("AT1", "RT1", 1700000000000)
	require.NoError(t, err)

	info, err := ParseUnifiedToken(blob)
	require.NoError(t, err)

	assert.Equal(t, "AT1", info.AccessToken)
	assert.Equal(t, "Bearer", info.TokenType)
	assert.Equal(t, "RT1", info.RefreshToken)
	assert.Equal(t, int64(1700000000), info.ExpirySeconds)
}

func TestBuildUnifiedToken_ExactNesting(t *testing.T) {
	blob, err := BuildUnifiedToken("a", "r", 5000)
	require.NoError(t, err)

	outer, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Outer: a single length-delimited field 1.
	outerFields, err := wirecodec.ReadMessage(outer)
	require.NoError(t, err)
	require.Len(t, outerFields, 1)
	assert.Equal(t, 1, outerFields[0].Num)
	assert.Equal(t, wirecodec.TypeBytes, outerFields[0].Type)

	// Middle: field 1 sentinel string, field 2 nested message.
	middle, err := wirecodec.ReadMessage(outerFields[0].Bytes)
	require.NoError(t, err)
	require.Len(t, middle, 2)
	assert.Equal(t, 1, middle[0].Num)
	assert.Equal(t, SentinelKey, string(middle[0].Bytes))
	assert.Equal(t, 2, middle[1].Num)

	// The nested message's own field 1 is the base64 of the leaf.
	wrapped, err := wirecodec.ReadMessage(middle[1].Bytes)
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, 1, wrapped[0].Num)

	leaf, err := base64.StdEncoding.DecodeString(string(wrapped[0].Bytes))
	require.NoError(t, err)

	leafFields, err := wirecodec.ReadMessage(leaf)
	require.NoError(t, err)
	require.Len(t, leafFields, 4)
	assert.Equal(t, "a", string(leafFields[0].Bytes))
	assert.Equal(t, "Bearer", string(leafFields[1].Bytes))
	assert.Equal(t, "r", string(leafFields[2].Bytes))

	// Field 4 is a Timestamp message: field 1 varint, whole seconds.
	ts, err := wirecodec.ReadMessage(leafFields[3].Bytes)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, wirecodec.TypeVarint, ts[0].Type)
	assert.Equal(t, uint64(5), ts[0].Value)
}

func TestBuildUnifiedToken_KnownBytes(t *testing.T) {
	// Locked-down output: any byte-level drift in the encoder shows up here.
	blob, err := BuildUnifiedToken("AT", "RT", 1000)
	require.NoError(t, err)

	var leaf []byte
	leaf, _ = wirecodec.AppendStringField(leaf, 1, "AT")
	leaf, _ = wirecodec.AppendStringField(leaf, 2, "Bearer")
	leaf, _ = wirecodec.AppendStringField(leaf, 3, "RT")
	ts, _ := wirecodec.AppendVarintField(nil, 1, 1)
	leaf, _ = wirecodec.AppendBytesField(leaf, 4, ts)

	wrapped, _ := wirecodec.AppendStringField(nil, 1, base64.StdEncoding.EncodeToString(leaf))
	middle, _ := wirecodec.AppendStringField(nil, 1, SentinelKey)
	middle, _ = wirecodec.AppendBytesField(middle, 2, wrapped)
	outer, _ := wirecodec.AppendBytesField(nil, 1, middle)

	assert.Equal(t, base64.StdEncoding.EncodeToString(outer), blob)
}

func TestBuildUnifiedToken_MissingCredential(t *testing.T) {
	_, err := BuildUnifiedToken("", "RT", 1)
	require.ErrorIs(t, err, common.ErrMissingCredential)

	_, err = BuildUnifiedToken("AT", "", 1)
	require.ErrorIs(t, err, common.ErrMissingCredential)
}

func TestBuildUnifiedToken_NegativeExpiry(t *testing.T) {
	_, err := BuildUnifiedToken("AT", "RT", -1000)
	require.ErrorIs(t, err, common.ErrNegativeVarint)
}

func TestParseUnifiedToken_BadInput(t *testing.T) {
	_, err := ParseUnifiedToken("not base64!!!")
	require.Error(t, err)

	// Valid base64 of garbage bytes.
	_, err = ParseUnifiedToken(base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFF}))
	require.Error(t, err)

	// Wrong sentinel.
	var wrapped, middle, outer []byte
	wrapped, _ = wirecodec.AppendStringField(nil, 1, "aGk=")
	middle, _ = wirecodec.AppendStringField(nil, 1, "someOtherKey")
	middle, _ = wirecodec.AppendBytesField(middle, 2, wrapped)
	outer, _ = wirecodec.AppendBytesField(nil, 1, middle)
	_, err = ParseUnifiedToken(base64.StdEncoding.EncodeToString(outer))
	require.ErrorContains(t, err, "sentinel")
}
