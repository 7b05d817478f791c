// Package tokenblob builds the serialized credential record the host
// application reads from its state store. The shape is fixed and closed:
// a three-level nested wire message with a sentinel string marking the
// token-info record, reproduced byte-for-byte.
package tokenblob

import (
	"encoding/base64"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/wirecodec"
)

// SentinelKey is the fixed literal marking the token-info record within the
// injected blob.
const SentinelKey = "oauthTokenInfoSentinelKey"

// TokenType is the literal token-type string carried in the leaf message.
const TokenType = "Bearer"

// OAuthInfo is the decoded form of the leaf message inside a unified token
// blob. ExpirySeconds is whole seconds since the epoch.
type OAuthInfo struct {
	AccessToken   string
	TokenType     string
	RefreshToken  string
	ExpirySeconds int64
}

// encodeOAuthInfo serializes the leaf message:
// field 1 access token, field 2 literal "Bearer", field 3 refresh token,
// field 4 a nested Timestamp message whose own field 1 is the expiry in
// whole seconds.
func encodeOAuthInfo(accessToken, refreshToken string, expirySeconds int64) ([]byte, error) {
	var msg []byte
	var err error

	if msg, err = wirecodec.AppendStringField(msg, 1, accessToken); err != nil {
		return nil, err
	}
	if msg, err = wirecodec.AppendStringField(msg, 2, TokenType); err != nil {
		return nil, err
	}
	if msg, err = wirecodec.AppendStringField(msg, 3, refreshToken); err != nil {
		return nil, err
	}

	if _, err := wirecodec.EncodeVarint(expirySeconds); err != nil {
		return nil, fmt.Errorf("expiry: %w", err)
	}
	timestamp, err := wirecodec.AppendVarintField(nil, 1, uint64(expirySeconds))
	if err != nil {
		return nil, err
	}

	if msg, err = wirecodec.AppendMessageField(msg, 4, timestamp); err != nil {
		return nil, err
	}
	return msg, nil
}

// BuildUnifiedToken produces the base64 blob the host application expects in
// its token-import slot. expiryMS is epoch milliseconds; the encoded
// Timestamp carries whole seconds.
func BuildUnifiedToken(accessToken, refreshToken string, expiryMS int64) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token: %w", common.ErrMissingCredential)
	}
	if refreshToken == "" {
		return "", fmt.Errorf("refresh token: %w", common.ErrMissingCredential)
	}

	info, err := encodeOAuthInfo(accessToken, refreshToken, expiryMS/1000)
	if err != nil {
		return "", fmt.Errorf("encode oauth info: %w", err)
	}
	infoB64 := base64.StdEncoding.EncodeToString(info)

	// Middle message: field 1 sentinel, field 2 a nested message whose own
	// field 1 is the base64 of the leaf.
	wrapped, err := wirecodec.AppendStringField(nil, 1, infoB64)
	if err != nil {
		return "", err
	}

	var middle []byte
	if middle, err = wirecodec.AppendStringField(middle, 1, SentinelKey); err != nil {
		return "", err
	}
	if middle, err = wirecodec.AppendMessageField(middle, 2, wrapped); err != nil {
		return "", err
	}

	outer, err := wirecodec.AppendMessageField(nil, 1, middle)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(outer), nil
}

// ParseUnifiedToken reverses BuildUnifiedToken. It exists for tests and for
// doctor-style inspection of an already-injected record.
func ParseUnifiedToken(blob string) (*OAuthInfo, error) {
	outerBytes, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode outer base64: %w", err)
	}

	middle, err := singleBytesField(outerBytes, 1)
	if err != nil {
		return nil, fmt.Errorf("outer message: %w", err)
	}

	fields, err := wirecodec.ReadMessage(middle)
	if err != nil {
		return nil, fmt.Errorf("middle message: %w", err)
	}

	var sentinel string
	var wrapped []byte
	for _, f := range fields {
		switch f.Num {
		case 1:
			sentinel = string(f.Bytes)
		case 2:
			wrapped = f.Bytes
		}
	}
	if sentinel != SentinelKey {
		return nil, fmt.Errorf("unexpected sentinel %q", sentinel)
	}
	if wrapped == nil {
		return nil, fmt.Errorf("token info record missing")
	}

	infoB64, err := singleBytesField(wrapped, 1)
	if err != nil {
		return nil, fmt.Errorf("wrapped token info: %w", err)
	}

	info, err := base64.StdEncoding.DecodeString(string(infoB64))
	if err != nil {
		return nil, fmt.Errorf("decode inner base64: %w", err)
	}

	return decodeOAuthInfo(info)
}

// singleBytesField returns the payload of the only expected length-delimited
// field with the given number.
func singleBytesField(msg []byte, num int) ([]byte, error) {
	fields, err := wirecodec.ReadMessage(msg)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Num == num && f.Type == wirecodec.TypeBytes {
			return f.Bytes, nil
		}
	}
	return nil, fmt.Errorf("field %d: %w", num, common.ErrNotFound)
}

func decodeOAuthInfo(msg []byte) (*OAuthInfo, error) {
	fields, err := wirecodec.ReadMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("oauth info: %w", err)
	}

	info := &OAuthInfo{}
	for _, f := range fields {
		switch f.Num {
		case 1:
			info.AccessToken = string(f.Bytes)
		case 2:
			info.TokenType = string(f.Bytes)
		case 3:
			info.RefreshToken = string(f.Bytes)
		case 4:
			ts, err := wirecodec.ReadMessage(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("timestamp: %w", err)
			}
			for _, tf := range ts {
				if tf.Num == 1 && tf.Type == wirecodec.TypeVarint {
					info.ExpirySeconds = int64(tf.Value)
				}
			}
		}
	}
	return info, nil
}
