// Package envelope encrypts and decrypts individual stored string values
// with the resolved master key. The on-disk representation is fixed:
// hex(iv):hex(tag):hex(ciphertext) with a 16-byte IV, AES-256-GCM, and the
// 16-byte auth tag always the trailing bytes of the sealed output.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	ivSize  = 16
	tagSize = 16
)

// IsPlaintext reports whether value looks like an already-plaintext JSON
// document. Such values are stored unencrypted by older versions of the host
// application and must be passed through unchanged.
func IsPlaintext(value string) bool {
	return strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[")
}

// Decrypt returns the UTF-8 plaintext of an envelope value and true.
//
// Values that look like plaintext JSON, or that do not have the three-part
// hex-colon shape, are returned unchanged with ok=true: that is a deliberate
// format-sniffing fallback, not an error. A value with the right shape whose
// hex fails to decode or whose GCM authentication fails yields ("", false):
// the field is undecryptable and callers surface it as absent.
func Decrypt(value string, key []byte) (plaintext string, ok bool) {
	if value == "" || IsPlaintext(value) {
		return value, true
	}

	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return value, true
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", false
	}

	aead, err := newGCM(key, len(iv))
	if err != nil {
		return "", false
	}

	// The AEAD open expects ciphertext||tag.
	sealed := append(append([]byte{}, ciphertext...), tag...)
	out, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Encrypt seals value with a fresh random 16-byte IV and formats the result
// as hex(iv):hex(tag):hex(ciphertext).
func Encrypt(value string, key []byte) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	aead, err := newGCM(key, ivSize)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	sealed := aead.Seal(nil, iv, []byte(value), nil)

	// Seal output is ciphertext||tag; the tag is the trailing 16 bytes
	// independent of plaintext length.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
