package common

import "crypto/rand"

// GenerateRandByteArray returns n cryptographically random bytes.
// It panics only if the platform CSPRNG is broken.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
