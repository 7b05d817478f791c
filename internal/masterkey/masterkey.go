// Package masterkey recovers the process-local symmetric master key from the
// host application's OS-protected key material. Recovery is two-stage: an
// OS-sealed blob inside the "Local State" record is unwrapped with the
// per-user OS secret-unwrap primitive, and that intermediate secret then
// opens the AES-GCM-sealed key file. The key is recomputed on demand and
// never cached across operations, since the source material may rotate.
package masterkey

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/logging"
)

const (
	// LocalStateName is the file holding the OS-sealed intermediate key.
	LocalStateName = "Local State"
	// KeyFileName is the sealed master-key file.
	KeyFileName = ".mk"

	// sealedKeyPrefixLen is the fixed 5-byte prefix ("DPAPI") on the
	// base64-decoded encrypted_key blob.
	sealedKeyPrefixLen = 5

	// versionMarker introduces the AEAD-sealed key-file format:
	// marker, 12-byte nonce, AES-GCM ciphertext of the hex-encoded key.
	versionMarker = "v10"
	gcmNonceSize  = 12

	// KeySize is the required length of the recovered master key.
	KeySize = 32
)

// Unwrapper is the OS capability used to unwrap per-user sealed secrets.
// Implementations are platform-specific; everything else in this package is
// platform-neutral.
type Unwrapper interface {
	Unwrap(data []byte) ([]byte, error)
}

// Resolver locates and decrypts the two-layer key material. Candidate
// directories are probed in their given priority order; the first directory
// whose own files yield a key wins. Files are never mixed across directories.
type Resolver struct {
	dirs      []string
	unwrapper Unwrapper
	log       logging.Logger
}

// NewResolver returns a Resolver probing dirs in order with the given
// unwrap capability.
func NewResolver(dirs []string, unwrapper Unwrapper, log logging.Logger) *Resolver {
	return &Resolver{dirs: dirs, unwrapper: unwrapper, log: log}
}

// Resolve recovers the raw 32-byte master key. Every failure mode collapses
// into common.ErrMasterKeyUnavailable: callers must treat a missing key as
// "cannot decrypt this session", not crash.
func (r *Resolver) Resolve(ctx context.Context) ([]byte, error) {
	for _, dir := range r.dirs {
		key, err := r.resolveFromDir(dir)
		if err != nil {
			r.log.Debug(ctx, "master key recovery failed for directory", "dir", dir, "error", err)
			continue
		}
		return key, nil
	}
	return nil, common.ErrMasterKeyUnavailable
}

// resolveFromDir attempts full key recovery using only the files in dir.
func (r *Resolver) resolveFromDir(dir string) ([]byte, error) {
	blob, err := os.ReadFile(filepath.Join(dir, KeyFileName))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var keyHex []byte
	if len(blob) >= len(versionMarker) && string(blob[:len(versionMarker)]) == versionMarker {
		oscryptKey, err := r.unwrapLocalStateKey(dir)
		if err != nil {
			return nil, fmt.Errorf("unwrap local state key: %w", err)
		}
		keyHex, err = openSealedKey(blob, oscryptKey)
		if err != nil {
			return nil, fmt.Errorf("open sealed key: %w", err)
		}
	} else {
		// Legacy format: the whole file is directly OS-sealed.
		keyHex, err = r.unwrapper.Unwrap(blob)
		if err != nil {
			return nil, fmt.Errorf("unwrap legacy key: %w", err)
		}
	}

	key, err := hex.DecodeString(string(keyHex))
	if err != nil {
		return nil, fmt.Errorf("decode key hex: %w", err)
	}
	if len(key) != KeySize {
		// A wrong-length key would only fail later with an opaque cipher
		// error; report it as unavailable at the source instead.
		return nil, fmt.Errorf("recovered key is %d bytes, want %d", len(key), KeySize)
	}
	return key, nil
}

// localState mirrors the subset of the host's "Local State" JSON we read.
type localState struct {
	OSCrypt struct {
		EncryptedKey string `json:"encrypted_key"`
	} `json:"os_crypt"`
}

// unwrapLocalStateKey reads dir's "Local State" record and unwraps the
// OS-sealed key blob after stripping its fixed 5-byte prefix.
func (r *Resolver) unwrapLocalStateKey(dir string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, LocalStateName))
	if err != nil {
		return nil, err
	}

	var ls localState
	if err := json.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("parse local state: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(ls.OSCrypt.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted_key: %w", err)
	}
	if len(sealed) <= sealedKeyPrefixLen {
		return nil, fmt.Errorf("encrypted_key blob too short: %d bytes", len(sealed))
	}

	return r.unwrapper.Unwrap(sealed[sealedKeyPrefixLen:])
}

// openSealedKey decrypts a versioned key file: marker, nonce, ciphertext.
func openSealedKey(blob, oscryptKey []byte) ([]byte, error) {
	body := blob[len(versionMarker):]
	if len(body) < gcmNonceSize {
		return nil, fmt.Errorf("key file too short: %d bytes after marker", len(body))
	}
	nonce := body[:gcmNonceSize]
	ciphertext := body[gcmNonceSize:]

	block, err := aes.NewCipher(oscryptKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}
