// Package exportx moves account records between machines as a JSON
// manifest, optionally sealed with a passphrase. Token and quota fields
// travel in their encrypted envelope form only when sealed; a plain export
// decrypts them first so the receiving machine, which has a different
// master key, can re-encrypt on import.
package exportx

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/common"
)

const manifestVersion = 1

// Argon2id parameters for the sealing key.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltSize     = 16
)

// Row is one exported account. Credentials are carried as plain JSON
// strings; sealing protects the whole manifest, not individual fields.
type Row struct {
	Email     string `json:"email"`
	TokenJSON string `json:"token_json,omitempty"`
	QuotaJSON string `json:"quota_json,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	LastUsed  int64  `json:"last_used"`
}

// Manifest is the export file payload.
type Manifest struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Accounts  []Row     `json:"accounts"`
}

// sealedFile wraps an encrypted manifest.
type sealedFile struct {
	Sealed     bool   `json:"sealed"`
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// ErrWrongPassphrase reports that a sealed manifest could not be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted export")

// ErrPassphraseRequired reports a sealed manifest opened without one.
var ErrPassphraseRequired = errors.New("export is sealed, a passphrase is required")

// Export writes all accounts to path. A nil passphrase produces a plain
// JSON manifest; otherwise the manifest is sealed with argon2id + AES-GCM.
func Export(ctx context.Context, store *accounts.Store, path string, passphrase []byte) (int, error) {
	list, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	manifest := Manifest{
		ID:        uuid.NewString(),
		Version:   manifestVersion,
		CreatedAt: time.Now().UTC(),
	}
	for _, acc := range list {
		row := Row{
			Email:     acc.Email,
			Name:      acc.Name,
			AvatarURL: acc.AvatarURL,
			LastUsed:  acc.LastUsed,
		}
		if acc.Token != nil {
			data, err := json.Marshal(acc.Token)
			if err != nil {
				return 0, fmt.Errorf("encode token for %s: %w", acc.Email, err)
			}
			row.TokenJSON = string(data)
		}
		if acc.Quota != nil {
			data, err := json.Marshal(acc.Quota)
			if err != nil {
				return 0, fmt.Errorf("encode quota for %s: %w", acc.Email, err)
			}
			row.QuotaJSON = string(data)
		}
		manifest.Accounts = append(manifest.Accounts, row)
	}

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode manifest: %w", err)
	}

	if len(passphrase) > 0 {
		payload, err = seal(payload, passphrase)
		if err != nil {
			return 0, err
		}
	}

	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(manifest.Accounts), nil
}

// Import reads a manifest from path and inserts its accounts. Accounts that
// already exist are skipped, never overwritten, and imported accounts come
// in inactive. Returns how many were inserted.
func Import(ctx context.Context, store *accounts.Store, path string, passphrase []byte) (int, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read export: %w", err)
	}

	if sealed, wrapper := isSealed(payload); sealed {
		if len(passphrase) == 0 {
			return 0, ErrPassphraseRequired
		}
		payload, err = open(wrapper, passphrase)
		if err != nil {
			return 0, err
		}
	}

	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return 0, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return 0, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}

	inserted := 0
	for _, row := range manifest.Accounts {
		if row.Email == "" {
			continue
		}
		var tok *accounts.Token
		if row.TokenJSON != "" {
			tok = &accounts.Token{}
			if err := json.Unmarshal([]byte(row.TokenJSON), tok); err != nil {
				return inserted, fmt.Errorf("account %s: parse token: %w", row.Email, err)
			}
		}
		var quota *accounts.Quota
		if row.QuotaJSON != "" {
			quota = &accounts.Quota{}
			if err := json.Unmarshal([]byte(row.QuotaJSON), quota); err != nil {
				return inserted, fmt.Errorf("account %s: parse quota: %w", row.Email, err)
			}
		}

		ok, err := store.ImportAccount(ctx, accounts.Record{
			Email:     row.Email,
			Name:      row.Name,
			AvatarURL: row.AvatarURL,
			LastUsed:  row.LastUsed,
		}, tok, quota)
		if err != nil {
			return inserted, fmt.Errorf("import %s: %w", row.Email, err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func seal(payload, passphrase []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)
	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal export: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("seal export: %w", err)
	}

	nonce := common.GenerateRandByteArray(gcm.NonceSize())
	ciphertext := gcm.Seal(nil, nonce, payload, nil)

	return json.MarshalIndent(sealedFile{
		Sealed:     true,
		KDF:        "argon2id",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
}

func isSealed(payload []byte) (bool, *sealedFile) {
	var wrapper sealedFile
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return false, nil
	}
	if !wrapper.Sealed {
		return false, nil
	}
	return true, &wrapper
}

func open(wrapper *sealedFile, passphrase []byte) ([]byte, error) {
	if wrapper.KDF != "argon2id" {
		return nil, fmt.Errorf("unsupported kdf %q", wrapper.KDF)
	}
	salt, err := base64.StdEncoding.DecodeString(wrapper.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(wrapper.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(wrapper.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrWrongPassphrase
	}

	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return payload, nil
}
