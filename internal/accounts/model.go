// Package accounts persists the managed cloud-service identities and
// provides transparent field-level decryption of their credential blobs.
package accounts

import "time"

// Record is one persisted account row. Token and quota stay in their
// encrypted envelope form here; decrypted views live on Account and are
// never written back except through explicit re-encryption.
type Record struct {
	// Email is the unique account key.
	Email string

	// TokenCipher is the encrypted token envelope (or plaintext JSON from
	// older versions of the host application).
	TokenCipher string

	// QuotaCipher is the encrypted quota envelope.
	QuotaCipher string

	// Name is the display name.
	Name string

	// AvatarURL is the display avatar.
	AvatarURL string

	// LastUsed is the last-switch timestamp in epoch milliseconds.
	LastUsed int64

	// IsActive marks the account currently injected into the host.
	IsActive bool
}

// Token is the decrypted, transient view of an account's credential.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// ExpiryTimestampMS is epoch milliseconds. Zero means absent, which
	// callers must treat as expired.
	ExpiryTimestampMS int64 `json:"expiry_timestamp"`
}

// Expired reports whether the token is expired at now. An absent expiry is
// expired, never valid.
func (t *Token) Expired(now time.Time) bool {
	if t == nil || t.ExpiryTimestampMS == 0 {
		return true
	}
	return now.UnixMilli() >= t.ExpiryTimestampMS
}

// ModelQuota is the remaining quota for one model identifier.
type ModelQuota struct {
	// Percentage is floor(remainingFraction*100), in 0..100.
	Percentage int `json:"percentage"`

	// ResetTime is an opaque string from the quota endpoint.
	ResetTime string `json:"resetTime"`
}

// Quota maps model identifiers to their remaining quota. It is built only
// from live API responses.
type Quota struct {
	Models map[string]ModelQuota `json:"models"`
}

// Account is a Record together with its decrypted views. A nil Token or
// Quota means the field was absent or undecryptable; the rest of the account
// is still usable.
type Account struct {
	Record

	Token *Token
	Quota *Quota
}
