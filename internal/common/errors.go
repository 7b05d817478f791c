// Package common defines shared constants and sentinel errors used across
// the Antigravity Manager components. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Key recovery errors. A missing or undecryptable master key means
	// "cannot decrypt this session", never a crash.
	ErrMasterKeyUnavailable = errors.New("master key unavailable")

	// Envelope errors. An authentication-tag mismatch surfaces the field
	// as absent; a format mismatch is a plaintext pass-through, not an error.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Wire-format errors.
	ErrInvalidFieldNumber = errors.New("invalid field number")
	ErrNegativeVarint     = errors.New("varint value must be non-negative")
	ErrTruncatedVarint    = errors.New("truncated varint")

	// Token and credential errors.
	ErrMissingCredential     = errors.New("missing credential")
	ErrRefreshExchangeFailed = errors.New("refresh exchange failed")

	// Orchestration errors.
	ErrHostProcessNotFound = errors.New("host process not found")
	ErrStoreWriteFailed    = errors.New("state store write failed")
)
