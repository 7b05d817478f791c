//go:build !windows

package masterkey

import (
	"fmt"

	"github.com/lalds/AntigravityManager/internal/common"
)

// unsupportedUnwrapper is used on platforms without the per-user
// secret-unwrap primitive. Resolution always reports the key as unavailable.
type unsupportedUnwrapper struct{}

// NewOSUnwrapper returns the unwrap capability for this platform.
func NewOSUnwrapper() Unwrapper {
	return unsupportedUnwrapper{}
}

func (unsupportedUnwrapper) Unwrap(data []byte) ([]byte, error) {
	return nil, fmt.Errorf("os secret unwrap is not supported on this platform: %w", common.ErrMasterKeyUnavailable)
}
