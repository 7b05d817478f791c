//go:build windows

package masterkey

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// dpapiUnwrapper unwraps per-user secrets with CryptUnprotectData.
type dpapiUnwrapper struct{}

// NewOSUnwrapper returns the Windows DPAPI unwrap capability.
func NewOSUnwrapper() Unwrapper {
	return dpapiUnwrapper{}
}

func (dpapiUnwrapper) Unwrap(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty sealed blob")
	}

	in := windows.DataBlob{
		Size: uint32(len(data)),
		Data: &data[0],
	}
	var out windows.DataBlob

	if err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, 0, &out); err != nil {
		return nil, fmt.Errorf("CryptUnprotectData: %w", err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	result := make([]byte, out.Size)
	copy(result, unsafe.Slice(out.Data, out.Size))
	return result, nil
}
