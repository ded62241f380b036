//go:build !deepstream

package nvds

import "unsafe"

// Available reports whether the metadata bindings are compiled in
func Available() bool { return false }

// ReadBatch always fails without the deepstream build tag
func ReadBatch(buffer unsafe.Pointer) (Batch, error) {
	return Batch{}, ErrMetadataUnavailable
}
