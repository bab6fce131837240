//go:build !unix

package memspace

// AllocPinned is unavailable without mlock
func AllocPinned(n int) (*PinnedBuffer, error) {
	return nil, ErrPinnedUnsupported
}

// unlock is a no-op; no mlock backing can exist on this platform
func (p *PinnedBuffer) unlock() error {
	return nil
}
