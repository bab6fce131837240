//go:build unix

package memspace

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// AllocPinned maps n float64 values of anonymous memory and locks the
// pages into RAM. A refused mlock (RLIMIT_MEMLOCK) is an allocation failure.
func AllocPinned(n int) (*PinnedBuffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrPinnedAlloc, n)
	}
	if n == 0 {
		return &PinnedBuffer{}, nil
	}

	mem, err := unix.Mmap(-1, 0, n*float64Size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrPinnedAlloc, n*float64Size, err)
	}
	if err := unix.Mlock(mem); err != nil {
		unmapErr := unix.Munmap(mem)
		return nil, multierr.Append(
			fmt.Errorf("%w: mlock %d bytes: %v", ErrPinnedAlloc, len(mem), err),
			unmapErr)
	}

	return &PinnedBuffer{
		mem:  mem,
		vals: unsafe.Slice((*float64)(unsafe.Pointer(&mem[0])), n),
	}, nil
}

// unlock unlocks and unmaps an mlock backing
func (p *PinnedBuffer) unlock() error {
	if p.mem == nil {
		return nil
	}
	mem := p.mem
	p.mem, p.vals = nil, nil
	return multierr.Combine(unix.Munlock(mem), unix.Munmap(mem))
}
