// Package memspace tags where a series lives and provides page-locked
// host allocations for staging transfers to a device.
package memspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/gocca"
	"go.uber.org/multierr"
)

// Space identifies the memory a series is resident in
type Space int

const (
	// HostPlain is ordinary pageable Go heap memory
	HostPlain Space = iota
	// HostPinned is page-locked host memory staged for device transfer
	HostPinned
	// Device is accelerator memory reached only through explicit copies
	Device
)

var (
	// ErrPinnedAlloc is wrapped by every failure to obtain page-locked memory
	ErrPinnedAlloc = errors.New("pinned host allocation failed")
	// ErrPinnedUnsupported is returned on platforms without mlock
	ErrPinnedUnsupported = fmt.Errorf("%w: page locking not supported on this platform", ErrPinnedAlloc)
)

// String returns the short name used in variant labels
func (s Space) String() string {
	switch s {
	case HostPlain:
		return "host"
	case HostPinned:
		return "pinned"
	case Device:
		return "device"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// IsDevice reports whether computation in this space runs on the device
func (s Space) IsDevice() bool {
	return s == HostPinned || s == Device
}

// ParseSpace is the inverse of String
func ParseSpace(name string) (Space, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "host", "plain", "host-plain":
		return HostPlain, nil
	case "pinned", "host-pinned":
		return HostPinned, nil
	case "device":
		return Device, nil
	default:
		return 0, fmt.Errorf("unknown memory space %q", name)
	}
}

const float64Size = 8

// Pinned buffer backings
const (
	// SourceMlock is anonymous memory locked with mlock
	SourceMlock = "mlock"
	// SourceDeviceHost is host memory allocated and registered by the
	// device runtime, e.g. cudaMallocHost behind OCCA's "host" property
	SourceDeviceHost = "device-host"
)

// PinnedBuffer is an owning handle on page-locked float64 storage. The
// backing pages stay resident until Free.
type PinnedBuffer struct {
	mem  []byte            // mlock backing
	host *gocca.OCCAMemory // device runtime backing
	vals []float64
}

// Len returns the number of float64 values the buffer holds
func (p *PinnedBuffer) Len() int {
	return len(p.vals)
}

// Float64s returns the pinned storage; invalid after Free
func (p *PinnedBuffer) Float64s() []float64 {
	return p.vals
}

// Source reports which allocator backs the buffer
func (p *PinnedBuffer) Source() string {
	if p.host != nil {
		return SourceDeviceHost
	}
	return SourceMlock
}

// CopyFrom copies src into the buffer without transforming it
func (p *PinnedBuffer) CopyFrom(src []float64) error {
	if len(src) != len(p.vals) {
		return fmt.Errorf("pinned copy: source has %d values, buffer holds %d",
			len(src), len(p.vals))
	}
	copy(p.vals, src)
	return nil
}

// Free releases the buffer. Calling Free twice is a no-op.
func (p *PinnedBuffer) Free() error {
	if p == nil {
		return nil
	}
	if p.host != nil {
		host := p.host
		p.host, p.vals = nil, nil
		host.Free()
		return nil
	}
	return p.unlock()
}

// StagePinned allocates a locked buffer holding a byte-identical copy of src
func StagePinned(src []float64) (*PinnedBuffer, error) {
	p, err := AllocPinned(len(src))
	if err != nil {
		return nil, err
	}
	return fill(p, src)
}

// StagePinnedFor is StagePinned using device's host allocator where the
// device runtime registers host memory for DMA, and mlock elsewhere
func StagePinnedFor(device *gocca.OCCADevice, src []float64) (*PinnedBuffer, error) {
	p, err := AllocDevicePinned(device, len(src))
	if err != nil {
		return nil, err
	}
	return fill(p, src)
}

// fill copies src into p; p is released if the copy fails
func fill(p *PinnedBuffer, src []float64) (*PinnedBuffer, error) {
	if err := p.CopyFrom(src); err != nil {
		return nil, multierr.Append(err, p.Free())
	}
	return p, nil
}
