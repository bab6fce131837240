package runner

import (
	"fmt"
	"unsafe"
)

// ============================================================================
// Public API for copying data between host and device
// ============================================================================

// CopyArrayToHost copies a whole device array into a new host slice
func CopyArrayToHost[T any](kr *Runner, name string) ([]T, error) {
	metadata, exists := kr.GetArrayMetadata(name)
	if !exists {
		return nil, fmt.Errorf("array %s not found", name)
	}
	return CopyRangeToHost[T](kr, name, 0, metadata.Length)
}

// CopyRangeToHost copies count elements starting at element offset into a
// new host slice
func CopyRangeToHost[T any](kr *Runner, name string, offset, count int) ([]T, error) {
	// Check if array exists
	metadata, exists := kr.GetArrayMetadata(name)
	if !exists {
		return nil, fmt.Errorf("array %s not found", name)
	}

	// Verify type matches
	var sample T
	requestedType := GetDataTypeFromSample(sample)
	if requestedType != metadata.DataType {
		return nil, fmt.Errorf("type mismatch: array is %s, requested %s",
			TypeName(metadata.DataType), TypeName(requestedType))
	}

	if offset < 0 || count < 0 || offset+count > metadata.Length {
		return nil, fmt.Errorf("range [%d, %d) outside array %s of length %d",
			offset, offset+count, name, metadata.Length)
	}

	result := make([]T, count)
	if count == 0 {
		return result, nil
	}

	memory := kr.GetMemory(name)
	if memory == nil {
		return nil, fmt.Errorf("memory for %s not found", name)
	}

	elementSize := int64(unsafe.Sizeof(sample))
	memory.CopyToWithOffset(
		unsafe.Pointer(&result[0]),
		int64(count)*elementSize,
		int64(offset)*elementSize,
	)

	return result, nil
}
