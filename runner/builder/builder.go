package builder

import (
	"fmt"
	"strings"
)

// DataType represents the precision of numerical data
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	INT32
	INT64
)

// DefaultBlockSize is the number of outputs handled by one partition
const DefaultBlockSize = 256

// MaxBlockSize bounds the @inner extent; CUDA rejects wider thread blocks
const MaxBlockSize = 1024

// Builder generates kernel source for partition-parallel windowed sums.
// An output range [0, n) is split into contiguous partitions of BlockSize
// outputs, one @outer iteration each; the last partition may be ragged.
type Builder struct {
	// Partition configuration
	BlockSize int

	// Type configuration; real_t is always double
	IntType DataType

	// Generated code
	KernelPreamble string
}

// Config holds configuration for creating a Builder
type Config struct {
	BlockSize int
	IntType   DataType
}

// NewBuilder creates a new Builder instance
func NewBuilder(cfg Config) *Builder {
	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize > MaxBlockSize {
		panic(fmt.Sprintf("BlockSize %d exceeds the @inner limit of %d",
			blockSize, MaxBlockSize))
	}
	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	if intType != INT32 && intType != INT64 {
		panic(fmt.Sprintf("IntType must be INT32 or INT64, got %d", intType))
	}

	return &Builder{
		BlockSize: blockSize,
		IntType:   intType,
	}
}

// NumPartitions returns how many partitions cover outputs
func (kb *Builder) NumPartitions(outputs int) int {
	if outputs <= 0 {
		return 0
	}
	return (outputs + kb.BlockSize - 1) / kb.BlockSize
}

// PartitionRange returns the half-open output range [start, end) owned by
// partition part
func (kb *Builder) PartitionRange(outputs, part int) (start, end int) {
	start = part * kb.BlockSize
	end = start + kb.BlockSize
	if end > outputs {
		end = outputs
	}
	if start > end {
		start = end
	}
	return
}

// GeneratePreamble generates the kernel preamble with types and launch geometry
func (kb *Builder) GeneratePreamble() string {
	var sb strings.Builder

	// 1. Type definitions and constants
	sb.WriteString(kb.generateTypeDefinitions())

	// 2. Partition access macros
	sb.WriteString(kb.generatePartitionMacros())

	kb.KernelPreamble = sb.String()
	return kb.KernelPreamble
}

// generateTypeDefinitions creates type definitions based on precision settings
func (kb *Builder) generateTypeDefinitions() string {
	var sb strings.Builder

	intTypeStr := "long"
	if kb.IntType == INT32 {
		intTypeStr = "int"
	}

	sb.WriteString("typedef double real_t;\n")
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString("#define REAL_ZERO 0.0\n")
	sb.WriteString("\n")

	// Constants
	sb.WriteString(fmt.Sprintf("#define BLOCK %d\n", kb.BlockSize))
	sb.WriteString("\n")

	return sb.String()
}

// generatePartitionMacros maps (partition, lane) to a global output index
func (kb *Builder) generatePartitionMacros() string {
	var sb strings.Builder
	sb.WriteString("// Partition access\n")
	sb.WriteString("#define NPART(n) (((n) + BLOCK - 1) / BLOCK)\n")
	sb.WriteString("#define OUTPUT_INDEX(part, lane) ((int_t)(part) * BLOCK + (int_t)(lane))\n")
	sb.WriteString("\n")
	return sb.String()
}
