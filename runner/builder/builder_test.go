package builder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBuilder_Defaults(t *testing.T) {
	kb := NewBuilder(Config{})
	assert.Equal(t, DefaultBlockSize, kb.BlockSize)
	assert.Equal(t, INT64, kb.IntType)
}

func TestNewBuilder_RejectsWideBlocks(t *testing.T) {
	assert.Panics(t, func() { NewBuilder(Config{BlockSize: MaxBlockSize + 1}) })
	assert.Panics(t, func() { NewBuilder(Config{IntType: Float32}) })
}

func TestBuilder_Partitions(t *testing.T) {
	kb := NewBuilder(Config{BlockSize: 4})

	testCases := []struct {
		name     string
		outputs  int
		expected int
	}{
		{"empty", 0, 0},
		{"single_ragged", 3, 1},
		{"exact", 8, 2},
		{"ragged_tail", 9, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, kb.NumPartitions(tc.outputs))

			// Partitions tile [0, outputs) without gaps
			next := 0
			for part := 0; part < kb.NumPartitions(tc.outputs); part++ {
				start, end := kb.PartitionRange(tc.outputs, part)
				assert.Equal(t, next, start)
				assert.LessOrEqual(t, end-start, kb.BlockSize)
				next = end
			}
			assert.Equal(t, tc.outputs, next)
		})
	}
}

func TestBuilder_Preamble(t *testing.T) {
	kb := NewBuilder(Config{BlockSize: 128, IntType: INT32})
	preamble := kb.GeneratePreamble()

	for _, expected := range []string{
		"typedef double real_t;",
		"typedef int int_t;",
		"#define BLOCK 128",
		"#define NPART(n)",
		"#define OUTPUT_INDEX(part, lane)",
	} {
		assert.Contains(t, preamble, expected)
	}
	assert.Equal(t, preamble, kb.KernelPreamble)

	kb64 := NewBuilder(Config{})
	assert.Contains(t, kb64.GeneratePreamble(), "typedef long int_t;")
}

func TestBuilder_KernelSources(t *testing.T) {
	kb := NewBuilder(Config{})

	naive := kb.NaiveWindowKernel()
	assert.True(t, strings.HasPrefix(naive, "@kernel void naiveWindowSum("))
	assert.Contains(t, naive, "const real_t* vals")
	assert.Contains(t, naive, "real_t* sums")
	assert.Contains(t, naive, "@outer")
	assert.Contains(t, naive, "@inner")
	assert.Contains(t, naive, "if (idx < numSums)")

	incremental := kb.IncrementalWindowKernel()
	assert.True(t, strings.HasPrefix(incremental, "@kernel void incrementalWindowSum("))
	assert.Contains(t, incremental, "const int_t reseed")
	assert.Contains(t, incremental, "acc = acc - vals[j - 1] + vals[j + window - 1];")
}

func TestGenerateKernelSignature(t *testing.T) {
	sig := GenerateKernelSignature([]KernelArg{
		{Name: "n", Type: "int_t", IsConst: true},
		{Name: "out", Type: "real_t*"},
	})
	assert.Equal(t, "const int_t n,\n\treal_t* out", sig)
}
