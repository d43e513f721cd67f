package godsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Peak(t *testing.T) {
	const size = 1024
	a, err := New(size)
	require.NoError(t, err)
	require.Equal(t, size, a.Size())

	block := make([]float64, size)
	for i := range block {
		block[i] = math.Sin(2 * math.Pi * 32 * float64(i) / size)
	}
	magnitude, err := a.Transform(block)
	require.NoError(t, err)
	require.Len(t, magnitude, size/2)

	peak := 0
	for i, v := range magnitude {
		if v > magnitude[peak] {
			peak = i
		}
	}
	require.Equal(t, 32, peak)
}

func TestAnalyzer_Invalid(t *testing.T) {
	_, err := New(100)
	require.Error(t, err)

	a, err := New(16)
	require.NoError(t, err)
	_, err = a.Transform(make([]float64, 8))
	require.Error(t, err)
}
