package radix2

import (
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/godsp"
)

func sine(size int, freq, amplitude, sampleRate float64) []float64 {
	block := make([]float64, size)
	for i := range block {
		block[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return block
}

func TestAnalyzer_Shape(t *testing.T) {
	a, err := New(2048)
	require.NoError(t, err)

	mag, err := a.Transform(sine(2048, 300, 0.5, 44100))
	require.NoError(t, err)
	require.Len(t, mag, 1024)
	for i, v := range mag {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "bin %d", i)
		require.GreaterOrEqual(t, v, 0.0, "bin %d", i)
	}

	peak := 0
	for i := range mag {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	require.Equal(t, 14, peak)
}

func TestAnalyzer_Deterministic(t *testing.T) {
	a, err := New(1024)
	require.NoError(t, err)
	block := sine(1024, 1000, 0.3, 48000)
	for i := range block {
		block[i] += 0.01 * math.Cos(float64(i)*0.37)
	}

	first, err := a.Transform(block)
	require.NoError(t, err)
	firstCopy := append([]float64(nil), first...)

	// something else in between must not leak into the next result
	_, err = a.Transform(sine(1024, 50, 1, 48000))
	require.NoError(t, err)

	second, err := a.Transform(block)
	require.NoError(t, err)
	require.Equal(t, firstCopy, second)
}

func TestAnalyzer_Zeros(t *testing.T) {
	a, err := New(2048)
	require.NoError(t, err)
	mag, err := a.Transform(make([]float64, 2048))
	require.NoError(t, err)
	require.Equal(t, make([]float64, 1024), mag, spew.Sdump(mag[:8]))
}

func TestAnalyzer_InvalidInput(t *testing.T) {
	_, err := New(1000)
	require.Error(t, err)

	a, err := New(256)
	require.NoError(t, err)
	_, err = a.Transform(make([]float64, 255))
	require.Error(t, err)
}

func TestAnalyzer_MatchesGoDSP(t *testing.T) {
	for _, size := range []int{2, 8, 256, 2048} {
		a, err := New(size)
		require.NoError(t, err)
		ref, err := godsp.New(size)
		require.NoError(t, err)

		block := sine(size, 440, 0.7, 16000)
		for i := range block {
			block[i] += 0.2 * math.Sin(float64(i*i)*0.013)
		}

		got, err := a.Transform(block)
		require.NoError(t, err)
		expected, err := ref.Transform(block)
		require.NoError(t, err)
		require.InDeltaSlice(t, expected, got, 1e-8, "size %d", size)
	}
}

func BenchmarkAnalyzer_Transform(b *testing.B) {
	a, err := New(2048)
	require.NoError(b, err)
	block := sine(2048, 300, 0.5, 44100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Transform(block)
	}
}
