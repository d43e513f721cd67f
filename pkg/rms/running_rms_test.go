package rms

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningRMS_SumMatchesWindow(t *testing.T) {
	r, err := New(64, 0.9)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	history := make([]float64, 0, 1000)
	for i := 0; i < 1000; i++ {
		v := rng.Float64()*2 - 1
		history = append(history, v)
		r.Update(v)

		from := len(history) - 64
		if from < 0 {
			from = 0
		}
		var exact float64
		for _, s := range history[from:] {
			exact += s * s
		}
		require.InDelta(t, exact, r.Sum(), 1e-9, "sample %d", i)
	}
}

func TestRunningRMS_ConstantInput(t *testing.T) {
	r, err := New(256, 0.95)
	require.NoError(t, err)

	var v float64
	for i := 0; i < 2000; i++ {
		v = r.Update(0.5)
	}
	assert.InDelta(t, 0.5, v, 1e-6)
	assert.InDelta(t, 0.5, r.Instant(), 1e-9)
	assert.Equal(t, v, r.Value())
}

func TestRunningRMS_NeverNegativeOrNonFinite(t *testing.T) {
	r, err := New(16, 0.5)
	require.NoError(t, err)

	inputs := []float64{1e150, -1e150, math.NaN(), math.Inf(1), 0, 1e-300, -3}
	for i := 0; i < 100; i++ {
		v := r.Update(inputs[i%len(inputs)])
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "iteration %d", i)
		require.GreaterOrEqual(t, v, 0.0)
	}
}

func TestRunningRMS_Validation(t *testing.T) {
	_, err := New(0, 0.5)
	require.Error(t, err)
	_, err = New(10, 1)
	require.Error(t, err)
	_, err = New(10, -0.1)
	require.Error(t, err)

	r, err := New(10, 0)
	require.NoError(t, err)
	require.Error(t, r.SetSmoothingFactor(math.NaN()))
	require.NoError(t, r.SetSmoothingFactor(0.5))
}

func TestRunningRMS_Reset(t *testing.T) {
	r, err := New(8, 0.5)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		r.Update(1)
	}
	r.Reset()
	require.Zero(t, r.Sum())
	require.Zero(t, r.Value())
	require.Equal(t, 8, r.WindowSize())
}

func BenchmarkRunningRMS_Update(b *testing.B) {
	r, err := New(4096, 0.95)
	require.NoError(b, err)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Update(float64(i%100) / 100)
	}
}
