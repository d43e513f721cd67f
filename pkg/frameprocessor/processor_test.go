package frameprocessor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/godsp"
)

const (
	testSampleRate = 44100
	quantumSize    = 128
)

func ptr[T any](v T) *T {
	return &v
}

func sine(freq, amplitude float64, samples int) []float32 {
	result := make([]float32, samples)
	for i := range result {
		result[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return result
}

// process feeds the input in quanta and returns the output.
func process(t testing.TB, p *Processor, input []float32) []float32 {
	output := make([]float32, len(input))
	for offset := 0; offset < len(input); offset += quantumSize {
		end := min(offset+quantumSize, len(input))
		require.NoError(t, p.ProcessQuantum(output[offset:end], input[offset:end]))
	}
	return output
}

func newTestProcessor(t testing.TB, opts ...Option) *Processor {
	p, err := New(DefaultConfig(testSampleRate), opts...)
	require.NoError(t, err)
	return p
}

func TestProcessor_Voice(t *testing.T) {
	for name, opts := range map[string][]Option{
		"radix2": nil,
		"godsp":  {OptionAnalyzerFactory(godsp.Factory)},
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestProcessor(t, opts...)
			input := sine(300, 0.5, 2048*16)
			output := process(t, p, input)

			d := p.Diagnostics()
			require.True(t, d.BlockVoiceActive, spew.Sdump(d))
			require.True(t, d.VoiceActive)
			require.InDelta(t, 1, d.Gain, 1e-9)
			require.InDelta(t, 0.001, d.NoiseFloor, 1e-12)
			require.Equal(t, uint64(16), d.BlocksProcessed)
			require.Greater(t, d.VoiceBandEnergy, 10.0)
			for i := len(input) - 2048; i < len(input); i++ {
				require.InDelta(t, input[i], output[i], 1e-6)
			}
		})
	}
}

func TestProcessor_NoiseFloorConvergence(t *testing.T) {
	p := newTestProcessor(t)
	const rmsLevel = 0.0015
	input := sine(300, rmsLevel*math.Sqrt2, 2048*100)
	output := process(t, p, input)

	d := p.Diagnostics()
	require.False(t, d.BlockVoiceActive, spew.Sdump(d))
	require.False(t, d.VoiceActive)
	require.NotContains(t, d.RecentVoiceDecisions, true)
	require.InDelta(t, rmsLevel, d.NoiseFloor, 1e-4)
	require.Equal(t, 0.1, d.Gain)
	last := len(input) - 1
	require.InDelta(t, input[last]*0.1, output[last], 1e-9)
}

func TestProcessor_StationaryNoiseAboveFloor(t *testing.T) {
	cfg := DefaultConfig(testSampleRate)
	cfg.SpectralFluxThreshold = 1e12
	cfg.VoiceBandThreshold = 1e12
	p, err := New(cfg)
	require.NoError(t, err)

	const rmsLevel = 0.02
	rng := rand.New(rand.NewSource(1))
	input := make([]float32, 2048*200)
	for i := range input {
		input[i] = float32(rng.NormFloat64() * rmsLevel)
	}
	output := process(t, p, input)

	d := p.Diagnostics()
	require.InDelta(t, rmsLevel, d.NoiseFloor, 0.002, spew.Sdump(d))
	require.False(t, d.BlockVoiceActive)
	require.False(t, d.VoiceActive)
	require.Equal(t, 0.1, d.Gain)
	last := len(input) - 1
	require.InDelta(t, input[last]*0.1, output[last], 1e-9)
}

func TestProcessor_NoiseProfile(t *testing.T) {
	low, high := spectrum.Bin(85, 2048, testSampleRate), spectrum.Bin(3400, 2048, testSampleRate)
	initialBandEnergy := float64(high-low+1) * 0.001

	for _, enabled := range []bool{false, true} {
		t.Run(fmt.Sprint(enabled), func(t *testing.T) {
			cfg := DefaultConfig(testSampleRate)
			cfg.SpectralFluxThreshold = 1e12
			cfg.VoiceBandThreshold = 1e12
			cfg.NoiseProfileEnabled = enabled
			p, err := New(cfg)
			require.NoError(t, err)

			// quiet enough to stay below the loudness test
			process(t, p, sine(300, 0.002, 2048*16))

			d := p.Diagnostics()
			require.Equal(t, enabled, d.BlockVoiceActive, spew.Sdump(d))
			require.Equal(t, enabled, d.VoiceActive)
			if enabled {
				// voiced blocks reach neither the floor nor the profile
				require.Equal(t, 0.001, d.NoiseFloor)
				require.InDelta(t, initialBandEnergy, d.NoiseProfileBandEnergy, 1e-12)
			} else {
				require.Greater(t, d.NoiseProfileBandEnergy, initialBandEnergy)
			}
		})
	}
}

func TestProcessor_NoiseFloorLowerBound(t *testing.T) {
	p := newTestProcessor(t)
	process(t, p, sine(300, 0.0003*math.Sqrt2, 2048*50))

	d := p.Diagnostics()
	require.False(t, d.VoiceActive)
	require.Equal(t, 0.001, d.NoiseFloor)
}

func TestProcessor_Silence(t *testing.T) {
	p := newTestProcessor(t)
	input := make([]float32, 2048*3)
	output := process(t, p, input)
	for i, v := range output {
		require.Zero(t, v, i)
	}

	d := p.Diagnostics()
	require.False(t, d.VoiceActive)
	require.Zero(t, d.SpectralFlux)
	require.Zero(t, d.VoiceBandEnergy)
	require.Len(t, d.RecentVoiceDecisions, 10)

	low, high := spectrum.Bin(85, 2048, testSampleRate), spectrum.Bin(3400, 2048, testSampleRate)
	expected := float64(high-low+1) * 0.001 * math.Pow(0.95, 3)
	require.InDelta(t, expected, d.NoiseProfileBandEnergy, 1e-12)
}

func TestProcessor_Deterministic(t *testing.T) {
	input := sine(440, 0.3, 2048*4)
	for i := 2048; i < 4096; i++ {
		input[i] *= 0.01
	}
	a := process(t, newTestProcessor(t), input)
	b := process(t, newTestProcessor(t), input)
	require.Equal(t, a, b)
}

func TestProcessor_MalformedInput(t *testing.T) {
	p := newTestProcessor(t)

	output := []float32{1, 1, 1}
	err := p.ProcessQuantum(output, nil)
	require.ErrorIs(t, err, ErrMalformedInput)
	require.Equal(t, []float32{0, 0, 0}, output)

	output = make([]float32, 64)
	err = p.ProcessQuantum(output, sine(300, 0.5, 128))
	require.ErrorIs(t, err, ErrMalformedInput)

	// the stream goes on
	require.NoError(t, p.ProcessQuantum(make([]float32, 128), make([]float32, 128)))
}

func TestProcessor_NonFiniteInput(t *testing.T) {
	p := newTestProcessor(t)
	input := []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1)), 0.5}
	output := make([]float32, len(input))
	require.NoError(t, p.ProcessQuantum(output, input))
	require.Equal(t, []float32{0, 0, 0}, output[:3])

	process(t, p, sine(300, 0.5, 2048*2))
	d := p.Diagnostics()
	assert.False(t, math.IsNaN(d.SmoothedRMS))
	assert.False(t, math.IsNaN(d.SpectralFlux))
	assert.False(t, math.IsNaN(d.Gain))
}

func TestProcessor_UpdateConfigRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	err := p.UpdateConfig(ctx, ConfigUpdate{FFTSize: ptr(1000)})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	err = p.UpdateConfig(ctx, ConfigUpdate{VoiceBandLow: ptr(4000.0), VoiceBandHigh: ptr(300.0)})
	require.ErrorAs(t, err, &cfgErr)

	require.Equal(t, DefaultConfig(testSampleRate), p.AcceptedConfig())
	process(t, p, make([]float32, 2048))
	require.Equal(t, DefaultConfig(testSampleRate), p.Config())
}

func TestProcessor_UpdateConfigAtBlockBoundary(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)

	process(t, p, make([]float32, quantumSize))
	require.NoError(t, p.UpdateConfig(ctx, ConfigUpdate{FFTSize: ptr(1024)}))
	require.NoError(t, p.UpdateConfig(ctx, ConfigUpdate{VoiceBandLow: ptr(100.0)}))

	accepted := p.AcceptedConfig()
	require.Equal(t, 1024, accepted.FFTSize)
	require.Equal(t, 100.0, accepted.VoiceBandLow)

	process(t, p, make([]float32, 2048-2*quantumSize))
	require.Equal(t, 2048, p.Config().FFTSize)
	require.Equal(t, 2048, p.BlockSize())

	process(t, p, make([]float32, quantumSize))
	require.Equal(t, accepted, p.Config())
	require.Equal(t, 1024, p.BlockSize())

	process(t, p, make([]float32, 1024))
	require.Equal(t, uint64(2), p.Diagnostics().BlocksProcessed)
}

func TestProcessor_UpdateConfigKeepsState(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor(t)
	process(t, p, sine(300, 0.5, 2048*8))
	require.True(t, p.Diagnostics().BlockVoiceActive)

	require.NoError(t, p.UpdateConfig(ctx, ConfigUpdate{SpectralFluxThreshold: ptr(6.0)}))
	process(t, p, sine(300, 0.5, 2048))
	d := p.Diagnostics()
	require.Equal(t, 6.0, p.Config().SpectralFluxThreshold)
	require.True(t, d.BlockVoiceActive)
	require.Len(t, d.RecentVoiceDecisions, 10)
	require.True(t, d.RecentVoiceDecisions[len(d.RecentVoiceDecisions)-1])
	require.True(t, d.VoiceActive)
}

func TestProcessor_HysteresisDisabled(t *testing.T) {
	cfg := DefaultConfig(testSampleRate)
	cfg.HysteresisEnabled = false
	p, err := New(cfg)
	require.NoError(t, err)

	// no block has been analyzed yet, so nothing is voice
	output := make([]float32, quantumSize)
	require.NoError(t, p.ProcessQuantum(output, sine(300, 0.5, quantumSize)))
	require.False(t, p.Diagnostics().VoiceActive)
}

func TestProcessor_Reset(t *testing.T) {
	p := newTestProcessor(t)
	process(t, p, sine(300, 0.5, 2048*8))
	p.Reset()

	d := p.Diagnostics()
	require.False(t, d.VoiceActive)
	require.Zero(t, d.SmoothedRMS)
	require.Zero(t, d.BlocksProcessed)
	require.Equal(t, 0.001, d.NoiseFloor)
}

func TestProcessor_ResetAfterMinNoiseFloorUpdate(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.UpdateConfig(context.Background(), ConfigUpdate{MinNoiseFloor: ptr(0.002)}))
	process(t, p, make([]float32, 2048*3))
	p.Reset()

	d := p.Diagnostics()
	require.Equal(t, 0.002, d.NoiseFloor)
	low, high := spectrum.Bin(85, 2048, testSampleRate), spectrum.Bin(3400, 2048, testSampleRate)
	require.InDelta(t, float64(high-low+1)*0.002, d.NoiseProfileBandEnergy, 1e-12)
}

func TestProcessor_NoAllocations(t *testing.T) {
	p := newTestProcessor(t)
	process(t, p, sine(300, 0.5, 2048*10))
	input := sine(300, 0.5, quantumSize)
	output := make([]float32, quantumSize)
	var d Diagnostics
	p.DiagnosticsTo(&d)

	allocs := testing.AllocsPerRun(100, func() {
		if err := p.ProcessQuantum(output, input); err != nil {
			panic(err)
		}
		p.DiagnosticsTo(&d)
	})
	require.Zero(t, allocs)
}

func BenchmarkProcessor_ProcessQuantum(b *testing.B) {
	p := newTestProcessor(b)
	input := sine(300, 0.5, quantumSize)
	output := make([]float32, quantumSize)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := p.ProcessQuantum(output, input); err != nil {
			b.Fatal(err)
		}
	}
}
