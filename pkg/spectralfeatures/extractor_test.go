package spectralfeatures

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractor_Flux(t *testing.T) {
	e, err := New(16, 16000, 0, 8000)
	require.NoError(t, err)

	first := []float64{1, 2, 3, 4, 100, 100, 100, 100}
	f, err := e.Extract(first)
	require.NoError(t, err)
	// lower half only, previous is all-zero on the first call
	require.Equal(t, 10.0, f.SpectralFlux)

	f, err = e.Extract([]float64{2, 1, 3, 6, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, 3.0, f.SpectralFlux)

	f, err = e.Extract([]float64{2, 1, 3, 6, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Zero(t, f.SpectralFlux)
}

func TestExtractor_VoiceBandEnergy(t *testing.T) {
	// bins are 1000 Hz wide
	e, err := New(16, 16000, 2000, 4000)
	require.NoError(t, err)
	low, high := e.BandBins()
	require.Equal(t, 2, low)
	require.Equal(t, 4, high)

	f, err := e.Extract([]float64{10, 10, 1, 2, 3, 10, 10, 10})
	require.NoError(t, err)
	require.Equal(t, 14.0, f.VoiceBandEnergy)
}

func TestExtractor_SetVoiceBand(t *testing.T) {
	e, err := New(16, 16000, 2000, 4000)
	require.NoError(t, err)
	_, err = e.Extract([]float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)

	require.NoError(t, e.SetVoiceBand(16000, 5000, 7000))
	low, high := e.BandBins()
	require.Equal(t, 5, low)
	require.Equal(t, 7, high)
	require.Error(t, e.SetVoiceBand(16000, 7000, 5000))

	// the previous spectrum is kept
	f, err := e.Extract([]float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	require.Zero(t, f.SpectralFlux)
}

func TestExtractor_BandClamp(t *testing.T) {
	e, err := New(16, 16000, 0, 20000)
	require.NoError(t, err)
	low, high := e.BandBins()
	require.Equal(t, 0, low)
	require.Equal(t, 7, high)
}

func TestExtractor_Errors(t *testing.T) {
	_, err := New(15, 16000, 0, 100)
	require.Error(t, err)
	_, err = New(16, 0, 0, 100)
	require.Error(t, err)
	_, err = New(16, 16000, 300, 100)
	require.Error(t, err)

	e, err := New(16, 16000, 0, 100)
	require.NoError(t, err)
	_, err = e.Extract(make([]float64, 16))
	require.Error(t, err)
}

func TestExtractor_Reset(t *testing.T) {
	e, err := New(8, 8000, 0, 4000)
	require.NoError(t, err)
	s := []float64{1, 1, 1, 1}
	_, err = e.Extract(s)
	require.NoError(t, err)
	e.Reset()
	f, err := e.Extract(s)
	require.NoError(t, err)
	require.Equal(t, 2.0, f.SpectralFlux)
}
