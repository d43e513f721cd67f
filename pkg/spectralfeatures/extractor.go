// Package spectralfeatures extracts block-level features used for
// voice activity detection from consecutive magnitude spectra.
package spectralfeatures

import (
	"fmt"

	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
)

type Features struct {
	// SpectralFlux is the rectified increase of magnitudes over the
	// lower half of the bins relative to the previous block.
	SpectralFlux float64

	// VoiceBandEnergy is the sum of squared magnitudes within the voice band.
	VoiceBandEnergy float64
}

type Extractor struct {
	previous []float64
	bandLow  int
	bandHigh int
}

// New creates an Extractor for spectra of an fftSize-point transform.
// The band edges are converted to the nearest bins and clamped to the spectrum.
func New(
	fftSize int,
	sampleRate float64,
	voiceBandLow float64,
	voiceBandHigh float64,
) (*Extractor, error) {
	if err := spectrum.ValidateSize(fftSize); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: got %v", sampleRate)
	}
	if voiceBandLow < 0 || voiceBandHigh < voiceBandLow {
		return nil, fmt.Errorf("invalid voice band: [%v, %v]", voiceBandLow, voiceBandHigh)
	}

	e := &Extractor{
		previous: make([]float64, fftSize/2),
	}
	e.setVoiceBand(fftSize, sampleRate, voiceBandLow, voiceBandHigh)
	return e, nil
}

// SetVoiceBand changes the voice band keeping the previous spectrum.
func (e *Extractor) SetVoiceBand(sampleRate, voiceBandLow, voiceBandHigh float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive: got %v", sampleRate)
	}
	if voiceBandLow < 0 || voiceBandHigh < voiceBandLow {
		return fmt.Errorf("invalid voice band: [%v, %v]", voiceBandLow, voiceBandHigh)
	}
	e.setVoiceBand(len(e.previous)*2, sampleRate, voiceBandLow, voiceBandHigh)
	return nil
}

func (e *Extractor) setVoiceBand(fftSize int, sampleRate, low, high float64) {
	bins := fftSize / 2
	e.bandLow = clampBin(spectrum.Bin(low, fftSize, sampleRate), bins)
	e.bandHigh = clampBin(spectrum.Bin(high, fftSize, sampleRate), bins)
}

func clampBin(bin, bins int) int {
	switch {
	case bin < 0:
		return 0
	case bin >= bins:
		return bins - 1
	}
	return bin
}

// BandBins returns the inclusive range of bins accounted as the voice band.
func (e *Extractor) BandBins() (int, int) {
	return e.bandLow, e.bandHigh
}

// Extract computes the features of the given spectrum and remembers it
// as the previous one for the next call.
func (e *Extractor) Extract(magnitude []float64) (Features, error) {
	if len(magnitude) != len(e.previous) {
		return Features{}, fmt.Errorf("expected a spectrum of %d bins, received %d", len(e.previous), len(magnitude))
	}

	var f Features
	for i := 0; i < len(magnitude)/2; i++ {
		if diff := magnitude[i] - e.previous[i]; diff > 0 {
			f.SpectralFlux += diff
		}
	}
	for i := e.bandLow; i <= e.bandHigh; i++ {
		f.VoiceBandEnergy += magnitude[i] * magnitude[i]
	}

	copy(e.previous, magnitude)
	return f, nil
}

// Reset forgets the previous spectrum.
func (e *Extractor) Reset() {
	for i := range e.previous {
		e.previous[i] = 0
	}
}
