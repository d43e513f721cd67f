// Package godsp implements spectrum.Analyzer on top of go-dsp.
//
// It allocates on every call, so it is meant for offline analysis and
// as a reference, not for the real-time path.
package godsp

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
)

type Analyzer struct {
	size      int
	window    []float64
	windowed  []float64
	magnitude []float64
}

var _ spectrum.Analyzer = (*Analyzer)(nil)

func Factory(size int) (spectrum.Analyzer, error) {
	return New(size)
}

func New(size int) (*Analyzer, error) {
	if err := spectrum.ValidateSize(size); err != nil {
		return nil, err
	}
	return &Analyzer{
		size:      size,
		window:    spectrum.HannWindow(size),
		windowed:  make([]float64, size),
		magnitude: make([]float64, size/2),
	}, nil
}

func (a *Analyzer) Size() int {
	return a.size
}

func (a *Analyzer) Transform(block []float64) ([]float64, error) {
	if len(block) != a.size {
		return nil, fmt.Errorf("expected a block of %d samples, received %d", a.size, len(block))
	}
	for i, v := range block {
		a.windowed[i] = v * a.window[i]
	}
	coeffs := fft.FFTReal(a.windowed)
	for i := range a.magnitude {
		a.magnitude[i] = cmplx.Abs(coeffs[i])
	}
	return a.magnitude, nil
}
