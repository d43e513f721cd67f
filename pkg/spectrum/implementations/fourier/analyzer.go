// Package fourier implements spectrum.Analyzer on top of
// github.com/brettbuddin/fourier, which transforms in place.
package fourier

import (
	"fmt"
	"math"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
)

type Analyzer struct {
	size      int
	window    []float64
	coeffs    []complex128
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
		coeffs:    make([]complex128, size),
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
		a.coeffs[i] = complex(v*a.window[i], 0)
	}
	if err := fourier.Forward(a.coeffs); err != nil {
		return nil, fmt.Errorf("unable to transform: %w", err)
	}
	for i := range a.magnitude {
		c := a.coeffs[i]
		a.magnitude[i] = math.Hypot(real(c), imag(c))
	}
	return a.magnitude, nil
}
