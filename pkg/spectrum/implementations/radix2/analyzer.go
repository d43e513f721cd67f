// Package radix2 implements an allocation-free in-place radix-2
// Cooley-Tukey spectrum analyzer.
package radix2

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
)

type Analyzer struct {
	size      int
	window    []float64
	reversed  []int
	cosTable  []float64
	sinTable  []float64
	real      []float64
	imag      []float64
	magnitude []float64
}

var _ spectrum.Analyzer = (*Analyzer)(nil)

// Factory is a spectrum.Factory for this implementation.
func Factory(size int) (spectrum.Analyzer, error) {
	return New(size)
}

func New(size int) (*Analyzer, error) {
	if err := spectrum.ValidateSize(size); err != nil {
		return nil, err
	}

	a := &Analyzer{
		size:      size,
		window:    spectrum.HannWindow(size),
		reversed:  make([]int, size),
		cosTable:  make([]float64, size/2),
		sinTable:  make([]float64, size/2),
		real:      make([]float64, size),
		imag:      make([]float64, size),
		magnitude: make([]float64, size/2),
	}

	bits := 0
	for 1<<bits < size {
		bits++
	}
	for i := range a.reversed {
		a.reversed[i] = reverseBits(i, bits)
	}
	for k := range a.cosTable {
		theta := -2 * math.Pi * float64(k) / float64(size)
		a.cosTable[k] = math.Cos(theta)
		a.sinTable[k] = math.Sin(theta)
	}
	return a, nil
}

func reverseBits(x, bits int) int {
	var result int
	for i := 0; i < bits; i++ {
		result = result<<1 | x&1
		x >>= 1
	}
	return result
}

func (a *Analyzer) Size() int {
	return a.size
}

func (a *Analyzer) Transform(block []float64) ([]float64, error) {
	n := a.size
	if len(block) != n {
		return nil, fmt.Errorf("expected a block of %d samples, received %d", n, len(block))
	}

	re, im := a.real, a.imag
	for i, v := range block {
		re[i] = v * a.window[i]
		im[i] = 0
	}

	for i, j := range a.reversed {
		if i < j {
			re[i], re[j] = re[j], re[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := n / size
		for start := 0; start < n; start += size {
			for j, k := start, 0; j < start+half; j, k = j+1, k+step {
				wr, wi := a.cosTable[k], a.sinTable[k]
				xr, xi := re[j+half], im[j+half]
				tr := wr*xr - wi*xi
				ti := wr*xi + wi*xr
				re[j+half] = re[j] - tr
				im[j+half] = im[j] - ti
				re[j] += tr
				im[j] += ti
			}
		}
	}

	for i := range a.magnitude {
		a.magnitude[i] = math.Sqrt(re[i]*re[i] + im[i]*im[i])
	}
	return a.magnitude, nil
}
