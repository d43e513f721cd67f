package spectrum

import (
	"fmt"
	"math"
)

// Analyzer converts one block of samples into a magnitude spectrum.
//
// The returned slice has Size()/2 elements, belongs to the Analyzer and
// stays valid only until the next call of Transform. An Analyzer
// is not safe for concurrent use.
type Analyzer interface {
	Size() int
	Transform(block []float64) ([]float64, error)
}

// Factory builds an Analyzer for the given block size.
type Factory func(size int) (Analyzer, error)

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// ValidateSize checks that blocks of the given size could be analyzed.
func ValidateSize(size int) error {
	if size < 2 {
		return fmt.Errorf("block size must be at least 2: got %d", size)
	}
	if !IsPowerOfTwo(size) {
		return fmt.Errorf("block size must be a power of two: got %d", size)
	}
	return nil
}

// HannWindow returns the symmetric Hann window coefficients.
func HannWindow(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1
		return window
	}
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// Bin converts a frequency to the nearest bin index of a size-point transform.
func Bin(freqHz float64, size int, sampleRate float64) int {
	return int(math.Round(freqHz * float64(size) / sampleRate))
}
