// Package rms implements a sliding-window RMS estimator with O(1) updates.
package rms

import (
	"fmt"
	"math"
)

// RunningRMS keeps the squares of the last N samples and their sum,
// and smooths the resulting RMS with an exponential moving average.
type RunningRMS struct {
	squares  []float64
	pos      int
	sum      float64
	alpha    float64
	smoothed float64
}

func New(windowSize int, smoothingFactor float64) (*RunningRMS, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive: got %d", windowSize)
	}
	if err := validateSmoothingFactor(smoothingFactor); err != nil {
		return nil, err
	}
	return &RunningRMS{
		squares: make([]float64, windowSize),
		alpha:   smoothingFactor,
	}, nil
}

func validateSmoothingFactor(alpha float64) error {
	if !(alpha >= 0 && alpha < 1) {
		return fmt.Errorf("smoothing factor must be in [0, 1): got %v", alpha)
	}
	return nil
}

// Update pushes the next sample and returns the smoothed RMS.
// Non-finite samples are accounted as silence.
func (r *RunningRMS) Update(sample float64) float64 {
	sq := sample * sample
	if math.IsNaN(sq) || math.IsInf(sq, 0) {
		sq = 0
	}

	r.sum += sq - r.squares[r.pos]
	r.squares[r.pos] = sq
	r.pos++
	if r.pos == len(r.squares) {
		r.pos = 0
		// once per window, so the amortized cost stays O(1)
		r.recomputeSum()
	}
	if r.sum < 0 {
		r.sum = 0
	}

	rms := math.Sqrt(r.sum / float64(len(r.squares)))
	r.smoothed = r.smoothed*r.alpha + rms*(1-r.alpha)
	if math.IsNaN(r.smoothed) || math.IsInf(r.smoothed, 0) {
		r.smoothed = rms
	}
	return r.smoothed
}

func (r *RunningRMS) recomputeSum() {
	var sum float64
	for _, sq := range r.squares {
		sum += sq
	}
	r.sum = sum
}

// Value returns the last smoothed RMS.
func (r *RunningRMS) Value() float64 {
	return r.smoothed
}

// Instant returns the unsmoothed RMS of the current window.
func (r *RunningRMS) Instant() float64 {
	return math.Sqrt(r.sum / float64(len(r.squares)))
}

// Sum returns the running sum of squares of the current window.
func (r *RunningRMS) Sum() float64 {
	return r.sum
}

func (r *RunningRMS) WindowSize() int {
	return len(r.squares)
}

func (r *RunningRMS) SetSmoothingFactor(alpha float64) error {
	if err := validateSmoothingFactor(alpha); err != nil {
		return err
	}
	r.alpha = alpha
	return nil
}

func (r *RunningRMS) Reset() {
	for i := range r.squares {
		r.squares[i] = 0
	}
	r.pos = 0
	r.sum = 0
	r.smoothed = 0
}
