// Package noisefloor tracks the background noise level of a stream.
package noisefloor

import (
	"fmt"
	"math"
)

// Tracker is an exponentially smoothed estimate of the background RMS.
// It adapts only while there is no voice and moves down twice as fast
// as it moves up. The value always stays within [min, max].
type Tracker struct {
	floor    float64
	minFloor float64
	maxFloor float64
	baseRate float64
}

// New returns a Tracker starting at minFloor.
func New(minFloor, maxFloor, baseRate float64) (*Tracker, error) {
	t := &Tracker{}
	if err := t.Reconfigure(minFloor, maxFloor, baseRate); err != nil {
		return nil, err
	}
	t.floor = minFloor
	return t, nil
}

func Validate(minFloor, maxFloor, baseRate float64) error {
	if !(minFloor > 0) || math.IsInf(minFloor, 0) {
		return fmt.Errorf("the minimal noise floor must be a positive finite number: got %v", minFloor)
	}
	if !(maxFloor >= minFloor) || math.IsInf(maxFloor, 0) {
		return fmt.Errorf("the maximal noise floor must be finite and not less than the minimal one: %v < %v", maxFloor, minFloor)
	}
	if !(baseRate > 0 && baseRate <= 0.5) {
		return fmt.Errorf("the noise floor smoothing must be in (0, 0.5]: got %v", baseRate)
	}
	return nil
}

// Reconfigure changes the bounds and the adaptation rate; the current
// value is clamped into the new bounds.
func (t *Tracker) Reconfigure(minFloor, maxFloor, baseRate float64) error {
	if err := Validate(minFloor, maxFloor, baseRate); err != nil {
		return err
	}
	t.minFloor = minFloor
	t.maxFloor = maxFloor
	t.baseRate = baseRate
	t.floor = t.clamp(t.floor)
	return nil
}

func (t *Tracker) clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return t.minFloor
	case v < t.minFloor:
		return t.minFloor
	case v > t.maxFloor:
		return t.maxFloor
	}
	return v
}

// Update adapts the estimate to rms unless isVoice is set, and returns it.
func (t *Tracker) Update(rms float64, isVoice bool) float64 {
	if isVoice || math.IsNaN(rms) || math.IsInf(rms, 0) {
		return t.floor
	}
	if rms < 0 {
		rms = 0
	}

	rate := t.baseRate
	if rms < t.floor {
		rate *= 2
	}
	t.floor = t.clamp(t.floor*(1-rate) + rms*rate)
	return t.floor
}

func (t *Tracker) Value() float64 {
	return t.floor
}

func (t *Tracker) Bounds() (float64, float64) {
	return t.minFloor, t.maxFloor
}

// Reset returns the estimate to the minimal floor.
func (t *Tracker) Reset() {
	t.floor = t.minFloor
}
