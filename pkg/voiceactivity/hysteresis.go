package voiceactivity

import (
	"fmt"
	"math"
)

// Hysteresis is an amplitude detector with two thresholds relative to the
// noise floor: it turns on above activateRatio and off below releaseRatio.
type Hysteresis struct {
	activateRatio float64
	releaseRatio  float64
	active        bool
}

func NewHysteresis(activateRatio, releaseRatio float64) (*Hysteresis, error) {
	if err := ValidateHysteresis(activateRatio, releaseRatio); err != nil {
		return nil, err
	}
	return &Hysteresis{
		activateRatio: activateRatio,
		releaseRatio:  releaseRatio,
	}, nil
}

func ValidateHysteresis(activateRatio, releaseRatio float64) error {
	if !(releaseRatio > 0) || math.IsInf(activateRatio, 0) {
		return fmt.Errorf("hysteresis ratios must be positive and finite: %v, %v", activateRatio, releaseRatio)
	}
	if !(activateRatio >= releaseRatio) {
		return fmt.Errorf("the activation ratio must not be lower than the release ratio: %v < %v", activateRatio, releaseRatio)
	}
	return nil
}

// Update returns the new state for the given smoothed level.
func (h *Hysteresis) Update(level, noiseFloor float64) bool {
	if math.IsNaN(level) || math.IsNaN(noiseFloor) {
		return h.active
	}
	if h.active {
		if level < noiseFloor*h.releaseRatio {
			h.active = false
		}
	} else {
		if level > noiseFloor*h.activateRatio {
			h.active = true
		}
	}
	return h.active
}

func (h *Hysteresis) Active() bool {
	return h.active
}

func (h *Hysteresis) SetRatios(activateRatio, releaseRatio float64) error {
	if err := ValidateHysteresis(activateRatio, releaseRatio); err != nil {
		return err
	}
	h.activateRatio = activateRatio
	h.releaseRatio = releaseRatio
	return nil
}

func (h *Hysteresis) Reset() {
	h.active = false
}
