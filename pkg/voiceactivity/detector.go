// Package voiceactivity decides whether analysis blocks contain voice.
//
// Detector fuses block features (RMS against the noise floor, spectral flux
// and voice band energy) and debounces the result with a majority vote over
// the latest blocks. Hysteresis is a per-sample amplitude detector with
// separate activation and release thresholds.
package voiceactivity

import (
	"fmt"
	"math"
)

type Thresholds struct {
	// RMSNoiseRatio: a block is voiced if its RMS exceeds the noise floor this many times.
	RMSNoiseRatio   float64
	SpectralFlux    float64
	VoiceBandEnergy float64
}

type Detector struct {
	thresholds      Thresholds
	activationRatio float64
	history         *History
	lastRaw         bool
	active          bool
}

func validateActivationRatio(activationRatio float64) error {
	if !(activationRatio > 0 && activationRatio < 1) {
		return fmt.Errorf("activation ratio must be in (0, 1): got %v", activationRatio)
	}
	return nil
}

func New(
	thresholds Thresholds,
	historyLength int,
	activationRatio float64,
) (*Detector, error) {
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}
	if err := validateActivationRatio(activationRatio); err != nil {
		return nil, err
	}
	history, err := NewHistory(historyLength)
	if err != nil {
		return nil, err
	}
	return &Detector{
		thresholds:      thresholds,
		activationRatio: activationRatio,
		history:         history,
	}, nil
}

func ValidateThresholds(t Thresholds) error {
	if !(t.RMSNoiseRatio >= 1) || math.IsInf(t.RMSNoiseRatio, 0) {
		return fmt.Errorf("RMS-to-noise ratio must be a finite number not less than 1: got %v", t.RMSNoiseRatio)
	}
	if !(t.SpectralFlux >= 0) || math.IsInf(t.SpectralFlux, 0) {
		return fmt.Errorf("spectral flux threshold must be a non-negative finite number: got %v", t.SpectralFlux)
	}
	if !(t.VoiceBandEnergy >= 0) || math.IsInf(t.VoiceBandEnergy, 0) {
		return fmt.Errorf("voice band threshold must be a non-negative finite number: got %v", t.VoiceBandEnergy)
	}
	return nil
}

// SetThresholds replaces the feature thresholds, keeping the history.
func (d *Detector) SetThresholds(t Thresholds) error {
	if err := ValidateThresholds(t); err != nil {
		return err
	}
	d.thresholds = t
	return nil
}

// SetActivationRatio changes the share of voiced blocks required for
// the debounced decision; it takes effect from the next Commit.
func (d *Detector) SetActivationRatio(activationRatio float64) error {
	if err := validateActivationRatio(activationRatio); err != nil {
		return err
	}
	d.activationRatio = activationRatio
	return nil
}

// Evaluate returns the undebounced decision for a single block.
func (d *Detector) Evaluate(
	rms float64,
	noiseFloor float64,
	spectralFlux float64,
	voiceBandEnergy float64,
) bool {
	return d.EvaluateLevel(rms, noiseFloor) || d.EvaluateSpectrum(spectralFlux, voiceBandEnergy)
}

// EvaluateLevel is the loudness part of Evaluate.
func (d *Detector) EvaluateLevel(rms, noiseFloor float64) bool {
	return rms > noiseFloor*d.thresholds.RMSNoiseRatio
}

// EvaluateSpectrum is the part of Evaluate that does not depend on the noise floor.
func (d *Detector) EvaluateSpectrum(spectralFlux, voiceBandEnergy float64) bool {
	return spectralFlux > d.thresholds.SpectralFlux ||
		voiceBandEnergy > d.thresholds.VoiceBandEnergy
}

// Commit records a block decision and returns the debounced one.
func (d *Detector) Commit(raw bool) bool {
	d.lastRaw = raw
	d.history.Push(raw)
	d.active = float64(d.history.TrueCount()) > d.activationRatio*float64(d.history.Len())
	return d.active
}

// Decide is Evaluate followed by Commit.
func (d *Detector) Decide(
	rms float64,
	noiseFloor float64,
	spectralFlux float64,
	voiceBandEnergy float64,
) bool {
	return d.Commit(d.Evaluate(rms, noiseFloor, spectralFlux, voiceBandEnergy))
}

// Active returns the last debounced decision.
func (d *Detector) Active() bool {
	return d.active
}

// LastRaw returns the last undebounced decision.
func (d *Detector) LastRaw() bool {
	return d.lastRaw
}

// Confidence is the share of voiced blocks in the history.
func (d *Detector) Confidence() float64 {
	if d.history.Len() == 0 {
		return 0
	}
	return float64(d.history.TrueCount()) / float64(d.history.Len())
}

func (d *Detector) History() *History {
	return d.history
}

func (d *Detector) Reset() {
	d.history.Reset()
	d.lastRaw = false
	d.active = false
}
