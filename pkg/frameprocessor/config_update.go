package frameprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ConfigUpdate is a partial configuration: nil fields keep the previous value.
type ConfigUpdate struct {
	FFTSize               *int     `yaml:"fftSize,omitempty"`
	MinNoiseFloor         *float64 `yaml:"minNoiseFloor,omitempty"`
	MaxNoiseFloor         *float64 `yaml:"maxNoiseFloor,omitempty"`
	NoiseFloorSmoothing   *float64 `yaml:"noiseFloorSmoothing,omitempty"`
	VoiceBandLow          *float64 `yaml:"voiceBandLow,omitempty"`
	VoiceBandHigh         *float64 `yaml:"voiceBandHigh,omitempty"`
	SmoothingFactor       *float64 `yaml:"smoothingFactor,omitempty"`
	RMSWindowSize         *int     `yaml:"rmsWindowSize,omitempty"`
	SpectralFluxThreshold *float64 `yaml:"spectralFluxThreshold,omitempty"`
	VoiceBandThreshold    *float64 `yaml:"voiceBandThreshold,omitempty"`

	RMSNoiseRatio           *float64 `yaml:"rmsNoiseRatio,omitempty"`
	HistoryLength           *int     `yaml:"historyLength,omitempty"`
	ActivationRatio         *float64 `yaml:"activationRatio,omitempty"`
	ResidualGain            *float64 `yaml:"residualGain,omitempty"`
	MinGain                 *float64 `yaml:"minGain,omitempty"`
	MaxGain                 *float64 `yaml:"maxGain,omitempty"`
	SNRThreshold            *float64 `yaml:"snrThreshold,omitempty"`
	HysteresisEnabled       *bool    `yaml:"hysteresisEnabled,omitempty"`
	HysteresisActivateRatio *float64 `yaml:"hysteresisActivateRatio,omitempty"`
	HysteresisReleaseRatio  *float64 `yaml:"hysteresisReleaseRatio,omitempty"`
	AmplitudeSmoothing      *float64 `yaml:"amplitudeSmoothing,omitempty"`
	NoiseProfileEnabled     *bool    `yaml:"noiseProfileEnabled,omitempty"`
}

// ParseConfigUpdate decodes a YAML (or JSON) document; unknown keys are rejected.
func ParseConfigUpdate(b []byte) (ConfigUpdate, error) {
	var update ConfigUpdate
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	err := decoder.Decode(&update)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return update, nil
	default:
		return ConfigUpdate{}, &ConfigurationError{Err: fmt.Errorf("unable to decode the configuration update: %w", err)}
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Merge overlays the update over cfg.
func (u ConfigUpdate) Merge(cfg Config) Config {
	set(&cfg.FFTSize, u.FFTSize)
	set(&cfg.MinNoiseFloor, u.MinNoiseFloor)
	set(&cfg.MaxNoiseFloor, u.MaxNoiseFloor)
	set(&cfg.NoiseFloorSmoothing, u.NoiseFloorSmoothing)
	set(&cfg.VoiceBandLow, u.VoiceBandLow)
	set(&cfg.VoiceBandHigh, u.VoiceBandHigh)
	set(&cfg.SmoothingFactor, u.SmoothingFactor)
	set(&cfg.RMSWindowSize, u.RMSWindowSize)
	set(&cfg.SpectralFluxThreshold, u.SpectralFluxThreshold)
	set(&cfg.VoiceBandThreshold, u.VoiceBandThreshold)
	set(&cfg.RMSNoiseRatio, u.RMSNoiseRatio)
	set(&cfg.HistoryLength, u.HistoryLength)
	set(&cfg.ActivationRatio, u.ActivationRatio)
	set(&cfg.ResidualGain, u.ResidualGain)
	set(&cfg.MinGain, u.MinGain)
	set(&cfg.MaxGain, u.MaxGain)
	set(&cfg.SNRThreshold, u.SNRThreshold)
	set(&cfg.HysteresisEnabled, u.HysteresisEnabled)
	set(&cfg.HysteresisActivateRatio, u.HysteresisActivateRatio)
	set(&cfg.HysteresisReleaseRatio, u.HysteresisReleaseRatio)
	set(&cfg.AmplitudeSmoothing, u.AmplitudeSmoothing)
	set(&cfg.NoiseProfileEnabled, u.NoiseProfileEnabled)
	return cfg
}
