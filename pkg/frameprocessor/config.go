package frameprocessor

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/gain"
	"github.com/xaionaro-go/voicefilter/pkg/noisefloor"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
	"github.com/xaionaro-go/voicefilter/pkg/voiceactivity"
)

const (
	MaxFFTSize        = 1 << 16
	MaxRMSWindowSize  = 1 << 20
	MaxHistoryLength  = 1 << 10
	DefaultSampleRate = audio.SampleRate(48000)
)

type Config struct {
	SampleRate audio.SampleRate `yaml:"-"`

	FFTSize             int     `yaml:"fftSize"`
	MinNoiseFloor       float64 `yaml:"minNoiseFloor"`
	MaxNoiseFloor       float64 `yaml:"maxNoiseFloor"`
	NoiseFloorSmoothing float64 `yaml:"noiseFloorSmoothing"`

	// VoiceBandLow and VoiceBandHigh are in Hz.
	VoiceBandLow  float64 `yaml:"voiceBandLow"`
	VoiceBandHigh float64 `yaml:"voiceBandHigh"`

	// SmoothingFactor is the weight of the previous smoothed RMS value.
	SmoothingFactor float64 `yaml:"smoothingFactor"`
	RMSWindowSize   int     `yaml:"rmsWindowSize"`

	SpectralFluxThreshold float64 `yaml:"spectralFluxThreshold"`
	VoiceBandThreshold    float64 `yaml:"voiceBandThreshold"`
	RMSNoiseRatio         float64 `yaml:"rmsNoiseRatio"`
	HistoryLength         int     `yaml:"historyLength"`
	ActivationRatio       float64 `yaml:"activationRatio"`

	ResidualGain float64 `yaml:"residualGain"`
	MinGain      float64 `yaml:"minGain"`
	MaxGain      float64 `yaml:"maxGain"`
	SNRThreshold float64 `yaml:"snrThreshold"`

	HysteresisEnabled       bool    `yaml:"hysteresisEnabled"`
	HysteresisActivateRatio float64 `yaml:"hysteresisActivateRatio"`
	HysteresisReleaseRatio  float64 `yaml:"hysteresisReleaseRatio"`
	AmplitudeSmoothing      float64 `yaml:"amplitudeSmoothing"`

	NoiseProfileEnabled bool `yaml:"noiseProfileEnabled"`
}

func DefaultConfig(sampleRate audio.SampleRate) Config {
	gainParams := gain.DefaultParams()
	return Config{
		SampleRate:              sampleRate,
		FFTSize:                 2048,
		MinNoiseFloor:           0.001,
		MaxNoiseFloor:           0.1,
		NoiseFloorSmoothing:     0.05,
		VoiceBandLow:            85,
		VoiceBandHigh:           3400,
		SmoothingFactor:         0.95,
		RMSWindowSize:           4096,
		SpectralFluxThreshold:   5,
		VoiceBandThreshold:      10,
		RMSNoiseRatio:           4,
		HistoryLength:           10,
		ActivationRatio:         0.6,
		ResidualGain:            gainParams.ResidualGain,
		MinGain:                 gainParams.MinGain,
		MaxGain:                 gainParams.MaxGain,
		SNRThreshold:            gainParams.SNRThreshold,
		HysteresisEnabled:       true,
		HysteresisActivateRatio: 3,
		HysteresisReleaseRatio:  1.5,
		AmplitudeSmoothing:      0.95,
	}
}

func (cfg Config) GainParams() gain.Params {
	return gain.Params{
		ResidualGain: cfg.ResidualGain,
		MinGain:      cfg.MinGain,
		MaxGain:      cfg.MaxGain,
		SNRThreshold: cfg.SNRThreshold,
	}
}

func (cfg Config) Thresholds() voiceactivity.Thresholds {
	return voiceactivity.Thresholds{
		RMSNoiseRatio:   cfg.RMSNoiseRatio,
		SpectralFlux:    cfg.SpectralFluxThreshold,
		VoiceBandEnergy: cfg.VoiceBandThreshold,
	}
}

func isUnitInterval(v float64) bool {
	return v >= 0 && v < 1
}

// Validate returns a *ConfigurationError listing every violated constraint.
func (cfg Config) Validate() error {
	var mErr *multierror.Error

	if cfg.SampleRate == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("sample rate is not set"))
	}
	if err := spectrum.ValidateSize(cfg.FFTSize); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("fftSize: %w", err))
	} else if cfg.FFTSize > MaxFFTSize {
		mErr = multierror.Append(mErr, fmt.Errorf("fftSize must not exceed %d: got %d", MaxFFTSize, cfg.FFTSize))
	}
	if err := noisefloor.Validate(cfg.MinNoiseFloor, cfg.MaxNoiseFloor, cfg.NoiseFloorSmoothing); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	nyquist := float64(cfg.SampleRate) / 2
	switch {
	case math.IsNaN(cfg.VoiceBandLow) || cfg.VoiceBandLow < 0 || cfg.VoiceBandLow > nyquist:
		mErr = multierror.Append(mErr, fmt.Errorf("voiceBandLow must be within [0, %v]: got %v", nyquist, cfg.VoiceBandLow))
	case math.IsNaN(cfg.VoiceBandHigh) || cfg.VoiceBandHigh < 0 || cfg.VoiceBandHigh > nyquist:
		mErr = multierror.Append(mErr, fmt.Errorf("voiceBandHigh must be within [0, %v]: got %v", nyquist, cfg.VoiceBandHigh))
	case cfg.VoiceBandLow >= cfg.VoiceBandHigh:
		mErr = multierror.Append(mErr, fmt.Errorf("voiceBandLow (%v) must be less than voiceBandHigh (%v)", cfg.VoiceBandLow, cfg.VoiceBandHigh))
	}

	if !isUnitInterval(cfg.SmoothingFactor) {
		mErr = multierror.Append(mErr, fmt.Errorf("smoothingFactor must be in [0, 1): got %v", cfg.SmoothingFactor))
	}
	if cfg.RMSWindowSize <= 0 || cfg.RMSWindowSize > MaxRMSWindowSize {
		mErr = multierror.Append(mErr, fmt.Errorf("rmsWindowSize must be in [1, %d]: got %d", MaxRMSWindowSize, cfg.RMSWindowSize))
	}
	if err := voiceactivity.ValidateThresholds(cfg.Thresholds()); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if cfg.HistoryLength <= 0 || cfg.HistoryLength > MaxHistoryLength {
		mErr = multierror.Append(mErr, fmt.Errorf("historyLength must be in [1, %d]: got %d", MaxHistoryLength, cfg.HistoryLength))
	}
	if !(cfg.ActivationRatio > 0 && cfg.ActivationRatio < 1) {
		mErr = multierror.Append(mErr, fmt.Errorf("activationRatio must be in (0, 1): got %v", cfg.ActivationRatio))
	}
	if err := cfg.GainParams().Validate(); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if err := voiceactivity.ValidateHysteresis(cfg.HysteresisActivateRatio, cfg.HysteresisReleaseRatio); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	if !isUnitInterval(cfg.AmplitudeSmoothing) {
		mErr = multierror.Append(mErr, fmt.Errorf("amplitudeSmoothing must be in [0, 1): got %v", cfg.AmplitudeSmoothing))
	}

	if err := mErr.ErrorOrNil(); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}
