// Package gain maps the signal level, the noise floor and the voice
// decision to a gain applied to the samples.
package gain

import (
	"fmt"
	"math"
)

type Params struct {
	// ResidualGain is applied to non-voice samples, so ambient sound
	// is attenuated instead of muted.
	ResidualGain float64
	MinGain      float64
	MaxGain      float64

	// SNRThreshold is the signal-to-noise ratio where the knee starts.
	SNRThreshold float64
}

func DefaultParams() Params {
	return Params{
		ResidualGain: 0.1,
		MinGain:      0.1,
		MaxGain:      1,
		SNRThreshold: 4,
	}
}

func (p Params) Validate() error {
	for _, g := range []struct {
		name  string
		value float64
	}{
		{"residual gain", p.ResidualGain},
		{"minimal gain", p.MinGain},
		{"maximal gain", p.MaxGain},
	} {
		if !(g.value >= 0 && g.value <= 1) {
			return fmt.Errorf("%s must be in [0, 1]: got %v", g.name, g.value)
		}
	}
	if p.MinGain > p.MaxGain {
		return fmt.Errorf("the minimal gain is higher than the maximal one: %v > %v", p.MinGain, p.MaxGain)
	}
	if !(p.SNRThreshold > 0) || math.IsInf(p.SNRThreshold, 0) {
		return fmt.Errorf("SNR threshold must be a positive finite number: got %v", p.SNRThreshold)
	}
	return nil
}

type Computer struct {
	params Params
}

func New(params Params) (*Computer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Computer{params: params}, nil
}

func (c *Computer) Params() Params {
	return c.params
}

func (c *Computer) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	c.params = params
	return nil
}

// Gain returns a value in [0, 1]. Any non-finite intermediate results in the residual gain.
func (c *Computer) Gain(signalLevel, noiseFloor float64, isVoice bool) float64 {
	p := &c.params
	if !isVoice {
		return p.ResidualGain
	}

	snr := signalLevel / noiseFloor
	if !(noiseFloor > 0) || math.IsNaN(snr) || math.IsInf(snr, 0) {
		return p.ResidualGain
	}
	if snr < p.SNRThreshold {
		return p.MinGain
	}

	g := p.MinGain + (p.MaxGain-p.MinGain)*sigmoid(4*(snr-p.SNRThreshold)/p.SNRThreshold)
	if math.IsNaN(g) {
		return p.ResidualGain
	}
	return math.Min(math.Max(g, p.MinGain), p.MaxGain)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
