package noisefloor

import (
	"fmt"
)

const (
	profileSmoothing = 0.05

	// a bin carries voice if it is this much louder than its noise estimate
	profileBinRatio = 2
)

// Profile is a per-bin estimate of the noise magnitude spectrum.
type Profile struct {
	bins    []float64
	initial float64
}

func NewProfile(bins int, initial float64) (*Profile, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("the amount of bins must be positive: got %d", bins)
	}
	p := &Profile{
		bins:    make([]float64, bins),
		initial: initial,
	}
	p.Reset()
	return p, nil
}

func (p *Profile) Len() int {
	return len(p.bins)
}

// Update blends the spectrum of a silent block into the profile.
func (p *Profile) Update(magnitude []float64) error {
	if len(magnitude) != len(p.bins) {
		return fmt.Errorf("expected a spectrum of %d bins, received %d", len(p.bins), len(magnitude))
	}
	for i, m := range magnitude {
		p.bins[i] = p.bins[i]*(1-profileSmoothing) + m*profileSmoothing
	}
	return nil
}

// VoiceEvidence returns the summed magnitude of the bins within [low, high]
// that stand out of the profile, and the summed profile over the same bins.
func (p *Profile) VoiceEvidence(magnitude []float64, low, high int) (float64, float64) {
	if high >= len(p.bins) {
		high = len(p.bins) - 1
	}
	if high >= len(magnitude) {
		high = len(magnitude) - 1
	}
	if low < 0 {
		low = 0
	}

	var excess, noise float64
	for i := low; i <= high; i++ {
		if magnitude[i] > p.bins[i]*profileBinRatio {
			excess += magnitude[i]
		}
		noise += p.bins[i]
	}
	return excess, noise
}

// HasVoice reports whether the outstanding bins within [low, high] carry
// more than twice the noise of the profile.
func (p *Profile) HasVoice(magnitude []float64, low, high int) bool {
	excess, noise := p.VoiceEvidence(magnitude, low, high)
	return excess > noise*profileBinRatio
}

// BandEnergy returns the summed profile within [low, high].
func (p *Profile) BandEnergy(low, high int) float64 {
	var sum float64
	for i := max(low, 0); i <= high && i < len(p.bins); i++ {
		sum += p.bins[i]
	}
	return sum
}

// SetInitial changes the value Reset restores the bins to.
func (p *Profile) SetInitial(initial float64) {
	p.initial = initial
}

func (p *Profile) Reset() {
	for i := range p.bins {
		p.bins[i] = p.initial
	}
}
