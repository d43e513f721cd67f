package frameprocessor

type Diagnostics struct {
	NoiseFloor  float64
	SmoothedRMS float64

	// VoiceActive is the decision applied to the latest sample.
	VoiceActive bool

	// BlockVoiceActive is the debounced decision of the latest block.
	BlockVoiceActive bool

	// RecentVoiceDecisions are the undebounced block decisions, oldest first.
	RecentVoiceDecisions []bool
	VoiceConfidence      float64

	SpectralFlux           float64
	VoiceBandEnergy        float64
	NoiseProfileBandEnergy float64

	Gain            float64
	BlocksProcessed uint64
}

// Diagnostics returns a snapshot of the processing state.
// It must be called from the goroutine calling ProcessQuantum.
func (p *Processor) Diagnostics() Diagnostics {
	var d Diagnostics
	p.DiagnosticsTo(&d)
	return d
}

// DiagnosticsTo is Diagnostics reusing the memory of dst.
func (p *Processor) DiagnosticsTo(dst *Diagnostics) {
	low, high := p.extractor.BandBins()
	*dst = Diagnostics{
		NoiseFloor:             p.noiseFloor,
		SmoothedRMS:            p.rms.Value(),
		VoiceActive:            p.voice,
		BlockVoiceActive:       p.blockVoice,
		RecentVoiceDecisions:   p.detector.History().AppendTo(dst.RecentVoiceDecisions[:0]),
		VoiceConfidence:        p.detector.Confidence(),
		SpectralFlux:           p.features.SpectralFlux,
		VoiceBandEnergy:        p.features.VoiceBandEnergy,
		NoiseProfileBandEnergy: p.profile.BandEnergy(low, high),
		Gain:                   p.currentGain,
		BlocksProcessed:        p.blocksProcessed,
	}
}
