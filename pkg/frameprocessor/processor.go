// Package frameprocessor runs the per-sample noise suppression of a
// single channel: every sample is attenuated immediately using the
// decision of the last analyzed block, and each completed block of
// FFTSize samples is analyzed to refresh that decision and the noise floor.
package frameprocessor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voicefilter/pkg/gain"
	"github.com/xaionaro-go/voicefilter/pkg/noisefloor"
	"github.com/xaionaro-go/voicefilter/pkg/rms"
	"github.com/xaionaro-go/voicefilter/pkg/spectralfeatures"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/radix2"
	"github.com/xaionaro-go/voicefilter/pkg/voiceactivity"
)

// buffers is the state whose allocation depends on the configuration.
type buffers struct {
	fftSize       int
	rmsWindowSize int
	historyLength int

	analyzer  spectrum.Analyzer
	block     []float64
	extractor *spectralfeatures.Extractor
	profile   *noisefloor.Profile
	rms       *rms.RunningRMS
	detector  *voiceactivity.Detector
}

type preparedConfig struct {
	config  Config
	buffers buffers
}

type Option func(*Processor)

// OptionAnalyzerFactory selects the spectrum analyzer implementation;
// radix2 is used by default.
func OptionAnalyzerFactory(factory spectrum.Factory) Option {
	return func(p *Processor) {
		p.analyzerFactory = factory
	}
}

// Processor is not safe for concurrent use except for UpdateConfig and
// AcceptedConfig, which may be called from any goroutine.
type Processor struct {
	analyzerFactory spectrum.Factory

	controlLocker sync.Mutex
	accepted      preparedConfig
	pending       atomic.Pointer[preparedConfig]

	config Config
	buffers
	tracker    *noisefloor.Tracker
	gain       *gain.Computer
	hysteresis *voiceactivity.Hysteresis

	blockIndex      int
	amplitude       float64
	noiseFloor      float64
	blockVoice      bool
	voice           bool
	currentGain     float64
	features        spectralfeatures.Features
	blocksProcessed uint64
}

func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		analyzerFactory: radix2.Factory,
	}
	for _, opt := range opts {
		opt(p)
	}

	bufs, err := p.prepareBuffers(cfg, buffers{})
	if err != nil {
		return nil, err
	}

	p.tracker, err = noisefloor.New(cfg.MinNoiseFloor, cfg.MaxNoiseFloor, cfg.NoiseFloorSmoothing)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the noise floor tracker: %w", err)
	}
	p.gain, err = gain.New(cfg.GainParams())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the gain computer: %w", err)
	}
	p.hysteresis, err = voiceactivity.NewHysteresis(cfg.HysteresisActivateRatio, cfg.HysteresisReleaseRatio)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the hysteresis: %w", err)
	}

	p.accepted = preparedConfig{config: cfg, buffers: bufs}
	if err := p.apply(&p.accepted); err != nil {
		return nil, err
	}
	p.currentGain = cfg.ResidualGain
	return p, nil
}

// prepareBuffers reuses the buffers of prev where the sizes match.
func (p *Processor) prepareBuffers(cfg Config, prev buffers) (buffers, error) {
	b := prev
	var err error

	if cfg.FFTSize != prev.fftSize {
		b.fftSize = cfg.FFTSize
		b.analyzer, err = p.analyzerFactory(cfg.FFTSize)
		if err != nil {
			return buffers{}, fmt.Errorf("unable to initialize a %d-point spectrum analyzer: %w", cfg.FFTSize, err)
		}
		b.block = make([]float64, cfg.FFTSize)
		b.extractor, err = spectralfeatures.New(cfg.FFTSize, float64(cfg.SampleRate), cfg.VoiceBandLow, cfg.VoiceBandHigh)
		if err != nil {
			return buffers{}, fmt.Errorf("unable to initialize the spectral feature extractor: %w", err)
		}
		b.profile, err = noisefloor.NewProfile(cfg.FFTSize/2, cfg.MinNoiseFloor)
		if err != nil {
			return buffers{}, fmt.Errorf("unable to initialize the noise profile: %w", err)
		}
	}

	if cfg.RMSWindowSize != prev.rmsWindowSize {
		b.rmsWindowSize = cfg.RMSWindowSize
		b.rms, err = rms.New(cfg.RMSWindowSize, cfg.SmoothingFactor)
		if err != nil {
			return buffers{}, fmt.Errorf("unable to initialize the running RMS: %w", err)
		}
	}

	if cfg.HistoryLength != prev.historyLength {
		b.historyLength = cfg.HistoryLength
		b.detector, err = voiceactivity.New(cfg.Thresholds(), cfg.HistoryLength, cfg.ActivationRatio)
		if err != nil {
			return buffers{}, fmt.Errorf("unable to initialize the voice activity detector: %w", err)
		}
	}

	return b, nil
}

// apply is called only from the processing side at a block boundary.
func (p *Processor) apply(next *preparedConfig) error {
	cfg := next.config
	p.buffers = next.buffers

	if err := p.extractor.SetVoiceBand(float64(cfg.SampleRate), cfg.VoiceBandLow, cfg.VoiceBandHigh); err != nil {
		return err
	}
	if err := p.rms.SetSmoothingFactor(cfg.SmoothingFactor); err != nil {
		return err
	}
	if err := p.tracker.Reconfigure(cfg.MinNoiseFloor, cfg.MaxNoiseFloor, cfg.NoiseFloorSmoothing); err != nil {
		return err
	}
	p.profile.SetInitial(cfg.MinNoiseFloor)
	if err := p.detector.SetThresholds(cfg.Thresholds()); err != nil {
		return err
	}
	if err := p.detector.SetActivationRatio(cfg.ActivationRatio); err != nil {
		return err
	}
	if err := p.gain.SetParams(cfg.GainParams()); err != nil {
		return err
	}
	if err := p.hysteresis.SetRatios(cfg.HysteresisActivateRatio, cfg.HysteresisReleaseRatio); err != nil {
		return err
	}
	if !cfg.HysteresisEnabled {
		p.hysteresis.Reset()
	}

	p.noiseFloor = p.tracker.Value()
	p.config = cfg
	return nil
}

func (p *Processor) applyPendingConfig() {
	next := p.pending.Swap(nil)
	if next == nil {
		return
	}
	if err := p.apply(next); err != nil {
		panic(fmt.Errorf("an accepted configuration failed to apply: %w", err))
	}
}

// UpdateConfig merges the update over the latest accepted configuration.
// A rejected update returns *ConfigurationError and changes nothing;
// an accepted one takes effect at the next block boundary.
func (p *Processor) UpdateConfig(
	ctx context.Context,
	update ConfigUpdate,
) (_err error) {
	logger.Tracef(ctx, "UpdateConfig")
	defer func() { logger.Tracef(ctx, "/UpdateConfig: %v", _err) }()

	p.controlLocker.Lock()
	defer p.controlLocker.Unlock()

	cfg := update.Merge(p.accepted.config)
	if err := cfg.Validate(); err != nil {
		return err
	}

	bufs, err := p.prepareBuffers(cfg, p.accepted.buffers)
	if err != nil {
		return fmt.Errorf("unable to prepare the configuration: %w", err)
	}

	next := &preparedConfig{config: cfg, buffers: bufs}
	p.accepted = *next
	p.pending.Store(next)
	logger.Debugf(ctx, "accepted configuration: %#+v", cfg)
	return nil
}

// AcceptedConfig returns the configuration which is or will be in effect
// after the next block boundary.
func (p *Processor) AcceptedConfig() Config {
	p.controlLocker.Lock()
	defer p.controlLocker.Unlock()
	return p.accepted.config
}

// Config returns the configuration currently in effect.
func (p *Processor) Config() Config {
	return p.config
}

// BlockSize returns the amount of samples analyzed at once.
func (p *Processor) BlockSize() int {
	return len(p.block)
}

// ProcessQuantum writes the filtered input into output. The slices are
// expected to have the same non-zero length; otherwise ErrMalformedInput
// is returned after processing what fits and zeroing the rest of output.
func (p *Processor) ProcessQuantum(output, input []float32) error {
	if p.blockIndex == 0 {
		p.applyPendingConfig()
	}

	n := min(len(input), len(output))
	for i := 0; i < n; i++ {
		output[i] = p.processSample(input[i])
	}
	clear(output[n:])

	if len(input) == 0 || len(input) != len(output) {
		return fmt.Errorf("%w: %d input samples, %d output samples", ErrMalformedInput, len(input), len(output))
	}
	return nil
}

func (p *Processor) processSample(in float32) float32 {
	x := float64(in)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		x = 0
	}

	p.block[p.blockIndex] = x
	level := p.rms.Update(x)

	a := p.config.AmplitudeSmoothing
	p.amplitude = p.amplitude*a + math.Abs(x)*(1-a)

	voice := p.blockVoice
	if p.config.HysteresisEnabled && p.hysteresis.Update(p.amplitude, p.noiseFloor) {
		voice = true
	}
	p.voice = voice
	p.currentGain = p.gain.Gain(level, p.noiseFloor, voice)
	out := float32(x * p.currentGain)

	p.blockIndex++
	if p.blockIndex == len(p.block) {
		p.blockIndex = 0
		p.analyzeBlock()
		p.applyPendingConfig()
	}
	return out
}

func (p *Processor) analyzeBlock() {
	magnitude, err := p.analyzer.Transform(p.block)
	if err != nil {
		panic(fmt.Errorf("unable to transform a block of %d samples: %w", len(p.block), err))
	}
	features, err := p.extractor.Extract(magnitude)
	if err != nil {
		panic(fmt.Errorf("unable to extract spectral features: %w", err))
	}

	level := p.rms.Value()
	spectral := p.detector.EvaluateSpectrum(features.SpectralFlux, features.VoiceBandEnergy)
	if p.config.NoiseProfileEnabled && !spectral {
		low, high := p.extractor.BandBins()
		spectral = p.profile.HasVoice(magnitude, low, high)
	}
	raw := spectral || p.detector.EvaluateLevel(level, p.noiseFloor)
	final := p.detector.Commit(raw)

	// The floor stays frozen while the debounced decision lags behind a
	// spectral onset. The loudness test alone does not freeze it, since it
	// compares against the floor itself.
	isVoice := spectral || final
	p.noiseFloor = p.tracker.Update(level, isVoice)
	if !isVoice {
		if err := p.profile.Update(magnitude); err != nil {
			panic(fmt.Errorf("unable to update the noise profile: %w", err))
		}
	}

	p.blockVoice = final
	p.features = features
	p.blocksProcessed++
}

// VoiceConfidence is the share of voiced blocks among the recent ones.
func (p *Processor) VoiceConfidence() float64 {
	return p.detector.Confidence()
}

// Reset clears the signal state, keeping the configuration.
func (p *Processor) Reset() {
	p.applyPendingConfig()
	clear(p.block)
	p.extractor.Reset()
	p.profile.Reset()
	p.rms.Reset()
	p.detector.Reset()
	p.tracker.Reset()
	p.hysteresis.Reset()

	p.blockIndex = 0
	p.amplitude = 0
	p.noiseFloor = p.tracker.Value()
	p.blockVoice = false
	p.voice = false
	p.currentGain = p.config.ResidualGain
	p.features = spectralfeatures.Features{}
	p.blocksProcessed = 0
}
