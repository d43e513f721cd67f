// Package voicefilter implements noisesuppression.NoiseSuppression on top
// of frameprocessor for interleaved native-endian float32 PCM.
package voicefilter

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/audio/pcm"
	"github.com/xaionaro-go/voicefilter/pkg/audio/planar"
	"github.com/xaionaro-go/voicefilter/pkg/frameprocessor"
	"github.com/xaionaro-go/voicefilter/pkg/noisesuppression"
)

const (
	// QuantumSize is the amount of samples per channel fed to a processor at once.
	QuantumSize = 128

	floatSize = 4
)

type VoiceFilter struct {
	Locker       sync.Mutex
	Processors   []*frameprocessor.Processor
	ChannelCount audio.Channel
	PCMFormat    audio.PCMFormat
	SampleRate   audio.SampleRate

	Interleaved []float32
	Planar      []float32
	Filtered    []float32
}

var _ noisesuppression.NoiseSuppression = (*VoiceFilter)(nil)

// New creates an independent processor for each channel.
func New(
	ctx context.Context,
	channels audio.Channel,
	cfg frameprocessor.Config,
	opts ...frameprocessor.Option,
) (_ret *VoiceFilter, _err error) {
	logger.Tracef(ctx, "New(%d, %d)", channels, cfg.SampleRate)
	defer func() { logger.Tracef(ctx, "/New(%d, %d): %v", channels, cfg.SampleRate, _err) }()

	if channels == 0 {
		return nil, fmt.Errorf("the amount of channels is zero")
	}
	pcmFormat, err := nativeFloat32Format()
	if err != nil {
		return nil, err
	}

	processors := make([]*frameprocessor.Processor, 0, channels)
	for ch := audio.Channel(0); ch < channels; ch++ {
		p, err := frameprocessor.New(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the processor for channel %d: %w", ch, err)
		}
		processors = append(processors, p)
	}

	return &VoiceFilter{
		Processors:   processors,
		ChannelCount: channels,
		PCMFormat:    pcmFormat,
		SampleRate:   cfg.SampleRate,
	}, nil
}

func (s *VoiceFilter) Close() error {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.Processors == nil {
		return fmt.Errorf("double-close attempt")
	}
	s.Processors = nil
	return nil
}

func (s *VoiceFilter) Encoding(ctx context.Context) (audio.Encoding, error) {
	return audio.EncodingPCM{
		PCMFormat:  s.PCMFormat,
		SampleRate: s.SampleRate,
	}, nil
}

func (s *VoiceFilter) Channels(ctx context.Context) (audio.Channel, error) {
	return s.ChannelCount, nil
}

func (s *VoiceFilter) ChunkSize() uint {
	return uint(s.ChannelCount) * QuantumSize * floatSize
}

func (s *VoiceFilter) SuppressNoise(
	ctx context.Context,
	input []byte,
	outputVoice []byte,
) (_ret float64, _err error) {
	logger.Tracef(ctx, "SuppressNoise, len:%d", len(input))
	defer func() { logger.Tracef(ctx, "/SuppressNoise, len:%d: %v %v", len(input), _ret, _err) }()

	chunkSize := int(s.ChunkSize())
	if len(input) != len(outputVoice) {
		return 0, fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(outputVoice))
	}
	if len(input) < chunkSize {
		return 0, fmt.Errorf("the size of the input is too small: %d < %d", len(input), chunkSize)
	}
	if len(input)%chunkSize != 0 {
		return 0, fmt.Errorf("the size of the input is not a multiple of ChunkSize: %d %% %d != 0", len(input), chunkSize)
	}

	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.Processors == nil {
		return 0, fmt.Errorf("the voice filter is closed")
	}

	samples := len(input) / floatSize
	if len(s.Interleaved) < samples {
		s.Interleaved = make([]float32, samples)
		s.Planar = make([]float32, samples)
		s.Filtered = make([]float32, samples)
	}
	interleaved := s.Interleaved[:samples]
	if _, err := pcm.Decode(s.PCMFormat, interleaved, input); err != nil {
		return 0, fmt.Errorf("unable to decode the input: %w", err)
	}

	if s.ChannelCount == 1 {
		if err := processChannel(s.Processors[0], interleaved, interleaved); err != nil {
			return 0, err
		}
	} else {
		if err := s.processChannels(ctx, interleaved); err != nil {
			return 0, err
		}
	}

	if _, err := pcm.Encode(s.PCMFormat, outputVoice, interleaved); err != nil {
		return 0, fmt.Errorf("unable to encode the output: %w", err)
	}

	var confidence float64
	for _, p := range s.Processors {
		confidence = max(confidence, p.VoiceConfidence())
	}
	return confidence, nil
}

// processChannels filters the interleaved samples in place.
func (s *VoiceFilter) processChannels(
	ctx context.Context,
	interleaved []float32,
) error {
	planarInput := s.Planar[:len(interleaved)]
	planarOutput := s.Filtered[:len(interleaved)]
	if err := planar.Planarize(s.ChannelCount, planarInput, interleaved); err != nil {
		return fmt.Errorf("unable to planarize: %w", err)
	}

	oneChanSize := len(interleaved) / int(s.ChannelCount)

	var (
		locker sync.Mutex
		mErr   *multierror.Error
		wg     sync.WaitGroup
	)
	for ch, p := range s.Processors {
		in := planarInput[ch*oneChanSize : (ch+1)*oneChanSize]
		out := planarOutput[ch*oneChanSize : (ch+1)*oneChanSize]
		wg.Add(1)
		observability.Go(ctx, func() {
			defer wg.Done()
			if err := processChannel(p, out, in); err != nil {
				locker.Lock()
				defer locker.Unlock()
				mErr = multierror.Append(mErr, fmt.Errorf("channel %d: %w", ch, err))
			}
		})
	}
	wg.Wait()
	if err := mErr.ErrorOrNil(); err != nil {
		return err
	}

	if err := planar.Unplanarize(s.ChannelCount, interleaved, planarOutput); err != nil {
		return fmt.Errorf("unable to unplanarize: %w", err)
	}
	return nil
}

func processChannel(
	p *frameprocessor.Processor,
	output []float32,
	input []float32,
) error {
	for len(input) > 0 {
		n := min(QuantumSize, len(input))
		if err := p.ProcessQuantum(output[:n], input[:n]); err != nil {
			return err
		}
		input, output = input[n:], output[n:]
	}
	return nil
}

// UpdateConfig applies the update to every channel.
func (s *VoiceFilter) UpdateConfig(
	ctx context.Context,
	update frameprocessor.ConfigUpdate,
) (_err error) {
	logger.Tracef(ctx, "UpdateConfig")
	defer func() { logger.Tracef(ctx, "/UpdateConfig: %v", _err) }()

	s.Locker.Lock()
	defer s.Locker.Unlock()
	for ch, p := range s.Processors {
		if err := p.UpdateConfig(ctx, update); err != nil {
			return fmt.Errorf("unable to update the configuration of channel %d: %w", ch, err)
		}
	}
	return nil
}

// Config returns the configuration in effect.
func (s *VoiceFilter) Config() frameprocessor.Config {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	if len(s.Processors) == 0 {
		return frameprocessor.Config{}
	}
	return s.Processors[0].Config()
}

// Diagnostics returns a snapshot per channel.
func (s *VoiceFilter) Diagnostics() []frameprocessor.Diagnostics {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	result := make([]frameprocessor.Diagnostics, 0, len(s.Processors))
	for _, p := range s.Processors {
		result = append(result, p.Diagnostics())
	}
	return result
}

// Reset clears the signal state of every channel.
func (s *VoiceFilter) Reset() {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	for _, p := range s.Processors {
		p.Reset()
	}
}
