package noisesuppression

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/noisesuppression"
	"github.com/xaionaro-go/voicefilter/pkg/vad"
)

// VAD uses the voice confidence reported by a noise suppressor.
type VAD struct {
	noisesuppression.NoiseSuppression
	ChunkSize     uint64
	ChunkDuration time.Duration
	Buffer        []byte
}

var _ vad.VAD = (*VAD)(nil)

// NewVAD evaluates the audio in chunks of about preferredGranularity,
// rounded to a multiple of the chunk size of the suppressor.
func NewVAD(
	ctx context.Context,
	noiseSuppression noisesuppression.NoiseSuppression,
	preferredGranularity time.Duration,
) (*VAD, error) {
	channels, err := noiseSuppression.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the amount of channels: %w", err)
	}
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding: %w", err)
	}
	encodingPCM, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("noise suppression encoding is not PCM: %T", encoding)
	}
	if encodingPCM.SampleRate == 0 || channels == 0 || encoding.BytesPerSample() == 0 {
		return nil, fmt.Errorf("invalid stream format: %#+v, %d channels", encodingPCM, channels)
	}

	frameSize := uint64(encoding.BytesPerSample()) * uint64(channels)
	granularity := uint64(noiseSuppression.ChunkSize())
	if granularity == 0 {
		granularity = frameSize
	}

	preferredChunkSize := encoding.BytesForDuration(preferredGranularity) * uint64(channels)
	subChunks := max((preferredChunkSize+granularity/2)/granularity, 1)
	chunkSize := subChunks * granularity
	chunkFrames := chunkSize / frameSize
	chunkDuration := time.Duration(chunkFrames * uint64(time.Second) / uint64(encodingPCM.SampleRate))
	logger.Debugf(ctx, "resulting chunkSize:%d and chunkDuration:%v", chunkSize, chunkDuration)

	return &VAD{
		NoiseSuppression: noiseSuppression,
		ChunkSize:        chunkSize,
		ChunkDuration:    chunkDuration,
		Buffer:           make([]byte, chunkSize),
	}, nil
}

func (v *VAD) FindNextVoice(
	ctx context.Context,
	samples []byte,
	confidenceThreshold float64,
	minDuration time.Duration,
) (_maxConfidence float64, _start time.Duration, _err error) {
	logger.Tracef(ctx, "FindNextVoice, len:%d", len(samples))
	defer func() {
		logger.Tracef(ctx, "/FindNextVoice, len:%d: %v %v %v", len(samples), _maxConfidence, _start, _err)
	}()

	var (
		maxConfidence float64
		voicedFor     time.Duration
	)
	regionStart := time.Duration(-1)
	for pos := 0; len(samples) >= int(v.ChunkSize); pos++ {
		frame := samples[:v.ChunkSize]
		samples = samples[len(frame):]
		confidence, err := v.NoiseSuppression.SuppressNoise(ctx, frame, v.Buffer)
		if err != nil {
			return maxConfidence, -1, fmt.Errorf("unable to process chunk %d: %w", pos, err)
		}
		maxConfidence = max(maxConfidence, confidence)

		if confidence < confidenceThreshold {
			voicedFor = 0
			regionStart = -1
			continue
		}
		if regionStart < 0 {
			regionStart = v.ChunkDuration * time.Duration(pos)
		}
		voicedFor += v.ChunkDuration
		if voicedFor >= minDuration {
			return maxConfidence, regionStart, nil
		}
	}
	return maxConfidence, -1, nil
}
