// Package noisesuppression defines filters removing background noise
// from PCM audio while keeping voice.
package noisesuppression

import (
	"context"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

type NoiseSuppression interface {
	audio.AbstractAnalyzer

	// ChunkSize is the granularity (in bytes) of the input accepted by
	// SuppressNoise; zero means any length.
	ChunkSize() uint

	// SuppressNoise writes the filtered input into outputVoice and returns
	// the confidence (in [0, 1]) that the input contains voice.
	SuppressNoise(ctx context.Context, input []byte, outputVoice []byte) (float64, error)
}
