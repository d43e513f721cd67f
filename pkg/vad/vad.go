// Package vad finds voice in PCM audio.
package vad

import (
	"context"
	"time"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

type VAD interface {
	audio.AbstractAnalyzer

	// FindNextVoice returns the maximal voice confidence observed and the
	// offset of the first region that stays at or above confidenceThreshold
	// for at least minDuration; the offset is negative if there is none.
	FindNextVoice(
		_ context.Context,
		samples []byte,
		confidenceThreshold float64,
		minDuration time.Duration,
	) (float64, time.Duration, error)
}
