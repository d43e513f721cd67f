package noisesuppression

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

// Dummy passes the audio through unchanged and reports a fixed confidence.
type Dummy struct {
	EncodingValue   audio.Encoding
	ChannelsValue   audio.Channel
	ConfidenceValue float64
}

var _ NoiseSuppression = (*Dummy)(nil)

func NewDummy(
	encoding audio.Encoding,
	channels audio.Channel,
) *Dummy {
	return &Dummy{
		EncodingValue:   encoding,
		ChannelsValue:   channels,
		ConfidenceValue: 1,
	}
}

func (s *Dummy) Close() error {
	return nil
}

func (s *Dummy) Encoding(context.Context) (audio.Encoding, error) {
	return s.EncodingValue, nil
}

func (s *Dummy) Channels(context.Context) (audio.Channel, error) {
	return s.ChannelsValue, nil
}

func (*Dummy) ChunkSize() uint {
	return 0
}

func (s *Dummy) SuppressNoise(_ context.Context, input []byte, outputVoice []byte) (float64, error) {
	if len(input) != len(outputVoice) {
		return 0, fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(outputVoice))
	}
	copy(outputVoice, input)
	return s.ConfidenceValue, nil
}
