// Package planar converts between interleaved samples (L R L R ...) and
// planar ones (L L ... R R ...).
package planar

import (
	"fmt"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

func samplesPerChannel[E any](channels audio.Channel, output, input []E) (int, error) {
	if channels == 0 {
		return 0, fmt.Errorf("the amount of channels is zero")
	}
	if len(input)%int(channels) != 0 {
		return 0, fmt.Errorf("expected a message length that is a multiple of %d, but received %d", channels, len(input))
	}
	if len(input) != len(output) {
		return 0, fmt.Errorf("the lengths of input and output are not equal: %d != %d", len(input), len(output))
	}
	return len(input) / int(channels), nil
}

// Planarize groups the interleaved input by channel. The buffers must not overlap.
func Planarize[E any](channels audio.Channel, output, input []E) error {
	count, err := samplesPerChannel(channels, output, input)
	if err != nil {
		return err
	}

	stride := int(channels)
	for ch := 0; ch < stride; ch++ {
		plane := output[ch*count : (ch+1)*count]
		for pos := range plane {
			plane[pos] = input[pos*stride+ch]
		}
	}
	return nil
}

// Unplanarize is the inverse of Planarize.
func Unplanarize[E any](channels audio.Channel, output, input []E) error {
	count, err := samplesPerChannel(channels, output, input)
	if err != nil {
		return err
	}

	stride := int(channels)
	for ch := 0; ch < stride; ch++ {
		plane := input[ch*count : (ch+1)*count]
		for pos, v := range plane {
			output[pos*stride+ch] = v
		}
	}
	return nil
}
