package pcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

func TestSample(t *testing.T) {
	t.Run("U8", func(t *testing.T) {
		v, err := Sample(audio.PCMFormatU8, []byte{0})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, v, 0.01)

		v, err = Sample(audio.PCMFormatU8, []byte{128})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, v, 0.01)
	})

	t.Run("S24LE_negative", func(t *testing.T) {
		v, err := Sample(audio.PCMFormatS24LE, []byte{0x00, 0x00, 0xC0})
		require.NoError(t, err)
		assert.InDelta(t, -0.5, v, 1e-6)
	})

	t.Run("too_short", func(t *testing.T) {
		_, err := Sample(audio.PCMFormatS32LE, []byte{1, 2})
		require.Error(t, err)
	})
}

func TestPutSample_Clipping(t *testing.T) {
	buf := make([]byte, 2)
	require.NoError(t, PutSample(audio.PCMFormatS16LE, buf, 2.0))
	v, err := Sample(audio.PCMFormatS16LE, buf)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0.001)

	require.NoError(t, PutSample(audio.PCMFormatS16LE, buf, -2.0))
	v, err = Sample(audio.PCMFormatS16LE, buf)
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestDecodeEncode(t *testing.T) {
	for _, f := range []audio.PCMFormat{
		audio.PCMFormatS16LE,
		audio.PCMFormatS24BE,
		audio.PCMFormatS32LE,
		audio.PCMFormatFloat32LE,
		audio.PCMFormatFloat64BE,
	} {
		t.Run(f.String(), func(t *testing.T) {
			in := []float32{0, 0.25, -0.5, 0.75}
			raw := make([]byte, len(in)*int(f.Size()))
			n, err := Encode(f, raw, in)
			require.NoError(t, err)
			require.Equal(t, len(raw), n)

			out := make([]float32, len(in))
			count, err := Decode(f, out, raw)
			require.NoError(t, err)
			require.Equal(t, len(in), count)
			assert.InDeltaSlice(t, in, out, 1e-4)
		})
	}

	_, err := Decode(audio.PCMFormatS16LE, make([]float32, 4), make([]byte, 3))
	require.Error(t, err)
}
