// Package pcm converts between raw PCM byte layouts and float samples
// in the range [-1, 1].
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

const (
	scaleS16 = 32768
	scaleS24 = 8388608
	scaleS32 = 2147483648
	scaleS64 = 9223372036854775808
)

// Sample decodes a single sample at the beginning of p.
func Sample(f audio.PCMFormat, p []byte) (float64, error) {
	if uint(len(p)) < f.Size() || f.Size() == 0 {
		return 0, fmt.Errorf("not enough bytes for a %v sample: %d", f, len(p))
	}
	switch f {
	case audio.PCMFormatU8:
		return (float64(p[0]) - 128) / 128, nil
	case audio.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / scaleS16, nil
	case audio.PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / scaleS16, nil
	case audio.PCMFormatS24LE:
		return float64(signExtend24(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16)) / scaleS24, nil
	case audio.PCMFormatS24BE:
		return float64(signExtend24(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16)) / scaleS24, nil
	case audio.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / scaleS32, nil
	case audio.PCMFormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / scaleS32, nil
	case audio.PCMFormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / scaleS64, nil
	case audio.PCMFormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / scaleS64, nil
	case audio.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))), nil
	case audio.PCMFormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p))), nil
	case audio.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
	case audio.PCMFormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
	}
	return 0, fmt.Errorf("unknown format: %v", f)
}

// PutSample encodes v into the beginning of p. Integer formats are clipped.
func PutSample(f audio.PCMFormat, p []byte, v float64) error {
	if uint(len(p)) < f.Size() || f.Size() == 0 {
		return fmt.Errorf("not enough space for a %v sample: %d", f, len(p))
	}
	switch f {
	case audio.PCMFormatU8:
		p[0] = byte(clip(math.Round(v*128+128), 0, math.MaxUint8))
	case audio.PCMFormatS16LE:
		binary.LittleEndian.PutUint16(p, uint16(int16(clip(math.Round(v*scaleS16), math.MinInt16, math.MaxInt16))))
	case audio.PCMFormatS16BE:
		binary.BigEndian.PutUint16(p, uint16(int16(clip(math.Round(v*scaleS16), math.MinInt16, math.MaxInt16))))
	case audio.PCMFormatS24LE:
		val := int32(clip(math.Round(v*scaleS24), -scaleS24, scaleS24-1))
		p[0] = byte(val)
		p[1] = byte(val >> 8)
		p[2] = byte(val >> 16)
	case audio.PCMFormatS24BE:
		val := int32(clip(math.Round(v*scaleS24), -scaleS24, scaleS24-1))
		p[0] = byte(val >> 16)
		p[1] = byte(val >> 8)
		p[2] = byte(val)
	case audio.PCMFormatS32LE:
		binary.LittleEndian.PutUint32(p, uint32(int32(clip(math.Round(v*scaleS32), math.MinInt32, math.MaxInt32))))
	case audio.PCMFormatS32BE:
		binary.BigEndian.PutUint32(p, uint32(int32(clip(math.Round(v*scaleS32), math.MinInt32, math.MaxInt32))))
	case audio.PCMFormatS64LE:
		binary.LittleEndian.PutUint64(p, uint64(toInt64(v)))
	case audio.PCMFormatS64BE:
		binary.BigEndian.PutUint64(p, uint64(toInt64(v)))
	case audio.PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case audio.PCMFormatFloat32BE:
		binary.BigEndian.PutUint32(p, math.Float32bits(float32(v)))
	case audio.PCMFormatFloat64LE:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	case audio.PCMFormatFloat64BE:
		binary.BigEndian.PutUint64(p, math.Float64bits(v))
	default:
		return fmt.Errorf("unknown format: %v", f)
	}
	return nil
}

// Decode converts the whole input into dst and returns the amount of decoded samples.
func Decode(f audio.PCMFormat, dst []float32, src []byte) (int, error) {
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return 0, fmt.Errorf("unknown format: %v", f)
	}
	if len(src)%sampleSize != 0 {
		return 0, fmt.Errorf("the input length %d is not a multiple of %d", len(src), sampleSize)
	}
	count := len(src) / sampleSize
	if count > len(dst) {
		return 0, fmt.Errorf("the output is too short: %d < %d", len(dst), count)
	}
	for idx := 0; idx < count; idx++ {
		v, err := Sample(f, src[idx*sampleSize:])
		if err != nil {
			return idx, fmt.Errorf("unable to decode sample %d: %w", idx, err)
		}
		dst[idx] = float32(v)
	}
	return count, nil
}

// Encode converts src into dst and returns the amount of written bytes.
func Encode(f audio.PCMFormat, dst []byte, src []float32) (int, error) {
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return 0, fmt.Errorf("unknown format: %v", f)
	}
	if len(dst) < len(src)*sampleSize {
		return 0, fmt.Errorf("the output is too short: %d < %d", len(dst), len(src)*sampleSize)
	}
	for idx, v := range src {
		if err := PutSample(f, dst[idx*sampleSize:], float64(v)); err != nil {
			return idx * sampleSize, fmt.Errorf("unable to encode sample %d: %w", idx, err)
		}
	}
	return len(src) * sampleSize, nil
}

func signExtend24(v uint32) int32 {
	val := int32(v)
	if val&0x800000 != 0 {
		val |= -16777216
	}
	return val
}

func clip(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func toInt64(v float64) int64 {
	switch {
	case v >= 1:
		return math.MaxInt64
	case v <= -1:
		return math.MinInt64
	}
	return int64(math.Round(v * scaleS64))
}
