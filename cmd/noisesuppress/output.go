package main

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/audio/pcm"
)

const (
	wavBitDepth     = 16
	rawChunkSamples = 4096
)

// writeOutput returns the amount of written bytes.
func writeOutput(path string, format fileFormat, pcmFormat audio.PCMFormat, data *pcmData) (_ uint64, _err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close '%s': %w", path, err)
		}
	}()

	switch format.resolve(path) {
	case fileFormatRaw:
		return writeRaw(f, pcmFormat, data)
	case fileFormatWAV:
		return writeWAV(f, data)
	default:
		return 0, fmt.Errorf("unsupported output format '%s'", format)
	}
}

// writeRaw encodes the samples chunk by chunk; the returned amount of bytes
// is also valid on a failure.
func writeRaw(w io.Writer, pcmFormat audio.PCMFormat, data *pcmData) (uint64, error) {
	wc := datacounter.NewWriterCounter(w)
	buf := make([]byte, min(len(data.Samples), rawChunkSamples)*int(pcmFormat.Size()))
	for offset := 0; offset < len(data.Samples); offset += rawChunkSamples {
		chunk := data.Samples[offset:min(offset+rawChunkSamples, len(data.Samples))]
		n, err := pcm.Encode(pcmFormat, buf, chunk)
		if err != nil {
			return wc.Count(), fmt.Errorf("unable to encode %s: %w", pcmFormat, err)
		}
		if _, err := wc.Write(buf[:n]); err != nil {
			return wc.Count(), fmt.Errorf("unable to write: %w", err)
		}
	}
	return wc.Count(), nil
}

func writeWAV(f *os.File, data *pcmData) (uint64, error) {
	encoder := wav.NewEncoder(f, int(data.SampleRate), wavBitDepth, int(data.Channels), 1)
	intData := make([]int, len(data.Samples))
	for idx, v := range data.Samples {
		s, err := scaleToInt16(v)
		if err != nil {
			return 0, err
		}
		intData[idx] = s
	}
	err := encoder.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(data.Channels),
			SampleRate:  int(data.SampleRate),
		},
		Data:           intData,
		SourceBitDepth: wavBitDepth,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to write the audio: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return 0, fmt.Errorf("unable to close the encoder: %w", err)
	}
	// the encoder patches the header on Close, so the size is taken from the file
	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("unable to stat the output: %w", err)
	}
	return uint64(stat.Size()), nil
}

func scaleToInt16(v float32) (int, error) {
	var b [2]byte
	if err := pcm.PutSample(audio.PCMFormatS16LE, b[:], float64(v)); err != nil {
		return 0, err
	}
	return int(int16(uint16(b[0]) | uint16(b[1])<<8)), nil
}
