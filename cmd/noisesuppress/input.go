package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/audio/pcm"
)

type fileFormat string

const (
	fileFormatAuto = fileFormat("auto")
	fileFormatRaw  = fileFormat("raw")
	fileFormatWAV  = fileFormat("wav")
	fileFormatOgg  = fileFormat("ogg")
)

func (f fileFormat) resolve(path string) fileFormat {
	if f != fileFormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return fileFormatWAV
	case ".ogg", ".oga":
		return fileFormatOgg
	}
	return fileFormatRaw
}

type pcmData struct {
	Samples    []float32
	Channels   audio.Channel
	SampleRate audio.SampleRate
}

type rawParams struct {
	PCMFormat  audio.PCMFormat
	Channels   audio.Channel
	SampleRate audio.SampleRate
}

func readInput(path string, format fileFormat, raw rawParams) (*pcmData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	switch format.resolve(path) {
	case fileFormatRaw:
		return readRaw(f, raw)
	case fileFormatWAV:
		return readWAV(f)
	case fileFormatOgg:
		return readOgg(f)
	default:
		return nil, fmt.Errorf("unknown input format '%s'", format)
	}
}

func readRaw(r io.Reader, params rawParams) (*pcmData, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read: %w", err)
	}
	frameSize := int(params.PCMFormat.Size()) * int(params.Channels)
	if frameSize == 0 {
		return nil, fmt.Errorf("invalid raw format: %s, %d channels", params.PCMFormat, params.Channels)
	}
	if tail := len(b) % frameSize; tail != 0 {
		b = b[:len(b)-tail]
	}

	samples := make([]float32, len(b)/int(params.PCMFormat.Size()))
	if _, err := pcm.Decode(params.PCMFormat, samples, b); err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", params.PCMFormat, err)
	}
	return &pcmData{
		Samples:    samples,
		Channels:   params.Channels,
		SampleRate: params.SampleRate,
	}, nil
}

func readWAV(r io.ReadSeeker) (*pcmData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to read the PCM buffer: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid WAV format: %#+v", buf.Format)
	}
	return &pcmData{
		Samples:    intBufferToFloat32(buf),
		Channels:   audio.Channel(buf.Format.NumChannels),
		SampleRate: audio.SampleRate(buf.Format.SampleRate),
	}, nil
}

func intBufferToFloat32(buf *goaudio.IntBuffer) []float32 {
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	result := make([]float32, len(buf.Data))
	for idx, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		result[idx] = float32(v) / scale
	}
	return result
}

func readOgg(r io.Reader) (*pcmData, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	var samples []float32
	buf := make([]float32, 65536)
	for {
		n, err := oggReader.Read(buf)
		samples = append(samples, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to decode vorbis: %w", err)
		}
	}
	return &pcmData{
		Samples:    samples,
		Channels:   audio.Channel(oggReader.Channels()),
		SampleRate: audio.SampleRate(oggReader.SampleRate()),
	}, nil
}
