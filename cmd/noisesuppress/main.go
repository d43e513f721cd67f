package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voicefilter/pkg/audio"
	"github.com/xaionaro-go/voicefilter/pkg/audio/pcm"
	"github.com/xaionaro-go/voicefilter/pkg/frameprocessor"
	"github.com/xaionaro-go/voicefilter/pkg/noisesuppression/implementations/voicefilter"
	"github.com/xaionaro-go/voicefilter/pkg/noisesuppressionstream"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/fourier"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/godsp"
	"github.com/xaionaro-go/voicefilter/pkg/spectrum/implementations/radix2"
	vadnoisesuppression "github.com/xaionaro-go/voicefilter/pkg/vad/implementations/noisesuppression"
)

var analyzers = map[string]spectrum.Factory{
	"radix2":  radix2.Factory,
	"godsp":   godsp.Factory,
	"fourier": fourier.Factory,
}

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	pcmFormat := audio.PCMFormatFloat32LE
	pflag.Var(&pcmFormat, "format", "PCM format of raw input and output files (u8, s16le, s24le, s32le, f32le, f64le, ...)")
	inputFormat := pflag.String("input-format", string(fileFormatAuto), "input file format: auto, raw, wav, ogg")
	outputFormat := pflag.String("output-format", string(fileFormatAuto), "output file format: auto, raw, wav")
	sampleRate := pflag.Uint32("sample-rate", uint32(frameprocessor.DefaultSampleRate), "sample rate of a raw input")
	channels := pflag.Uint32("channels", 1, "amount of channels of a raw input")
	configPath := pflag.String("config", "", "path to a YAML file overriding the filter configuration")
	analyzerName := pflag.String("analyzer", "radix2", "spectrum analyzer: radix2, godsp, fourier")
	findVoiceThreshold := pflag.Float64("find-voice-threshold", 0, "if positive, report the first region where the voice confidence reaches this value")
	findVoiceDuration := pflag.Duration("find-voice-min-duration", 300*time.Millisecond, "minimal duration of a voice region to be reported")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	analyzerFactory, ok := analyzers[*analyzerName]
	if !ok {
		panic(fmt.Errorf("unknown analyzer '%s'", *analyzerName))
	}

	input, err := readInput(pflag.Arg(0), fileFormat(*inputFormat), rawParams{
		PCMFormat:  pcmFormat,
		Channels:   audio.Channel(*channels),
		SampleRate: audio.SampleRate(*sampleRate),
	})
	assertNoError(err)
	logger.Debugf(ctx, "read %d samples, %d channels, %d Hz", len(input.Samples), input.Channels, input.SampleRate)

	cfg := frameprocessor.DefaultConfig(input.SampleRate)
	if *configPath != "" {
		b, err := os.ReadFile(*configPath)
		assertNoError(err)
		update, err := frameprocessor.ParseConfigUpdate(b)
		assertNoError(err)
		cfg = update.Merge(cfg)
	}
	assertNoError(cfg.Validate())
	logger.Debugf(ctx, "configuration: %#+v", cfg)

	if *findVoiceThreshold > 0 {
		findVoice(ctx, input, cfg, analyzerFactory, *findVoiceThreshold, *findVoiceDuration)
	}

	filtered := suppressNoise(ctx, input, cfg, analyzerFactory)

	written, err := writeOutput(pflag.Arg(1), fileFormat(*outputFormat), pcmFormat, filtered)
	assertNoError(err)
	logger.Infof(ctx, "written %d bytes", written)
}

func newVoiceFilter(
	ctx context.Context,
	input *pcmData,
	cfg frameprocessor.Config,
	analyzerFactory spectrum.Factory,
) *voicefilter.VoiceFilter {
	vf, err := voicefilter.New(ctx, input.Channels, cfg, frameprocessor.OptionAnalyzerFactory(analyzerFactory))
	assertNoError(err)
	return vf
}

func nativeBytes(vf *voicefilter.VoiceFilter, samples []float32) []byte {
	b := make([]byte, len(samples)*int(vf.PCMFormat.Size()))
	_, err := pcm.Encode(vf.PCMFormat, b, samples)
	assertNoError(err)
	return b
}

func suppressNoise(
	ctx context.Context,
	input *pcmData,
	cfg frameprocessor.Config,
	analyzerFactory spectrum.Factory,
) *pcmData {
	vf := newVoiceFilter(ctx, input, cfg, analyzerFactory)
	defer vf.Close()

	stream, err := noisesuppressionstream.NewNoiseSuppressionStream(
		ctx,
		bytes.NewReader(nativeBytes(vf, input.Samples)),
		vf,
		0,
	)
	assertNoError(err)
	defer stream.Close()

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	observability.Go(ctx, func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logDiagnostics(ctx, vf)
			}
		}
	})

	output, err := io.ReadAll(stream)
	assertNoError(err)
	logDiagnostics(ctx, vf)

	samples := make([]float32, len(output)/int(vf.PCMFormat.Size()))
	_, err = pcm.Decode(vf.PCMFormat, samples, output)
	assertNoError(err)
	return &pcmData{
		Samples:    samples,
		Channels:   input.Channels,
		SampleRate: input.SampleRate,
	}
}

func logDiagnostics(ctx context.Context, vf *voicefilter.VoiceFilter) {
	for ch, d := range vf.Diagnostics() {
		logger.Debugf(ctx,
			"channel %d: blocks:%d voice:%v confidence:%.2f noise-floor:%.5f rms:%.5f gain:%.3f flux:%.3f band-energy:%.3f",
			ch, d.BlocksProcessed, d.VoiceActive, d.VoiceConfidence, d.NoiseFloor, d.SmoothedRMS, d.Gain, d.SpectralFlux, d.VoiceBandEnergy,
		)
	}
}

func findVoice(
	ctx context.Context,
	input *pcmData,
	cfg frameprocessor.Config,
	analyzerFactory spectrum.Factory,
	threshold float64,
	minDuration time.Duration,
) {
	vf := newVoiceFilter(ctx, input, cfg, analyzerFactory)
	defer vf.Close()

	v, err := vadnoisesuppression.NewVAD(ctx, vf, 50*time.Millisecond)
	assertNoError(err)

	confidence, start, err := v.FindNextVoice(ctx, nativeBytes(vf, input.Samples), threshold, minDuration)
	assertNoError(err)
	if start < 0 {
		logger.Infof(ctx, "no voice found (max confidence: %.2f)", confidence)
		return
	}
	logger.Infof(ctx, "voice found at %v (max confidence: %.2f)", start, confidence)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
