// Package noisesuppressionstream turns a PCM io.Reader into a reader of
// the same PCM with the noise suppressed.
package noisesuppressionstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voicefilter/pkg/noisesuppression"
)

const (
	// used when the suppressor accepts any length
	defaultChunkFrames = 1024
)

type NoiseSuppressionStream struct {
	noiseSuppression noisesuppression.NoiseSuppression
	chunkSize        int

	locker       sync.Mutex
	inputBuffer  *circular.Buffer
	outputBuffer *circular.Buffer
	inputEOF     bool
	finished     bool
	resultError  error
	confidence   float64
	progressedCh chan struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
}

var _ io.ReadCloser = (*NoiseSuppressionStream)(nil)

// NewNoiseSuppressionStream starts filtering the input in the background.
// bufferSize is the size of each of the input and output buffers; it must
// fit at least two chunks of the suppressor, zero selects 16 chunks.
func NewNoiseSuppressionStream(
	ctx context.Context,
	input io.Reader,
	noiseSuppression noisesuppression.NoiseSuppression,
	bufferSize uint,
) (*NoiseSuppressionStream, error) {
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding of the noise suppression: %w", err)
	}
	channels, err := noiseSuppression.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the amount of channels of the noise suppression: %w", err)
	}

	chunkSize := noiseSuppression.ChunkSize()
	if chunkSize == 0 {
		chunkSize = encoding.BytesPerSample() * uint(channels) * defaultChunkFrames
	}
	if chunkSize == 0 {
		return nil, fmt.Errorf("unable to determine the chunk size")
	}
	if bufferSize == 0 {
		bufferSize = chunkSize * 16
	}
	if bufferSize < chunkSize*2 {
		return nil, fmt.Errorf("the buffer size is too small: %d < 2*%d", bufferSize, chunkSize)
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	s := &NoiseSuppressionStream{
		noiseSuppression: noiseSuppression,
		chunkSize:        int(chunkSize),
		inputBuffer:      circular.NewBuffer(int(bufferSize)),
		outputBuffer:     circular.NewBuffer(int(bufferSize)),
		progressedCh:     make(chan struct{}),
		ctx:              ctx,
		cancelFunc:       cancelFunc,
	}

	s.waitGroup.Add(2)
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		if err := s.readerLoop(ctx, input); err != nil {
			s.fail(fmt.Errorf("got an error from the reader loop: %w", err))
		}
	})
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		err := s.noiseSuppressionLoop(ctx)
		if err != nil {
			s.fail(fmt.Errorf("got an error from the noise suppressor loop: %w", err))
			return
		}
		s.locker.Lock()
		defer s.locker.Unlock()
		s.finished = true
		s.notifyProgressed()
	})
	return s, nil
}

// notifyProgressed wakes up all the waiters; the locker must be held.
func (s *NoiseSuppressionStream) notifyProgressed() {
	oldCh := s.progressedCh
	s.progressedCh = make(chan struct{})
	close(oldCh)
}

// waitForProgress must be called with the locker held.
func (s *NoiseSuppressionStream) waitForProgress(ctx context.Context) error {
	ch := s.progressedCh
	s.locker.Unlock()
	defer s.locker.Lock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (s *NoiseSuppressionStream) fail(err error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		return
	}
	if s.resultError == nil {
		s.resultError = err
	}
	s.notifyProgressed()
	s.cancelFunc()
}

func (s *NoiseSuppressionStream) readerLoop(
	ctx context.Context,
	input io.Reader,
) (_err error) {
	logger.Tracef(ctx, "readerLoop")
	defer func() { logger.Tracef(ctx, "/readerLoop: %v", _err) }()

	readBuf := make([]byte, s.chunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := input.Read(readBuf)
		logger.Tracef(ctx, "readerLoop: Read(): %v %v", n, err)
		if n > 0 {
			if err := s.write(ctx, s.inputBuffer, readBuf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			s.locker.Lock()
			defer s.locker.Unlock()
			s.inputEOF = true
			s.notifyProgressed()
			return nil
		}
		if err != nil {
			return fmt.Errorf("unable to read the input: %w", err)
		}
	}
}

// write waits until the whole buf fits into dst.
func (s *NoiseSuppressionStream) write(
	ctx context.Context,
	dst *circular.Buffer,
	buf []byte,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	for {
		w, err := dst.Write(buf)
		switch {
		case err == nil:
			if w != len(buf) {
				return fmt.Errorf("wrote != requested: %d != %d", w, len(buf))
			}
			s.notifyProgressed()
			return nil
		case errors.Is(err, circular.ErrNoSpace):
			if err := s.waitForProgress(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
	}
}

// readChunk fills buf from the input buffer. It returns less than
// len(buf) only when the input is over.
func (s *NoiseSuppressionStream) readChunk(
	ctx context.Context,
	buf []byte,
) (int, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	received := 0
	for {
		n, err := s.inputBuffer.Read(buf[received:])
		if err != nil && !errors.Is(err, io.EOF) {
			return received, fmt.Errorf("unable to read from the circular buffer: %w", err)
		}
		if n > 0 {
			received += n
			s.notifyProgressed()
		}
		if received == len(buf) {
			return received, nil
		}
		if s.inputEOF && n == 0 {
			return received, nil
		}
		if n > 0 {
			continue
		}
		if err := s.waitForProgress(ctx); err != nil {
			return received, err
		}
	}
}

func (s *NoiseSuppressionStream) noiseSuppressionLoop(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "noiseSuppressionLoop")
	defer func() { logger.Tracef(ctx, "/noiseSuppressionLoop: %v", _err) }()
	logger.Debugf(ctx, "chunk size: %d", s.chunkSize)

	inputBuf := make([]byte, s.chunkSize)
	outputBuf := make([]byte, s.chunkSize)
	for {
		n, err := s.readChunk(ctx, inputBuf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		// the tail of the stream is padded with silence
		clear(inputBuf[n:])

		confidence, err := s.noiseSuppression.SuppressNoise(ctx, inputBuf, outputBuf)
		logger.Tracef(ctx, "SuppressNoise: %v %v", confidence, err)
		if err != nil {
			return fmt.Errorf("unable to noise-suppress: %w", err)
		}

		s.locker.Lock()
		s.confidence = confidence
		s.locker.Unlock()

		if err := s.write(ctx, s.outputBuffer, outputBuf[:n]); err != nil {
			return err
		}
	}
}

// VoiceConfidence returns the confidence reported for the latest chunk.
func (s *NoiseSuppressionStream) VoiceConfidence() float64 {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.confidence
}

func (s *NoiseSuppressionStream) Read(p []byte) (_ret int, _err error) {
	logger.Tracef(s.ctx, "Read, len:%d", len(p))
	defer func() { logger.Tracef(s.ctx, "/Read, len:%d: %d, %v", len(p), _ret, _err) }()

	if len(p) == 0 {
		return 0, nil
	}

	s.locker.Lock()
	defer s.locker.Unlock()
	for {
		n, err := s.outputBuffer.Read(p)
		if n > 0 {
			s.notifyProgressed()
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("unable to read from the circular buffer: %w", err)
		}
		if s.resultError != nil {
			return 0, s.resultError
		}
		if s.finished {
			return 0, io.EOF
		}
		if err := s.waitForProgress(s.ctx); err != nil {
			if s.resultError != nil {
				return 0, s.resultError
			}
			return 0, fmt.Errorf("the stream is closed: %w", err)
		}
	}
}

// Close stops the background processing; the noise suppressor is left open.
func (s *NoiseSuppressionStream) Close() error {
	s.cancelFunc()
	s.waitGroup.Wait()
	return nil
}
