// SPDX-License-Identifier: MIT
/*
Package source provides the audio inputs that feed the visualization engine:
decoded files (WAV, MP3, OGG Vorbis, FLAC) and live PortAudio capture.

Every source delivers mono float32 samples in [-1, 1]. Multi-channel input is
downmixed by averaging. EncodeBytes converts those samples to the unsigned
byte encoding the pipeline consumes, where 128 is zero amplitude.
*/
package source

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions.
var ErrUnsupportedFormat = errors.New("source: unsupported audio format")

// Source is a finite or unbounded stream of mono samples.
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Read fills dst with mono samples in [-1, 1] and returns the number
	// written. It returns io.EOF once the stream is exhausted.
	Read(dst []float32) (int, error)
	// Close releases any resources.
	Close() error
}

// decoder is implemented by the format-specific readers. Samples are
// interleaved across channels.
type decoder interface {
	sampleRate() int
	channels() int
	readInterleaved(dst []float32) (int, error)
}

// fileSource downmixes a decoder's interleaved output and owns the file.
type fileSource struct {
	dec   decoder
	file  io.Closer
	inter []float32 // Interleaved scratch, grown on demand
}

// Open decodes the file at path, choosing the decoder by extension.
func Open(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var newDecoder func(*os.File) (decoder, error)
	switch ext {
	case ".wav", ".wave":
		newDecoder = newWAVDecoder
	case ".mp3":
		newDecoder = newMP3Decoder
	case ".ogg", ".oga":
		newDecoder = newOGGDecoder
	case ".flac":
		newDecoder = newFLACDecoder
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if dec.channels() < 1 {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: no audio channels", filepath.Base(path))
	}

	return &fileSource{dec: dec, file: f}, nil
}

func (s *fileSource) SampleRate() int { return s.dec.sampleRate() }

func (s *fileSource) Read(dst []float32) (int, error) {
	ch := s.dec.channels()
	if ch == 1 {
		return s.dec.readInterleaved(dst)
	}

	need := len(dst) * ch
	if cap(s.inter) < need {
		s.inter = make([]float32, need)
	}
	s.inter = s.inter[:need]

	n, err := s.dec.readInterleaved(s.inter)
	frames := Downmix(dst, s.inter[:n], ch)
	return frames, err
}

func (s *fileSource) Close() error {
	return s.file.Close()
}

// Downmix averages interleaved samples of the given channel count into dst
// and returns the number of mono samples written. Incomplete trailing frames
// are dropped.
func Downmix(dst, interleaved []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}

	frames := min(len(interleaved)/channels, len(dst))
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for _, v := range interleaved[i*channels : (i+1)*channels] {
			sum += v
		}
		dst[i] = sum * scale
	}
	return frames
}

// EncodeBytes converts samples in [-1, 1] to the unsigned byte encoding
// round(128 + x*128), clamped to [0, 255]. It writes min(len(dst),
// len(samples)) bytes and returns that count. NaN encodes as silence.
func EncodeBytes(dst []byte, samples []float32) int {
	n := min(len(dst), len(samples))
	for i := range n {
		v := math.Round(128 + float64(samples[i])*128)
		switch {
		case math.IsNaN(v):
			dst[i] = 128
		case v < 0:
			dst[i] = 0
		case v > 255:
			dst[i] = 255
		default:
			dst[i] = byte(v)
		}
	}
	return n
}
