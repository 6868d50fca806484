// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavDecoder struct {
	dec      *wav.Decoder
	buf      *audio.IntBuffer
	rate     int
	chans    int
	unsigned bool    // 8-bit WAV is unsigned
	scale    float32 // 1 / full scale for the bit depth
}

func newWAVDecoder(f *os.File) (decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	// FwdToPCM positions the reader at the start of PCM data
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}

	return &wavDecoder{
		dec: dec,
		buf: &audio.IntBuffer{
			Format: dec.Format(),
			Data:   make([]int, 4096),
		},
		rate:     int(dec.SampleRate),
		chans:    int(dec.NumChans),
		unsigned: bitDepth == 8,
		scale:    1 / float32(int64(1)<<(bitDepth-1)),
	}, nil
}

func (d *wavDecoder) sampleRate() int { return d.rate }
func (d *wavDecoder) channels() int   { return d.chans }

func (d *wavDecoder) readInterleaved(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if cap(d.buf.Data) < len(dst) {
		d.buf.Data = make([]int, len(dst))
	}
	d.buf.Data = d.buf.Data[:len(dst)]

	n, err := d.dec.PCMBuffer(d.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	for i, v := range d.buf.Data[:n] {
		if d.unsigned {
			v -= 128
		}
		dst[i] = float32(v) * d.scale
	}
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}
