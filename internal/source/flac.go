// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"os"

	"github.com/mewkiz/flac"
)

type flacDecoder struct {
	stream  *flac.Stream
	rate    int
	chans   int
	scale   float32
	frame   []float32 // Interleaved samples of the last parsed frame
	pending []float32 // Unread tail of frame
}

func newFLACDecoder(f *os.File) (decoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, err
	}

	info := stream.Info
	bps := int(info.BitsPerSample)
	if bps < 4 || bps > 32 {
		return nil, fmt.Errorf("unsupported FLAC bit depth %d", bps)
	}

	return &flacDecoder{
		stream: stream,
		rate:   int(info.SampleRate),
		chans:  int(info.NChannels),
		scale:  1 / float32(int64(1)<<(bps-1)),
	}, nil
}

func (d *flacDecoder) sampleRate() int { return d.rate }
func (d *flacDecoder) channels() int   { return d.chans }

// readInterleaved drains the pending frame, parsing the next one when empty.
// ParseNext returns io.EOF after the last frame.
func (d *flacDecoder) readInterleaved(dst []float32) (int, error) {
	for len(d.pending) == 0 {
		frame, err := d.stream.ParseNext()
		if err != nil {
			return 0, err
		}

		nSamples := int(frame.Subframes[0].NSamples)
		need := nSamples * d.chans
		if cap(d.frame) < need {
			d.frame = make([]float32, need)
		}
		d.frame = d.frame[:need]

		for ch := range d.chans {
			for i, s := range frame.Subframes[ch].Samples[:nSamples] {
				d.frame[i*d.chans+ch] = float32(s) * d.scale
			}
		}
		d.pending = d.frame
	}

	n := copy(dst, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}
