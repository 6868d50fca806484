// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const mp3Channels = 2

type mp3Decoder struct {
	dec *mp3.Decoder
	raw []byte
}

func newMP3Decoder(f *os.File) (decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) sampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) channels() int   { return mp3Channels }

func (d *mp3Decoder) readInterleaved(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	d.raw = d.raw[:need]

	n, err := io.ReadFull(d.dec, d.raw)
	samples := n / 2
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(d.raw[2*i:]))
		dst[i] = float32(v) / 32768.0
	}

	switch {
	case samples == 0 && err != nil:
		return 0, io.EOF
	case err == io.ErrUnexpectedEOF:
		return samples, nil
	}
	return samples, err
}
