// SPDX-License-Identifier: MIT
package source

import (
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type oggDecoder struct {
	reader *oggvorbis.Reader
}

func newOGGDecoder(f *os.File) (decoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, err
	}
	return &oggDecoder{reader: reader}, nil
}

func (d *oggDecoder) sampleRate() int { return d.reader.SampleRate() }
func (d *oggDecoder) channels() int   { return d.reader.Channels() }

// readInterleaved reads float samples directly; oggvorbis already decodes
// interleaved values in [-1, 1].
func (d *oggDecoder) readInterleaved(dst []float32) (int, error) {
	n, err := d.reader.Read(dst)
	if n == 0 && err == nil && len(dst) > 0 {
		return 0, io.EOF
	}
	return n, err
}
