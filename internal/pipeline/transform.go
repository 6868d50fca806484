// SPDX-License-Identifier: MIT
package pipeline

// transform runs the forward FFT of the windowed workspace into the
// coefficient workspace. The plan size is fixed in New; a mismatch here is a
// programming error, not a runtime condition.
func (p *Pipeline) transform() {
	if len(p.workspace.windowed) != p.fft.Len() {
		panic("pipeline: transform size does not match windowed samples")
	}
	p.fft.Coefficients(p.workspace.coeffs, p.workspace.windowed)
}
