package utils

import "math"

// Silence is the byte value that encodes zero amplitude.
const Silence = 128

// MockTransport implements the transport.Transport interface for testing.
type MockTransport struct {
	Sent   []any
	Closed bool
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.Sent = append(m.Sent, data)
	return nil
}

// Close records that the transport was closed.
func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// GenerateSilence returns size bytes of zero amplitude.
func GenerateSilence(size int) []byte {
	return GenerateConstant(size, Silence)
}

// GenerateConstant returns size bytes all equal to v.
func GenerateConstant(size int, v byte) []byte {
	buffer := make([]byte, size)
	for i := range buffer {
		buffer[i] = v
	}
	return buffer
}

// GenerateAlternating returns size bytes alternating between 0x00 and 0xFF,
// the loudest possible signal at the Nyquist frequency.
func GenerateAlternating(size int) []byte {
	buffer := make([]byte, size)
	for i := range buffer {
		if i%2 == 1 {
			buffer[i] = 0xFF
		}
	}
	return buffer
}

// GenerateSineBytes returns size byte-encoded samples of a sinusoid that
// completes cycles periods over the block. amplitude is in [0, 1].
func GenerateSineBytes(size int, cycles, amplitude float64) []byte {
	buffer := make([]byte, size)
	for i := range buffer {
		x := amplitude * math.Sin(2*math.Pi*cycles*float64(i)/float64(size))
		buffer[i] = EncodeSample(x)
	}
	return buffer
}

// GenerateComplexBytes returns a fundamental plus two harmonics, the byte
// equivalent of a 440/880/1320 Hz chord when size samples span one frame.
func GenerateComplexBytes(size int, cycles float64) []byte {
	buffer := make([]byte, size)
	for i := range buffer {
		phase := 2 * math.Pi * cycles * float64(i) / float64(size)
		x := math.Sin(phase)*0.5 +
			math.Sin(2*phase)*0.3 +
			math.Sin(3*phase)*0.2
		buffer[i] = EncodeSample(x * 0.9)
	}
	return buffer
}

// EncodeSample maps x in [-1, 1] to an unsigned byte where 128 is zero.
func EncodeSample(x float64) byte {
	v := math.Round(128 + x*128)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// FindPeakIndex returns the index of the largest value in values[start:end+1].
func FindPeakIndex(values []float64, start, end int) int {
	if len(values) == 0 {
		return 0
	}

	if start < 0 {
		start = 0
	}

	if end >= len(values) {
		end = len(values) - 1
	}

	peak := start
	peakValue := values[start]

	for i := start + 1; i <= end; i++ {
		if values[i] > peakValue {
			peakValue = values[i]
			peak = i
		}
	}

	return peak
}
