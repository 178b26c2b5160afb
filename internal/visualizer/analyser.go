package visualizer

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// FFTSize is small on purpose: fewer, wider bins react faster.
	FFTSize = 256

	smoothingTimeConstant = 0.75
	minDecibels           = -100.0
	maxDecibels           = -30.0
)

// SampleSource yields the most recent mono samples of the playing audio.
type SampleSource interface {
	Samples(n int) []int16
}

// FrequencySource provides byte magnitudes per frequency bin.
type FrequencySource interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
}

// Analyser turns time-domain samples into smoothed per-bin magnitudes scaled
// to bytes over a fixed decibel range.
type Analyser struct {
	src SampleSource

	mu       sync.Mutex
	window   []float64
	buf      []float64
	smoothed []float64
}

// NewAnalyser creates an analyser reading from src.
func NewAnalyser(src SampleSource) *Analyser {
	a := &Analyser{
		src:      src,
		window:   make([]float64, FFTSize),
		buf:      make([]float64, FFTSize),
		smoothed: make([]float64, FFTSize/2),
	}
	for i := range FFTSize {
		a.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FFTSize-1)))
	}
	return a
}

// FrequencyBinCount is half the transform size.
func (a *Analyser) FrequencyBinCount() int {
	return FFTSize / 2
}

// ByteFrequencyData fills dst with the current magnitudes. Missing samples
// read as silence.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples := a.src.Samples(FFTSize)
	pad := FFTSize - len(samples)
	for i := range FFTSize {
		var v float64
		if i >= pad {
			v = float64(samples[i-pad]) / 32768
		}
		a.buf[i] = v * a.window[i]
	}
	spectrum := fft.FFTReal(a.buf)

	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) / FFTSize
		a.smoothed[k] = smoothingTimeConstant*a.smoothed[k] + (1-smoothingTimeConstant)*mag
		if k < len(dst) {
			dst[k] = magnitudeByte(a.smoothed[k])
		}
	}
}

// magnitudeByte maps a linear magnitude onto 0-255 across the decibel range.
func magnitudeByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 / (maxDecibels - minDecibels) * (db - minDecibels)
	return byte(min(max(scaled, 0), 255))
}
