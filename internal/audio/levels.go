package audio

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/alkime/scribe/pkg/uictl"
)

// SampleRingBuffer keeps the most recent samples for level metering.
type SampleRingBuffer struct {
	mu      sync.RWMutex
	samples []int16
	head    int
	count   int
}

// NewSampleRingBuffer creates a ring buffer holding capacity samples.
func NewSampleRingBuffer(capacity int) *SampleRingBuffer {
	return &SampleRingBuffer{samples: make([]int16, capacity)}
}

// Write appends samples, overwriting the oldest once full.
func (b *SampleRingBuffer) Write(samples []int16) {
	if len(samples) == 0 || len(b.samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	size := len(b.samples)
	for _, s := range samples {
		b.samples[b.head] = s
		b.head = (b.head + 1) % size
	}
	b.count = min(b.count+len(samples), size)
}

// ReadSamples returns up to n of the most recent samples, oldest first.
func (b *SampleRingBuffer) ReadSamples(n int) []int16 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n = min(n, b.count)
	if n <= 0 {
		return nil
	}

	size := len(b.samples)
	start := (b.head - n + size) % size
	out := make([]int16, n)
	for i := range out {
		out[i] = b.samples[(start+i)%size]
	}
	return out
}

// Count returns the number of buffered samples.
func (b *SampleRingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// BytesToInt16 decodes S16LE PCM. A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	n := len(data) / 2
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// RMS is the root mean square amplitude of samples.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LevelMeter splits the most recent audio into bars of normalized loudness.
type LevelMeter struct {
	buf  *SampleRingBuffer
	bars int
}

var _ uictl.Levels[float64] = (*LevelMeter)(nil)

// NewLevelMeter meters buf with the given number of bars.
func NewLevelMeter(buf *SampleRingBuffer, bars int) *LevelMeter {
	return &LevelMeter{buf: buf, bars: bars}
}

// Read returns one level in [0, 1] per bar, oldest first.
func (m *LevelMeter) Read() []float64 {
	levels := make([]float64, m.bars)
	if m.bars == 0 {
		return levels
	}
	samples := m.buf.ReadSamples(m.buf.Count())
	per := len(samples) / m.bars
	if per == 0 {
		return levels
	}
	for i := range levels {
		rms := RMS(samples[i*per : (i+1)*per])
		// speech rarely exceeds a quarter of full scale
		levels[i] = min(rms/(math.MaxInt16/4), 1)
	}
	return levels
}
