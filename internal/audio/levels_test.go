package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/audio"
)

func TestSampleRingBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		writes   [][]int16
		read     int
		want     []int16
	}{
		{name: "partial", capacity: 10, writes: [][]int16{{1, 2, 3, 4, 5}}, read: 5, want: []int16{1, 2, 3, 4, 5}},
		{name: "wraparound", capacity: 5, writes: [][]int16{{1, 2, 3, 4, 5, 6, 7}}, read: 5, want: []int16{3, 4, 5, 6, 7}},
		{name: "batched", capacity: 5, writes: [][]int16{{1, 2}, {3, 4}, {5, 6}}, read: 5, want: []int16{2, 3, 4, 5, 6}},
		{name: "tail", capacity: 10, writes: [][]int16{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}}, read: 3, want: []int16{8, 9, 10}},
		{name: "more than available", capacity: 10, writes: [][]int16{{1, 2, 3}}, read: 10, want: []int16{1, 2, 3}},
		{name: "zero", capacity: 10, writes: [][]int16{{1, 2, 3}}, read: 0, want: nil},
		{name: "negative", capacity: 10, writes: [][]int16{{1, 2, 3}}, read: -1, want: nil},
		{name: "empty write", capacity: 10, writes: [][]int16{{}}, read: 5, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := audio.NewSampleRingBuffer(tt.capacity)
			for _, w := range tt.writes {
				buf.Write(w)
			}
			require.Equal(t, tt.want, buf.ReadSamples(tt.read))
		})
	}
}

func TestSampleRingBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	buf := audio.NewSampleRingBuffer(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		var n int16
		for ctx.Err() == nil {
			buf.Write([]int16{n, n + 1, n + 2})
			n += 3
		}
	}()

	for ctx.Err() == nil {
		_ = buf.ReadSamples(10)
	}
}

func TestBytesToInt16(t *testing.T) {
	t.Parallel()

	assert.Nil(t, audio.BytesToInt16(nil))
	assert.Equal(t, []int16{256}, audio.BytesToInt16([]byte{0x00, 0x01}))
	assert.Equal(t, []int16{1, 2, 3}, audio.BytesToInt16([]byte{1, 0, 2, 0, 3, 0}))
	assert.Equal(t, []int16{-1}, audio.BytesToInt16([]byte{0xFF, 0xFF}))
	assert.Equal(t, []int16{-32768}, audio.BytesToInt16([]byte{0x00, 0x80}))
	assert.Equal(t, []int16{1}, audio.BytesToInt16([]byte{1, 0, 2}), "odd byte is dropped")
}

func TestRMS(t *testing.T) {
	t.Parallel()

	assert.Zero(t, audio.RMS(nil))
	assert.InDelta(t, 100.0, audio.RMS([]int16{100, -100, 100, -100}), 0.001)
}

func TestLevelMeter(t *testing.T) {
	t.Parallel()

	buf := audio.NewSampleRingBuffer(8)
	meter := audio.NewLevelMeter(buf, 2)
	assert.Equal(t, []float64{0, 0}, meter.Read())

	buf.Write([]int16{0, 0, 0, 0, 32767, -32767, 32767, -32767})
	levels := meter.Read()
	require.Len(t, levels, 2)
	assert.Zero(t, levels[0])
	assert.Equal(t, 1.0, levels[1])
}
