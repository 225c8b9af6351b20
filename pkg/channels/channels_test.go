package channels_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/pkg/channels"
)

func TestSendNonBlock(t *testing.T) {
	t.Run("room in buffer", func(t *testing.T) {
		ch := make(chan int, 1)
		require.NoError(t, channels.SendNonBlock(ch, 42))
		assert.Equal(t, 42, <-ch)
	})

	t.Run("full", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 1
		assert.ErrorIs(t, channels.SendNonBlock(ch, 2), channels.ErrChannelFull)
	})

	t.Run("closed", func(t *testing.T) {
		ch := make(chan int, 1)
		close(ch)
		assert.ErrorIs(t, channels.SendNonBlock(ch, 1), channels.ErrChannelClosed)
	})
}

func TestSendWithTimeout(t *testing.T) {
	t.Run("receiver arrives in time", func(t *testing.T) {
		ch := make(chan int)
		go func() {
			time.Sleep(5 * time.Millisecond)
			<-ch
		}()
		assert.NoError(t, channels.SendWithTimeout(ch, 1, time.Second))
	})

	t.Run("times out", func(t *testing.T) {
		ch := make(chan int)
		assert.ErrorIs(t, channels.SendWithTimeout(ch, 1, time.Millisecond), channels.ErrChannelTimeout)
	})

	t.Run("closed", func(t *testing.T) {
		ch := make(chan int)
		close(ch)
		assert.ErrorIs(t, channels.SendWithTimeout(ch, 1, time.Second), channels.ErrChannelClosed)
	})
}

func TestSendLatest(t *testing.T) {
	ch := make(chan int, 2)

	evicted, err := channels.SendLatest(ch, 1)
	require.NoError(t, err)
	assert.False(t, evicted)

	_, _ = channels.SendLatest(ch, 2)
	evicted, err = channels.SendLatest(ch, 3)
	require.NoError(t, err)
	assert.True(t, evicted)

	assert.Equal(t, []int{2, 3}, channels.Drain(ch))

	close(ch)
	_, err = channels.SendLatest(ch, 4)
	assert.ErrorIs(t, err, channels.ErrChannelClosed)
}

func TestDrain(t *testing.T) {
	ch := make(chan string, 3)
	assert.Empty(t, channels.Drain(ch))

	ch <- "a"
	ch <- "b"
	assert.Equal(t, []string{"a", "b"}, channels.Drain(ch))

	ch <- "c"
	close(ch)
	assert.Equal(t, []string{"c"}, channels.Drain(ch))
}
