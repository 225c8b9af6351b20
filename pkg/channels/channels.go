// Package channels holds non-blocking send helpers and a broadcaster built
// on them.
package channels

import (
	"errors"
	"time"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)

// SendNonBlock attempts to send a message without blocking.
// Returns error if the channel is full or closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendWithTimeout sends a message, giving up after timeout.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- msg:
		return nil
	case <-timer.C:
		return ErrChannelTimeout
	}
}

// SendLatest sends msg, evicting the oldest pending message when ch is full.
// evicted reports whether a message was discarded to make room.
func SendLatest[T any](ch chan T, msg T) (evicted bool, err error) {
	for range 2 {
		err = SendNonBlock(ch, msg)
		if !errors.Is(err, ErrChannelFull) {
			return evicted, err
		}
		select {
		case <-ch:
			evicted = true
		default:
		}
	}
	return evicted, err
}

// Drain returns the messages buffered in ch without blocking.
func Drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}
