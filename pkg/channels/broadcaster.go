package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type policy int

const (
	// dropNewest skips a message the subscriber has no room for.
	dropNewest policy = iota
	// waitTimeout waits up to a timeout for room.
	waitTimeout
	// keepLatest evicts the oldest pending message to make room.
	keepLatest
)

type subscriber[T any] struct {
	ch      chan<- T
	buf     chan T // keepLatest only
	policy  policy
	timeout time.Duration

	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	switch s.policy {
	case waitTimeout:
		err = SendWithTimeout(s.ch, msg, s.timeout)
	case keepLatest:
		var evicted bool
		evicted, err = SendLatest(s.buf, msg)
		if evicted {
			s.dropped.Add(1)
		}
	default:
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster copies every message sent on its input channel to each
// subscriber. A slow subscriber never blocks the others; what it misses
// depends on how it subscribed.
//
// On context cancellation the input channel is closed and pending messages
// are delivered before shutdown completes.
type Broadcaster[T any] struct {
	mu          sync.Mutex
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe adds ch; messages that do not fit are dropped.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}
	return b.add(&subscriber[T]{ch: ch, policy: dropNewest})
}

// SubscribeWithTimeout adds ch; a message is dropped when there is no room
// for it within timeout.
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	return b.add(&subscriber[T]{ch: ch, policy: waitTimeout, timeout: timeout})
}

// SubscribeLatest adds ch for state snapshots: when ch is full the oldest
// pending message is evicted, so the newest message is always delivered.
func (b *Broadcaster[T]) SubscribeLatest(ch chan T) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}
	if cap(ch) == 0 {
		return errors.New("latest subscriber channel must be buffered")
	}
	return b.add(&subscriber[T]{ch: ch, buf: ch, policy: keepLatest})
}

func (b *Broadcaster[T]) add(s *subscriber[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started.Load() {
		return errors.New("broadcaster already started")
	}
	b.subscribers = append(b.subscribers, s)
	return nil
}

// Run starts delivery and returns the input channel, which the broadcaster
// owns and closes once ctx is done.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started.Load() {
		return nil, errors.New("broadcaster already started")
	}
	if len(b.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	b.input = make(chan T, len(b.subscribers)*2)
	subs := b.subscribers

	b.wg.Go(func() {
		for msg := range b.input {
			for _, s := range subs {
				s.send(msg)
			}
		}
	})
	b.started.Store(true)

	go func() {
		<-ctx.Done()
		close(b.input)
	}()

	return b.input, nil
}

// Wait blocks until every pending message has been delivered after ctx is
// done. It is safe to call from multiple goroutines.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats describes one subscriber's delivery.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats returns delivery stats in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(s.dropped.Load()),
			Inactive: s.inactive.Load(),
		})
	}
	return stats
}
