// Package stream fans workflow transition events out to live subscribers
// such as Server-Sent Events clients.
package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"centralis.org/internal/workflow"
)

const subscriberBuffer = 16

// Stream implements workflow.Notifier.
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]chan workflow.Event
	next    int
	dropped atomic.Uint64
}

var _ workflow.Notifier = (*Stream)(nil)

// New returns a stream with no subscribers.
func New() *Stream {
	return &Stream{subs: make(map[int]chan workflow.Event)}
}

// Subscribe registers a subscriber. The channel is closed when ctx ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan workflow.Event {
	ch := make(chan workflow.Event, subscriberBuffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to every subscriber without blocking; a full
// subscriber misses the event.
func (s *Stream) Publish(evt workflow.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers reports the number of live subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}
