// Package stream fan-outs notification events to live subscribers (the SSE
// endpoint). Delivery is best effort; slow subscribers drop events rather
// than blocking senders.
package stream

import (
	"context"
	"sync"
	"time"
)

// Event is a notification pushed to a single account.
type Event struct {
	AccountID string    `json:"account_id"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	accountID string
	ch        chan Event
}

func New() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for events addressed to accountID and
// returns a channel which will receive them. The channel is closed when the
// provided context ends.
func (s *Stream) Subscribe(ctx context.Context, accountID string) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{accountID: accountID, ch: ch}
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

// Publish delivers the event to every subscriber registered for its account.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.accountID != evt.AccountID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
