// Package eventbus fans detection events out to independent consumers.
//
// Publish never blocks the streaming thread: channel subscribers that are
// full drop the new event (DropNew), latest-value subscribers overwrite
// the previous one (DropOld). Per-subscriber Sent/Dropped counters are kept.
package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBusClosed          = errors.New("eventbus: bus is closed")
	ErrSubscriberExists   = errors.New("eventbus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("eventbus: subscriber not found")
	ErrNilChannel         = errors.New("eventbus: nil channel provided")
)

// DropPolicy defines how the bus handles events when a subscriber cannot keep up
type DropPolicy int

const (
	DropNew DropPolicy = iota
	DropOld
)

// SubscriberStats tracks event distribution for one subscriber
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// Stats is a snapshot of the whole bus. Totals include subscribers that
// have since been removed and survive Close.
type Stats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

type subscriber[T any] struct {
	policy  DropPolicy
	sent    uint64
	dropped uint64

	ch     chan<- T
	latest *Latest[T]
}

// Bus distributes events of type T to subscribers
type Bus[T any] struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriber[T]
	totalPublished uint64
	totalSent      uint64 // survives Unsubscribe and Close
	totalDropped   uint64
	closed         bool
}

// New creates an empty bus
func New[T any]() *Bus[T] {
	return &Bus[T]{subscribers: make(map[string]*subscriber[T])}
}

// Subscribe registers a channel with the DropNew policy
func (b *Bus[T]) Subscribe(id string, ch chan<- T) error {
	if ch == nil {
		return ErrNilChannel
	}
	return b.add(id, &subscriber[T]{policy: DropNew, ch: ch})
}

// SubscribeLatest registers a DropOld subscriber that only keeps the newest event
func (b *Bus[T]) SubscribeLatest(id string) (*Latest[T], error) {
	l := newLatest[T]()
	if err := b.add(id, &subscriber[T]{policy: DropOld, latest: l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Bus[T]) add(id string, s *subscriber[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = s
	return nil
}

// Publish distributes ev to all subscribers without blocking
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	atomic.AddUint64(&b.totalPublished, 1)

	for _, s := range b.subscribers {
		switch s.policy {
		case DropNew:
			select {
			case s.ch <- ev:
				atomic.AddUint64(&s.sent, 1)
				atomic.AddUint64(&b.totalSent, 1)
			default:
				atomic.AddUint64(&s.dropped, 1)
				atomic.AddUint64(&b.totalDropped, 1)
			}
		case DropOld:
			if s.latest.set(ev) {
				atomic.AddUint64(&s.dropped, 1)
				atomic.AddUint64(&b.totalDropped, 1)
			}
			atomic.AddUint64(&s.sent, 1)
			atomic.AddUint64(&b.totalSent, 1)
		}
	}
}

// Unsubscribe removes a subscriber. Channels are not closed; they belong to the caller.
func (b *Bus[T]) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	if s.latest != nil {
		s.latest.Close()
	}
	delete(b.subscribers, id)
	return nil
}

// Stats returns a snapshot of the bus counters
func (b *Bus[T]) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		TotalPublished: atomic.LoadUint64(&b.totalPublished),
		TotalSent:      atomic.LoadUint64(&b.totalSent),
		TotalDropped:   atomic.LoadUint64(&b.totalDropped),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}
	for id, s := range b.subscribers {
		st.Subscribers[id] = SubscriberStats{
			Sent:    atomic.LoadUint64(&s.sent),
			Dropped: atomic.LoadUint64(&s.dropped),
		}
	}
	return st
}

// Close shuts down the bus. Safe to call more than once.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, s := range b.subscribers {
		if s.latest != nil {
			s.latest.Close()
		}
	}
	b.subscribers = make(map[string]*subscriber[T])
}

// Latest holds the most recent event for a DropOld subscriber
type Latest[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	fresh  bool
	closed bool
}

func newLatest[T any]() *Latest[T] {
	l := &Latest[T]{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// set stores v and reports whether an unread value was overwritten
func (l *Latest[T]) set(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	overwritten := l.fresh
	l.value = v
	l.fresh = true
	l.cond.Broadcast()
	return overwritten
}

// Receive blocks until an unread event is available or the holder is closed
func (l *Latest[T]) Receive() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for !l.fresh && !l.closed {
		l.cond.Wait()
	}
	if !l.fresh {
		var zero T
		return zero, false
	}
	l.fresh = false
	return l.value, true
}

// TryReceive returns the unread event without blocking
func (l *Latest[T]) TryReceive() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.fresh {
		var zero T
		return zero, false
	}
	l.fresh = false
	return l.value, true
}

// Close wakes any blocked Receive
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.cond.Broadcast()
}
