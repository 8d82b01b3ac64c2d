// Package queue provides the FIFO between MIDI producers and the render
// dispatcher.
package queue

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrFull is returned by Push under RejectNewest when the queue is at capacity.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned by Push after Close.
	ErrClosed = errors.New("queue closed")
)

// Policy decides what a bounded queue does with a push at capacity.
type Policy int

const (
	// DropOldest evicts the head to make room; the push succeeds.
	DropOldest Policy = iota
	// RejectNewest refuses the push with ErrFull.
	RejectNewest
)

func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case RejectNewest:
		return "reject-newest"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop-oldest", "dropoldest":
		return DropOldest, nil
	case "reject-newest", "rejectnewest":
		return RejectNewest, nil
	}
	return 0, fmt.Errorf("unknown overflow policy %q (expected drop-oldest|reject-newest)", s)
}

func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Queue is a multi-producer, single-consumer FIFO. Items leave in arrival
// order and each is returned by Pop at most once.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	capacity int
	policy   Policy
	closed   bool
	dropped  uint64
	ready    chan struct{}
}

// New returns a queue holding at most capacity items. A capacity of zero or
// less means unbounded.
func New[T any](capacity int, policy Policy) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		capacity: capacity,
		policy:   policy,
		ready:    make(chan struct{}, 1),
	}
}

// Push appends v. At capacity it applies the queue's overflow policy.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		if q.policy == RejectNewest {
			q.dropped++
			q.mu.Unlock()
			return ErrFull
		}
		q.popLocked()
		q.dropped++
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
	return nil
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lenLocked() == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Ready receives a value after a push; the consumer then drains with Pop
// until it reports empty. Several pushes may collapse into one wake.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Dropped counts items lost to the overflow policy.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close refuses further pushes. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue[T]) popLocked() T {
	v := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}
