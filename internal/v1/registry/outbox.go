package registry

import (
	"container/list"
	"errors"
	"sync"
)

// ErrOutboxClosed is returned by Send after the outbox has been closed.
var ErrOutboxClosed = errors.New("outbox closed")

// Outbox is the unbounded outbound frame queue for one wire connection.
// The registry owns the sending side; exactly one sender goroutine owns
// the receiving side. Send never blocks. Closing discards any pending
// frames and unblocks the receiver.
type Outbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames *list.List
	closed bool
}

// NewOutbox creates an empty open outbox.
func NewOutbox() *Outbox {
	o := &Outbox{frames: list.New()}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Send enqueues frame for delivery. It never blocks.
// Returns ErrOutboxClosed once the outbox has been closed.
func (o *Outbox) Send(frame string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutboxClosed
	}
	o.frames.PushBack(frame)
	o.cond.Signal()
	return nil
}

// Receive blocks until a frame is available or the outbox is closed.
// The second return is false once the outbox is closed; frames queued
// before Close are not drained.
func (o *Outbox) Receive() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for !o.closed && o.frames.Len() == 0 {
		o.cond.Wait()
	}
	if o.closed {
		return "", false
	}

	front := o.frames.Front()
	o.frames.Remove(front)
	return front.Value.(string), true
}

// Close marks the outbox closed and discards pending frames.
// Safe to call more than once.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	o.frames.Init()
	o.cond.Broadcast()
}

// Len reports the number of pending frames.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames.Len()
}

// Closed reports whether the outbox has been closed.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
