package synth

import "sync/atomic"

// DefaultQueueCapacity comfortably exceeds the commands one control frame can
// produce.
const DefaultQueueCapacity = 64

// CommandQueue is a bounded single-producer/single-consumer ring. Push is
// called from exactly one control goroutine and Pop/Drain from exactly one
// audio goroutine; neither side blocks, locks or allocates.
//
// When the ring is full the newest command is dropped and counted.
type CommandQueue struct {
	buf     []Command
	head    atomic.Uint64 // next slot to read, owned by the consumer
	tail    atomic.Uint64 // next slot to write, owned by the producer
	dropped atomic.Uint64
}

// NewCommandQueue creates a queue holding at most capacity commands.
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &CommandQueue{buf: make([]Command, capacity)}
}

// Cap returns the fixed capacity.
func (q *CommandQueue) Cap() int { return len(q.buf) }

// Len returns the number of queued commands. From a third goroutine it is a
// snapshot that may already be stale.
func (q *CommandQueue) Len() int {
	head := q.head.Load()
	return int(q.tail.Load() - head)
}

// Dropped returns how many commands were rejected because the ring was full.
func (q *CommandQueue) Dropped() uint64 { return q.dropped.Load() }

// Push enqueues cmd. It returns false and counts a drop when the ring is full.
func (q *CommandQueue) Push(cmd Command) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail%uint64(len(q.buf))] = cmd
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues the oldest command.
func (q *CommandQueue) Pop() (Command, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Command{}, false
	}
	slot := &q.buf[head%uint64(len(q.buf))]
	cmd := *slot
	*slot = Command{}
	q.head.Store(head + 1)
	return cmd, true
}

// Drain applies every command queued at call time, oldest first, and returns
// how many were applied. Commands pushed while draining wait for the next
// call, which bounds the work done per audio callback.
func (q *CommandQueue) Drain(apply func(Command)) int {
	head := q.head.Load()
	end := q.tail.Load()
	n := 0
	for ; head != end; head++ {
		slot := &q.buf[head%uint64(len(q.buf))]
		cmd := *slot
		*slot = Command{}
		q.head.Store(head + 1)
		apply(cmd)
		n++
	}
	return n
}
