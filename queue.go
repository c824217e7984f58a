package loopaudio

import "sync"

// blockQueue is the bounded buffer between the producer goroutine and
// the real-time consumer. Push blocks under backpressure; TryPop never
// blocks, because the consumer runs under a real-time deadline. Flush
// discards everything buffered and enqueues a sentinel in one critical
// section, so a stopping consumer can never observe a non-empty but
// stale queue.
//
// A plain channel cannot express Flush: there is no way to clear a
// channel's contents and enqueue a sentinel atomically with respect to
// a concurrent receiver.
type blockQueue struct {
	mu      sync.Mutex
	notFull sync.Cond
	blocks  []Block
	limit   int
	closed  bool
}

func newBlockQueue(limit int) *blockQueue {
	q := &blockQueue{limit: limit}
	q.notFull.L = &q.mu
	return q
}

func (q *blockQueue) Cap() int { return q.limit }

func (q *blockQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.blocks)
}

// Push appends a block, blocking while the queue is full. It reports
// whether the block was accepted; a closed queue discards it.
func (q *blockQueue) Push(b Block) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.blocks) >= q.limit && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}
	q.blocks = append(q.blocks, b)
	return true
}

// TryPop removes and returns the oldest block without blocking.
func (q *blockQueue) TryPop() (Block, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.blocks) == 0 {
		return nil, false
	}
	b := q.blocks[0]
	n := copy(q.blocks, q.blocks[1:])
	q.blocks = q.blocks[:n]
	q.notFull.Signal()
	return b, true
}

// Flush discards all buffered blocks and enqueues final in their place,
// atomically.
func (q *blockQueue) Flush(final Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.blocks = append(q.blocks[:0], final)
	q.notFull.Broadcast()
}

// Close wakes and turns away any blocked producer. Used once the
// consumer is done with the stream, so a producer stuck mid-push under
// backpressure does not leak.
func (q *blockQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notFull.Broadcast()
}
