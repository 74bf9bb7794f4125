package taskpool

// minQueueCap is the initial ring size.
const minQueueCap = 16

// queue is an unbounded FIFO of tasks backed by a ring buffer.
// It is not safe for concurrent use; the pool guards it with its lock.
type queue struct {
	buf   []Task
	head  int
	count int
}

func newQueue() *queue {
	return &queue{buf: make([]Task, minQueueCap)}
}

// enqueue appends t at the tail, growing the ring when full.
func (q *queue) enqueue(t Task) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = t
	q.count++
}

// dequeue removes and returns the head. It reports false, leaving the queue
// untouched, when there is nothing to return.
func (q *queue) dequeue() (Task, bool) {
	if q.count == 0 {
		return Task{}, false
	}
	t := q.buf[q.head]
	// Release references held by the vacated slot.
	q.buf[q.head] = Task{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return t, true
}

func (q *queue) len() int {
	return q.count
}

// drain empties the queue and returns what it held in FIFO order.
func (q *queue) drain() []Task {
	if q.count == 0 {
		return nil
	}
	out := make([]Task, 0, q.count)
	for {
		t, ok := q.dequeue()
		if !ok {
			break
		}
		out = append(out, t)
	}
	q.buf = make([]Task, minQueueCap)
	q.head = 0
	return out
}

func (q *queue) grow() {
	next := make([]Task, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
}
