package journal

import "sync"

// buffer is a growable ring buffer between the engines and the writer. It
// doubles its capacity when it reaches 70% full, up to maxCap; beyond that
// Send drops (the journal favors liveness over completeness).
type buffer struct {
	mu       sync.Mutex
	items    []Event
	head     int
	tail     int
	count    int
	capacity int
	maxCap   int
	closed   bool

	dropped int64
}

func newBuffer(initialCap int) *buffer {
	if initialCap < 1 {
		initialCap = 1
	}
	return &buffer{
		items:    make([]Event, initialCap),
		capacity: initialCap,
		maxCap:   initialCap * 64,
	}
}

// send enqueues an event. Returns false if the buffer is closed or full at
// its maximum capacity.
func (b *buffer) send(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && b.capacity < b.maxCap {
		b.grow()
	}
	if b.count == b.capacity {
		b.dropped++
		return false
	}

	b.items[b.tail] = ev
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	return true
}

// drain removes up to max events, or all of them when max <= 0.
func (b *buffer) drain(max int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[b.head]
		b.items[b.head] = Event{}
		b.head = (b.head + 1) % b.capacity
		b.count--
	}
	return out
}

func (b *buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (b *buffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// grow doubles capacity. Must be called with mu held.
func (b *buffer) grow() {
	newCap := b.capacity * 2
	if newCap > b.maxCap {
		newCap = b.maxCap
	}
	newItems := make([]Event, newCap)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newItems, b.items[b.head:b.tail])
		} else {
			n := copy(newItems, b.items[b.head:])
			copy(newItems[n:], b.items[:b.tail])
		}
	}

	b.items = newItems
	b.head = 0
	b.tail = b.count
	b.capacity = newCap
}
