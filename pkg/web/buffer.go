package web

import (
	"sync"
)

// DefaultBufferSize is the default maximum number of events to keep.
const DefaultBufferSize = 10000

// Buffer is a thread-safe ring buffer of events with a per-scenario index,
// used to answer history and state requests for clients that join late.
type Buffer struct {
	mu       sync.RWMutex
	events   []Event
	maxSize  int
	writePos int   // next position to write, wraps around
	count    int   // total events written
	seq      int64 // last assigned sequence number

	byScenario map[string][]int // buffer positions per scenario key, chronological
}

// NewBuffer creates a buffer holding up to maxSize events, DefaultBufferSize if not positive.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{
		events:     make([]Event, maxSize),
		maxSize:    maxSize,
		byScenario: make(map[string][]int),
	}
}

// Add assigns the next sequence number, stores the event overwriting the oldest if full,
// and returns the stored event.
func (b *Buffer) Add(e Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.maxSize {
		b.dropIndex(b.writePos)
	}

	b.seq++
	e.Seq = b.seq
	b.events[b.writePos] = e
	if e.Scenario != "" {
		b.byScenario[e.Scenario] = append(b.byScenario[e.Scenario], b.writePos)
	}
	b.writePos = (b.writePos + 1) % b.maxSize
	b.count++
	return e
}

// dropIndex removes the index entry for the position being overwritten. Lock must be held.
func (b *Buffer) dropIndex(pos int) {
	key := b.events[pos].Scenario
	idx, ok := b.byScenario[key]
	if !ok {
		return
	}
	// entries are chronological, so the overwritten one is first
	if len(idx) > 0 && idx[0] == pos {
		idx = idx[1:]
	}
	if len(idx) == 0 {
		delete(b.byScenario, key)
		return
	}
	b.byScenario[key] = idx
}

// All returns all stored events in chronological order.
func (b *Buffer) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ordered()
}

// Since returns stored events with Seq greater than seq.
func (b *Buffer) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := b.ordered()
	for i, e := range all {
		if e.Seq > seq {
			return all[i:]
		}
	}
	return nil
}

// ByScenario returns stored events of one scenario with Seq greater than seq, in chronological order.
func (b *Buffer) ByScenario(key string, seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var res []Event
	for _, pos := range b.byScenario[key] {
		if e := b.events[pos]; e.Seq > seq {
			res = append(res, e)
		}
	}
	return res
}

// LastSeq returns the last assigned sequence number.
func (b *Buffer) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// ordered returns a chronological copy. Lock must be held.
func (b *Buffer) ordered() []Event {
	if b.count == 0 {
		return nil
	}
	if b.count <= b.maxSize {
		res := make([]Event, b.count)
		copy(res, b.events[:b.count])
		return res
	}
	res := make([]Event, b.maxSize)
	tail := b.maxSize - b.writePos
	copy(res[:tail], b.events[b.writePos:])
	copy(res[tail:], b.events[:b.writePos])
	return res
}
