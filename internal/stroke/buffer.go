package stroke

import "sync"

// Buffer is the stroke buffer of one drawing session.
//
// Invariants: no two consecutive breaks, never a leading break, and segments
// are only ever appended or cleared wholesale. The pipeline is the only
// writer; renderers read through Snapshot from any goroutine.
type Buffer struct {
	mu       sync.RWMutex
	segments []Segment
	revision uint64
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// AppendPoint puts the pen down at p. Consecutive points are expected; that
// is how a continuous line accumulates.
func (b *Buffer) AppendPoint(p Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.segments = append(b.segments, Drawn(p))
	b.revision++
}

// AppendBreak lifts the pen. It is a no-op when the buffer is empty or the
// pen is already lifted, and reports whether a break was appended.
func (b *Buffer) AppendBreak() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stateOf(b.segments) != PenDrawing {
		return false
	}
	b.segments = append(b.segments, Break())
	b.revision++
	return true
}

// Clear discards every segment.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.segments = nil
	b.revision++
}

// State returns the current pen state.
func (b *Buffer) State() PenState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return stateOf(b.segments)
}

// Len returns the number of segments.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.segments)
}

// Snapshot returns an immutable copy of the buffer.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	segs := make([]Segment, len(b.segments))
	copy(segs, b.segments)
	return Snapshot{Revision: b.revision, Segments: segs}
}

// Snapshot is a point-in-time copy of a Buffer. Revision increases with
// every mutation, so consumers can tell whether anything changed.
type Snapshot struct {
	Revision uint64
	Segments []Segment
}

// State returns the pen state at the time the snapshot was taken.
func (s Snapshot) State() PenState {
	return stateOf(s.Segments)
}
