// Package stroke holds the in-memory stroke of an air-writing session: an
// ordered, append-only sequence of drawn points and pen-lift breaks, and the
// pen up/down state machine that governs it.
package stroke

import "fmt"

// Point is a position in screen (display) pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Kind distinguishes drawn points from pen lifts.
type Kind uint8

const (
	KindDrawn Kind = iota
	KindBreak
)

// Segment is one element of the stroke buffer. For KindBreak, Point is
// meaningless and left zero.
type Segment struct {
	Kind  Kind
	Point Point
}

// Drawn returns a segment that puts the pen down at p.
func Drawn(p Point) Segment {
	return Segment{Kind: KindDrawn, Point: p}
}

// Break returns a pen-lift segment.
func Break() Segment {
	return Segment{Kind: KindBreak}
}

// IsBreak reports whether s lifts the pen.
func (s Segment) IsBreak() bool {
	return s.Kind == KindBreak
}

func (s Segment) String() string {
	if s.IsBreak() {
		return "Break"
	}
	return fmt.Sprintf("Drawn(%g,%g)", s.Point.X, s.Point.Y)
}

// PenState is the pen status implied by the last segment.
type PenState uint8

const (
	// PenEmpty means the buffer holds no segments.
	PenEmpty PenState = iota
	// PenDrawing means the last segment is a drawn point.
	PenDrawing
	// PenLifted means the last segment is a break.
	PenLifted
)

func (s PenState) String() string {
	switch s {
	case PenEmpty:
		return "empty"
	case PenDrawing:
		return "drawing"
	case PenLifted:
		return "lifted"
	default:
		return fmt.Sprintf("PenState(%d)", uint8(s))
	}
}

// stateOf derives the pen state from a segment sequence.
func stateOf(segments []Segment) PenState {
	if len(segments) == 0 {
		return PenEmpty
	}
	if segments[len(segments)-1].IsBreak() {
		return PenLifted
	}
	return PenDrawing
}
