package stroke

import "gonum.org/v1/gonum/floats"

// Measurements summarises the geometry of a segment sequence.
type Measurements struct {
	Points    int     `json:"points"`
	Breaks    int     `json:"breaks"`
	Runs      int     `json:"runs"`       // pen-down runs separated by breaks
	InkLength float64 `json:"ink_length"` // screen pixels along drawn lines
	MinX      float64 `json:"min_x"`
	MinY      float64 `json:"min_y"`
	MaxX      float64 `json:"max_x"`
	MaxY      float64 `json:"max_y"`
}

// Measure computes Measurements. Only pairs of adjacent drawn points
// contribute ink, so a break never adds length. Bounds are zero when there
// are no points.
func Measure(segments []Segment) Measurements {
	var m Measurements
	xs := make([]float64, 0, len(segments))
	ys := make([]float64, 0, len(segments))

	prevDrawn := false
	var prev Point
	for _, s := range segments {
		if s.IsBreak() {
			m.Breaks++
			prevDrawn = false
			continue
		}
		m.Points++
		xs = append(xs, s.Point.X)
		ys = append(ys, s.Point.Y)
		if prevDrawn {
			m.InkLength += floats.Distance(
				[]float64{prev.X, prev.Y},
				[]float64{s.Point.X, s.Point.Y},
				2,
			)
		} else {
			m.Runs++
		}
		prev = s.Point
		prevDrawn = true
	}

	if len(xs) > 0 {
		m.MinX, m.MaxX = floats.Min(xs), floats.Max(xs)
		m.MinY, m.MaxY = floats.Min(ys), floats.Max(ys)
	}
	return m
}
