// Package render turns stroke snapshots into drawable geometry.
//
// The contract every renderer follows: for each index i, draw a line between
// segment i and segment i+1 only when both are drawn points. A break between
// two points means nothing is drawn across it. Renderers repaint the whole
// stroke from a fresh snapshot on every refresh instead of diffing.
package render

import "github.com/banshee-data/airwrite/internal/stroke"

// Line is one straight line between two temporally adjacent drawn points.
type Line struct {
	From stroke.Point
	To   stroke.Point
}

// Lines returns the line list a renderer must draw for segments.
func Lines(segments []stroke.Segment) []Line {
	if len(segments) < 2 {
		return nil
	}
	lines := make([]Line, 0, len(segments)-1)
	for i := 0; i+1 < len(segments); i++ {
		a, b := segments[i], segments[i+1]
		if a.IsBreak() || b.IsBreak() {
			continue
		}
		lines = append(lines, Line{From: a.Point, To: b.Point})
	}
	return lines
}

// Runs splits segments into pen-down runs. A run may hold a single point
// when the pen was lifted right after touching down.
func Runs(segments []stroke.Segment) [][]stroke.Point {
	var runs [][]stroke.Point
	var cur []stroke.Point
	for _, s := range segments {
		if s.IsBreak() {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, s.Point)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}
