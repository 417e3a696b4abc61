package render

import (
	"context"
	"time"

	"github.com/banshee-data/airwrite/internal/stroke"
	"github.com/banshee-data/airwrite/internal/timeutil"
)

// Renderer consumes one snapshot per display refresh.
type Renderer interface {
	Render(snap stroke.Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(snap stroke.Snapshot) error

// Render calls f.
func (f RendererFunc) Render(snap stroke.Snapshot) error { return f(snap) }

// SnapshotSource is anything that can hand out stroke snapshots.
type SnapshotSource interface {
	Snapshot() stroke.Snapshot
}

// RefreshLoop re-reads src on every tick and hands the snapshot to each
// renderer, unconditionally, until ctx is done. Renderer errors are passed
// to onErr (when set) and never stop the loop.
func RefreshLoop(ctx context.Context, clock timeutil.Clock, interval time.Duration, src SnapshotSource, onErr func(error), renderers ...Renderer) error {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			snap := src.Snapshot()
			for _, r := range renderers {
				if err := r.Render(snap); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}
}
