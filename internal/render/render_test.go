package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/airwrite/internal/stroke"
	"github.com/banshee-data/airwrite/internal/timeutil"
)

func pt(x, y float64) stroke.Point { return stroke.Point{X: x, Y: y} }

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		in   []stroke.Segment
		want []Line
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single point", in: []stroke.Segment{stroke.Drawn(pt(1, 1))}, want: nil},
		{
			name: "two points",
			in:   []stroke.Segment{stroke.Drawn(pt(0, 0)), stroke.Drawn(pt(3, 4))},
			want: []Line{{From: pt(0, 0), To: pt(3, 4)}},
		},
		{
			name: "skip over break",
			in: []stroke.Segment{
				stroke.Drawn(pt(0, 0)),
				stroke.Break(),
				stroke.Drawn(pt(10, 10)),
				stroke.Drawn(pt(20, 20)),
			},
			want: []Line{{From: pt(10, 10), To: pt(20, 20)}},
		},
		{
			name: "trailing break",
			in: []stroke.Segment{
				stroke.Drawn(pt(0, 0)),
				stroke.Drawn(pt(1, 0)),
				stroke.Drawn(pt(2, 0)),
				stroke.Break(),
			},
			want: []Line{
				{From: pt(0, 0), To: pt(1, 0)},
				{From: pt(1, 0), To: pt(2, 0)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuns(t *testing.T) {
	in := []stroke.Segment{
		stroke.Drawn(pt(0, 0)),
		stroke.Drawn(pt(1, 1)),
		stroke.Break(),
		stroke.Drawn(pt(5, 5)),
		stroke.Break(),
		stroke.Drawn(pt(7, 7)),
		stroke.Drawn(pt(8, 8)),
	}
	want := [][]stroke.Point{
		{pt(0, 0), pt(1, 1)},
		{pt(5, 5)},
		{pt(7, 7), pt(8, 8)},
	}
	if diff := cmp.Diff(want, Runs(in)); diff != "" {
		t.Errorf("Runs() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Runs(nil))
}

type fixedSource struct{ snap stroke.Snapshot }

func (f fixedSource) Snapshot() stroke.Snapshot { return f.snap }

func TestRefreshLoopRepaintsEveryTick(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src := fixedSource{snap: stroke.Snapshot{Revision: 7}}

	var renders atomic.Int32
	var errs atomic.Int32
	ok := RendererFunc(func(s stroke.Snapshot) error {
		if s.Revision != 7 {
			t.Errorf("revision = %d, want 7", s.Revision)
		}
		renders.Add(1)
		return nil
	})
	failing := RendererFunc(func(stroke.Snapshot) error { return errors.New("display gone") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RefreshLoop(ctx, clock, 16*time.Millisecond, src, func(error) { errs.Add(1) }, failing, ok)
	}()

	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, time.Millisecond)

	// The snapshot never changes; the loop repaints anyway.
	for i := 1; i <= 3; i++ {
		clock.Advance(16 * time.Millisecond)
		want := int32(i)
		require.Eventually(t, func() bool { return renders.Load() == want }, time.Second, time.Millisecond)
	}
	assert.Equal(t, int32(3), errs.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RefreshLoop did not exit")
	}
}

func sampleStroke() []stroke.Segment {
	return []stroke.Segment{
		stroke.Drawn(pt(100, 100)),
		stroke.Drawn(pt(900, 100)),
		stroke.Break(),
		stroke.Drawn(pt(540, 1500)),
		stroke.Break(),
		stroke.Drawn(pt(100, 1800)),
		stroke.Drawn(pt(900, 1800)),
	}
}

func TestPlotPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotPNG(&buf, sampleStroke(), 1080, 1920))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Greater(t, b.Dy(), b.Dx(), "portrait screen should give a portrait image")
}

func TestPlotPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotPNG(&buf, nil, 1080, 1920))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	snap := stroke.Snapshot{Revision: 3, Segments: sampleStroke()}
	require.NoError(t, Chart(&buf, snap, 1080, 1920))
	html := buf.String()
	assert.Contains(t, html, "airwrite stroke")
	assert.Contains(t, html, "run 3")
	assert.False(t, strings.Contains(html, "run 4"))
}

func TestRasterize(t *testing.T) {
	img := Rasterize(sampleStroke(), 1080, 1920, 108, 192, 2)
	require.Equal(t, 108, img.Bounds().Dx())
	require.Equal(t, 192, img.Bounds().Dy())

	inked := func(x, y int) bool {
		r, g, b, _ := img.At(x, y).RGBA()
		return !(r == 0xffff && g == 0xffff && b == 0xffff)
	}

	// Midpoint of the first run.
	assert.True(t, inked(50, 10), "expected ink on first line")
	// Midpoint of the last run.
	assert.True(t, inked(50, 180), "expected ink on last line")
	// Single-point run is drawn as a dot.
	assert.True(t, inked(54, 150), "expected dot for single point run")
	// Nothing is drawn across a break: between (900,100) and (540,1500).
	assert.False(t, inked(72, 80), "no ink expected across a break")
	// Background.
	assert.False(t, inked(5, 100))
}

func TestRasterizeDegenerate(t *testing.T) {
	img := Rasterize(sampleStroke(), 0, 0, 10, 10, 1)
	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, sampleStroke(), 1080, 1920))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")

	buf.Reset()
	require.NoError(t, PDF(&buf, nil, 1920, 1080), "empty landscape stroke still renders a page")
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.Error(t, PDF(&buf, sampleStroke(), 0, 1920))
}
