package pose

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// ErrEstimatorClosed is returned by SyntheticEstimator after Close.
var ErrEstimatorClosed = errors.New("estimator closed")

// ErrSyntheticFailure is the error injected by SyntheticEstimator.FailEvery.
var ErrSyntheticFailure = errors.New("synthetic estimator failure")

// SyntheticEstimator traces a figure-eight with the primary landmark so the
// pipeline can be exercised without a camera or a model. Output depends only
// on the frame sequence number, so runs are reproducible.
type SyntheticEstimator struct {
	calls  atomic.Uint64
	closed atomic.Bool

	// Configuration
	PrimaryLandmark LandmarkType
	Confidence      float64       // reported confidence while tracking
	PeriodFrames    int           // frames per full figure-eight
	Latency         time.Duration // simulated inference time
	DropoutEvery    int           // start a tracking dropout every N frames (0 = never)
	DropoutLength   int           // frames per dropout
	FailEvery       int           // return an error every N frames (0 = never)
	EmptyEvery      int           // report no pose every N frames (0 = never)
}

// NewSyntheticEstimator creates a generator tracing the given landmark.
func NewSyntheticEstimator(primary LandmarkType) *SyntheticEstimator {
	return &SyntheticEstimator{
		PrimaryLandmark: primary,
		Confidence:      0.9,
		PeriodFrames:    120,
		DropoutEvery:    90,
		DropoutLength:   10,
	}
}

// Calls returns how many times Estimate has been invoked.
func (e *SyntheticEstimator) Calls() uint64 {
	return e.calls.Load()
}

// Estimate implements Estimator.
func (e *SyntheticEstimator) Estimate(ctx context.Context, frame Frame) ([]Pose, error) {
	e.calls.Add(1)
	if e.closed.Load() {
		return nil, ErrEstimatorClosed
	}

	if e.Latency > 0 {
		t := time.NewTimer(e.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	seq := frame.Sequence
	if e.FailEvery > 0 && seq%uint64(e.FailEvery) == 0 {
		return nil, fmt.Errorf("%w at frame %d", ErrSyntheticFailure, seq)
	}
	if e.EmptyEvery > 0 && seq%uint64(e.EmptyEvery) == 0 {
		return []Pose{}, nil
	}

	confidence := e.Confidence
	if e.DropoutEvery > 0 && e.DropoutLength > 0 {
		if int(seq%uint64(e.DropoutEvery)) < e.DropoutLength {
			confidence = 0.1
		}
	}

	return []Pose{e.poseAt(seq, frame.Metadata, confidence)}, nil
}

// poseAt places the primary landmark on a figure-eight centred in the
// frame. Landmark X spans the sensor height and Y the sensor width, matching
// the 90-degree sensor mounting the transformer assumes.
func (e *SyntheticEstimator) poseAt(seq uint64, meta FrameMetadata, confidence float64) Pose {
	period := e.PeriodFrames
	if period <= 0 {
		period = 120
	}
	theta := 2 * math.Pi * float64(seq%uint64(period)) / float64(period)

	w := float64(meta.SensorHeight)
	h := float64(meta.SensorWidth)
	cx, cy := w/2, h/2
	rx, ry := w*0.35, h*0.25

	tip := Landmark{
		X:          cx + rx*math.Sin(theta),
		Y:          cy + ry*math.Sin(2*theta),
		Confidence: confidence,
	}

	p := Pose{Nose: {X: cx, Y: h * 0.2, Confidence: 0.95}}
	p[e.PrimaryLandmark] = tip
	return p
}

// Close implements Estimator. Later calls to Estimate fail.
func (e *SyntheticEstimator) Close() error {
	e.closed.Store(true)
	return nil
}
