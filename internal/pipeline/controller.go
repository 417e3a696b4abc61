// Package pipeline admits camera frames into the pose estimator one at a
// time and turns each estimate into a stroke update.
//
// OnFrame is safe to call from many goroutines at sensor cadence. While an
// inference is in flight every other frame is dropped on the spot; nothing is
// queued and nothing blocks. Buffer mutations therefore happen in the order
// admitted inferences complete, which is frame order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/stroke"
	"github.com/banshee-data/airwrite/internal/transform"
)

// DefaultConfidenceThreshold is the pointer confidence a landmark must
// strictly exceed to draw.
const DefaultConfidenceThreshold = 0.5

var (
	// ErrEstimatorPanic wraps a recovered panic from the estimator.
	ErrEstimatorPanic = errors.New("pose estimator panicked")

	// ErrNoEstimator is returned by NewController without an estimator.
	ErrNoEstimator = errors.New("pipeline: estimator is required")

	// ErrNoSink is returned by NewController without a stroke sink.
	ErrNoSink = errors.New("pipeline: stroke sink is required")
)

// Outcome reports what OnFrame did with a frame.
type Outcome int

const (
	// OutcomeDropped means an inference was already in flight.
	OutcomeDropped Outcome = iota
	// OutcomePoint means a point was appended.
	OutcomePoint
	// OutcomeBreak means the pen was lifted: no pose, or the pointer
	// landmark was missing or not confident enough.
	OutcomeBreak
	// OutcomeFailed means the frame metadata was invalid or the estimator
	// errored or panicked; the pen was lifted as for OutcomeBreak.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomePoint:
		return "point"
	case OutcomeBreak:
		return "break"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Sink receives stroke updates. *stroke.Buffer satisfies it.
type Sink interface {
	AppendPoint(p stroke.Point)
	AppendBreak() bool
}

// ControllerConfig holds the controller's collaborators and tuning.
type ControllerConfig struct {
	Estimator pose.Estimator
	Sink      Sink

	PrimaryLandmark     pose.LandmarkType
	ConfidenceThreshold float64

	ScreenWidth  float64
	ScreenHeight float64

	// Metrics is optional.
	Metrics *Metrics
}

// Stats is a point-in-time copy of the controller counters.
type Stats struct {
	Admitted uint64 `json:"admitted"`
	Dropped  uint64 `json:"dropped"`
	Points   uint64 `json:"points"`
	Breaks   uint64 `json:"breaks"`
	Failures uint64 `json:"failures"`
}

type screenSize struct {
	width, height float64
}

// Controller is the frame pipeline controller.
type Controller struct {
	estimator pose.Estimator
	sink      Sink
	primary   pose.LandmarkType
	threshold float64
	metrics   *Metrics

	busy   atomic.Bool
	screen atomic.Pointer[screenSize]

	admitted atomic.Uint64
	dropped  atomic.Uint64
	points   atomic.Uint64
	breaks   atomic.Uint64
	failures atomic.Uint64
}

// NewController validates cfg and returns a ready controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Estimator == nil {
		return nil, ErrNoEstimator
	}
	if cfg.Sink == nil {
		return nil, ErrNoSink
	}
	if math.IsNaN(cfg.ConfidenceThreshold) || cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("pipeline: confidence threshold %v outside [0,1]", cfg.ConfidenceThreshold)
	}
	c := &Controller{
		estimator: cfg.Estimator,
		sink:      cfg.Sink,
		primary:   cfg.PrimaryLandmark,
		threshold: cfg.ConfidenceThreshold,
		metrics:   cfg.Metrics,
	}
	if err := c.SetScreenSize(cfg.ScreenWidth, cfg.ScreenHeight); err != nil {
		return nil, err
	}
	return c, nil
}

// SetScreenSize updates the display size used for the next transform, e.g.
// after a rotation. Both dimensions must be positive.
func (c *Controller) SetScreenSize(width, height float64) error {
	if !(width > 0) || !(height > 0) {
		return fmt.Errorf("pipeline: invalid screen size %vx%v", width, height)
	}
	c.screen.Store(&screenSize{width: width, height: height})
	diagf("screen size set to %gx%g", width, height)
	return nil
}

// ScreenSize returns the current display size.
func (c *Controller) ScreenSize() (width, height float64) {
	s := c.screen.Load()
	return s.width, s.height
}

// Busy reports whether an inference is in flight.
func (c *Controller) Busy() bool { return c.busy.Load() }

// OnFrame offers one frame to the pipeline. It never returns an error:
// invalid frames and estimator failures are logged and recorded as a pen
// lift.
func (c *Controller) OnFrame(ctx context.Context, frame pose.Frame) Outcome {
	if !c.busy.CompareAndSwap(false, true) {
		c.dropped.Add(1)
		c.metrics.observe(OutcomeDropped)
		tracef("frame %d dropped: inference in flight", frame.Sequence)
		return OutcomeDropped
	}
	defer c.busy.Store(false)
	c.admitted.Add(1)

	outcome := c.process(ctx, frame)
	c.metrics.observe(outcome)
	tracef("frame %d: %s", frame.Sequence, outcome)
	return outcome
}

func (c *Controller) process(ctx context.Context, frame pose.Frame) Outcome {
	if err := frame.Metadata.Validate(); err != nil {
		opsf("frame %d: rejected: %v", frame.Sequence, err)
		c.failures.Add(1)
		c.lift()
		return OutcomeFailed
	}

	start := time.Now()
	poses, err := c.estimate(ctx, frame)
	c.metrics.observeInference(time.Since(start))
	if err != nil {
		opsf("frame %d: pose estimation failed: %v", frame.Sequence, err)
		c.failures.Add(1)
		c.lift()
		return OutcomeFailed
	}

	if len(poses) == 0 {
		c.lift()
		return OutcomeBreak
	}
	lm, ok := poses[0][c.primary]
	if !ok || !(lm.Confidence > c.threshold) {
		c.lift()
		return OutcomeBreak
	}

	s := c.screen.Load()
	p := transform.Transform(lm, frame.Metadata, s.width, s.height)
	c.sink.AppendPoint(p)
	c.points.Add(1)
	return OutcomePoint
}

// estimate runs the estimator with a context that outlives the caller's
// cancellation, converting a panic into an error.
func (c *Controller) estimate(ctx context.Context, frame pose.Frame) (poses []pose.Pose, err error) {
	defer func() {
		if r := recover(); r != nil {
			poses = nil
			err = fmt.Errorf("%w: %v", ErrEstimatorPanic, r)
		}
	}()
	return c.estimator.Estimate(context.WithoutCancel(ctx), frame)
}

func (c *Controller) lift() {
	if c.sink.AppendBreak() {
		c.breaks.Add(1)
	}
}

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Admitted: c.admitted.Load(),
		Dropped:  c.dropped.Load(),
		Points:   c.points.Load(),
		Breaks:   c.breaks.Load(),
		Failures: c.failures.Load(),
	}
}
