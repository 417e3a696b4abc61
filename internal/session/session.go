// Package session owns one air-writing session: the selected camera, the
// pose estimator, the frame pipeline and the stroke buffer it fills.
//
// Start acquires every resource or none. Run drives frames through the
// pipeline and repaints renderers until its context ends. Close releases
// the camera and estimator and must be called once Run has returned.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/airwrite/internal/camera"
	"github.com/banshee-data/airwrite/internal/pipeline"
	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/render"
	"github.com/banshee-data/airwrite/internal/stroke"
	"github.com/banshee-data/airwrite/internal/timeutil"
)

var (
	// ErrNoCamera is returned by Start when the catalog has no matching camera.
	ErrNoCamera = camera.ErrNoCamera

	// ErrCameraOpen is returned by Start when the frame source cannot be opened.
	ErrCameraOpen = errors.New("failed to open camera")

	// ErrEstimatorOpen is returned by Start when the pose estimator cannot be opened.
	ErrEstimatorOpen = errors.New("failed to open pose estimator")

	// ErrAlreadyRunning is returned by Run while another Run is active.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("session closed")
)

// DefaultRefreshInterval is the display refresh used when Config leaves it unset.
const DefaultRefreshInterval = 33 * time.Millisecond

// EstimatorOpener creates the pose estimator for a session.
type EstimatorOpener func(ctx context.Context) (pose.Estimator, error)

// Config describes the resources and tuning of a session.
type Config struct {
	Catalog  camera.Catalog
	CameraID string
	Facing   camera.Facing

	Camera    camera.Opener
	Estimator EstimatorOpener

	PrimaryLandmark     pose.LandmarkType
	ConfidenceThreshold float64
	ScreenWidth         float64
	ScreenHeight        float64

	// RefreshInterval paces the renderers.
	RefreshInterval time.Duration
	Renderers       []render.Renderer

	// Clock defaults to the real clock.
	Clock timeutil.Clock
	// Metrics is optional.
	Metrics *pipeline.Metrics
}

// Stats summarises a session for the admin routes.
type Stats struct {
	ID           string              `json:"id"`
	Camera       camera.Descriptor   `json:"camera"`
	StartedAt    time.Time           `json:"started_at"`
	Pen          string              `json:"pen"`
	Revision     uint64              `json:"revision"`
	Pipeline     pipeline.Stats      `json:"pipeline"`
	Stroke       stroke.Measurements `json:"stroke"`
	RenderErrors uint64              `json:"render_errors"`
}

// Session is a running air-writing session.
type Session struct {
	id         string
	camera     camera.Descriptor
	source     camera.Source
	estimator  pose.Estimator
	buffer     *stroke.Buffer
	controller *pipeline.Controller
	renderers  []render.Renderer
	refresh    time.Duration
	clock      timeutil.Clock
	startedAt  time.Time

	running      atomic.Bool
	closeOnce    sync.Once
	closed       atomic.Bool
	closeErr     error
	renderErrors atomic.Uint64
}

// Start resolves the camera and opens the frame source and estimator. On
// any failure everything already acquired is released before returning.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Camera == nil {
		return nil, fmt.Errorf("%w: no camera opener configured", ErrCameraOpen)
	}
	if cfg.Estimator == nil {
		return nil, fmt.Errorf("%w: no estimator opener configured", ErrEstimatorOpen)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}

	desc, err := cfg.Catalog.Select(cfg.CameraID, cfg.Facing)
	if err != nil {
		return nil, fmt.Errorf("select camera: %w", err)
	}

	src, err := cfg.Camera.Open(desc)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCameraOpen, desc.ID, err)
	}

	est, err := cfg.Estimator(ctx)
	if err != nil {
		closeLogged("camera", src.Close)
		return nil, fmt.Errorf("%w: %w", ErrEstimatorOpen, err)
	}

	buf := stroke.NewBuffer()
	ctrl, err := pipeline.NewController(pipeline.ControllerConfig{
		Estimator:           est,
		Sink:                buf,
		PrimaryLandmark:     cfg.PrimaryLandmark,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ScreenWidth:         cfg.ScreenWidth,
		ScreenHeight:        cfg.ScreenHeight,
		Metrics:             cfg.Metrics,
	})
	if err != nil {
		closeLogged("estimator", est.Close)
		closeLogged("camera", src.Close)
		return nil, fmt.Errorf("configure pipeline: %w", err)
	}

	s := &Session{
		id:         uuid.NewString(),
		camera:     desc,
		source:     src,
		estimator:  est,
		buffer:     buf,
		controller: ctrl,
		renderers:  cfg.Renderers,
		refresh:    refresh,
		clock:      clock,
		startedAt:  clock.Now(),
	}
	diagf("session %s started on %s camera %s (%dx%d)", s.id, desc.Facing, desc.ID, desc.SensorWidth, desc.SensorHeight)
	return s, nil
}

func closeLogged(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		opsf("release %s: %v", what, err)
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Camera returns the selected camera.
func (s *Session) Camera() camera.Descriptor { return s.camera }

// Run dispatches frames through the pipeline and repaints the renderers
// until ctx is done or the frame source closes. Cancellation is a normal
// stop and returns nil. Run waits for every in-flight inference before
// returning.
func (s *Session) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The source closing ends the whole session.
		defer cancel()
		return s.frameLoop(gctx)
	})
	if len(s.renderers) > 0 {
		g.Go(func() error {
			return render.RefreshLoop(gctx, s.clock, s.refresh, s.buffer, s.renderFailed, s.renderers...)
		})
	}

	err := g.Wait()
	st := s.controller.Stats()
	diagf("session %s stopped: admitted=%d dropped=%d points=%d breaks=%d failures=%d",
		s.id, st.Admitted, st.Dropped, st.Points, st.Breaks, st.Failures)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *Session) frameLoop(ctx context.Context) error {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	frames := s.source.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				diagf("session %s: frame source closed", s.id)
				return nil
			}
			// Each frame gets its own goroutine so a busy pipeline drops it
			// instead of holding up the camera.
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				outcome := s.controller.OnFrame(ctx, f)
				tracef("session %s frame %d: %s", s.id, f.Sequence, outcome)
			}()
		}
	}
}

func (s *Session) renderFailed(err error) {
	n := s.renderErrors.Add(1)
	if n == 1 || n%300 == 0 {
		opsf("session %s: render failed (%d so far): %v", s.id, n, err)
	}
}

// OnFrame offers one frame directly to the pipeline, bypassing the camera.
func (s *Session) OnFrame(ctx context.Context, f pose.Frame) pipeline.Outcome {
	return s.controller.OnFrame(ctx, f)
}

// ClearStroke erases the drawing. It takes effect before it returns.
func (s *Session) ClearStroke() {
	s.buffer.Clear()
	diagf("session %s: stroke cleared", s.id)
}

// Snapshot returns the current stroke.
func (s *Session) Snapshot() stroke.Snapshot { return s.buffer.Snapshot() }

// SetScreenSize updates the display size after a rotation.
func (s *Session) SetScreenSize(width, height float64) error {
	return s.controller.SetScreenSize(width, height)
}

// ScreenSize returns the current display size.
func (s *Session) ScreenSize() (width, height float64) { return s.controller.ScreenSize() }

// Stats returns a summary of the session.
func (s *Session) Stats() Stats {
	snap := s.buffer.Snapshot()
	return Stats{
		ID:           s.id,
		Camera:       s.camera,
		StartedAt:    s.startedAt,
		Pen:          snap.State().String(),
		Revision:     snap.Revision,
		Pipeline:     s.controller.Stats(),
		Stroke:       stroke.Measure(snap.Segments),
		RenderErrors: s.renderErrors.Load(),
	}
}

// Close releases the estimator and camera. It is idempotent; later calls
// return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		var errs []error
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		if err := s.estimator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close estimator: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		diagf("session %s closed", s.id)
	})
	return s.closeErr
}
