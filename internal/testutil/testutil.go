// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the camera metadata, scripted estimators and
// HTTP helpers that pipeline, session and admin tests share.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/banshee-data/airwrite/internal/pose"
)

// PortraitFront is the metadata of a 480x640 front camera, the reference
// device in the transform tests.
func PortraitFront() pose.FrameMetadata {
	return pose.FrameMetadata{
		SensorWidth:              480,
		SensorHeight:             640,
		SensorOrientationDegrees: 270,
		FrontFacing:              true,
	}
}

// Frame returns a frame with the given sequence number and metadata.
func Frame(seq uint64, meta pose.FrameMetadata) pose.Frame {
	return pose.Frame{Sequence: seq, Metadata: meta}
}

// PoseWith returns a single pose holding one landmark.
func PoseWith(lt pose.LandmarkType, x, y, confidence float64) pose.Pose {
	return pose.Pose{lt: {X: x, Y: y, Confidence: confidence}}
}

// Response is one scripted estimator result.
type Response struct {
	Poses []pose.Pose
	Err   error
	Panic interface{}
}

// ScriptedEstimator replays Responses in order, then keeps returning the
// last one. With no responses it returns no poses.
type ScriptedEstimator struct {
	mu        sync.Mutex
	responses []Response
	calls     int
	closed    atomic.Bool
}

// NewScriptedEstimator returns an estimator replaying responses.
func NewScriptedEstimator(responses ...Response) *ScriptedEstimator {
	return &ScriptedEstimator{responses: responses}
}

// Estimate implements pose.Estimator.
func (s *ScriptedEstimator) Estimate(ctx context.Context, frame pose.Frame) ([]pose.Pose, error) {
	s.mu.Lock()
	var r Response
	if n := len(s.responses); n > 0 {
		i := s.calls
		if i >= n {
			i = n - 1
		}
		r = s.responses[i]
	}
	s.calls++
	s.mu.Unlock()

	if r.Panic != nil {
		panic(r.Panic)
	}
	return r.Poses, r.Err
}

// Close implements pose.Estimator.
func (s *ScriptedEstimator) Close() error {
	s.closed.Store(true)
	return nil
}

// Calls returns how many times Estimate ran.
func (s *ScriptedEstimator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Closed reports whether Close was called.
func (s *ScriptedEstimator) Closed() bool { return s.closed.Load() }

// BlockingEstimator parks every Estimate call until Release is called, and
// signals on Entered when a call starts. It records the highest number of
// concurrent calls it saw.
type BlockingEstimator struct {
	Entered chan uint64

	release  chan struct{}
	once     sync.Once
	poses    []pose.Pose
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	ctxErrs  atomic.Int32
}

// NewBlockingEstimator returns an estimator that answers poses once released.
func NewBlockingEstimator(poses ...pose.Pose) *BlockingEstimator {
	return &BlockingEstimator{
		Entered: make(chan uint64, 64),
		release: make(chan struct{}),
		poses:   poses,
	}
}

// Estimate implements pose.Estimator.
func (b *BlockingEstimator) Estimate(ctx context.Context, frame pose.Frame) ([]pose.Pose, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	b.Entered <- frame.Sequence
	<-b.release
	if ctx.Err() != nil {
		b.ctxErrs.Add(1)
	}
	return b.poses, nil
}

// Release lets every parked and future call return.
func (b *BlockingEstimator) Release() { b.once.Do(func() { close(b.release) }) }

// MaxConcurrent returns the highest number of simultaneous calls observed.
func (b *BlockingEstimator) MaxConcurrent() int { return int(b.maxSeen.Load()) }

// CancelledCalls returns how many calls saw a cancelled context on return.
func (b *BlockingEstimator) CancelledCalls() int { return int(b.ctxErrs.Load()) }

// Close implements pose.Estimator.
func (b *BlockingEstimator) Close() error {
	b.Release()
	return nil
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// LocalRequest creates an httptest request that appears to come from
// localhost, which the tsweb debug handlers require.
func LocalRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
