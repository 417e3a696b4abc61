package camera

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/timeutil"
)

// Source delivers frames at the camera's cadence. The channel is closed
// after Close.
type Source interface {
	Frames() <-chan pose.Frame
	Close() error
}

// Opener opens a frame source for a resolved camera.
type Opener interface {
	Open(d Descriptor) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(d Descriptor) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(d Descriptor) (Source, error) { return f(d) }

// SyntheticOpener opens SyntheticSources on Clock at Interval.
type SyntheticOpener struct {
	Clock    timeutil.Clock
	Interval time.Duration
}

// Open implements Opener.
func (o SyntheticOpener) Open(d Descriptor) (Source, error) {
	return NewSyntheticSource(o.Clock, d, o.Interval)
}

// SyntheticSource emits empty frames carrying the camera's metadata on
// every clock tick. A frame the consumer has not picked up by the next tick
// is replaced, never queued.
type SyntheticSource struct {
	clock    timeutil.Clock
	frames   chan pose.Frame
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq     atomic.Uint64
	dropped atomic.Uint64

	desc              Descriptor
	deviceOrientation atomic.Int32
}

// NewSyntheticSource starts ticking immediately.
func NewSyntheticSource(clock timeutil.Clock, d Descriptor, interval time.Duration) (*SyntheticSource, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("camera %s: interval must be positive, got %s", d.ID, interval)
	}
	meta := d.Metadata(0)
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("camera %s: %w", d.ID, err)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := &SyntheticSource{
		clock:  clock,
		desc:   d,
		frames: make(chan pose.Frame, 1),
		stopCh: make(chan struct{}),
	}
	ticker := clock.NewTicker(interval)
	s.wg.Add(1)
	go s.run(ticker)
	return s, nil
}

func (s *SyntheticSource) run(ticker timeutil.Ticker) {
	defer s.wg.Done()
	defer close(s.frames)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C():
			f := pose.Frame{
				Sequence:  s.seq.Add(1),
				Timestamp: now,
				Metadata:  s.desc.Metadata(int(s.deviceOrientation.Load())),
			}
			select {
			case s.frames <- f:
			default:
				// Replace the stale frame with the fresh one.
				select {
				case <-s.frames:
					s.dropped.Add(1)
				default:
				}
				select {
				case s.frames <- f:
				default:
					s.dropped.Add(1)
				}
			}
		}
	}
}

// Frames implements Source.
func (s *SyntheticSource) Frames() <-chan pose.Frame { return s.frames }

// SetDeviceOrientation records the device rotation reported on later frames.
// Only 0, 90, 180 and 270 are accepted.
func (s *SyntheticSource) SetDeviceOrientation(degrees int) error {
	switch degrees {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("%w: device orientation %d", pose.ErrInvalidMetadata, degrees)
	}
	s.deviceOrientation.Store(int32(degrees))
	return nil
}

// Produced returns the number of frames generated so far.
func (s *SyntheticSource) Produced() uint64 { return s.seq.Load() }

// Dropped returns the number of frames replaced before being consumed.
func (s *SyntheticSource) Dropped() uint64 { return s.dropped.Load() }

// Close stops the ticker and closes the frame channel. It is idempotent.
func (s *SyntheticSource) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return nil
}
