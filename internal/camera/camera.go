// Package camera describes the device cameras a session can draw from and
// provides the frame sources that feed the pipeline.
package camera

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/airwrite/internal/pose"
)

// ErrNoCamera is returned when no camera matches the requested selector.
var ErrNoCamera = errors.New("no matching camera")

// Facing is the direction a camera points relative to the screen.
type Facing int

const (
	FacingFront Facing = iota
	FacingRear
)

func (f Facing) String() string {
	switch f {
	case FacingFront:
		return "front"
	case FacingRear:
		return "rear"
	}
	return fmt.Sprintf("facing(%d)", int(f))
}

// MarshalText renders the facing by name in JSON.
func (f Facing) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts the names ParseFacing does.
func (f *Facing) UnmarshalText(b []byte) error {
	v, err := ParseFacing(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFacing accepts "front" or "rear" ("back" is an alias).
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return FacingFront, nil
	case "rear", "back":
		return FacingRear, nil
	}
	return FacingFront, fmt.Errorf("unknown camera facing %q", s)
}

// Descriptor is the static description of one camera.
type Descriptor struct {
	ID                string `json:"id"`
	Facing            Facing `json:"facing"`
	SensorWidth       int    `json:"sensor_width"`
	SensorHeight      int    `json:"sensor_height"`
	SensorOrientation int    `json:"sensor_orientation"` // degrees, one of 0/90/180/270
}

// Metadata returns the per-frame metadata this camera attaches at the given
// device orientation.
func (d Descriptor) Metadata(deviceOrientation int) pose.FrameMetadata {
	return pose.FrameMetadata{
		SensorWidth:              d.SensorWidth,
		SensorHeight:             d.SensorHeight,
		SensorOrientationDegrees: d.SensorOrientation,
		DeviceOrientationDegrees: deviceOrientation,
		FrontFacing:              d.Facing == FacingFront,
	}
}

// Catalog is the list of cameras present on the device, in enumeration order.
type Catalog []Descriptor

// DefaultCatalog is a typical phone: a front and a rear camera sharing the
// given sensor size, both mounted a quarter turn from the display.
func DefaultCatalog(sensorWidth, sensorHeight int) Catalog {
	return Catalog{
		{ID: "0", Facing: FacingRear, SensorWidth: sensorWidth, SensorHeight: sensorHeight, SensorOrientation: 90},
		{ID: "1", Facing: FacingFront, SensorWidth: sensorWidth, SensorHeight: sensorHeight, SensorOrientation: 270},
	}
}

// Select resolves a camera. A non-empty id must match exactly and its
// facing is not checked; otherwise the first camera with the requested
// facing wins.
func (c Catalog) Select(id string, facing Facing) (Descriptor, error) {
	if id != "" {
		for _, d := range c {
			if d.ID == id {
				return d, nil
			}
		}
		return Descriptor{}, fmt.Errorf("camera id %q: %w", id, ErrNoCamera)
	}
	for _, d := range c {
		if d.Facing == facing {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%s camera: %w", facing, ErrNoCamera)
}
