package pose

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LandmarkType identifies a single body keypoint.
type LandmarkType int

const (
	Nose LandmarkType = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftIndex
	RightIndex
	LeftHip
	RightHip
)

var landmarkNames = [...]string{
	Nose:          "nose",
	LeftEye:       "left_eye",
	RightEye:      "right_eye",
	LeftEar:       "left_ear",
	RightEar:      "right_ear",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftIndex:     "left_index",
	RightIndex:    "right_index",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
}

// DefaultPrimaryLandmark is the landmark tracked as the pen tip unless
// configured otherwise.
const DefaultPrimaryLandmark = RightIndex

// String returns the snake_case name used in configuration files.
func (t LandmarkType) String() string {
	if t < 0 || int(t) >= len(landmarkNames) {
		return fmt.Sprintf("landmark(%d)", int(t))
	}
	return landmarkNames[t]
}

// ParseLandmarkType resolves a snake_case landmark name.
func ParseLandmarkType(name string) (LandmarkType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range landmarkNames {
		if n == name {
			return LandmarkType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", name)
}

// Landmark is one estimated keypoint in image-sensor pixel coordinates.
// The origin is the top-left of the frame as delivered by the sensor, with
// axes not yet corrected for device orientation.
type Landmark struct {
	X          float64
	Y          float64
	Confidence float64 // 0..1
}

// Pose is the full set of landmarks for one detected person.
type Pose map[LandmarkType]Landmark

// FrameMetadata describes how a frame was captured. It is immutable per frame.
type FrameMetadata struct {
	SensorWidth              int
	SensorHeight             int
	SensorOrientationDegrees int // 0, 90, 180 or 270
	DeviceOrientationDegrees int // 0, 90, 180 or 270
	FrontFacing              bool
}

// ErrInvalidMetadata is returned by FrameMetadata.Validate.
var ErrInvalidMetadata = errors.New("invalid frame metadata")

// Validate checks sensor dimensions and orientation values.
func (m FrameMetadata) Validate() error {
	if m.SensorWidth <= 0 || m.SensorHeight <= 0 {
		return fmt.Errorf("%w: sensor size %dx%d", ErrInvalidMetadata, m.SensorWidth, m.SensorHeight)
	}
	if !isRightAngle(m.SensorOrientationDegrees) {
		return fmt.Errorf("%w: sensor orientation %d", ErrInvalidMetadata, m.SensorOrientationDegrees)
	}
	if !isRightAngle(m.DeviceOrientationDegrees) {
		return fmt.Errorf("%w: device orientation %d", ErrInvalidMetadata, m.DeviceOrientationDegrees)
	}
	return nil
}

func isRightAngle(deg int) bool {
	switch deg {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Frame is one raw image buffer plus the metadata it was captured with.
type Frame struct {
	Sequence  uint64
	Timestamp time.Time
	Data      []byte
	Metadata  FrameMetadata
}
