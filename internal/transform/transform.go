// Package transform maps landmarks from image-sensor pixels to screen pixels.
//
// The mapping assumes the sensor is mounted a quarter turn from the device's
// natural orientation, which is how front cameras on portrait phones deliver
// frames. It is a fixed rule, not a general rotation solver: effective
// camera width is always the sensor height and effective height the sensor
// width, whatever the orientation fields of the metadata say.
package transform

import (
	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/stroke"
)

// EffectiveSize returns the camera-space width and height used for scaling.
func EffectiveSize(meta pose.FrameMetadata) (width, height float64) {
	return float64(meta.SensorHeight), float64(meta.SensorWidth)
}

// Transform converts one landmark into a screen point.
//
// Scale factors are derived from the screen size on every call because the
// display may rotate between frames. Front-facing frames are mirrored
// horizontally; the vertical axis is never mirrored. The result is not
// clamped to the screen and may fall slightly outside it.
//
// Metadata must have non-zero sensor dimensions (see FrameMetadata.Validate).
func Transform(lm pose.Landmark, meta pose.FrameMetadata, screenWidth, screenHeight float64) stroke.Point {
	effW, effH := EffectiveSize(meta)
	scaleX := screenWidth / effW
	scaleY := screenHeight / effH

	var x float64
	if meta.FrontFacing {
		x = (effW - lm.X) * scaleX
	} else {
		// Rear cameras are not mirrored. Only the front-facing path is
		// exercised by real devices so far.
		x = lm.X * scaleX
	}

	return stroke.Point{X: x, Y: lm.Y * scaleY}
}
