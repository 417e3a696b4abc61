package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/airwrite/internal/pose"
)

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultConfidenceThreshold = 0.5
	DefaultFrameRate           = 30
	DefaultCameraFacing        = "front"
	DefaultScreenWidth         = 1080
	DefaultScreenHeight        = 1920
	DefaultPublishInterval     = 33 * time.Millisecond
	DefaultSensorWidth         = 480
	DefaultSensorHeight        = 640
)

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig is the runtime configuration of an airwrite session. Every
// field is optional; the Get* methods supply defaults so partial files are
// safe. The same document can be written as JSON or YAML.
type TuningConfig struct {
	// Pipeline
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	PrimaryLandmark     *string  `json:"primary_landmark,omitempty" yaml:"primary_landmark,omitempty"`

	// Camera
	FrameRate    *int    `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	CameraFacing *string `json:"camera_facing,omitempty" yaml:"camera_facing,omitempty"`
	CameraID     *string `json:"camera_id,omitempty" yaml:"camera_id,omitempty"`
	SensorWidth  *int    `json:"sensor_width,omitempty" yaml:"sensor_width,omitempty"`
	SensorHeight *int    `json:"sensor_height,omitempty" yaml:"sensor_height,omitempty"`

	// Display
	ScreenWidth     *float64 `json:"screen_width,omitempty" yaml:"screen_width,omitempty"`
	ScreenHeight    *float64 `json:"screen_height,omitempty" yaml:"screen_height,omitempty"`
	PublishInterval *string  `json:"publish_interval,omitempty" yaml:"publish_interval,omitempty"` // duration string like "33ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config with every field populated from the
// package defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		ConfidenceThreshold: ptrFloat64(DefaultConfidenceThreshold),
		PrimaryLandmark:     ptrString(pose.DefaultPrimaryLandmark.String()),
		FrameRate:           ptrInt(DefaultFrameRate),
		CameraFacing:        ptrString(DefaultCameraFacing),
		CameraID:            ptrString(""),
		SensorWidth:         ptrInt(DefaultSensorWidth),
		SensorHeight:        ptrInt(DefaultSensorHeight),
		ScreenWidth:         ptrFloat64(DefaultScreenWidth),
		ScreenHeight:        ptrFloat64(DefaultScreenHeight),
		PublishInterval:     ptrString(DefaultPublishInterval.String()),
	}
}

// Effective returns a fully populated copy of c with every unset field
// replaced by its default.
func (c *TuningConfig) Effective() *TuningConfig {
	sw, sh := c.GetSensorSize()
	w, h := c.GetScreenSize()
	return &TuningConfig{
		ConfidenceThreshold: ptrFloat64(c.GetConfidenceThreshold()),
		PrimaryLandmark:     ptrString(c.GetPrimaryLandmark().String()),
		FrameRate:           ptrInt(c.GetFrameRate()),
		CameraFacing:        ptrString(c.GetCameraFacing()),
		CameraID:            ptrString(c.GetCameraID()),
		SensorWidth:         ptrInt(sw),
		SensorHeight:        ptrInt(sh),
		ScreenWidth:         ptrFloat64(w),
		ScreenHeight:        ptrFloat64(h),
		PublishInterval:     ptrString(c.GetPublishInterval().String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml or .yml file
// under 1MB. Unknown fields are rejected.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ConfidenceThreshold != nil {
		v := *c.ConfidenceThreshold
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", v)
		}
	}

	if c.PrimaryLandmark != nil {
		if _, err := pose.ParseLandmarkType(*c.PrimaryLandmark); err != nil {
			return fmt.Errorf("invalid primary_landmark: %w", err)
		}
	}

	if c.FrameRate != nil && (*c.FrameRate <= 0 || *c.FrameRate > 240) {
		return fmt.Errorf("frame_rate must be between 1 and 240, got %d", *c.FrameRate)
	}

	if c.CameraFacing != nil {
		switch *c.CameraFacing {
		case "front", "rear":
		default:
			return fmt.Errorf("camera_facing must be \"front\" or \"rear\", got %q", *c.CameraFacing)
		}
	}

	if c.SensorWidth != nil && *c.SensorWidth <= 0 {
		return fmt.Errorf("sensor_width must be positive, got %d", *c.SensorWidth)
	}
	if c.SensorHeight != nil && *c.SensorHeight <= 0 {
		return fmt.Errorf("sensor_height must be positive, got %d", *c.SensorHeight)
	}
	if c.ScreenWidth != nil && !(*c.ScreenWidth > 0) {
		return fmt.Errorf("screen_width must be positive, got %f", *c.ScreenWidth)
	}
	if c.ScreenHeight != nil && !(*c.ScreenHeight > 0) {
		return fmt.Errorf("screen_height must be positive, got %f", *c.ScreenHeight)
	}

	if c.PublishInterval != nil && *c.PublishInterval != "" {
		d, err := time.ParseDuration(*c.PublishInterval)
		if err != nil {
			return fmt.Errorf("invalid publish_interval '%s': %w", *c.PublishInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("publish_interval must be positive, got %s", d)
		}
	}

	return nil
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetPrimaryLandmark returns the parsed primary_landmark or the default.
func (c *TuningConfig) GetPrimaryLandmark() pose.LandmarkType {
	if c.PrimaryLandmark == nil {
		return pose.DefaultPrimaryLandmark
	}
	lt, err := pose.ParseLandmarkType(*c.PrimaryLandmark)
	if err != nil {
		return pose.DefaultPrimaryLandmark
	}
	return lt
}

// GetFrameRate returns the frame_rate value or the default.
func (c *TuningConfig) GetFrameRate() int {
	if c.FrameRate == nil {
		return DefaultFrameRate
	}
	return *c.FrameRate
}

// GetFrameInterval is the camera tick derived from frame_rate.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	return time.Second / time.Duration(c.GetFrameRate())
}

// GetCameraFacing returns the camera_facing value or the default.
func (c *TuningConfig) GetCameraFacing() string {
	if c.CameraFacing == nil || *c.CameraFacing == "" {
		return DefaultCameraFacing
	}
	return *c.CameraFacing
}

// GetCameraID returns the camera_id value; empty means select by facing.
func (c *TuningConfig) GetCameraID() string {
	if c.CameraID == nil {
		return ""
	}
	return *c.CameraID
}

// GetSensorSize returns the synthetic sensor dimensions.
func (c *TuningConfig) GetSensorSize() (width, height int) {
	width, height = DefaultSensorWidth, DefaultSensorHeight
	if c.SensorWidth != nil {
		width = *c.SensorWidth
	}
	if c.SensorHeight != nil {
		height = *c.SensorHeight
	}
	return width, height
}

// GetScreenSize returns the display dimensions in pixels.
func (c *TuningConfig) GetScreenSize() (width, height float64) {
	width, height = DefaultScreenWidth, DefaultScreenHeight
	if c.ScreenWidth != nil {
		width = *c.ScreenWidth
	}
	if c.ScreenHeight != nil {
		height = *c.ScreenHeight
	}
	return width, height
}

// GetPublishInterval parses and returns the PublishInterval as a time.Duration.
func (c *TuningConfig) GetPublishInterval() time.Duration {
	if c.PublishInterval == nil || *c.PublishInterval == "" {
		return DefaultPublishInterval
	}
	d, err := time.ParseDuration(*c.PublishInterval)
	if err != nil || d <= 0 {
		return DefaultPublishInterval
	}
	return d
}
