package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/airwrite/internal/pose"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.ConfidenceThreshold == nil || *cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected ConfidenceThreshold 0.5, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.PrimaryLandmark == nil || *cfg.PrimaryLandmark != "right_index" {
		t.Errorf("Expected PrimaryLandmark right_index, got %v", cfg.PrimaryLandmark)
	}
	if cfg.PublishInterval == nil || *cfg.PublishInterval != "33ms" {
		t.Errorf("Expected PublishInterval '33ms', got %v", cfg.PublishInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultTuningConfig().Validate() = %v", err)
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetConfidenceThreshold(); got != 0.5 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.5", got)
	}
	if got := cfg.GetPrimaryLandmark(); got != pose.RightIndex {
		t.Errorf("GetPrimaryLandmark() = %v, want right_index", got)
	}
	if got := cfg.GetFrameRate(); got != 30 {
		t.Errorf("GetFrameRate() = %d, want 30", got)
	}
	if got := cfg.GetFrameInterval(); got != time.Second/30 {
		t.Errorf("GetFrameInterval() = %v, want %v", got, time.Second/30)
	}
	if got := cfg.GetCameraFacing(); got != "front" {
		t.Errorf("GetCameraFacing() = %q, want front", got)
	}
	if got := cfg.GetCameraID(); got != "" {
		t.Errorf("GetCameraID() = %q, want empty", got)
	}
	if w, h := cfg.GetSensorSize(); w != 480 || h != 640 {
		t.Errorf("GetSensorSize() = %dx%d, want 480x640", w, h)
	}
	if w, h := cfg.GetScreenSize(); w != 1080 || h != 1920 {
		t.Errorf("GetScreenSize() = %gx%g, want 1080x1920", w, h)
	}
	if got := cfg.GetPublishInterval(); got != 33*time.Millisecond {
		t.Errorf("GetPublishInterval() = %v, want 33ms", got)
	}
}

func TestLoadTuningConfigJSON(t *testing.T) {
	path := writeConfig(t, "airwrite.json", `{
  "confidence_threshold": 0.7,
  "primary_landmark": "left_wrist",
  "frame_rate": 15,
  "camera_facing": "rear",
  "camera_id": "1",
  "screen_width": 1920,
  "screen_height": 1080,
  "publish_interval": "50ms"
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}
	if got := cfg.GetConfidenceThreshold(); got != 0.7 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.7", got)
	}
	if got := cfg.GetPrimaryLandmark(); got != pose.LeftWrist {
		t.Errorf("GetPrimaryLandmark() = %v, want left_wrist", got)
	}
	if got := cfg.GetFrameRate(); got != 15 {
		t.Errorf("GetFrameRate() = %d, want 15", got)
	}
	if got := cfg.GetCameraFacing(); got != "rear" {
		t.Errorf("GetCameraFacing() = %q, want rear", got)
	}
	if got := cfg.GetCameraID(); got != "1" {
		t.Errorf("GetCameraID() = %q, want 1", got)
	}
	if w, h := cfg.GetScreenSize(); w != 1920 || h != 1080 {
		t.Errorf("GetScreenSize() = %gx%g, want 1920x1080", w, h)
	}
	if got := cfg.GetPublishInterval(); got != 50*time.Millisecond {
		t.Errorf("GetPublishInterval() = %v, want 50ms", got)
	}
	// Unset fields fall back to defaults.
	if w, h := cfg.GetSensorSize(); w != 480 || h != 640 {
		t.Errorf("GetSensorSize() = %dx%d, want 480x640", w, h)
	}
}

func TestLoadTuningConfigYAML(t *testing.T) {
	for _, name := range []string{"airwrite.yaml", "airwrite.yml"} {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, name, "confidence_threshold: 0.6\nsensor_width: 720\nsensor_height: 1280\n")
			cfg, err := LoadTuningConfig(path)
			if err != nil {
				t.Fatalf("LoadTuningConfig failed: %v", err)
			}
			if got := cfg.GetConfidenceThreshold(); got != 0.6 {
				t.Errorf("GetConfidenceThreshold() = %f, want 0.6", got)
			}
			if w, h := cfg.GetSensorSize(); w != 720 || h != 1280 {
				t.Errorf("GetSensorSize() = %dx%d, want 720x1280", w, h)
			}
		})
	}
}

func TestLoadTuningConfigEmptyYAML(t *testing.T) {
	cfg, err := LoadTuningConfig(writeConfig(t, "empty.yaml", "\n"))
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}
	if got := cfg.GetFrameRate(); got != 30 {
		t.Errorf("GetFrameRate() = %d, want 30", got)
	}
}

func TestLoadExampleConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/airwrite.example.yaml")
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}
	if got := cfg.GetPublishInterval(); got != 33*time.Millisecond {
		t.Errorf("GetPublishInterval() = %v, want 33ms", got)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{name: "wrong extension", file: "airwrite.toml", body: "x = 1", wantErr: "extension"},
		{name: "bad json", file: "bad.json", body: "{not json", wantErr: "parse config JSON"},
		{name: "bad yaml", file: "bad.yaml", body: "frame_rate: [", wantErr: "parse config YAML"},
		{name: "unknown json field", file: "unknown.json", body: `{"noise_relative": 0.1}`, wantErr: "parse config JSON"},
		{name: "unknown yaml field", file: "unknown.yaml", body: "noise_relative: 0.1\n", wantErr: "parse config YAML"},
		{name: "invalid value", file: "invalid.json", body: `{"frame_rate": 0}`, wantErr: "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	big := `{"camera_id": "` + strings.Repeat("a", maxConfigFileSize) + `"}`
	_, err := LoadTuningConfig(writeConfig(t, "big.json", big))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{name: "empty", cfg: TuningConfig{}},
		{name: "threshold zero", cfg: TuningConfig{ConfidenceThreshold: ptrFloat64(0)}},
		{name: "threshold one", cfg: TuningConfig{ConfidenceThreshold: ptrFloat64(1)}},
		{name: "threshold negative", cfg: TuningConfig{ConfidenceThreshold: ptrFloat64(-0.1)}, wantErr: true},
		{name: "threshold above one", cfg: TuningConfig{ConfidenceThreshold: ptrFloat64(1.1)}, wantErr: true},
		{name: "unknown landmark", cfg: TuningConfig{PrimaryLandmark: ptrString("thumb")}, wantErr: true},
		{name: "frame rate too high", cfg: TuningConfig{FrameRate: ptrInt(1000)}, wantErr: true},
		{name: "bad facing", cfg: TuningConfig{CameraFacing: ptrString("side")}, wantErr: true},
		{name: "zero sensor", cfg: TuningConfig{SensorWidth: ptrInt(0)}, wantErr: true},
		{name: "negative screen", cfg: TuningConfig{ScreenHeight: ptrFloat64(-1)}, wantErr: true},
		{name: "bad interval", cfg: TuningConfig{PublishInterval: ptrString("soon")}, wantErr: true},
		{name: "negative interval", cfg: TuningConfig{PublishInterval: ptrString("-1s")}, wantErr: true},
		{name: "empty interval", cfg: TuningConfig{PublishInterval: ptrString("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetPublishIntervalFallback(t *testing.T) {
	cfg := &TuningConfig{PublishInterval: ptrString("garbage")}
	if got := cfg.GetPublishInterval(); got != DefaultPublishInterval {
		t.Errorf("GetPublishInterval() = %v, want default", got)
	}
	cfg = &TuningConfig{PrimaryLandmark: ptrString("garbage")}
	if got := cfg.GetPrimaryLandmark(); got != pose.DefaultPrimaryLandmark {
		t.Errorf("GetPrimaryLandmark() = %v, want default", got)
	}
}

func TestEffective(t *testing.T) {
	cfg := &TuningConfig{FrameRate: ptrInt(60), CameraFacing: ptrString("rear")}
	eff := cfg.Effective()

	if *eff.FrameRate != 60 || *eff.CameraFacing != "rear" {
		t.Errorf("Effective() lost explicit values: %d %q", *eff.FrameRate, *eff.CameraFacing)
	}
	if *eff.ConfidenceThreshold != 0.5 || *eff.PublishInterval != "33ms" {
		t.Errorf("Effective() defaults = %f %q", *eff.ConfidenceThreshold, *eff.PublishInterval)
	}
	if err := eff.Validate(); err != nil {
		t.Errorf("Effective().Validate() = %v", err)
	}
	if cfg.ConfidenceThreshold != nil {
		t.Error("Effective() must not modify the receiver")
	}
}
