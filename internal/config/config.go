package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/framecast/framecast/internal/models"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".config/framecast"
	// DefaultExportsDir is the default output directory for exported artifacts
	DefaultExportsDir = "Videos/Framecast"
	// ConfigFileName is the name of the configuration file
	ConfigFileName = "config.json"
)

// Paths for cross-process session state. The status and stop commands use
// these to find a recording started by another framecast process.
const (
	EncoderPIDFile = "/tmp/framecast-encoder.pid"
	CapturePIDFile = "/tmp/framecast-capture.pid"
	StateFile      = "/tmp/framecast.state"
	StartTimeFile  = "/tmp/framecast.start"
	ArtifactFile   = "/tmp/framecast.artifact"
)

// Campaign describes the event whose visual identity the overlay carries.
// WatermarkStatus mirrors the backend payment record; framecast only reads it.
type Campaign struct {
	Title               string                 `json:"title"`
	OverlayPortraitURI  string                 `json:"overlay_portrait_uri,omitempty"`
	OverlayLandscapeURI string                 `json:"overlay_landscape_uri,omitempty"`
	WatermarkStatus     models.WatermarkStatus `json:"watermark_status,omitempty"`
}

// CaptureDefaults holds the default capture session options.
type CaptureDefaults struct {
	CameraDevice     string `json:"camera_device,omitempty"`
	AudioDevice      string `json:"audio_device,omitempty"`
	FPS              int    `json:"fps"`
	NoAudio          bool   `json:"no_audio"`
	CountdownSeconds int    `json:"countdown_seconds"`
	MaxDurationSecs  int    `json:"max_duration_seconds"`
}

// Config holds the application configuration
type Config struct {
	AppName     string             `json:"app_name"`
	OutputDir   string             `json:"output_dir"`
	DefaultTier models.QualityTier `json:"default_tier"`
	Campaign    Campaign           `json:"campaign"`
	Capture     CaptureDefaults    `json:"capture"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		AppName:     "framecast",
		OutputDir:   GetDefaultExportsDir(),
		DefaultTier: models.Tier720p,
		Campaign: Campaign{
			Title:           "event",
			WatermarkStatus: models.WatermarkNone,
		},
		Capture: CaptureDefaults{
			FPS:              30,
			CountdownSeconds: 3,
			MaxDurationSecs:  60,
		},
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigDir
	}
	return filepath.Join(home, DefaultConfigDir)
}

// GetDefaultExportsDir returns the default exports directory path
func GetDefaultExportsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultExportsDir
	}
	return filepath.Join(home, DefaultExportsDir)
}

// EnsureDirectories creates the necessary directories
func EnsureDirectories() error {
	dirs := []string{
		GetConfigDir(),
		GetDefaultExportsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// Load loads the configuration from disk
func Load() (*Config, error) {
	configPath := filepath.Join(GetConfigDir(), ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save saves the configuration to disk
func Save(cfg *Config) error {
	if err := EnsureDirectories(); err != nil {
		return err
	}

	configPath := filepath.Join(GetConfigDir(), ConfigFileName)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// applyDefaults fills zero values left by older config files.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.AppName == "" {
		cfg.AppName = def.AppName
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = def.DefaultTier
	}
	if cfg.Capture.FPS == 0 {
		cfg.Capture.FPS = def.Capture.FPS
	}
	if cfg.Capture.CountdownSeconds == 0 {
		cfg.Capture.CountdownSeconds = def.Capture.CountdownSeconds
	}
	if cfg.Capture.MaxDurationSecs == 0 {
		cfg.Capture.MaxDurationSecs = def.Capture.MaxDurationSecs
	}
}
