package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/geostamp/pkg/overlay"
	"github.com/menta2k/geostamp/pkg/processing"
	"github.com/menta2k/geostamp/pkg/storage"
)

// Config holds the application configuration
type Config struct {
	Overlay OverlayConfig `json:"overlay"`
	Output  OutputConfig  `json:"output"`
	Server  ServerConfig  `json:"server"`
	Storage StorageConfig `json:"storage"`
	Log     LogConfig     `json:"log"`
}

// OverlayConfig holds the panel layout and its external resources
type OverlayConfig struct {
	ThumbnailURL     string  `json:"thumbnail_url"`
	ThumbnailSize    int     `json:"thumbnail_size"`
	TimezoneLabel    string  `json:"timezone_label"`
	Attribution      string  `json:"attribution"`
	LargeFontSize    float64 `json:"large_font_size"`
	SmallFontSize    float64 `json:"small_font_size"`
	PanelWidthOffset int     `json:"panel_width_offset"`
	PanelAlpha       int     `json:"panel_alpha"`
	FontSource       string  `json:"font_source"`
	FontPath         string  `json:"font_path"`
	FetchTimeout     string  `json:"fetch_timeout"`
}

// OutputConfig holds encoder settings and output naming
type OutputConfig struct {
	JPEGQuality  int    `json:"jpeg_quality"`
	WebPQuality  int    `json:"webp_quality"`
	WebPLossless bool   `json:"webp_lossless"`
	OutputDir    string `json:"output_dir"`
	Suffix       string `json:"suffix"`
}

// ServerConfig holds the web form settings
type ServerConfig struct {
	Addr        string `json:"addr"`
	MaxUploadMB int64  `json:"max_upload_mb"`
}

// StorageConfig selects where stamped images are archived
type StorageConfig struct {
	Backend string   `json:"backend"`
	Dir     string   `json:"dir"`
	S3      S3Config `json:"s3"`
}

// S3Config holds S3 compatible bucket settings
type S3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	UseSSL    bool   `json:"use_ssl"`
	Prefix    string `json:"prefix"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultThumbnailURL is the stock map thumbnail
const DefaultThumbnailURL = "https://i.postimg.cc/brvbvFQt/mapsthumbnail.png"

// Default returns a configuration with default values
func Default() *Config {
	style := overlay.DefaultStyle()
	return &Config{
		Overlay: OverlayConfig{
			ThumbnailURL:     DefaultThumbnailURL,
			ThumbnailSize:    style.ThumbnailSize,
			TimezoneLabel:    style.TimezoneLabel,
			Attribution:      style.Attribution,
			LargeFontSize:    style.LargeFontSize,
			SmallFontSize:    style.SmallFontSize,
			PanelWidthOffset: style.PanelWidthOffset,
			PanelAlpha:       int(style.PanelColor.A),
			FontSource:       style.FontSource,
			FetchTimeout:     "0s",
		},
		Output: OutputConfig{
			JPEGQuality:  90,
			WebPQuality:  90,
			WebPLossless: false,
			OutputDir:    "./output",
			Suffix:       "_stamped",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:5000",
			MaxUploadMB: 32,
		},
		Storage: StorageConfig{
			Backend: storage.BackendNone,
			Dir:     "./archive",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100")
	}

	if c.Output.WebPQuality < 0 || c.Output.WebPQuality > 100 {
		return fmt.Errorf("output.webp_quality must be between 0 and 100")
	}

	if c.Overlay.LargeFontSize <= 0 || c.Overlay.SmallFontSize <= 0 {
		return fmt.Errorf("overlay font sizes must be positive")
	}

	if c.Overlay.ThumbnailSize <= 0 {
		return fmt.Errorf("overlay.thumbnail_size must be positive")
	}

	if c.Overlay.PanelAlpha < 0 || c.Overlay.PanelAlpha > 255 {
		return fmt.Errorf("overlay.panel_alpha must be between 0 and 255")
	}

	switch c.Overlay.FontSource {
	case overlay.FontSourceEmbedded:
	case overlay.FontSourcePath:
		if c.Overlay.FontPath == "" {
			return fmt.Errorf("overlay.font_path is required when font_source is %q", overlay.FontSourcePath)
		}
	default:
		return fmt.Errorf("overlay.font_source must be %q or %q", overlay.FontSourcePath, overlay.FontSourceEmbedded)
	}

	if _, err := c.FetchTimeout(); err != nil {
		return err
	}

	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	switch c.Storage.Backend {
	case storage.BackendNone, storage.BackendFile, storage.BackendS3:
	default:
		return fmt.Errorf("storage.backend must be one of none, file, s3")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	return nil
}

// FetchTimeout parses overlay.fetch_timeout; an empty value means no timeout
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.Overlay.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Overlay.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("overlay.fetch_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("overlay.fetch_timeout must not be negative")
	}
	return d, nil
}

// Style converts the overlay section into a compositor style
func (c *Config) Style() overlay.Style {
	style := overlay.DefaultStyle()
	style.TimezoneLabel = c.Overlay.TimezoneLabel
	style.Attribution = c.Overlay.Attribution
	style.LargeFontSize = c.Overlay.LargeFontSize
	style.SmallFontSize = c.Overlay.SmallFontSize
	style.ThumbnailSize = c.Overlay.ThumbnailSize
	style.PanelWidthOffset = c.Overlay.PanelWidthOffset
	style.PanelColor.A = uint8(c.Overlay.PanelAlpha)
	style.FontSource = c.Overlay.FontSource
	style.FontPath = c.Overlay.FontPath
	return style
}

// Processing converts the output section into processor settings
func (c *Config) Processing() processing.Config {
	timeout, _ := c.FetchTimeout()
	pc := processing.DefaultConfig()
	pc.JPEGQuality = c.Output.JPEGQuality
	pc.WebPQuality = c.Output.WebPQuality
	pc.WebPLossless = c.Output.WebPLossless
	pc.FetchTimeout = timeout
	return pc
}

// StorageSettings converts the storage section into sink settings
func (c *Config) StorageSettings() storage.Config {
	s3 := c.Storage.S3
	return storage.Config{
		Backend: c.Storage.Backend,
		Dir:     c.Storage.Dir,
		S3: storage.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			Bucket:    s3.Bucket,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
			Prefix:    s3.Prefix,
		},
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "geostamp", "config.json")
}
