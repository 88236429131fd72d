package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr          string        `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	ImagesDir     string        `json:"images_dir" yaml:"images_dir" toml:"images_dir" validate:"required"`
	LogLevel      string        `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	JoinTimeout   Duration      `json:"join_timeout" yaml:"join_timeout" toml:"join_timeout" validate:"gte=0"`
	ListenTimeout Duration      `json:"listen_timeout" yaml:"listen_timeout" toml:"listen_timeout" validate:"gte=0"`
	Capture       CaptureConfig `json:"capture" yaml:"capture" toml:"capture"`
	Speech        SpeechConfig  `json:"speech" yaml:"speech" toml:"speech"`
	Caption       CaptionConfig `json:"caption" yaml:"caption" toml:"caption"`
	HTTP          HTTPConfig    `json:"http" yaml:"http" toml:"http"`
}

type CaptureConfig struct {
	// Backend is "device" for the camera grabber compiled into this build or
	// "none" to run without a camera.
	Backend      string   `json:"backend" yaml:"backend" toml:"backend" validate:"omitempty,oneof=device none"`
	Devices      []string `json:"devices" yaml:"devices" toml:"devices"`
	WarmupFrames int      `json:"warmup_frames" yaml:"warmup_frames" toml:"warmup_frames" validate:"gte=0,lte=100"`
	FFmpegBin    string   `json:"ffmpeg_bin" yaml:"ffmpeg_bin" toml:"ffmpeg_bin"`
	Timeout      Duration `json:"timeout" yaml:"timeout" toml:"timeout" validate:"gte=0"`
}

type SpeechConfig struct {
	RecorderBin  string `json:"recorder_bin" yaml:"recorder_bin" toml:"recorder_bin"`
	TTSBin       string `json:"tts_bin" yaml:"tts_bin" toml:"tts_bin"`
	WhisperModel string `json:"whisper_model" yaml:"whisper_model" toml:"whisper_model"`
	Language     string `json:"language" yaml:"language" toml:"language"`
	Rate         int    `json:"rate" yaml:"rate" toml:"rate" validate:"gte=0,lte=500"`
	Volume       int    `json:"volume" yaml:"volume" toml:"volume" validate:"gte=0,lte=200"`
}

type CaptionConfig struct {
	Backend        string   `json:"backend" yaml:"backend" toml:"backend" validate:"omitempty,oneof=gemini llama_server none"`
	GeminiAPIKey   string   `json:"gemini_api_key" yaml:"gemini_api_key" toml:"gemini_api_key" validate:"required_if=Backend gemini"`
	GeminiModel    string   `json:"gemini_model" yaml:"gemini_model" toml:"gemini_model"`
	LlamaServerURL string   `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url" validate:"required_if=Backend llama_server,omitempty,url"`
	Timeout        Duration `json:"timeout" yaml:"timeout" toml:"timeout" validate:"gte=0"`
	MaxSide        int      `json:"max_side" yaml:"max_side" toml:"max_side" validate:"gte=0"`
}

type HTTPConfig struct {
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"gte=0"`
}

// Duration is a time.Duration written as "1s", "250ms" in config files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

const (
	DefaultAddr          = "127.0.0.1:8080"
	DefaultImagesDir     = "images"
	DefaultLogLevel      = "info"
	DefaultJoinTimeout   = Duration(time.Second)
	DefaultListenTimeout = Duration(5 * time.Second)
	DefaultMaxBodyBytes  = 16 << 20
	DefaultMaxSide       = 1024
	GeminiAPIKeyEnv      = "GEMINI_API_KEY"
)

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unspecified fields. The Gemini key falls back to
// GEMINI_API_KEY when the file leaves it empty.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ImagesDir == "" {
		c.ImagesDir = DefaultImagesDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.ListenTimeout == 0 {
		c.ListenTimeout = DefaultListenTimeout
	}

	if c.Capture.Backend == "" {
		c.Capture.Backend = "device"
	}
	if len(c.Capture.Devices) == 0 {
		c.Capture.Devices = []string{"/dev/video0", "/dev/video1", "/dev/video2"}
	}
	if c.Capture.WarmupFrames == 0 {
		c.Capture.WarmupFrames = 5
	}
	if c.Capture.FFmpegBin == "" {
		c.Capture.FFmpegBin = "ffmpeg"
	}
	if c.Capture.Timeout == 0 {
		c.Capture.Timeout = Duration(10 * time.Second)
	}

	if c.Speech.RecorderBin == "" {
		c.Speech.RecorderBin = "arecord"
	}
	if c.Speech.TTSBin == "" {
		c.Speech.TTSBin = "espeak-ng"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en"
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = 150
	}
	if c.Speech.Volume == 0 {
		c.Speech.Volume = 100
	}

	if c.Caption.GeminiAPIKey == "" {
		c.Caption.GeminiAPIKey = strings.TrimSpace(os.Getenv(GeminiAPIKeyEnv))
	}
	if c.Caption.Backend == "" {
		if c.Caption.GeminiAPIKey != "" {
			c.Caption.Backend = "gemini"
		} else {
			c.Caption.Backend = "none"
		}
	}
	if c.Caption.GeminiModel == "" {
		c.Caption.GeminiModel = "gemini-2.0-flash"
	}
	if c.Caption.Timeout == 0 {
		c.Caption.Timeout = Duration(30 * time.Second)
	}
	if c.Caption.MaxSide == 0 {
		c.Caption.MaxSide = DefaultMaxSide
	}

	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and returns one error listing every
// offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set, then applies defaults and
// validates the result.
func LoadOrDefault(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
