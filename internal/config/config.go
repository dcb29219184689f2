// Package config loads, validates and persists the stt-demo configuration.
//
// The configuration file is JSON by default (config.json next to the
// binary's working directory). YAML files are accepted as well and are
// selected by their .yaml/.yml extension.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file used when --config is not given.
const DefaultConfigFile = "config.json"

// Config holds all application configuration.
type Config struct {
	Audio       AudioConfig       `json:"audio" yaml:"audio"`
	Whisper     WhisperConfig     `json:"whisper" yaml:"whisper"`
	Vosk        VoskConfig        `json:"vosk" yaml:"vosk"`
	OpenAI      OpenAIConfig      `json:"openai" yaml:"openai"`
	GUI         GUIConfig         `json:"gui" yaml:"gui"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Processing  ProcessingConfig  `json:"processing" yaml:"processing"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}

// AudioConfig holds audio capture and windowing settings.
type AudioConfig struct {
	SampleRate    int     `json:"sample_rate" yaml:"sample_rate"`
	ChunkSize     int     `json:"chunk_size" yaml:"chunk_size"` // samples per captured frame
	Channels      int     `json:"channels" yaml:"channels"`
	BufferSeconds float64 `json:"buffer_seconds" yaml:"buffer_seconds"` // window duration
	OverlapRatio  float64 `json:"overlap_ratio" yaml:"overlap_ratio"`
	Driver        string  `json:"driver" yaml:"driver"` // "malgo" or "portaudio"
	Device        string  `json:"device,omitempty" yaml:"device,omitempty"`
	SaveRecording bool    `json:"save_recording" yaml:"save_recording"`
}

// WhisperConfig holds whisper.cpp backend settings.
type WhisperConfig struct {
	DefaultModel    string   `json:"default_model" yaml:"default_model"`
	AvailableModels []string `json:"available_models" yaml:"available_models"`
	Language        string   `json:"language" yaml:"language"`
	Device          string   `json:"device" yaml:"device"` // auto, cpu, cuda, mps
	ModelDir        string   `json:"model_dir" yaml:"model_dir"`
	ModelPath       string   `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	Threads         int      `json:"threads" yaml:"threads"`
}

// VoskConfig holds Vosk backend settings.
type VoskConfig struct {
	ModelPath        string   `json:"model_path" yaml:"model_path"`
	AlternativePaths []string `json:"alternative_paths" yaml:"alternative_paths"`
}

// OpenAIConfig holds settings for the hosted transcription backend.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model" yaml:"model"`
}

// GUIConfig holds presentation settings. The window fields are served to
// the external UI through the feed; stt-demo does not draw windows itself.
type GUIConfig struct {
	WindowWidth           int    `json:"window_width" yaml:"window_width"`
	WindowHeight          int    `json:"window_height" yaml:"window_height"`
	Theme                 string `json:"theme" yaml:"theme"`
	FontSize              int    `json:"font_size" yaml:"font_size"`
	AutoSave              bool   `json:"auto_save" yaml:"auto_save"`
	SaveDirectory         string `json:"save_directory" yaml:"save_directory"`
	VisualizationUpdateMS int    `json:"visualization_update_ms" yaml:"visualization_update_ms"`
	ListenAddr            string `json:"listen_addr" yaml:"listen_addr"`
	Notify                bool   `json:"notify" yaml:"notify"`
}

// PerformanceConfig bounds memory, latency and concurrency.
type PerformanceConfig struct {
	MaxAudioBufferMB         int `json:"max_audio_buffer_mb" yaml:"max_audio_buffer_mb"`
	ProcessingTimeoutSeconds int `json:"processing_timeout_seconds" yaml:"processing_timeout_seconds"`
	ThreadPoolSize           int `json:"thread_pool_size" yaml:"thread_pool_size"`
	QueueSize                int `json:"queue_size" yaml:"queue_size"`
}

// ProcessingConfig controls backend selection and result filtering.
type ProcessingConfig struct {
	Backend             string  `json:"backend" yaml:"backend"` // whisper, vosk or openai
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	SilenceThreshold    float64 `json:"silence_threshold" yaml:"silence_threshold"`
	Preprocess          bool    `json:"preprocess" yaml:"preprocess"`
	Postprocess         bool    `json:"postprocess" yaml:"postprocess"`
	HistorySize         int     `json:"history_size" yaml:"history_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level        string `json:"level" yaml:"level"`
	LogFile      string `json:"log_file" yaml:"log_file"`
	MaxLogSizeMB int    `json:"max_log_size_mb" yaml:"max_log_size_mb"`
	BackupCount  int    `json:"backup_count" yaml:"backup_count"`
	Format       string `json:"format" yaml:"format"` // "text" or "json"
}

var supportedSampleRates = []int{8000, 16000, 22050, 44100, 48000}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:    16000,
			ChunkSize:     1024,
			Channels:      1,
			BufferSeconds: 3.0,
			OverlapRatio:  0.5,
			Driver:        "malgo",
		},
		Whisper: WhisperConfig{
			DefaultModel:    "base",
			AvailableModels: []string{"tiny", "base", "small", "medium", "large", "large-v2", "large-v3"},
			Language:        "ko",
			Device:          "auto",
			ModelDir:        "models",
		},
		Vosk: VoskConfig{
			ModelPath: "./vosk-model-small-ko-0.22",
			AlternativePaths: []string{
				"./models/vosk-model-small-ko-0.22",
				"~/models/vosk-model-small-ko-0.22",
			},
		},
		OpenAI: OpenAIConfig{
			Model: "whisper-1",
		},
		GUI: GUIConfig{
			WindowWidth:           1000,
			WindowHeight:          700,
			Theme:                 "dark",
			FontSize:              14,
			AutoSave:              true,
			SaveDirectory:         "./results",
			VisualizationUpdateMS: 100,
			ListenAddr:            "127.0.0.1:8765",
		},
		Performance: PerformanceConfig{
			MaxAudioBufferMB:         50,
			ProcessingTimeoutSeconds: 10,
			ThreadPoolSize:           2,
			QueueSize:                4,
		},
		Processing: ProcessingConfig{
			Backend:             "whisper",
			ConfidenceThreshold: 0.5,
			SilenceThreshold:    0.01,
			Preprocess:          true,
			Postprocess:         true,
			HistorySize:         100,
		},
		Logging: LoggingConfig{
			Level:        "info",
			LogFile:      "stt_demo.log",
			MaxLogSizeMB: 10,
			BackupCount:  5,
			Format:       "text",
		},
	}
}

// Load reads and parses a config file. Missing fields are filled with
// defaults. Tilde (~) in model paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Whisper.ModelDir = expandTilde(cfg.Whisper.ModelDir)
	cfg.Whisper.ModelPath = expandTilde(cfg.Whisper.ModelPath)
	cfg.Vosk.ModelPath = expandTilde(cfg.Vosk.ModelPath)

	return cfg, nil
}

// LoadOrCreate loads path, writing the defaults there first when the file
// does not exist yet. The second return value reports whether it was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	}
	cfg := Default()
	if err := cfg.Save(path); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Save writes the config to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// WriteDefault writes the default config to path. It is a no-op returning
// ("", nil) when the file already exists.
func WriteDefault(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := Default().Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(supportedSampleRates, c.Audio.SampleRate) {
		return fmt.Errorf("audio.sample_rate %d not supported (use one of %v)", c.Audio.SampleRate, supportedSampleRates)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be > 0")
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if c.Audio.BufferSeconds <= 0 {
		return fmt.Errorf("audio.buffer_seconds must be > 0")
	}
	if c.Audio.OverlapRatio < 0 || c.Audio.OverlapRatio >= 1 {
		return fmt.Errorf("audio.overlap_ratio must be in [0, 1), got %g", c.Audio.OverlapRatio)
	}
	switch c.Audio.Driver {
	case "malgo", "portaudio":
	default:
		return fmt.Errorf("audio.driver must be \"malgo\" or \"portaudio\", got %q", c.Audio.Driver)
	}

	if !slices.Contains(c.Whisper.AvailableModels, c.Whisper.DefaultModel) {
		return fmt.Errorf("whisper.default_model %q is not in whisper.available_models", c.Whisper.DefaultModel)
	}
	switch c.Whisper.Device {
	case "auto", "cpu", "cuda", "mps":
	default:
		return fmt.Errorf("whisper.device must be auto, cpu, cuda, or mps, got %q", c.Whisper.Device)
	}
	if c.Whisper.Threads < 0 {
		return fmt.Errorf("whisper.threads must be >= 0")
	}

	switch c.Processing.Backend {
	case "whisper":
		if c.WhisperModelPath() == "" {
			return fmt.Errorf("whisper backend requires whisper.model_dir or whisper.model_path")
		}
	case "vosk":
		if c.Vosk.ModelPath == "" && len(c.Vosk.AlternativePaths) == 0 {
			return fmt.Errorf("vosk backend requires vosk.model_path")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai backend requires openai.api_key (or OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("processing.backend must be whisper, vosk, or openai, got %q", c.Processing.Backend)
	}
	if c.Processing.ConfidenceThreshold < 0 || c.Processing.ConfidenceThreshold > 1 {
		return fmt.Errorf("processing.confidence_threshold must be in [0, 1]")
	}
	if c.Processing.SilenceThreshold < 0 || c.Processing.SilenceThreshold > 1 {
		return fmt.Errorf("processing.silence_threshold must be in [0, 1]")
	}

	if c.GUI.WindowWidth <= 0 || c.GUI.WindowHeight <= 0 {
		return fmt.Errorf("gui.window_width and gui.window_height must be > 0")
	}
	if c.GUI.VisualizationUpdateMS <= 0 {
		return fmt.Errorf("gui.visualization_update_ms must be > 0")
	}

	if c.Performance.MaxAudioBufferMB <= 0 {
		return fmt.Errorf("performance.max_audio_buffer_mb must be > 0")
	}
	if c.Performance.ProcessingTimeoutSeconds <= 0 {
		return fmt.Errorf("performance.processing_timeout_seconds must be > 0")
	}
	if c.Performance.ThreadPoolSize <= 0 {
		return fmt.Errorf("performance.thread_pool_size must be > 0")
	}
	if c.Performance.QueueSize <= 0 {
		return fmt.Errorf("performance.queue_size must be > 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

// WhisperModelPath returns the ggml model file for the configured default
// model, or whisper.model_path when it is set explicitly.
func (c *Config) WhisperModelPath() string {
	if c.Whisper.ModelPath != "" {
		return c.Whisper.ModelPath
	}
	if c.Whisper.ModelDir == "" {
		return ""
	}
	return filepath.Join(c.Whisper.ModelDir, WhisperModelFile(c.Whisper.DefaultModel))
}

// WhisperModelFile maps a model size name to its ggml file name.
// "large" is an alias for the newest large model.
func WhisperModelFile(name string) string {
	if name == "large" {
		name = "large-v3"
	}
	return "ggml-" + name + ".bin"
}

// VoskModelPath returns the first existing Vosk model directory out of
// vosk.model_path and vosk.alternative_paths. When none exists it returns
// vosk.model_path unchanged.
func (c *Config) VoskModelPath() string {
	candidates := append([]string{c.Vosk.ModelPath}, c.Vosk.AlternativePaths...)
	for _, p := range candidates {
		if p == "" {
			continue
		}
		p = expandTilde(p)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return c.Vosk.ModelPath
}

// ParseLogLevel converts a level name into a slog.Level. Unknown names
// map to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
