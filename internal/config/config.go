package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported values for the enum-style settings. An unknown value is an
// input error reported before any processing starts.
var (
	SupportedModels  = []string{"tiny", "base", "small", "medium", "large-v2", "large-v3"}
	SupportedDevices = []string{"cpu", "cuda"}
	SupportedFormats = []string{"txt", "json", "srt", "vtt", "all"}
)

// Configuration provides type-safe access to application settings.
type Configuration struct {
	viper *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("model.size", "base")
	v.SetDefault("model.device", "")
	v.SetDefault("model.language", "")
	v.SetDefault("model.dir", "./models")
	v.SetDefault("engine.command", "whisperx-engine")
	v.SetDefault("output.format", "all")
	v.SetDefault("output.dir", "output")
	v.SetDefault("diarization.min_speakers", 0)
	v.SetDefault("diarization.max_speakers", 0)
	v.SetDefault("index.path", "./whisperscribe.db")
	v.SetDefault("pipeline.stage_timeout_sec", 0)
	v.SetDefault("verbose", false)
	return v
}

// NewConfiguration creates a Configuration with default settings and
// environment variable bindings.
func NewConfiguration() *Configuration {
	v := newViper()
	bindEnv(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration from a config file on
// top of the defaults and environment bindings.
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := newViper()
	bindEnv(v)
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("WHISPERSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The diarization credential follows the conventional variable names.
	_ = v.BindEnv("diarization.hf_token", "HF_TOKEN", "TOKEN")
}

// Set overrides a setting, typically from a CLI flag.
func (c *Configuration) Set(key string, value interface{}) {
	c.viper.Set(key, value)
}

// GetModelSize returns the whisper model size to use.
func (c *Configuration) GetModelSize() string {
	return c.viper.GetString("model.size")
}

// GetDevice returns the inference device, or empty for auto-detection.
func (c *Configuration) GetDevice() string {
	return c.viper.GetString("model.device")
}

// GetLanguage returns the language override, or empty for auto-detection.
func (c *Configuration) GetLanguage() string {
	return c.viper.GetString("model.language")
}

// GetModelsDir returns the directory whisper weights are cached in.
func (c *Configuration) GetModelsDir() string {
	return c.viper.GetString("model.dir")
}

// GetEngineCommand returns the WhisperX helper executable.
func (c *Configuration) GetEngineCommand() string {
	return c.viper.GetString("engine.command")
}

// GetOutputFormat returns the requested output format, possibly "all".
func (c *Configuration) GetOutputFormat() string {
	return c.viper.GetString("output.format")
}

// GetOutputDir returns the directory transcripts are written to.
func (c *Configuration) GetOutputDir() string {
	return c.viper.GetString("output.dir")
}

// GetMinSpeakers returns the minimum speaker-count hint (0 = no hint).
func (c *Configuration) GetMinSpeakers() int {
	return c.viper.GetInt("diarization.min_speakers")
}

// GetMaxSpeakers returns the maximum speaker-count hint (0 = no hint).
func (c *Configuration) GetMaxSpeakers() int {
	return c.viper.GetInt("diarization.max_speakers")
}

// GetHFToken returns the HuggingFace token for diarization. An empty token
// is not an error; it signals that diarization should be skipped.
func (c *Configuration) GetHFToken() string {
	return c.viper.GetString("diarization.hf_token")
}

// GetIndexPath returns the path of the sqlite run index.
func (c *Configuration) GetIndexPath() string {
	return c.viper.GetString("index.path")
}

// GetStageTimeout returns the per-stage timeout, or 0 for no bound.
func (c *Configuration) GetStageTimeout() time.Duration {
	return time.Duration(c.viper.GetInt("pipeline.stage_timeout_sec")) * time.Second
}

// GetVerbose reports whether verbose logging is enabled.
func (c *Configuration) GetVerbose() bool {
	return c.viper.GetBool("verbose")
}

// Validate checks the enum-style settings against their supported sets.
func (c *Configuration) Validate() error {
	if !contains(SupportedModels, c.GetModelSize()) {
		return fmt.Errorf("invalid model: %s (supported: %s)",
			c.GetModelSize(), strings.Join(SupportedModels, ", "))
	}

	if device := c.GetDevice(); device != "" && !contains(SupportedDevices, device) {
		return fmt.Errorf("invalid device: %s (supported: %s, or empty for auto-detect)",
			device, strings.Join(SupportedDevices, ", "))
	}

	if !contains(SupportedFormats, c.GetOutputFormat()) {
		return fmt.Errorf("invalid output format: %s (supported: %s)",
			c.GetOutputFormat(), strings.Join(SupportedFormats, ", "))
	}

	if min, max := c.GetMinSpeakers(), c.GetMaxSpeakers(); min > 0 && max > 0 && min > max {
		return fmt.Errorf("min speakers (%d) cannot exceed max speakers (%d)", min, max)
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
