package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
)

type Config struct {
	ListenAddr string
	DBPath     string
	MediaPath  string
	LogLevel   string
	LogFile    string
	LogFormat  string

	AnalysisBackend     string
	GeminiAPIKey        string
	GeminiBaseURL       string
	AnalysisImageModel  string
	AnalysisTextModel   string
	AnalysisTemperature float32
	ClaudeAPIKey        string
	ClaudeModel         string

	CacheTTL  time.Duration
	CacheSize int

	SpeechModel       string
	SpeechVoice       string
	ImageEditModel    string
	VideoModel        string
	VideoPollInterval time.Duration
	VideoMaxWait      time.Duration

	MaxUploadBytes int64
	HistoryLimit   int
}

var defaults = map[string]any{
	"listen_addr":          ":8080",
	"db_path":              "/data/nutriscan.db",
	"media_path":           "/data/media",
	"log_level":            "info",
	"log_file":             "",
	"log_format":           "json",
	"analysis_backend":     BackendGemini,
	"gemini_api_key":       "",
	"gemini_base_url":      "",
	"analysis_image_model": "gemini-2.5-flash",
	"analysis_text_model":  "gemini-2.5-flash",
	"analysis_temperature": 0.3,
	"claude_api_key":       "",
	"claude_model":         "claude-sonnet-4-20250514",
	"cache_ttl":            "1h",
	"cache_size":           256,
	"speech_model":         "gemini-2.5-flash-preview-tts",
	"speech_voice":         "Kore",
	"image_edit_model":     "gemini-2.5-flash-image",
	"video_model":          "veo-3.1-fast-generate-preview",
	"video_poll_interval":  "5s",
	"video_max_wait":       "10m",
	"max_upload_bytes":     5 * 1024 * 1024,
	"history_limit":        50,
}

// Load reads defaults, then file (YAML, optional), then environment variables
// named after the upper-cased keys (LISTEN_ADDR, GEMINI_API_KEY, ...).
func Load(file string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:          v.GetString("listen_addr"),
		DBPath:              v.GetString("db_path"),
		MediaPath:           v.GetString("media_path"),
		LogLevel:            v.GetString("log_level"),
		LogFile:             v.GetString("log_file"),
		LogFormat:           v.GetString("log_format"),
		AnalysisBackend:     strings.ToLower(v.GetString("analysis_backend")),
		GeminiAPIKey:        v.GetString("gemini_api_key"),
		GeminiBaseURL:       v.GetString("gemini_base_url"),
		AnalysisImageModel:  v.GetString("analysis_image_model"),
		AnalysisTextModel:   v.GetString("analysis_text_model"),
		AnalysisTemperature: float32(v.GetFloat64("analysis_temperature")),
		ClaudeAPIKey:        v.GetString("claude_api_key"),
		ClaudeModel:         v.GetString("claude_model"),
		CacheTTL:            v.GetDuration("cache_ttl"),
		CacheSize:           v.GetInt("cache_size"),
		SpeechModel:         v.GetString("speech_model"),
		SpeechVoice:         v.GetString("speech_voice"),
		ImageEditModel:      v.GetString("image_edit_model"),
		VideoModel:          v.GetString("video_model"),
		VideoPollInterval:   v.GetDuration("video_poll_interval"),
		VideoMaxWait:        v.GetDuration("video_max_wait"),
		MaxUploadBytes:      v.GetInt64("max_upload_bytes"),
		HistoryLimit:        v.GetInt("history_limit"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AnalysisBackend {
	case BackendGemini, BackendClaude:
	default:
		return fmt.Errorf("unknown analysis backend %q", c.AnalysisBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.AnalysisTemperature < 0 || c.AnalysisTemperature > 2 {
		return fmt.Errorf("analysis_temperature must be between 0 and 2, got %g", c.AnalysisTemperature)
	}
	return nil
}
