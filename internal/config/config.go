// Package config handles platform configuration
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all platform settings.
type Config struct {
	HTTPAddr string `koanf:"http_addr"`

	// Shared key/value store coordinating cooldowns and answer memory.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Live audio source captured by the recorder.
	StreamURL string `koanf:"stream_url"`
	FFmpegBin string `koanf:"ffmpeg_bin"`
	ChunkDir  string `koanf:"chunk_dir"`

	// Speech-to-text service.
	STTURL     string `koanf:"stt_url"`
	STTModel   string `koanf:"stt_model"`
	STTTimeout int    `koanf:"stt_timeout_sec"`

	// Text-generation service.
	LLMURL     string `koanf:"llm_url"`
	LLMModel   string `koanf:"llm_model"`
	LLMAPIKey  string `koanf:"llm_api_key"`
	LLMTimeout int    `koanf:"llm_timeout_sec"`

	// Downstream notification service.
	NotifyURL  string `koanf:"notify_url"`
	NotifyAuth string `koanf:"notify_auth"`

	// Pipeline identity used for in-progress and answer-memory keys.
	PipelineID string `koanf:"pipeline_id"`

	// Duplicate-answer memory window in seconds.
	AnswerWindowSec int `koanf:"answer_window_sec"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		HTTPAddr:        ":8000",
		RedisAddr:       "localhost:6379",
		FFmpegBin:       "/usr/bin/ffmpeg",
		ChunkDir:        "./audio_chunks",
		STTModel:        "whisper-1",
		STTTimeout:      120,
		LLMModel:        "gpt-4",
		LLMTimeout:      60,
		PipelineID:      "airwin",
		AnswerWindowSec: 3600,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if AIRWIN_CONFIG is set
//  3. env (prefix AIRWIN_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("AIRWIN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	// AIRWIN_STREAM_URL -> stream_url, underscores preserved to match tags.
	envProvider := env.Provider("AIRWIN_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "airwin_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would run the pipeline in a silently
// broken mode. Missing credentials or URLs are fatal at startup.
func (c *Config) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("config: %s must be set", field)
	}
	switch {
	case c.StreamURL == "":
		return missing("stream_url")
	case c.STTURL == "":
		return missing("stt_url")
	case c.LLMURL == "":
		return missing("llm_url")
	case c.LLMAPIKey == "":
		return missing("llm_api_key")
	case c.NotifyURL == "":
		return missing("notify_url")
	case c.NotifyAuth == "":
		return missing("notify_auth")
	case c.RedisAddr == "":
		return missing("redis_addr")
	}
	if c.STTTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("config: service timeouts must be positive")
	}
	return nil
}

// STTTimeoutDur returns the speech-to-text call timeout.
func (c *Config) STTTimeoutDur() time.Duration {
	return time.Duration(c.STTTimeout) * time.Second
}

// LLMTimeoutDur returns the text-generation call timeout.
func (c *Config) LLMTimeoutDur() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

// AnswerWindow returns the duplicate-answer memory window.
func (c *Config) AnswerWindow() time.Duration {
	return time.Duration(c.AnswerWindowSec) * time.Second
}
