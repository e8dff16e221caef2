// Package config holds the typed application configuration with defaults and
// environment overrides. Flag and config-file layering happens in cmd.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cloud    CloudConfig    `mapstructure:"cloud"`
	Clone    CloneConfig    `mapstructure:"clone"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Provider ProviderConfig `mapstructure:"provider"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Export   ExportConfig   `mapstructure:"export"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CloudConfig holds settings for the cloud AI gateway serving preset-voice
// TTS, ASR, and the voice catalogue. The backup URL is tried when the
// primary endpoint fails.
type CloudConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	BackupURL string        `mapstructure:"backup_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// HostVoice is the preset used for intro/outro lines and as the
	// default user voice.
	HostVoice string `mapstructure:"host_voice"`
	// FallbackVoice is the preset used when clone synthesis for an AI
	// turn fails.
	FallbackVoice string `mapstructure:"fallback_voice"`
}

// CloneConfig holds settings for the voice-cloning TTS backend. Cloning is
// LLM-backed and slow, hence the long timeout.
type CloneConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProviderConfig holds settings for the character/chat data provider.
type ProviderConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds TTS cache settings.
type CacheConfig struct {
	Dir    string        `mapstructure:"dir"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// ExportConfig holds pipeline tunables.
type ExportConfig struct {
	// SynthWorkers caps concurrent outbound synthesis calls per job.
	SynthWorkers int `mapstructure:"synth_workers"`
	// MaxConcurrentJobs caps concurrent export jobs across the server.
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs"`
	BitrateKbps       int `mapstructure:"bitrate_kbps"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "0.0.0.0:8090",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		Cloud: CloudConfig{
			BaseURL:       "https://ai.example.com/v1",
			BackupURL:     "",
			Timeout:       30 * time.Second,
			HostVoice:     "zh_male_host",
			FallbackVoice: "zh_female_warm",
		},
		Clone: CloneConfig{
			URL:     "http://127.0.0.1:9880",
			Timeout: 10 * time.Minute,
		},
		Storage: StorageConfig{
			BaseURL: "http://127.0.0.1:9000",
			Timeout: 30 * time.Second,
		},
		Provider: ProviderConfig{
			URL:     "http://127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:    "tts-cache",
			MaxAge: 30 * 24 * time.Hour,
		},
		Export: ExportConfig{
			SynthWorkers:      4,
			MaxConcurrentJobs: 2,
			BitrateKbps:       128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load returns a Config populated with defaults and environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("PODFORGE_LISTEN", &cfg.Server.Listen)
	setDuration("PODFORGE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("PODFORGE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	setString("PODFORGE_CLOUD_URL", &cfg.Cloud.BaseURL)
	setString("PODFORGE_CLOUD_BACKUP_URL", &cfg.Cloud.BackupURL)
	setString("PODFORGE_CLOUD_API_KEY", &cfg.Cloud.APIKey)
	setDuration("PODFORGE_CLOUD_TIMEOUT", &cfg.Cloud.Timeout)
	setString("PODFORGE_HOST_VOICE", &cfg.Cloud.HostVoice)
	setString("PODFORGE_FALLBACK_VOICE", &cfg.Cloud.FallbackVoice)

	setString("PODFORGE_CLONE_URL", &cfg.Clone.URL)
	setDuration("PODFORGE_CLONE_TIMEOUT", &cfg.Clone.Timeout)

	setString("PODFORGE_STORAGE_URL", &cfg.Storage.BaseURL)
	setString("PODFORGE_STORAGE_API_KEY", &cfg.Storage.APIKey)
	setDuration("PODFORGE_STORAGE_TIMEOUT", &cfg.Storage.Timeout)

	setString("PODFORGE_PROVIDER_URL", &cfg.Provider.URL)
	setDuration("PODFORGE_PROVIDER_TIMEOUT", &cfg.Provider.Timeout)

	setString("PODFORGE_CACHE_DIR", &cfg.Cache.Dir)
	setDuration("PODFORGE_CACHE_MAX_AGE", &cfg.Cache.MaxAge)

	setInt("PODFORGE_SYNTH_WORKERS", &cfg.Export.SynthWorkers)
	setInt("PODFORGE_MAX_CONCURRENT_JOBS", &cfg.Export.MaxConcurrentJobs)
	setInt("PODFORGE_BITRATE_KBPS", &cfg.Export.BitrateKbps)

	setString("PODFORGE_API_KEY", &cfg.Auth.APIKey)

	setString("PODFORGE_LOG_LEVEL", &cfg.Logging.Level)
	setString("PODFORGE_LOG_FORMAT", &cfg.Logging.Format)
}
