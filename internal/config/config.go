package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Config holds all client settings.
type Config struct {
	Backend *BackendConfig `json:"backend"`
	Push    *PushConfig    `json:"push"`
	Cache   *CacheConfig   `json:"cache"`
	Sync    *SyncConfig    `json:"sync"`
	Video   *VideoConfig   `json:"video"`
}

// BackendConfig addresses the monitoring REST backend.
type BackendConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// PushConfig addresses the websocket notification channel.
type PushConfig struct {
	URL              string        `json:"url"`
	HandshakeTimeout time.Duration `json:"handshake_timeout"`
	ReadTimeout      time.Duration `json:"read_timeout"`
}

// CacheConfig locates the local recovery cache.
type CacheConfig struct {
	Path string `json:"path"`
}

// SyncConfig sets the three poll cadences. The emotion poll is the
// fastest; the session-list poll is independent of any bound session.
type SyncConfig struct {
	SessionListInterval time.Duration `json:"session_list_interval"`
	CameraInterval      time.Duration `json:"camera_interval"`
	EmotionInterval     time.Duration `json:"emotion_interval"`
}

// VideoConfig sets the stream keep-alive cadence and the duration
// clock tick.
type VideoConfig struct {
	EpochRefreshInterval time.Duration `json:"epoch_refresh_interval"`
	ClockTickInterval    time.Duration `json:"clock_tick_interval"`
}

// DefaultConfig returns the cadences the dashboard has always used:
// 30s session list, 2s camera status, 1s emotions, 5s stream refresh,
// 1s duration clock.
func DefaultConfig() *Config {
	return &Config{
		Backend: &BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Push: &PushConfig{
			URL:              "ws://127.0.0.1:8000/ws",
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      60 * time.Second,
		},
		Cache: &CacheConfig{
			Path: "./classwatch.db",
		},
		Sync: &SyncConfig{
			SessionListInterval: 30 * time.Second,
			CameraInterval:      2 * time.Second,
			EmotionInterval:     1 * time.Second,
		},
		Video: &VideoConfig{
			EpochRefreshInterval: 5 * time.Second,
			ClockTickInterval:    1 * time.Second,
		},
	}
}

// Validate rejects configurations that would break the engine at runtime.
func (c *Config) Validate() error {
	if c.Backend == nil {
		return fmt.Errorf("backend configuration is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL cannot be empty")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Push == nil {
		return fmt.Errorf("push configuration is required")
	}
	if c.Push.URL == "" {
		return fmt.Errorf("push URL cannot be empty")
	}
	if c.Push.HandshakeTimeout <= 0 {
		return fmt.Errorf("push handshake timeout must be positive")
	}
	if c.Push.ReadTimeout <= 0 {
		return fmt.Errorf("push read timeout must be positive")
	}
	if c.Cache == nil {
		return fmt.Errorf("cache configuration is required")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache path cannot be empty")
	}
	if c.Sync == nil {
		return fmt.Errorf("sync configuration is required")
	}
	if c.Sync.SessionListInterval <= 0 {
		return fmt.Errorf("session list interval must be positive")
	}
	if c.Sync.CameraInterval <= 0 {
		return fmt.Errorf("camera interval must be positive")
	}
	if c.Sync.EmotionInterval <= 0 {
		return fmt.Errorf("emotion interval must be positive")
	}
	if c.Video == nil {
		return fmt.Errorf("video configuration is required")
	}
	if c.Video.EpochRefreshInterval <= 0 {
		return fmt.Errorf("epoch refresh interval must be positive")
	}
	if c.Video.ClockTickInterval <= 0 {
		return fmt.Errorf("clock tick interval must be positive")
	}
	return nil
}

// LoadFromEnv returns the defaults overridden by CLASSWATCH_* variables.
// Unparseable values fall back silently, matching file loading below.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if url := os.Getenv("CLASSWATCH_BACKEND_URL"); url != "" {
		config.Backend.BaseURL = url
	}
	if timeout := os.Getenv("CLASSWATCH_BACKEND_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Backend.Timeout = d
		}
	}
	if url := os.Getenv("CLASSWATCH_PUSH_URL"); url != "" {
		config.Push.URL = url
	}
	if timeout := os.Getenv("CLASSWATCH_PUSH_HANDSHAKE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Push.HandshakeTimeout = d
		}
	}
	if timeout := os.Getenv("CLASSWATCH_PUSH_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Push.ReadTimeout = d
		}
	}
	if path := os.Getenv("CLASSWATCH_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}
	if interval := os.Getenv("CLASSWATCH_SESSION_LIST_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Sync.SessionListInterval = d
		}
	}
	if interval := os.Getenv("CLASSWATCH_CAMERA_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Sync.CameraInterval = d
		}
	}
	if interval := os.Getenv("CLASSWATCH_EMOTION_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Sync.EmotionInterval = d
		}
	}
	if interval := os.Getenv("CLASSWATCH_EPOCH_REFRESH_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Video.EpochRefreshInterval = d
		}
	}
	if interval := os.Getenv("CLASSWATCH_CLOCK_TICK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Video.ClockTickInterval = d
		}
	}

	return config
}

// configFile mirrors Config with string durations for JSON parsing.
type configFile struct {
	Backend *struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
	} `json:"backend"`
	Push *struct {
		URL              string `json:"url"`
		HandshakeTimeout string `json:"handshake_timeout"`
		ReadTimeout      string `json:"read_timeout"`
	} `json:"push"`
	Cache *struct {
		Path string `json:"path"`
	} `json:"cache"`
	Sync *struct {
		SessionListInterval string `json:"session_list_interval"`
		CameraInterval      string `json:"camera_interval"`
		EmotionInterval     string `json:"emotion_interval"`
	} `json:"sync"`
	Video *struct {
		EpochRefreshInterval string `json:"epoch_refresh_interval"`
		ClockTickInterval    string `json:"clock_tick_interval"`
	} `json:"video"`
}

// LoadFromFile reads a JSON configuration file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if file.Backend != nil {
		if file.Backend.BaseURL != "" {
			config.Backend.BaseURL = file.Backend.BaseURL
		}
		if d, err := time.ParseDuration(file.Backend.Timeout); err == nil {
			config.Backend.Timeout = d
		}
	}
	if file.Push != nil {
		if file.Push.URL != "" {
			config.Push.URL = file.Push.URL
		}
		if d, err := time.ParseDuration(file.Push.HandshakeTimeout); err == nil {
			config.Push.HandshakeTimeout = d
		}
		if d, err := time.ParseDuration(file.Push.ReadTimeout); err == nil {
			config.Push.ReadTimeout = d
		}
	}
	if file.Cache != nil && file.Cache.Path != "" {
		config.Cache.Path = file.Cache.Path
	}
	if file.Sync != nil {
		if d, err := time.ParseDuration(file.Sync.SessionListInterval); err == nil {
			config.Sync.SessionListInterval = d
		}
		if d, err := time.ParseDuration(file.Sync.CameraInterval); err == nil {
			config.Sync.CameraInterval = d
		}
		if d, err := time.ParseDuration(file.Sync.EmotionInterval); err == nil {
			config.Sync.EmotionInterval = d
		}
	}
	if file.Video != nil {
		if d, err := time.ParseDuration(file.Video.EpochRefreshInterval); err == nil {
			config.Video.EpochRefreshInterval = d
		}
		if d, err := time.ParseDuration(file.Video.ClockTickInterval); err == nil {
			config.Video.ClockTickInterval = d
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence resolves configuration as file > env > defaults.
// A missing or broken file falls back to the environment layer.
func LoadConfigWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}

// InitLogger installs the global zap logger used by every component.
func InitLogger() {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)
}
