package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/malonaz/companion/internal/file"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

func defaultConfig() Config {
	return Config{
		UserName:       "Aditya",
		RequestTimeout: 60,
		StrictSends:    false,

		Reply: &ReplyConfig{
			URL: "http://localhost:8000/query",
		},

		Speech: &SpeechConfig{
			Enabled:     false,
			URL:         "https://global.api.murf.ai/v1/speech/stream",
			VoiceID:     "en-US-matthew",
			Locale:      "en-US",
			Model:       "FALCON",
			Format:      "MP3",
			SampleRate:  24000,
			ChannelType: "MONO",
		},

		Storage: &StorageConfig{
			Backend: BackendSQLite,
			Path:    "~/.config/companion/chats.db",
			Redis: &RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "companion",
			},
		},

		Server: &ServerConfig{
			Port: 3030,
		},

		Logging: &LoggingConfig{
			Path:  "/tmp/companion-debug.log",
			Level: "debug",
		},
	}
}

// Config holds configuration for the companion tool.
type Config struct {
	// Name sent to the reply service with every query.
	UserName string `json:"user_name"`
	// Transport timeout in seconds for remote calls. Negative disables it.
	RequestTimeout int `json:"request_timeout"`
	// Reject a send while the chat already has a request in flight.
	StrictSends bool `json:"strict_sends"`

	Reply   *ReplyConfig   `json:"reply"`
	Speech  *SpeechConfig  `json:"speech"`
	Storage *StorageConfig `json:"storage"`
	Server  *ServerConfig  `json:"server"`
	Logging *LoggingConfig `json:"logging"`
}

// ReplyConfig holds configuration for the reply service.
type ReplyConfig struct {
	URL string `json:"url"`
}

// SpeechConfig holds configuration for speech synthesis.
type SpeechConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	APIKey      string `json:"api_key"`
	VoiceID     string `json:"voice_id"`
	Locale      string `json:"locale"`
	Model       string `json:"model"`
	Format      string `json:"format"`
	SampleRate  int    `json:"sample_rate"`
	ChannelType string `json:"channel_type"`
	// Command used to play audio, e.g. ["mpg123", "-q"]. The audio file path is appended.
	// Empty discards the audio.
	PlayerCommand []string `json:"player_command"`
}

// StorageConfig holds configuration for chat persistence.
type StorageConfig struct {
	// One of sqlite, bolt, file or redis.
	Backend string `json:"backend"`
	// Database file for sqlite and bolt, directory for file.
	Path  string       `json:"path"`
	Redis *RedisConfig `json:"redis"`
}

// RedisConfig holds configuration for the redis backend.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// ServerConfig holds configuration for the web view.
type ServerConfig struct {
	Port int `json:"port"`
}

// LoggingConfig holds configuration for the debug logger.
type LoggingConfig struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

// Default returns a fresh default configuration.
func Default() *Config {
	config := defaultConfig()
	return &config
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}

	// Fill whatever the file leaves out.
	if err := mergo.Merge(config, Default()); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}

	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	expandedStoragePath, err := file.ExpandPath(config.Storage.Path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding storage path")
	}
	config.Storage.Path = expandedStoragePath
	return config, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendBolt, BackendFile, BackendRedis:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Reply.URL == "" {
		return errors.New("reply url must be set")
	}
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := Default().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
