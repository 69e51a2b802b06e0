// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SideConfig describes the AI persona arguing one side.
type SideConfig struct {
	Personality    string `yaml:"personality"`
	ExpertiseLevel string `yaml:"expertise_level"`
}

type Config struct {
	Server struct {
		BaseURL  string `yaml:"base_url"`
		Language string `yaml:"language"`
		UserID   string `yaml:"user_id,omitempty"`
	} `yaml:"server"`
	Debate struct {
		Mode          string     `yaml:"mode"` // automated or interactive
		TopicID       string     `yaml:"topic_id,omitempty"`
		MaxRounds     int        `yaml:"max_rounds"`
		RoundSeconds  int        `yaml:"round_seconds"`
		UserSide      string     `yaml:"user_side"`
		Affirmative   SideConfig `yaml:"affirmative"`
		Negative      SideConfig `yaml:"negative"`
		AutoPlaySpeed string     `yaml:"auto_play_speed"`
	} `yaml:"debate"`
	HTTP struct {
		Timeout       int `yaml:"timeout"` // seconds
		RetryAttempts int `yaml:"retry_attempts"`
		RetryDelay    int `yaml:"retry_delay"` // milliseconds
	} `yaml:"http"`
	Audio struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"audio"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file,omitempty"`
	} `yaml:"log"`
	Archive struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path,omitempty"`
	} `yaml:"archive"`
	Export struct {
		Dir string `yaml:"dir,omitempty"`
	} `yaml:"export"`
	Notify struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint,omitempty"`
	} `yaml:"notify"`
}

const (
	ModeAutomated   = "automated"
	ModeInteractive = "interactive"
)

func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the YAML file at path. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := defaultConfig()
		applyEnv(cfg)
		return cfg, nil
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	cfg := defaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.Language = "en"
	cfg.Server.UserID = "1"
	cfg.Debate.Mode = ModeAutomated
	cfg.Debate.MaxRounds = 5
	cfg.Debate.RoundSeconds = 180
	cfg.Debate.UserSide = "AFFIRMATIVE"
	cfg.Debate.Affirmative = SideConfig{Personality: "Analytical", ExpertiseLevel: "Expert"}
	cfg.Debate.Negative = SideConfig{Personality: "Passionate", ExpertiseLevel: "Expert"}
	cfg.Debate.AutoPlaySpeed = "NORMAL"
	cfg.HTTP.Timeout = 30
	cfg.HTTP.RetryAttempts = 3
	cfg.HTTP.RetryDelay = 1000 // 1 second
	cfg.Audio.Enabled = true
	cfg.Log.Level = "INFO"
	cfg.Archive.Enabled = true
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}
	if cfg.Server.Language == "" {
		cfg.Server.Language = "en"
	}
	if cfg.Debate.Mode == "" {
		cfg.Debate.Mode = ModeAutomated
	}
	if cfg.Debate.MaxRounds == 0 {
		cfg.Debate.MaxRounds = 5
	}
	if cfg.Debate.RoundSeconds == 0 {
		cfg.Debate.RoundSeconds = 180
	}
	if cfg.Debate.UserSide == "" {
		cfg.Debate.UserSide = "AFFIRMATIVE"
	}
	if cfg.Debate.AutoPlaySpeed == "" {
		cfg.Debate.AutoPlaySpeed = "NORMAL"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30
	}
	if cfg.HTTP.RetryAttempts == 0 {
		cfg.HTTP.RetryAttempts = 3
	}
	if cfg.HTTP.RetryDelay == 0 {
		cfg.HTTP.RetryDelay = 1000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
}

// applyEnv lets AIDEBATE_* variables override file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AIDEBATE_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("AIDEBATE_LANGUAGE"); v != "" {
		cfg.Server.Language = v
	}
	if v := os.Getenv("AIDEBATE_MODE"); v != "" {
		cfg.Debate.Mode = v
	}
	if v := os.Getenv("AIDEBATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AIDEBATE_AUDIO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Audio.Enabled = b
		}
	}
	if v := os.Getenv("AIDEBATE_NOTIFY_ENDPOINT"); v != "" {
		cfg.Notify.Endpoint = v
		cfg.Notify.Enabled = true
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	switch c.Debate.Mode {
	case ModeAutomated, ModeInteractive:
	default:
		return fmt.Errorf("debate.mode must be %q or %q, got %q", ModeAutomated, ModeInteractive, c.Debate.Mode)
	}
	switch strings.ToUpper(c.Debate.UserSide) {
	case "AFFIRMATIVE", "NEGATIVE":
	default:
		return fmt.Errorf("debate.user_side must be AFFIRMATIVE or NEGATIVE, got %q", c.Debate.UserSide)
	}
	if c.Debate.MaxRounds < 1 {
		return fmt.Errorf("debate.max_rounds must be positive, got %d", c.Debate.MaxRounds)
	}
	if c.Notify.Enabled && c.Notify.Endpoint == "" {
		return errors.New("notify.endpoint is required when notify is enabled")
	}
	return nil
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "aidebate", "config.yaml")
}
