// Package config loads vocaleye.yaml with viper and reloads it on change.
package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"vocaleye/internal/policy"
)

type Resolver struct {
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DraftTimeout    time.Duration `mapstructure:"draft_timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	HistorySize     int           `mapstructure:"history_size"`
}

type Confirm struct {
	Mode    string        `mapstructure:"mode"` // voice or console
	Timeout time.Duration `mapstructure:"timeout"`
}

type Mail struct {
	Provider    string            `mapstructure:"provider"` // smtp or sendgrid
	Host        string            `mapstructure:"host"`
	Port        int               `mapstructure:"port"`
	Username    string            `mapstructure:"username"`
	From        string            `mapstructure:"from"`
	FromName    string            `mapstructure:"from_name"`
	ImplicitTLS bool              `mapstructure:"implicit_tls"`
	Contacts    map[string]string `mapstructure:"contacts"`
}

type Documents struct {
	Dir  string `mapstructure:"dir"`
	Open bool   `mapstructure:"open"`
}

type Speech struct {
	WhisperModel string        `mapstructure:"whisper_model"`
	Language     string        `mapstructure:"language"`
	Voice        string        `mapstructure:"voice"`
	Rate         int           `mapstructure:"rate"`
	Chime        string        `mapstructure:"chime"`
	Duck         bool          `mapstructure:"duck"`
	SilenceRMS   float64       `mapstructure:"silence_rms"`
	MaxLength    time.Duration `mapstructure:"max_length"`
}

type Vault struct {
	Address string `mapstructure:"address"`
	Mount   string `mapstructure:"mount"`
	Path    string `mapstructure:"path"`
}

// Settings is the decoded configuration file.
type Settings struct {
	PolicyTable map[string]string `mapstructure:"policy"`
	Threshold   float64           `mapstructure:"threshold"`
	WakeWords   []string          `mapstructure:"wake_words"`
	Fillers     []string          `mapstructure:"fillers"`
	CommandTTL  time.Duration     `mapstructure:"command_timeout"`

	Resolver  Resolver  `mapstructure:"resolver"`
	Confirm   Confirm   `mapstructure:"confirm"`
	Mail      Mail      `mapstructure:"mail"`
	Documents Documents `mapstructure:"documents"`
	Speech    Speech    `mapstructure:"speech"`
	Vault     Vault     `mapstructure:"vault"`

	Journal string `mapstructure:"journal"`
	Metrics string `mapstructure:"metrics_textfile"`
	Bus     string `mapstructure:"status_bus"`
}

// Policy builds the capability policy snapshot. An empty table keeps the
// built-in defaults.
func (s Settings) Policy() (*policy.Policy, error) {
	if len(s.PolicyTable) == 0 {
		p := policy.Default()
		return policy.New(p.Rules(), s.Threshold)
	}
	return policy.FromStrings(s.PolicyTable, s.Threshold)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threshold", policy.DefaultThreshold)
	v.SetDefault("command_timeout", 30*time.Second)

	v.SetDefault("resolver.model", "gpt-5-nano")
	v.SetDefault("resolver.base_url", "")
	v.SetDefault("resolver.timeout", 20*time.Second)
	v.SetDefault("resolver.draft_timeout", 60*time.Second)
	v.SetDefault("resolver.breaker_failures", 3)
	v.SetDefault("resolver.breaker_cooldown", 30*time.Second)
	v.SetDefault("resolver.history_size", 5)

	v.SetDefault("confirm.mode", "voice")
	v.SetDefault("confirm.timeout", 15*time.Second)

	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.from_name", "")
	v.SetDefault("mail.implicit_tls", false)

	v.SetDefault("documents.dir", "")
	v.SetDefault("documents.open", false)

	v.SetDefault("speech.whisper_model", "third_party/whisper.cpp/models/ggml-medium.bin")
	v.SetDefault("speech.language", "auto")
	v.SetDefault("speech.voice", "en")
	v.SetDefault("speech.rate", 0)
	v.SetDefault("speech.chime", "beep.mp3")
	v.SetDefault("speech.duck", true)
	v.SetDefault("speech.silence_rms", 0.015)
	v.SetDefault("speech.max_length", 10*time.Second)

	v.SetDefault("vault.address", "")
	v.SetDefault("vault.mount", "secret")
	v.SetDefault("vault.path", "vocaleye")

	v.SetDefault("journal", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("status_bus", "")
}

// Config owns the settings. The viper instance read at Load also carries
// the file watch; Reload always reads through a fresh instance so the two
// never share viper state.
type Config struct {
	v    *viper.Viper
	file string

	mu       sync.Mutex
	settings Settings
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vocaleye")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vocaleye")
	}

	v.SetEnvPrefix("VOCALEYE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or vocaleye.yaml from the working directory and
// ~/.config/vocaleye when path is empty. A missing file leaves the defaults.
// VOCALEYE_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug("No config file, using defaults")
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Config{v: v, file: v.ConfigFileUsed(), settings: s}, nil
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := s.Policy(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// File is the config file in use, empty when running on defaults.
func (c *Config) File() string { return c.file }

func (c *Config) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Reload re-reads the file. On error the previous settings stay in effect.
func (c *Config) Reload() (Settings, error) {
	v := newViper(c.file)
	if c.file != "" {
		if err := v.ReadInConfig(); err != nil {
			return c.Settings(), fmt.Errorf("failed to read config file: %w", err)
		}
	}
	s, err := decode(v)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.settings, err
	}
	c.settings = s
	return s, nil
}

// Watch calls fn with the new settings whenever the file changes and parses.
func (c *Config) Watch(fn func(Settings)) {
	if c.File() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := c.Reload()
		if err != nil {
			log.Error("Config reload failed", "file", e.Name, "err", err)
			return
		}
		log.Info("Config reloaded", "file", e.Name)
		fn(s)
	})
	c.v.WatchConfig()
}
