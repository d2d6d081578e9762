package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/stylecam/internal/logger"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

// InputConfig describes the capture device request. The device hint is
// an index ("0") or identifier string; width/height/fps are requests
// the driver may adjust.
type InputConfig struct {
	Device string `json:"device" yaml:"device"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	FPS    int    `json:"fps" yaml:"fps"`
}

// OutputConfig selects the sink. Kind is "mjpeg" or "v4l2"; Device is
// the v4l2 loopback path when Kind is "v4l2".
type OutputConfig struct {
	Kind   string `json:"kind" yaml:"kind"`
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
}

// PipelineConfig tunes the worker loop.
type PipelineConfig struct {
	BufferSize          int `json:"buffer_size" yaml:"buffer_size"`
	MaxFPS              int `json:"max_fps" yaml:"max_fps"`
	StopTimeoutMillis   int `json:"stop_timeout_ms" yaml:"stop_timeout_ms"`
	ReadFailureLimit    int `json:"read_failure_limit" yaml:"read_failure_limit"`
	PublishFailureLimit int `json:"publish_failure_limit" yaml:"publish_failure_limit"`
}

// Config is the application configuration.
type Config struct {
	Input    InputConfig    `json:"input" yaml:"input"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Style    style.Config   `json:"style" yaml:"style"`

	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
}

// Manager handles configuration load and persistence.
type Manager struct {
	configPath string
	mu         sync.RWMutex
	config     *Config
}

// NewManager creates a configuration manager. An empty configFile uses
// the default path under the user config directory.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "stylecam")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configPath: actualConfigPath}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")
	return m, nil
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Input: InputConfig{
			Device: "0",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Output: OutputConfig{
			Kind: "mjpeg",
		},
		Pipeline: PipelineConfig{
			BufferSize:          4,
			MaxFPS:              30,
			StopTimeoutMillis:   2000,
			ReadFailureLimit:    30,
			PublishFailureLimit: 10,
		},
		Style:      style.IdentityConfig(),
		ServerPort: 8080,
		LogLevel:   "info",
	}
}

// load reads the configuration from disk.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	normalize(cfg)

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// normalize fills holes a hand-edited file may leave.
func normalize(cfg *Config) {
	def := Defaults()
	if cfg.Input.Width <= 0 || cfg.Input.Height <= 0 {
		cfg.Input.Width = def.Input.Width
		cfg.Input.Height = def.Input.Height
	}
	if cfg.Input.FPS <= 0 {
		cfg.Input.FPS = def.Input.FPS
	}
	if cfg.Pipeline.BufferSize <= 0 {
		cfg.Pipeline.BufferSize = def.Pipeline.BufferSize
	}
	if cfg.Pipeline.MaxFPS <= 0 {
		cfg.Pipeline.MaxFPS = def.Pipeline.MaxFPS
	}
	if cfg.Pipeline.StopTimeoutMillis <= 0 {
		cfg.Pipeline.StopTimeoutMillis = def.Pipeline.StopTimeoutMillis
	}
	if cfg.Pipeline.ReadFailureLimit <= 0 {
		cfg.Pipeline.ReadFailureLimit = def.Pipeline.ReadFailureLimit
	}
	if cfg.Pipeline.PublishFailureLimit <= 0 {
		cfg.Pipeline.PublishFailureLimit = def.Pipeline.PublishFailureLimit
	}
	if cfg.Style.Style == "" {
		cfg.Style = style.IdentityConfig()
	}
	if cfg.ServerPort <= 0 {
		cfg.ServerPort = def.ServerPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Update replaces the configuration and persists it.
func (m *Manager) Update(cfg *Config) error {
	normalize(cfg)
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// SetPort sets the server port.
func (m *Manager) SetPort(port int) error {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
	return m.Save()
}

// SetLogLevel sets the log level.
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the path to the config file.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
