package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes environment overrides, e.g. NOVELPARSER_LLM_MODEL.
const EnvPrefix = "NOVELPARSER"

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// Options controls where the manager looks for configuration.
type Options struct {
	// ConfigFile is an explicit config path. Empty searches ./ then HomeDir.
	ConfigFile string
	// HomeDir is the fallback search directory for config.yaml.
	HomeDir string
	// EnvFile is loaded into the process environment if it exists. Defaults to ".env".
	EnvFile string
}

// NewManager creates a config manager from an explicit file (or the default search path).
func NewManager(cfgFile string) (*Manager, error) {
	return NewManagerWithOptions(Options{ConfigFile: cfgFile})
}

// NewManagerWithOptions creates a config manager and loads initial config.
func NewManagerWithOptions(opts Options) (*Manager, error) {
	if err := LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}
	if err := cm.initViper(opts); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

// LoadEnvFile loads KEY=VALUE pairs without overriding variables already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (cm *Manager) initViper(opts Options) error {
	for _, e := range DefaultEntries() {
		cm.v.SetDefault(e.Key, e.Value)
	}

	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	if opts.ConfigFile != "" {
		cm.v.SetConfigFile(opts.ConfigFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		if opts.HomeDir != "" {
			cm.v.AddConfigPath(opts.HomeDir)
		} else {
			cm.v.AddConfigPath("$HOME/.novelparser")
		}
	}

	// Config file is optional
	if err := cm.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file viper loaded, or "" when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// Value returns the effective value of a known key.
func (cm *Manager) Value(key string) (any, error) {
	if GetDefault(key) == nil {
		return nil, &UnknownKeyError{Key: key}
	}
	return cm.v.Get(key), nil
}

// Entries returns every known key with its effective value.
func (cm *Manager) Entries() []Entry {
	defaults := DefaultEntries()
	out := make([]Entry, 0, len(defaults))
	for _, e := range defaults {
		out = append(out, Entry{Key: e.Key, Value: cm.v.Get(e.Key), Description: e.Description})
	}
	return out
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# novelparser configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set it in your shell or a .env file: export OPENAI_API_KEY=xxx
# Any key can be overridden with NOVELPARSER_<SECTION>_<KEY>, e.g. NOVELPARSER_LLM_MODEL

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
