package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// Config holds all hexalign configuration
type Config struct {
	Grid   GridConfig   `yaml:"grid" toml:"grid"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Auth   AuthConfig   `yaml:"auth" toml:"auth"`
	Redis  RedisConfig  `yaml:"redis" toml:"redis"`
	State  StateConfig  `yaml:"state" toml:"state"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// GridConfig holds the grid used when no reference state is stored yet
type GridConfig struct {
	Orientation string  `yaml:"orientation" toml:"orientation"` // "flat-top" or "pointy-top"
	RadiusUnit  string  `yaml:"radius_unit" toml:"radius_unit"` // "outer" or "inner"
	Radius      float64 `yaml:"radius" toml:"radius"`
	Axes        string  `yaml:"axes" toml:"axes"` // "both", "horizontal", "vertical"
}

// ServerConfig holds align service settings
type ServerConfig struct {
	Host            string `yaml:"host" toml:"host"`
	Port            int    `yaml:"port" toml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds" toml:"write_timeout_seconds"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds"`
	MaxBatch        int    `yaml:"max_batch" toml:"max_batch"` // positions per request
}

// AuthConfig holds JWT settings. Auth is disabled when PublicKeyURL is empty.
type AuthConfig struct {
	Issuer              string `yaml:"issuer" toml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url" toml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours" toml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address" toml:"address"`
	Password        string `yaml:"password" toml:"password"`
	DB              int    `yaml:"db" toml:"db"`
	KeyPrefix       string `yaml:"key_prefix" toml:"key_prefix"`
	BlacklistPrefix string `yaml:"blacklist_prefix" toml:"blacklist_prefix"`
}

// StateConfig selects where reference radii are persisted
type StateConfig struct {
	Backend  string `yaml:"backend" toml:"backend"` // "memory", "file" or "redis"
	Dir      string `yaml:"dir" toml:"dir"`
	TTLHours int    `yaml:"ttl_hours" toml:"ttl_hours"` // redis only, 0 keeps forever
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML or TOML file, chosen by extension
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) applyDefaults() {
	if c.Grid.Orientation == "" {
		c.Grid.Orientation = hex.FlatTop.String()
	}
	if c.Grid.RadiusUnit == "" {
		c.Grid.RadiusUnit = hex.Outer.String()
	}
	if c.Grid.Radius == 0 {
		c.Grid.Radius = 5
	}
	if c.Grid.Axes == "" {
		c.Grid.Axes = align.Both.String()
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.MaxBatch == 0 {
		c.Server.MaxBatch = 10000
	}
	if c.Auth.PublicKeyRefreshHrs == 0 {
		c.Auth.PublicKeyRefreshHrs = 24
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "hexalign:state:"
	}
	if c.Redis.BlacklistPrefix == "" {
		c.Redis.BlacklistPrefix = "blacklist:user:"
	}
	if c.State.Backend == "" {
		c.State.Backend = "file"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks enum strings and backend requirements
func (c *Config) Validate() error {
	if _, err := c.Grid.State(); err != nil {
		return fmt.Errorf("invalid grid config: %w", err)
	}
	switch c.State.Backend {
	case "memory", "file":
	case "redis":
		if c.Redis.Address == "" {
			return errors.InvalidArgument("state backend redis requires redis.address")
		}
	default:
		return errors.InvalidArgument("unknown state backend %q", c.State.Backend)
	}
	if _, err := c.LogLevel(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid log level %q", c.Log.Level)
	}
	return nil
}

// State converts the grid section into an alignment reference state
func (g GridConfig) State() (align.State, error) {
	o, err := hex.ParseOrientation(g.Orientation)
	if err != nil {
		return align.State{}, err
	}
	u, err := hex.ParseRadiusUnit(g.RadiusUnit)
	if err != nil {
		return align.State{}, err
	}
	axes, err := align.ParseAxisMask(g.Axes)
	if err != nil {
		return align.State{}, err
	}
	if !(g.Radius > 0) {
		return align.State{}, errors.InvalidArgument("radius must be positive, got %v", g.Radius)
	}
	return align.State{Orientation: o, Unit: u, Radius: g.Radius, Axes: axes}, nil
}

// LogLevel parses the configured log level
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

// Addr returns the listen address of the align service
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StateDir returns the directory of the file state backend
func (c *Config) StateDir() (string, error) {
	if c.State.Dir != "" {
		return c.State.Dir, nil
	}
	home, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(home, "hexalign", "state"), nil
}
