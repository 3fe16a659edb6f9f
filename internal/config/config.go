package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 7070
	DefaultMaxConnections = 1000
	DefaultStateDir       = "/usr/local/var/lib/shibuvec"

	// managementOffset is added to Port when ManagementPort is 0.
	managementOffset = 1000
)

const envPrefix = "SHIBUVEC_"

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ManagementPort of 0 means Port+1000; a negative value disables the
	// management server.
	ManagementPort int   `yaml:"management_port"`
	MaxConnections int32 `yaml:"max_connections"`

	// CommandRate limits commands per second per session. 0 is unlimited.
	CommandRate  float64       `yaml:"command_rate"`
	CommandBurst int           `yaml:"command_burst"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	StateDir  string `yaml:"state_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		MaxConnections: DefaultMaxConnections,
		CommandBurst:   1,
		StateDir:       DefaultStateDir,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then SHIBUVEC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "HOST"); ok {
		c.Host = v
	}
	if v, ok := lookup(envPrefix + "STATE_DIR"); ok {
		c.StateDir = v
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(envPrefix + "LOG_FORMAT"); ok {
		c.LogFormat = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &c.Port},
		{"MANAGEMENT_PORT", &c.ManagementPort},
		{"COMMAND_BURST", &c.CommandBurst},
	}
	for _, e := range ints {
		v, ok := lookup(envPrefix + e.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, e.name, err)
		}
		*e.dst = n
	}

	if v, ok := lookup(envPrefix + "MAX_CONNECTIONS"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%sMAX_CONNECTIONS: %w", envPrefix, err)
		}
		c.MaxConnections = int32(n)
	}
	if v, ok := lookup(envPrefix + "COMMAND_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sCOMMAND_RATE: %w", envPrefix, err)
		}
		c.CommandRate = f
	}
	if v, ok := lookup(envPrefix + "IDLE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sIDLE_TIMEOUT: %w", envPrefix, err)
		}
		c.IdleTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if mp := c.ResolvedManagementPort(); mp > 65535 {
		errs = append(errs, fmt.Errorf("management port %d out of range", mp))
	}
	if c.MaxConnections <= 0 {
		errs = append(errs, errors.New("max connections must be positive"))
	}
	if c.CommandRate < 0 {
		errs = append(errs, errors.New("command rate must not be negative"))
	}
	if c.CommandRate > 0 && c.CommandBurst < 1 {
		errs = append(errs, errors.New("command burst must be at least 1 when rate limiting"))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, errors.New("idle timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the protocol server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ResolvedManagementPort returns the management port, or -1 when disabled.
func (c *Config) ResolvedManagementPort() int {
	switch {
	case c.ManagementPort < 0:
		return -1
	case c.ManagementPort == 0:
		return c.Port + managementOffset
	default:
		return c.ManagementPort
	}
}
