package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leengari/tree-tutor/internal/logging"
	"github.com/leengari/tree-tutor/internal/session"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TREETUTOR_"

// Config is the service configuration
type Config struct {
	DataDir string `yaml:"data_dir"`
	HTTP    string `yaml:"http_addr"`
	TCP     string `yaml:"tcp_addr"`

	Sessions Sessions `yaml:"sessions"`
	Logging  Logging  `yaml:"logging"`
}

type Sessions struct {
	Capacity uint64        `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

type Logging struct {
	Level     string `yaml:"level"`
	SeqURL    string `yaml:"seq_url"`
	AddSource bool   `yaml:"add_source"`
}

// Defaults returns a configuration that works without a file
func Defaults() Config {
	return Config{
		DataDir: "./data",
		HTTP:    ":8080",
		TCP:     ":4242",
		Sessions: Sessions{
			Capacity: session.DefaultCapacity,
			TTL:      session.DefaultTTL,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from TREETUTOR_* variables read through getenv
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	if v := getenv(EnvPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := getenv(EnvPrefix + "HTTP_ADDR"); v != "" {
		cfg.HTTP = v
	}
	if v := getenv(EnvPrefix + "TCP_ADDR"); v != "" {
		cfg.TCP = v
	}
	if v := getenv(EnvPrefix + "SESSION_CAPACITY"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%sSESSION_CAPACITY: %w", EnvPrefix, err)
		}
		cfg.Sessions.Capacity = n
	}
	if v := getenv(EnvPrefix + "SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("%sSESSION_TTL: %w", EnvPrefix, err)
		}
		cfg.Sessions.TTL = d
	}
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv(EnvPrefix + "SEQ_URL"); v != "" {
		cfg.Logging.SeqURL = v
	}
	return cfg, nil
}

// Validate checks the values a server needs
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DataDir) == "" {
		problems = append(problems, "data_dir is required")
	}
	if c.HTTP == "" && c.TCP == "" {
		problems = append(problems, "at least one of http_addr and tcp_addr is required")
	}
	if c.Sessions.Capacity == 0 {
		problems = append(problems, "sessions.capacity must be positive")
	}
	if c.Sessions.TTL <= 0 {
		problems = append(problems, "sessions.ttl must be positive")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoggingOptions converts the logging section for logging.SetupLogger
func (c Config) LoggingOptions() logging.Options {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.Options{
		Level:     level,
		SeqURL:    c.Logging.SeqURL,
		AddSource: c.Logging.AddSource,
	}
}
