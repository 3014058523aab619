package telemetry

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout = 10 * time.Second

	envEndpoint = "SWEARENA_TELEMETRY_ENDPOINT"
	envAPIKey   = "SWEARENA_TELEMETRY_API_KEY"
	envTimeout  = "SWEARENA_TELEMETRY_TIMEOUT"
)

// Config holds runtime settings for the remote log uploader. An empty
// endpoint disables uploading entirely.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"-"`

	timeoutRaw string
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read telemetry config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal telemetry config: %w", err)
	}
	cfg := &Config{
		Endpoint:   raw.Endpoint,
		APIKey:     raw.APIKey,
		timeoutRaw: raw.Timeout,
	}
	cfg.applyEnvOverrides()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(envEndpoint)); v != "" {
		c.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(envAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(envTimeout)); v != "" {
		c.timeoutRaw = v
	}
}

func (c *Config) parseTimeout() error {
	if strings.TrimSpace(c.timeoutRaw) == "" {
		c.Timeout = defaultTimeout
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.timeoutRaw))
	if err != nil {
		return fmt.Errorf("telemetry: invalid timeout %q: %w", c.timeoutRaw, err)
	}
	if d <= 0 {
		return errors.New("telemetry: timeout must be positive")
	}
	c.Timeout = d
	return nil
}

// Validate checks that a configured endpoint is a usable URL.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("telemetry: invalid endpoint %q", c.Endpoint)
	}
	return nil
}

// Enabled reports whether uploads are configured.
func (c *Config) Enabled() bool {
	return c != nil && strings.TrimSpace(c.Endpoint) != ""
}
