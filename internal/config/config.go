package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration, loaded from an optional YAML file with
// environment variable overrides applied on top. Durations are expressed in
// seconds in the file.
type Config struct {
	Listener  ListenerConfig  `yaml:"listener"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Lightsail LightsailConfig `yaml:"lightsail"`
	Outage    OutageConfig    `yaml:"outage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type ListenerConfig struct {
	Port            int `yaml:"port"`
	MaxDatagramSize int `yaml:"max_datagram_size"`
}

type WebhookConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout"`
}

func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type MonitorConfig struct {
	IntervalSecs int      `yaml:"interval"`
	Domain       string   `yaml:"domain"`
	IPv4Services []string `yaml:"ipv4_services"`
	IPv6Services []string `yaml:"ipv6_services"`
}

func (c MonitorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

type LightsailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Region   string `yaml:"region"`
	Instance string `yaml:"instance"`
}

type OutageConfig struct {
	ThresholdSecs int `yaml:"threshold"`
}

func (c OutageConfig) Threshold() time.Duration {
	return time.Duration(c.ThresholdSecs) * time.Second
}

type ServerConfig struct {
	Address          string `yaml:"address"`
	ReadTimeoutSecs  int    `yaml:"read_timeout"`
	WriteTimeoutSecs int    `yaml:"write_timeout"`
	ShutdownSecs     int    `yaml:"shutdown_timeout"`
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSecs) * time.Second
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration: a listener on UDP 7171, a
// 5 minute outage threshold, a 60 second IP monitor interval, and the
// standard set of public IP reflection services.
func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			Port:            7171,
			MaxDatagramSize: 1024,
		},
		Webhook: WebhookConfig{
			TimeoutSecs: 10,
		},
		Monitor: MonitorConfig{
			IntervalSecs: 60,
			IPv4Services: []string{
				"https://checkip.amazonaws.com",
				"https://api.ipify.org",
				"https://ifconfig.me/ip",
				"https://ipinfo.io/ip",
			},
			IPv6Services: []string{
				"https://api6.ipify.org",
				"https://ifconfig.co/ip",
				"https://ipv6.icanhazip.com",
				"https://ip6.seeip.org",
			},
		},
		Lightsail: LightsailConfig{
			Region:   "ap-northeast-1",
			Instance: "Debian-1",
		},
		Outage: OutageConfig{
			ThresholdSecs: 300,
		},
		Server: ServerConfig{
			Address:          ":8080",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 15,
			ShutdownSecs:     30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults. Values absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables on the loaded configuration.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("IPV4_DOMAIN_UPDATE_LAMBDA"); v != "" {
		c.Webhook.URL = v
	}
	if v := os.Getenv("SERVER_DOMAIN_NAME"); v != "" {
		c.Monitor.Domain = v
	}
	if v := os.Getenv("CNLISTENER_ADDR"); v != "" {
		c.Server.Address = v
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Listener.Port < 0 || c.Listener.Port > 65535 {
		return fmt.Errorf("listener port %d out of range", c.Listener.Port)
	}
	if c.Listener.MaxDatagramSize <= 0 {
		return fmt.Errorf("max datagram size must be positive, got %d", c.Listener.MaxDatagramSize)
	}
	if c.Webhook.TimeoutSecs <= 0 {
		return fmt.Errorf("webhook timeout must be positive, got %d", c.Webhook.TimeoutSecs)
	}
	if c.Monitor.IntervalSecs <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %d", c.Monitor.IntervalSecs)
	}
	if len(c.Monitor.IPv4Services) == 0 {
		return fmt.Errorf("at least one ipv4 reflection service is required")
	}
	if c.Outage.ThresholdSecs <= 0 {
		return fmt.Errorf("outage threshold must be positive, got %d", c.Outage.ThresholdSecs)
	}
	if c.Lightsail.Enabled && (c.Lightsail.Region == "" || c.Lightsail.Instance == "") {
		return fmt.Errorf("lightsail is enabled but region or instance is empty")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("server address is empty")
	}
	return nil
}
