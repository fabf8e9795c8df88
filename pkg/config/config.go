package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultListenAddress is used when neither config file nor PORT env set a port.
	DefaultListenAddress = ":3000"

	// DefaultMaxBodyBytes caps the accepted JSON request body at 100 KB.
	DefaultMaxBodyBytes = 100 * 1024

	// DefaultRateLimitWindow and DefaultRateLimitMax implement the
	// 20-requests-per-15-minutes policy for the send endpoint.
	DefaultRateLimitWindow = 15 * time.Minute
	DefaultRateLimitMax    = 20

	// DefaultDialTimeout bounds the SMTP session establishment. The relay
	// performs exactly one connection attempt per request, so a hung mail
	// server must not pin the handling goroutine indefinitely.
	DefaultDialTimeout = 30 * time.Second
)

// DefaultAllowedPorts is the SMTP target port allow-list applied when the
// config file does not override it. Submission ports only; port 25 is
// excluded to reduce the abuse surface of an open relay endpoint.
func DefaultAllowedPorts() []int {
	return []int{465, 587, 2525}
}

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	// TrustedProxies lists IPs/CIDRs trusted for X-Forwarded-For headers
	// (e.g. ["10.0.0.0/8", "127.0.0.1"]). Client identity for rate
	// limiting is derived from the resolved client IP.
	TrustedProxies []string `yaml:"trustedProxies"`
	// MaxBodyBytes is the request body ceiling in bytes. Zero means default.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type RateLimit struct {
	// Window is the counting window, e.g. "15m".
	Window string `yaml:"window"`
	// MaxRequests is the number of send requests allowed per client
	// identity within one window.
	MaxRequests int `yaml:"maxRequests"`
}

type SMTP struct {
	// AllowedPorts is the target port allow-list. Some deployments extend
	// it; the default is DefaultAllowedPorts.
	AllowedPorts []int `yaml:"allowedPorts"`
	// DialTimeout bounds connect+TLS+auth, e.g. "30s".
	DialTimeout string `yaml:"dialTimeout"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	RateLimit RateLimit `yaml:"rateLimit"`
	SMTP      SMTP      `yaml:"smtp"`
}

// Load loads the relay configuration from a file path. If configPath is
// empty, the SMTP_RELAY_CONFIG_PATH environment variable is consulted,
// then "./config.yaml". A missing file is not an error: the service runs
// entirely on defaults in that case.
func Load(configPath ...string) (Config, error) {
	var path string
	switch {
	case len(configPath) > 0 && configPath[0] != "":
		path = configPath[0]
	case os.Getenv("SMTP_RELAY_CONFIG_PATH") != "":
		path = os.Getenv("SMTP_RELAY_CONFIG_PATH")
	default:
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("trying to open smtp-relay config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	return config, nil
}

// Defaults fills unset fields in place. The PORT environment variable
// overrides the listen port when the config file does not set an address,
// matching the conventional container contract.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		if port := os.Getenv("PORT"); port != "" {
			c.Server.ListenAddress = ":" + port
		} else {
			c.Server.ListenAddress = DefaultListenAddress
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = DefaultRateLimitMax
	}
	if c.RateLimit.Window == "" {
		c.RateLimit.Window = DefaultRateLimitWindow.String()
	}
	if len(c.SMTP.AllowedPorts) == 0 {
		c.SMTP.AllowedPorts = DefaultAllowedPorts()
	}
	if c.SMTP.DialTimeout == "" {
		c.SMTP.DialTimeout = DefaultDialTimeout.String()
	}
}

// RateLimitWindow parses RateLimit.Window, falling back to the default on
// an empty or malformed value.
func (c Config) RateLimitWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimit.Window)
	if err != nil || d <= 0 {
		return DefaultRateLimitWindow
	}
	return d
}

// SMTPDialTimeout parses SMTP.DialTimeout, falling back to the default on
// an empty or malformed value.
func (c Config) SMTPDialTimeout() time.Duration {
	d, err := time.ParseDuration(c.SMTP.DialTimeout)
	if err != nil || d <= 0 {
		return DefaultDialTimeout
	}
	return d
}

// PortAllowed reports whether port is in the configured allow-list.
func (c Config) PortAllowed(port int) bool {
	for _, p := range c.SMTP.AllowedPorts {
		if p == port {
			return true
		}
	}
	return false
}
