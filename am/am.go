// Package am loads the ldx shell configuration ("I am"): which channel
// strategy the CLI and server use, where the server listens, and how
// NATS and metrics are wired. The core packages never read it.
package am

import (
	"fmt"
	"time"
)

// Config represents the ldx configuration
type Config struct {
	Channel ChannelConfig `mapstructure:"channel"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Source  SourceConfig  `mapstructure:"source"`
	Server  ServerConfig  `mapstructure:"server"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// ChannelConfig selects how commands reach the processor
type ChannelConfig struct {
	Strategy  string `mapstructure:"strategy"`  // inprocess or worker
	Transport string `mapstructure:"transport"` // worker transport: pipe, nats or websocket
	URL       string `mapstructure:"url"`       // websocket endpoint; empty = local ldx serve
}

// IngestConfig bounds ingestion passes
type IngestConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"` // 0 = no timeout
}

// SourceConfig governs remote document fetches
type SourceConfig struct {
	FetchTimeoutSeconds  int  `mapstructure:"fetch_timeout_seconds"`
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"` // permit loopback and RFC 1918 hosts
}

// ServerConfig configures the websocket server
type ServerConfig struct {
	Port              *int     `mapstructure:"port"` // nil = DefaultServerPort, 0 is invalid
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	CommandsPerSecond float64  `mapstructure:"commands_per_second"` // Per client, 0 = unlimited
	CommandBurst      int      `mapstructure:"command_burst"`
}

// NATSConfig configures the NATS worker transport
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Serve         bool   `mapstructure:"serve"` // ldx serve also hosts a processor on the prefix
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Server port constants
const (
	DefaultServerPort = 8787
)

// IngestTimeout converts ingest.timeout_seconds, zero meaning none.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingest.TimeoutSeconds) * time.Second
}

// FetchTimeout converts source.fetch_timeout_seconds.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.FetchTimeoutSeconds) * time.Second
}

// ChannelURL returns channel.url, defaulting to the /ws endpoint of an
// ldx serve on this host.
func (c *Config) ChannelURL() string {
	if c.Channel.URL != "" {
		return c.Channel.URL
	}
	return fmt.Sprintf("ws://localhost:%d/ws", c.ServerPort())
}

// ServerPort returns server.port or DefaultServerPort when unset.
func (c *Config) ServerPort() int {
	if c.Server.Port == nil {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetServerAllowedOrigins returns the allowed websocket origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return defaultAllowedOrigins()
	}
	return c.Server.AllowedOrigins
}

func defaultAllowedOrigins() []string {
	return []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}
}
