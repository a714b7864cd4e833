package am

import (
	"net/url"
	"strings"

	"github.com/teranos/ldx/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Channel.Strategy {
	case "", StrategyInProcess, StrategyWorker:
	default:
		return errors.WithHint(
			errors.Wrapf(errors.ErrUnsupportedStrategy, "channel.strategy %q", c.Channel.Strategy),
			"use inprocess or worker",
		)
	}
	switch c.Channel.Transport {
	case "", TransportPipe, TransportNATS, TransportWebSocket:
	default:
		return errors.WithHint(
			errors.Wrapf(errors.ErrUnsupportedStrategy, "channel.transport %q", c.Channel.Transport),
			"use pipe, nats or websocket",
		)
	}
	if c.Channel.URL != "" {
		u, err := url.Parse(c.Channel.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return errors.Newf("channel.url %q must be a ws:// or wss:// URL", c.Channel.URL)
		}
	}

	usesNATS := c.NATS.Serve || (c.Channel.Strategy == StrategyWorker && c.Channel.Transport == TransportNATS)
	if usesNATS {
		if c.NATS.URL == "" {
			return errors.New("nats.url cannot be empty when NATS is used")
		}
		if err := validateSubjectPrefix(c.NATS.SubjectPrefix); err != nil {
			return err
		}
	}

	// Ingest timeout: 0 = none, negative = invalid
	if c.Ingest.TimeoutSeconds < 0 {
		return errors.Newf("ingest.timeout_seconds must be >= 0, got %d", c.Ingest.TimeoutSeconds)
	}

	if c.Source.FetchTimeoutSeconds < 0 {
		return errors.Newf("source.fetch_timeout_seconds must be >= 0, got %d", c.Source.FetchTimeoutSeconds)
	}

	// Server port: 0 is invalid (omit for default), out of range is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be between 1 and 65535, got %d", *c.Server.Port)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Server.CommandsPerSecond < 0 {
		return errors.Newf("server.commands_per_second must be >= 0, got %g", c.Server.CommandsPerSecond)
	}
	if c.Server.CommandsPerSecond > 0 && c.Server.CommandBurst < 1 {
		return errors.Newf("server.command_burst must be >= 1 when rate limiting, got %d", c.Server.CommandBurst)
	}

	return nil
}

func validateSubjectPrefix(prefix string) error {
	trimmed := strings.TrimSuffix(prefix, ".")
	if trimmed == "" {
		return errors.New("nats.subject_prefix cannot be empty")
	}
	if strings.ContainsAny(trimmed, "*> \t") {
		return errors.Newf("nats.subject_prefix %q must not contain wildcards or whitespace", prefix)
	}
	for _, token := range strings.Split(trimmed, ".") {
		if token == "" {
			return errors.Newf("nats.subject_prefix %q has an empty token", prefix)
		}
	}
	return nil
}
