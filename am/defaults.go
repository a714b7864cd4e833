package am

import (
	"github.com/spf13/viper"
)

// Strategy and transport names accepted in configuration
const (
	StrategyInProcess = "inprocess"
	StrategyWorker    = "worker"

	TransportPipe      = "pipe"
	TransportNATS      = "nats"
	TransportWebSocket = "websocket"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Channel defaults
	v.SetDefault("channel.strategy", StrategyInProcess)
	v.SetDefault("channel.transport", TransportPipe)
	v.SetDefault("channel.url", "")

	// No ingest timeout unless configured
	v.SetDefault("ingest.timeout_seconds", 0)

	v.SetDefault("source.fetch_timeout_seconds", 30)
	v.SetDefault("source.allow_private_networks", false)

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", defaultAllowedOrigins())
	v.SetDefault("server.commands_per_second", 20.0)
	v.SetDefault("server.command_burst", 40)

	// NATS defaults
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject_prefix", "ldx")
	v.SetDefault("nats.serve", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.json", false)
}

// BindEnvVars binds keys whose environment names do not follow the
// LDX_<SECTION>_<KEY> pattern
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("nats.url", "LDX_NATS_URL", "NATS_URL")
	v.BindEnv("server.port", "LDX_SERVER_PORT", "LDX_PORT")
}
