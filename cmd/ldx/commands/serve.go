package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ldx/am"
	"github.com/teranos/ldx/channel"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest/jsonld"
	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/metrics"
	"github.com/teranos/ldx/processor"
	"github.com/teranos/ldx/server"
	"github.com/teranos/ldx/transport"
)

// ServeCmd starts the websocket server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Serve a processor to websocket clients",
	Long: `Start an HTTP server hosting one processor. Websocket clients on /ws send
command frames, and every response is broadcast to all of them. /health
reports readiness and /metrics exposes Prometheus metrics.

With --watch the document is loaded at startup and reloaded whenever the
file changes. With nats.serve = true a second processor is hosted for NATS
workers on nats.subject_prefix.

Examples:
  ldx serve
  ldx serve --port 9000 --watch library.jsonld
  ldx serve --strategy worker`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().Int("port", 0, "Port to listen on (default server.port)")
	ServeCmd.Flags().String("watch", "", "JSON-LD document to load and reload on change")
	ServeCmd.Flags().String("strategy", "", "Channel strategy: inprocess or worker (default channel.strategy)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.ServerPort()
	}
	watch, _ := cmd.Flags().GetString("watch")
	strategy, _ := cmd.Flags().GetString("strategy")

	log := logger.Logger.Named("serve")
	parser := jsonld.New(jsonld.WithLogger(log), jsonld.WithHTTPClient(httpClient(cfg)))

	opts := []channel.Option{
		channel.WithLogger(log),
		channel.WithObserver(processor.NewLogObserver(log)),
	}
	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if collector, err = metrics.New(registry); err != nil {
			return err
		}
		opts = append(opts, channel.WithObserver(collector))
	}

	chCfg := channelConfig(cfg, strategy)
	if chCfg.Transport == transport.KindWebSocket {
		// The server is the websocket endpoint; its own processor uses a pipe.
		log.Debugw("channel.transport websocket is for clients; serving over a pipe")
		chCfg.Transport = transport.KindPipe
	}
	ch, err := channel.New(cmd.Context(), chCfg, parser, opts...)
	if err != nil {
		return err
	}
	defer ch.Close()

	srv := server.New(ch, server.Config{
		AllowedOrigins:    cfg.GetServerAllowedOrigins(),
		CommandsPerSecond: cfg.Server.CommandsPerSecond,
		CommandBurst:      cfg.Server.CommandBurst,
	}, server.WithLogger(log), server.WithMetrics(registry, collector))

	if cfg.NATS.Serve {
		if err := srv.HostNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, parser, opts...); err != nil {
			srv.Stop()
			return errors.Wrap(err, "host NATS processor")
		}
	}
	if watch != "" {
		if err := srv.Watch(watch); err != nil {
			srv.Stop()
			return err
		}
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	printStartupBanner(cmd.OutOrStdout(), bannerInfo{
		Port:      port,
		Strategy:  string(chCfg.Strategy),
		Watch:     watch,
		Metrics:   cfg.Metrics.Enabled,
		NATS:      cfg.NATS.Serve,
		Verbosity: verbosity,
	})
	if logger.ShouldOutput(verbosity, logger.OutputConfig) {
		if settings, err := am.Settings(); err == nil {
			if err := renderSettings(cmd.OutOrStdout(), settings); err != nil {
				log.Debugw("Config table failed", logger.FieldError, err)
			}
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		srv.Stop()
		return err
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
