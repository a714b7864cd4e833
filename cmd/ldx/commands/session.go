package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/ldx/am"
	"github.com/teranos/ldx/channel"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest/jsonld"
	"github.com/teranos/ldx/internal/httpclient"
	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/processor"
	"github.com/teranos/ldx/source"
	"github.com/teranos/ldx/transport"
)

// loadConfig loads and validates am.toml for a command.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// channelConfig resolves the channel section, with strategy overriding
// channel.strategy when set.
func channelConfig(cfg *am.Config, strategy string) channel.Config {
	cc := channel.Config{
		Strategy:      channel.Strategy(cfg.Channel.Strategy),
		Transport:     transport.Kind(cfg.Channel.Transport),
		NATSURL:       cfg.NATS.URL,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		URL:           cfg.ChannelURL(),
		IngestTimeout: cfg.IngestTimeout(),
	}
	if strategy != "" {
		cc.Strategy = channel.Strategy(strategy)
	}
	return cc
}

// remoteLoadTimeout bounds a load whose processor runs in another process
// when no ingest timeout is configured.
const remoteLoadTimeout = 2 * time.Minute

// remote reports whether the configured processor lives in another process.
func remote(cfg *am.Config) bool {
	return cfg.Channel.Strategy == am.StrategyWorker &&
		(cfg.Channel.Transport == am.TransportNATS || cfg.Channel.Transport == am.TransportWebSocket)
}

// httpClient builds the remote document client from the source section.
func httpClient(cfg *am.Config) *httpclient.Client {
	var opts []httpclient.Option
	if cfg.Source.AllowPrivateNetworks {
		opts = append(opts, httpclient.AllowPrivateNetworks())
	}
	return httpclient.New(cfg.FetchTimeout(), opts...)
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// session is the processor connection of a single CLI invocation.
type session struct {
	ch  channel.Channel
	svc *channel.Service
	log *zap.SugaredLogger
	doc string
}

// openSession loads the document at path into a fresh processor. Load
// timing goes to cmd's stderr from -v.
func openSession(ctx context.Context, cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := httpClient(cfg)
	doc, err := source.Load(ctx, path, source.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	log := logger.Logger.Named("cli")
	parser := jsonld.New(jsonld.WithLogger(log), jsonld.WithHTTPClient(client))
	stalls := channel.NewStallWatch()
	ch, err := channel.New(ctx, channelConfig(cfg, ""), parser,
		channel.WithLogger(log),
		channel.WithObserver(processor.NewLogObserver(log)),
		channel.WithObserver(stalls),
	)
	if err != nil {
		return nil, err
	}

	s := &session{ch: ch, svc: channel.NewService(ch, log, channel.WithStallWatch(stalls)), log: log, doc: doc}
	start := time.Now()
	loadCtx := ctx
	if remote(cfg) && cfg.IngestTimeout() == 0 {
		// A remote host's stalled pass is invisible here.
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, remoteLoadTimeout)
		defer cancel()
	}
	if err := s.svc.LoadAndWait(loadCtx, doc); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "load %s", path)
	}
	elapsed := time.Since(start)
	log.Debugw("Document loaded",
		logger.FieldSource, path,
		logger.FieldStrategy, cfg.Channel.Strategy,
		logger.FieldDurationMS, elapsed.Milliseconds(),
	)
	if verbosity, _ := cmd.Flags().GetCount("verbose"); logger.ShouldOutput(verbosity, logger.OutputTiming) {
		pterm.Info.WithWriter(cmd.ErrOrStderr()).Printfln("Loaded %s in %s (%s strategy)", path, elapsed.Round(time.Millisecond), cfg.Channel.Strategy)
	}
	return s, nil
}

func (s *session) Close() {
	s.svc.Close()
	if err := s.ch.Close(); err != nil {
		s.log.Debugw("Channel close failed", logger.FieldError, err)
	}
}
