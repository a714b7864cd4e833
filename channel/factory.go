package channel

import (
	"context"
	"time"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/transport"
)

// Strategy selects how commands reach the processor.
type Strategy string

const (
	StrategyInProcess Strategy = "inprocess"
	StrategyWorker    Strategy = "worker"
)

// Config is the resolved channel section of am.toml.
type Config struct {
	Strategy  Strategy
	Transport transport.Kind
	// NATSURL and SubjectPrefix are used when Transport is nats. The
	// processor then lives in whichever process serves the prefix.
	NATSURL       string
	SubjectPrefix string
	// URL is the websocket endpoint of a running server when Transport
	// is websocket.
	URL           string
	IngestTimeout time.Duration
}

// New builds the channel named by cfg. An empty strategy means in-process
// and an empty worker transport means pipe.
func New(ctx context.Context, cfg Config, parser ingest.Parser, opts ...Option) (Channel, error) {
	if cfg.IngestTimeout > 0 {
		opts = append(opts, WithIngestTimeout(cfg.IngestTimeout))
	}

	switch cfg.Strategy {
	case "", StrategyInProcess:
		return NewInProcess(parser, opts...), nil
	case StrategyWorker:
		switch cfg.Transport {
		case "", transport.KindPipe:
			return NewIsolated(ctx, parser, opts...), nil
		case transport.KindNATS:
			remoteObservers(opts, cfg.Transport)
			t, err := transport.DialNATS(cfg.NATSURL, cfg.SubjectPrefix, transport.RoleClient)
			if err != nil {
				return nil, err
			}
			return NewWorker(t, opts...), nil
		case transport.KindWebSocket:
			remoteObservers(opts, cfg.Transport)
			o := buildOptions(opts)
			t, err := transport.DialWebSocket(ctx, cfg.URL, nil, o.log.Named("websocket"))
			if err != nil {
				return nil, err
			}
			return NewWorker(t, opts...), nil
		default:
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrUnsupportedStrategy, "worker transport %q", cfg.Transport),
				"channel.transport must be pipe, nats or websocket",
			)
		}
	default:
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrUnsupportedStrategy, "strategy %q", cfg.Strategy),
			"channel.strategy must be inprocess or worker",
		)
	}
}

// remoteObservers notes that observers given to a remote worker are not
// attached: the processor and its observers live on the host.
func remoteObservers(opts []Option, kind transport.Kind) {
	o := buildOptions(opts)
	if len(o.observers) > 0 {
		o.log.Debugw("Observers run on the remote host and are not attached here",
			"transport", string(kind),
			"observers", len(o.observers),
		)
	}
}
