package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/logger"
)

const serviceBuffer = 16

// Service routes successful responses onto typed streams. Failed
// responses are logged, not routed. Streams are buffered; when a consumer
// falls behind further responses for that stream are dropped.
type Service struct {
	ch  Channel
	log *zap.SugaredLogger

	ready     chan ld.Command
	lists     chan []ld.Resource
	resources chan ld.Resource
	types     chan []string

	stalls      *StallWatch
	unsubscribe func()
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStallWatch makes LoadAndWait fail once w reports that the INIT's
// stream closed without End, instead of waiting for a response that never
// comes. w must also be attached to the channel with WithObserver.
func WithStallWatch(w *StallWatch) ServiceOption {
	return func(s *Service) { s.stalls = w }
}

func NewService(ch Channel, log *zap.SugaredLogger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		ch:        ch,
		log:       log.Named("service"),
		ready:     make(chan ld.Command, serviceBuffer),
		lists:     make(chan []ld.Resource, serviceBuffer),
		resources: make(chan ld.Resource, serviceBuffer),
		types:     make(chan []string, serviceBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = ch.Subscribe(s.route)
	return s
}

// Ready receives each INIT that completed.
func (s *Service) Ready() <-chan ld.Command { return s.ready }

func (s *Service) ResourceLists() <-chan []ld.Resource { return s.lists }

func (s *Service) Resources() <-chan ld.Resource { return s.resources }

func (s *Service) Types() <-chan []string { return s.types }

// Load submits an INIT for the given JSON-LD document.
func (s *Service) Load(ctx context.Context, jsonld string) (ld.Command, error) {
	cmd := ld.Init(jsonld)
	return cmd, s.ch.Submit(ctx, cmd)
}

// Fetch submits a FETCH. No arguments means all resources.
func (s *Service) Fetch(ctx context.Context, args ...string) (ld.Command, error) {
	cmd := ld.Fetch(args...)
	return cmd, s.ch.Submit(ctx, cmd)
}

// LoadAndWait submits an INIT and waits for its terminal response. A
// failed response becomes an error, as does a stalled pass when a
// StallWatch is configured.
func (s *Service) LoadAndWait(ctx context.Context, jsonld string) error {
	cmd := ld.Init(jsonld)
	var (
		stalled error
		done    chan struct{}
		cancel  context.CancelFunc
	)
	if s.stalls != nil {
		notify := s.stalls.Watch(cmd)
		defer s.stalls.Forget(cmd)

		ctx, cancel = context.WithCancel(ctx)
		done = make(chan struct{})
		go func() {
			defer close(done)
			select {
			case stalled = <-notify:
				cancel()
			case <-ctx.Done():
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	resp, err := Request(ctx, s.ch, cmd)
	if err != nil {
		if done != nil {
			cancel()
			<-done
		}
		if stalled != nil {
			return errors.Wrap(stalled, "load document")
		}
		return errors.Wrap(err, "load document")
	}
	if !resp.Success {
		return errors.Newf("load failed: %s", resp.Message)
	}
	return nil
}

// Query submits a FETCH and returns its result. Lookup misses match
// errors.ErrNotFound.
func (s *Service) Query(ctx context.Context, args ...string) (*ld.Result, error) {
	resp, err := Request(ctx, s.ch, ld.Fetch(args...))
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	if !resp.Success {
		if resp.Message == ld.MsgNotFound {
			return nil, errors.Wrapf(errors.ErrNotFound, "fetch %v", args)
		}
		return nil, errors.NewInvalidRequestError("%s", resp.Message)
	}
	return resp.Result, nil
}

func (s *Service) route(resp ld.Response) {
	if !resp.Success {
		s.log.Warnw("Command failed",
			logger.FieldCommandID, resp.Command.ID,
			logger.FieldCommand, resp.Command.Kind.String(),
			"message", resp.Message)
		return
	}

	if resp.Command.Kind == ld.KindInit {
		offer(s, s.ready, resp.Command, "ready")
		return
	}
	if resp.Result == nil {
		return
	}
	switch resp.Result.Kind {
	case ld.ResultResources:
		offer(s, s.lists, resp.Result.Resources, "resource list")
	case ld.ResultResource:
		offer(s, s.resources, *resp.Result.Resource, "resource")
	case ld.ResultTypes:
		offer(s, s.types, resp.Result.Types, "types")
	}
}

func offer[T any](s *Service, ch chan T, v T, stream string) {
	select {
	case ch <- v:
	default:
		s.log.Warnw("Dropped response, consumer not keeping up", "stream", stream)
	}
}

// Close detaches from the channel. The channel itself stays open.
func (s *Service) Close() {
	s.unsubscribe()
}
