// Package channel connects callers to a processor. Two strategies share
// one contract: InProcess runs the processor on the caller's goroutine,
// Worker sends serialized commands over a transport to a processor hosted
// by Serve.
//
// Responses carry no ordering guarantee relative to other in-flight
// commands. Callers correlate replies by the echoed command; see Await.
package channel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

// Handler receives responses.
type Handler func(ld.Response)

// Channel is the asynchronous command bus.
type Channel interface {
	// Submit delivers cmd. It reports only delivery failures; the
	// command's outcome arrives as a Response.
	Submit(ctx context.Context, cmd ld.Command) error
	// Subscribe registers h for every response until unsubscribe is called.
	Subscribe(h Handler) (unsubscribe func())
	Close() error
}

// Option configures a channel or a hosted processor.
type Option func(*options)

type options struct {
	log           *zap.SugaredLogger
	observers     []processor.Observer
	ingestTimeout time.Duration
	onError       func(error)
}

func buildOptions(opts []Option) *options {
	o := &options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(o)
	}
	if o.onError == nil {
		log := o.log
		o.onError = func(err error) { log.Warnw("Channel transport error", "error", err) }
	}
	return o
}

func (o *options) processorOptions() []processor.Option {
	popts := []processor.Option{
		processor.WithLogger(o.log.Named("processor")),
		processor.WithIngestTimeout(o.ingestTimeout),
	}
	for _, obs := range o.observers {
		popts = append(popts, processor.WithObserver(obs))
	}
	return popts
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver attaches an observer to the processor the channel drives.
// Ignored by Worker, whose processor lives on the far side.
func WithObserver(obs processor.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithIngestTimeout fails INIT passes that do not finish within d.
func WithIngestTimeout(d time.Duration) Option {
	return func(o *options) { o.ingestTimeout = d }
}

// WithErrorHandler receives transport-level failures that have no caller
// to return to: undecodable frames, error frames from a host, a receive
// loop that lost its transport. They never appear as Responses.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// subscribers is a copy-on-publish handler list. Handlers run outside the
// lock in registration order.
type subscribers struct {
	mu      sync.Mutex
	nextID  int
	entries []subscriber
}

type subscriber struct {
	id int
	h  Handler
}

func (s *subscribers) add(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, subscriber{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.entries {
				if e.id == id {
					s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *subscribers) publish(resp ld.Response) {
	s.mu.Lock()
	snapshot := make([]subscriber, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	for _, e := range snapshot {
		e.h(resp)
	}
}
