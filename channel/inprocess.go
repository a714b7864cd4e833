package channel

import (
	"context"
	"sync"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

// InProcess runs the processor on the submitting goroutine. Submit returns
// after the command, and any INIT pass it started or was waiting behind,
// has been applied; every response produced along the way has already been
// delivered to subscribers by then.
type InProcess struct {
	mu      sync.Mutex
	proc    *processor.Processor
	pending []ld.Response
	subs    subscribers
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
}

func NewInProcess(parser ingest.Parser, opts ...Option) *InProcess {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	c := &InProcess{ctx: ctx, cancel: cancel}
	c.proc = processor.New(parser, c.collect, o.processorOptions()...)
	return c
}

// collect runs under c.mu on the submitting goroutine.
func (c *InProcess) collect(resp ld.Response) {
	c.pending = append(c.pending, resp)
}

// Submit executes cmd and drains ingestion under ctx. If ctx ends while a
// pass is still open the pass is kept and the next Submit resumes it.
func (c *InProcess) Submit(ctx context.Context, cmd ld.Command) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.Wrap(errors.ErrTransportClosed, "in-process channel closed")
	}
	c.proc.Execute(c.ctx, cmd)
	drainErr := c.proc.Drain(ctx)
	out := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, resp := range out {
		c.subs.publish(resp)
	}
	if drainErr != nil {
		return errors.Wrap(drainErr, "ingestion still running")
	}
	return nil
}

func (c *InProcess) Subscribe(h Handler) func() { return c.subs.add(h) }

// State reports the processor state; used for health output.
func (c *InProcess) State() processor.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc.State()
}

func (c *InProcess) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.proc.Close()
	c.cancel()
	return nil
}
