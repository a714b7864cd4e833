package processor

import (
	"context"
	"time"

	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
)

// Run drives the processor from commands until ctx is done or commands is
// closed. Commands and stream events are interleaved as they arrive, so a
// FETCH received during a pass is answered against the partial index.
func (p *Processor) Run(ctx context.Context, commands <-chan ld.Command) error {
	defer p.Close()
	for {
		events := p.currentEvents()
		deadline := p.currentDeadline()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			p.Execute(ctx, cmd)
		case ev, ok := <-events:
			if !ok {
				p.streamClosed()
				continue
			}
			p.HandleEvent(ev)
		case <-deadline:
			p.expire()
		}
	}
}

// Drain blocks until the open pass concludes or times out. A stream that
// closes without End ends the wait unless a timeout is pending. It returns
// ctx.Err() if ctx ends first, leaving the pass open for a later Drain.
func (p *Processor) Drain(ctx context.Context) error {
	for {
		events := p.currentEvents()
		deadline := p.currentDeadline()
		if events == nil && deadline == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				p.streamClosed()
				continue
			}
			p.HandleEvent(ev)
		case <-deadline:
			p.expire()
		}
	}
}

func (p *Processor) currentEvents() <-chan ingest.Event {
	if p.pass == nil {
		return nil
	}
	return p.pass.events
}

func (p *Processor) currentDeadline() <-chan time.Time {
	if p.pass == nil {
		return nil
	}
	return p.pass.deadline()
}
