package ingest

import (
	"context"
	"sync"

	"github.com/teranos/ldx/errors"
)

// Replay returns a Stream that delivers events and then closes.
func Replay(events ...Event) Stream {
	ch := make(chan Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ChanStream(ch)
}

// Scripted is a Parser that replays canned events per source text.
// Unknown sources yield a single error event followed by End.
type Scripted map[string][]Event

func (s Scripted) Import(_ context.Context, source string) Stream {
	events, ok := s[source]
	if !ok {
		return Replay(ErrorEvent(errUnknownSource(source)), EndEvent())
	}
	return Replay(events...)
}

// Controlled is a Stream whose events are pushed by the caller. It is used
// to hold a pass open.
type Controlled struct {
	mu     sync.Mutex
	ch     chan Event
	ctx    context.Context
	closed bool
}

// NewControlled returns a stream that stops accepting pushes once ctx is done.
func NewControlled(ctx context.Context) *Controlled {
	return &Controlled{ch: make(chan Event, 64), ctx: ctx}
}

func (c *Controlled) Events() <-chan Event { return c.ch }

// Push delivers ev, reporting false if the stream was closed or its
// context cancelled.
func (c *Controlled) Push(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ctx.Err() != nil {
		return false
	}
	select {
	case c.ch <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// Close ends the stream without an End event unless one was pushed.
func (c *Controlled) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Done is closed once the stream's context is cancelled.
func (c *Controlled) Done() <-chan struct{} { return c.ctx.Done() }

func errUnknownSource(source string) error {
	if len(source) > 32 {
		source = source[:32] + "..."
	}
	return errors.Newf("no scripted events for source %q", source)
}

// Manual is a Parser that hands every imported stream to the caller, which
// then drives it with Push and Close.
type Manual struct {
	Imports chan *ManualImport
}

// ManualImport is one Import call observed by Manual.
type ManualImport struct {
	Source string
	*Controlled
}

func NewManual() *Manual {
	return &Manual{Imports: make(chan *ManualImport, 16)}
}

func (m *Manual) Import(ctx context.Context, source string) Stream {
	c := NewControlled(ctx)
	m.Imports <- &ManualImport{Source: source, Controlled: c}
	return c
}
