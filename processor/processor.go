// Package processor interprets INIT and FETCH commands against a resource
// index it owns exclusively.
//
// A Processor is not safe for concurrent use. Exactly one goroutine drives
// it, either through Run (commands arrive on a channel) or by calling
// Execute followed by Drain.
package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/ldx/index"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/logger"
)

// State is the processor's readiness.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// EmitFunc receives every response the processor produces.
type EmitFunc func(ld.Response)

// Processor owns one index, its registry and at most one ingestion pass.
type Processor struct {
	parser   ingest.Parser
	emit     EmitFunc
	index    *index.Index
	pipeline *ingest.Pipeline
	state    State
	pass     *pass

	observer Observer
	log      *zap.SugaredLogger
	timeout  time.Duration
}

// pass is the ingestion started by one INIT.
type pass struct {
	cmd     ld.Command
	cancel  context.CancelFunc
	events  <-chan ingest.Event // nil once the stream has closed
	timer   *time.Timer
	started time.Time
}

func (ps *pass) deadline() <-chan time.Time {
	if ps.timer == nil {
		return nil
	}
	return ps.timer.C
}

func (ps *pass) stop() {
	ps.cancel()
	if ps.timer != nil {
		ps.timer.Stop()
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver adds an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		if o == nil {
			return
		}
		if existing, ok := p.observer.(Observers); ok {
			p.observer = append(existing, o)
			return
		}
		if _, nop := p.observer.(NopObserver); nop {
			p.observer = o
			return
		}
		p.observer = Observers{p.observer, o}
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// WithIngestTimeout fails a pass that has not reached End after d.
// Zero disables the timeout.
func WithIngestTimeout(d time.Duration) Option {
	return func(p *Processor) { p.timeout = d }
}

// New creates a processor in StateEmpty. emit is called synchronously on
// the driving goroutine for every response.
func New(parser ingest.Parser, emit EmitFunc, opts ...Option) *Processor {
	idx := index.New(index.NewRegistry())
	p := &Processor{
		parser:   parser,
		emit:     emit,
		index:    idx,
		pipeline: ingest.NewPipeline(idx),
		observer: NopObserver{},
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports the current readiness.
func (p *Processor) State() State { return p.state }

// Resources reports how many resources the index currently holds.
func (p *Processor) Resources() int { return p.index.Len() }

// Loading reports whether an ingestion pass is still open.
func (p *Processor) Loading() bool { return p.pass != nil }

// Execute handles one command. FETCH and unsupported kinds respond before
// Execute returns. INIT resets the index, starts a pass under ctx and
// responds later, from HandleEvent or the timeout.
func (p *Processor) Execute(ctx context.Context, cmd ld.Command) {
	p.observer.CommandReceived(cmd)

	switch cmd.Kind {
	case ld.KindInit:
		p.startPass(ctx, cmd)
	case ld.KindFetch:
		p.respond(p.fetch(cmd))
	default:
		p.respond(ld.Failed(cmd, ld.MsgUnsupported))
	}
}

func (p *Processor) fetch(cmd ld.Command) ld.Response {
	selector := ld.SelectAll
	if len(cmd.Arguments) > 0 {
		selector = cmd.Arguments[0]
	}

	switch selector {
	case ld.SelectAll:
		return ld.Succeeded(cmd, ld.ResourcesResult(p.index.All()), "")
	case ld.SelectTypes:
		return ld.Succeeded(cmd, ld.TypesResult(p.index.DistinctTypes()), "")
	case ld.SelectType:
		if len(cmd.Arguments) < 2 {
			return ld.Failed(cmd, ld.MsgMissingType)
		}
		return ld.Succeeded(cmd, ld.ResourcesResult(p.index.ByType(cmd.Arguments[1])), "")
	default:
		r, ok := p.index.ByID(selector)
		if !ok {
			return ld.Failed(cmd, ld.MsgNotFound)
		}
		return ld.Succeeded(cmd, ld.ResourceResult(r), "")
	}
}

func (p *Processor) startPass(ctx context.Context, cmd ld.Command) {
	if prev := p.pass; prev != nil {
		prev.stop()
		p.pass = nil
		p.log.Infow("INIT superseded", logger.FieldCommandID, prev.cmd.ID)
		p.respond(ld.Failed(prev.cmd, ld.MsgSuperseded))
	}

	p.pipeline.Begin()
	p.state = StateLoading

	passCtx, cancel := context.WithCancel(ctx)
	ps := &pass{cmd: cmd, cancel: cancel, started: time.Now()}
	if p.timeout > 0 {
		ps.timer = time.NewTimer(p.timeout)
	}
	p.pass = ps
	ps.events = p.parser.Import(passCtx, cmd.Arg(0)).Events()
}

// HandleEvent applies one event from the current pass's stream.
func (p *Processor) HandleEvent(ev ingest.Event) {
	ps := p.pass
	if ps == nil {
		return
	}
	if ev.Kind == ingest.EventError {
		p.observer.IngestError(ps.cmd, ev.Err)
	}
	if !p.pipeline.Apply(ev) {
		return
	}

	ps.stop()
	p.pass = nil
	p.state = StateReady
	p.observer.PassCompleted(ps.cmd, p.pipeline.Stats(), time.Since(ps.started))
	p.respond(ld.Succeeded(ps.cmd, nil, ld.MsgCompleted))
}

// streamClosed records that the current stream ended without End. The
// pass stays open in StateLoading and never responds unless a timeout is
// configured or a newer INIT supersedes it.
func (p *Processor) streamClosed() {
	ps := p.pass
	if ps == nil || ps.events == nil {
		return
	}
	ps.events = nil
	p.observer.PassStalled(ps.cmd, p.pipeline.Stats())
}

// expire fails the current pass after the ingest timeout. The index keeps
// whatever was applied and the state stays LOADING.
func (p *Processor) expire() {
	ps := p.pass
	if ps == nil {
		return
	}
	ps.stop()
	p.pass = nil
	p.log.Warnw("Ingestion timed out", logger.FieldCommandID, ps.cmd.ID, "timeout", p.timeout)
	p.respond(ld.Failed(ps.cmd, ld.MsgIngestTimedOut))
}

func (p *Processor) respond(resp ld.Response) {
	p.observer.ResponseEmitted(resp)
	if p.emit != nil {
		p.emit(resp)
	}
}

// Close cancels any open pass without responding to it.
func (p *Processor) Close() {
	if p.pass != nil {
		p.pass.stop()
		p.pass = nil
	}
}
