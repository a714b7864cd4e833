package transport

import (
	"context"
	"sync"
)

const defaultPipeBuffer = 64

// Pipe is one end of an in-memory transport created by NewPipe. Frames are
// copied on Send so callers may reuse their buffers.
type Pipe struct {
	in     <-chan []byte
	out    chan<- []byte
	shared *pipeState
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

// NewPipe returns two connected ends. Closing either closes both. A
// non-positive buffer selects the default.
func NewPipe(buffer int) (*Pipe, *Pipe) {
	if buffer <= 0 {
		buffer = defaultPipeBuffer
	}
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	st := &pipeState{done: make(chan struct{})}
	return &Pipe{in: ba, out: ab, shared: st}, &Pipe{in: ab, out: ba, shared: st}
}

func (p *Pipe) Send(ctx context.Context, frame []byte) error {
	select {
	case <-p.shared.done:
		return closed("pipe closed")
	default:
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case p.out <- buf:
		return nil
	case <-p.shared.done:
		return closed("pipe closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-p.shared.done:
		return nil, closed("pipe closed")
	default:
	}
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.shared.done:
		return nil, closed("pipe closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pipe) Close() error {
	p.shared.once.Do(func() { close(p.shared.done) })
	return nil
}
