package channel

import (
	"sync"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

// StallWatch is an observer that turns a stream closing without End into
// an error for whoever is waiting on that INIT. The processor itself stays
// LOADING; only the waiter is released. Attach it with WithObserver on a
// channel whose processor runs in this process.
type StallWatch struct {
	processor.NopObserver

	mu      sync.Mutex
	waiting map[string]*stallWait
}

type stallWait struct {
	ch    chan error
	cause error
}

func NewStallWatch() *StallWatch {
	return &StallWatch{waiting: map[string]*stallWait{}}
}

// Watch returns a channel that receives one error if cmd's pass stalls.
func (w *StallWatch) Watch(cmd ld.Command) <-chan error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sw := &stallWait{ch: make(chan error, 1)}
	w.waiting[cmd.ID] = sw
	return sw.ch
}

// Forget stops watching cmd.
func (w *StallWatch) Forget(cmd ld.Command) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.waiting, cmd.ID)
}

func (w *StallWatch) IngestError(cmd ld.Command, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sw := w.waiting[cmd.ID]; sw != nil && sw.cause == nil {
		sw.cause = err
	}
}

func (w *StallWatch) PassStalled(cmd ld.Command, stats ingest.Stats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sw := w.waiting[cmd.ID]
	if sw == nil {
		return
	}
	err := errors.Wrapf(errors.ErrInvalidRequest,
		"document ended before ingestion completed (%d quads, %d errors)", stats.Quads, stats.Errors)
	if sw.cause != nil {
		err = errors.Wrapf(err, "%v", sw.cause)
	}
	err = errors.WithHint(err, "check that the document is complete, valid JSON-LD")
	select {
	case sw.ch <- err:
	default:
	}
}
