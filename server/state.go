package server

import (
	"sync"

	"github.com/teranos/ldx/ld"
	"github.com/teranos/ldx/processor"
)

// stateTracker follows processor readiness from the commands the server
// submits and the responses it broadcasts. It works for every channel
// strategy, including workers whose processor lives elsewhere.
type stateTracker struct {
	mu       sync.RWMutex
	state    processor.State
	lastInit *ld.Command
}

func newStateTracker() *stateTracker {
	return &stateTracker{state: processor.StateEmpty}
}

func (t *stateTracker) initSubmitted(cmd ld.Command) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = processor.StateLoading
	t.lastInit = &cmd
}

// observe marks the index ready when the latest INIT succeeds. Superseded
// and timed-out passes leave the state as it is.
func (t *stateTracker) observe(resp ld.Response) {
	if resp.Command.Kind != ld.KindInit || !resp.Success {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastInit == nil || t.lastInit.Same(resp.Command) {
		t.state = processor.StateReady
	}
}

func (t *stateTracker) current() processor.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
