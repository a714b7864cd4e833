package channel

import (
	"context"

	"github.com/teranos/ldx/ld"
)

// Matcher selects the response an Await call is waiting for.
type Matcher func(ld.Response) bool

// ForCommand matches the response echoing cmd.
func ForCommand(cmd ld.Command) Matcher {
	return func(resp ld.Response) bool { return resp.Command.Same(cmd) }
}

// Await subscribes to ch, calls submit, and blocks until a response
// satisfying match arrives or ctx ends. Subscribing first means a reply
// produced during submit is never missed.
func Await(ctx context.Context, ch Channel, match Matcher, submit func() error) (ld.Response, error) {
	got := make(chan ld.Response, 1)
	unsubscribe := ch.Subscribe(func(resp ld.Response) {
		if !match(resp) {
			return
		}
		select {
		case got <- resp:
		default:
		}
	})
	defer unsubscribe()

	if submit != nil {
		if err := submit(); err != nil {
			// In-process Submit may have delivered the reply before
			// reporting a drain timeout.
			select {
			case resp := <-got:
				return resp, nil
			default:
				return ld.Response{}, err
			}
		}
	}

	select {
	case resp := <-got:
		return resp, nil
	case <-ctx.Done():
		return ld.Response{}, ctx.Err()
	}
}

// Request submits cmd and waits for its terminal response.
func Request(ctx context.Context, ch Channel, cmd ld.Command) (ld.Response, error) {
	return Await(ctx, ch, ForCommand(cmd), func() error { return ch.Submit(ctx, cmd) })
}
