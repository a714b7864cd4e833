// Package ingest defines the quad source contract consumed by the processor
// and the pipeline that applies a source's events to an index.
package ingest

import (
	"context"
	"fmt"

	"github.com/teranos/ldx/ld"
)

// EventKind enumerates the four events a Stream delivers.
type EventKind int

const (
	EventQuad EventKind = iota
	EventPrefix
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventQuad:
		return "quad"
	case EventPrefix:
		return "prefix"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item from a Stream. Only the fields for Kind are set.
type Event struct {
	Kind      EventKind
	Quad      ld.Quad
	Prefix    string
	Namespace string
	Err       error
}

func QuadEvent(q ld.Quad) Event { return Event{Kind: EventQuad, Quad: q} }

func PrefixEvent(prefix, namespace string) Event {
	return Event{Kind: EventPrefix, Prefix: prefix, Namespace: namespace}
}

func ErrorEvent(err error) Event { return Event{Kind: EventError, Err: err} }

func EndEvent() Event { return Event{Kind: EventEnd} }

// Stream is a single-pass sequence of events. The channel is closed by the
// producer after the last event. Error events are not terminal; a source
// may emit more quads and an End after one. A channel closed without End is
// a stalled pass.
type Stream interface {
	Events() <-chan Event
}

// Parser turns source text into a Stream. Producers must stop and close
// the channel when ctx is cancelled.
type Parser interface {
	Import(ctx context.Context, source string) Stream
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, source string) Stream

func (f ParserFunc) Import(ctx context.Context, source string) Stream { return f(ctx, source) }

// ChanStream wraps a channel as a Stream.
type ChanStream <-chan Event

func (c ChanStream) Events() <-chan Event { return c }
