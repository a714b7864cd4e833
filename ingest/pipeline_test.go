package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/index"
	"github.com/teranos/ldx/ld"
)

func quad(s, p, o string, kind ld.TermKind) Event {
	return QuadEvent(ld.Quad{Subject: s, Predicate: p, Object: ld.Term{Value: o, Kind: kind}})
}

// applyAll begins a pass and applies events until End, reporting whether
// End was reached.
func applyAll(p *Pipeline, events ...Event) bool {
	p.Begin()
	for _, ev := range events {
		if p.Apply(ev) {
			return true
		}
	}
	return false
}

func TestPipeline_ApplyToEnd(t *testing.T) {
	idx := index.New(nil)
	p := NewPipeline(idx)

	ended := applyAll(p,
		PrefixEvent("foobar", "http://purl.org/dc/terms/"),
		PrefixEvent("0", "http://ignored.example/"),
		quad("foo", ld.RDFType, "bar", ld.NamedNode),
		ErrorEvent(errors.New("bad literal")),
		quad("foo", ld.DCTitle, "Foo Bar", ld.Literal),
		EndEvent(),
	)

	require.True(t, ended)
	assert.Equal(t, Stats{Quads: 2, Prefixes: 1, Ignored: 1, Errors: 1, Resources: 1}, p.Stats())

	foo, ok := idx.ByID("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", foo.Type)
	assert.Equal(t, "Foo Bar", foo.Title)
	assert.Equal(t, "foobar:title", foo.Attributes[1].Label)
}

func TestPipeline_BeginDiscardsPreviousPass(t *testing.T) {
	idx := index.New(nil)
	p := NewPipeline(idx)

	require.True(t, applyAll(p,
		PrefixEvent("dc", "http://purl.org/dc/terms/"),
		quad("first", ld.DCTitle, "one", ld.Literal),
		EndEvent(),
	))
	require.True(t, applyAll(p,
		quad("second", ld.DCTitle, "two", ld.Literal),
		EndEvent(),
	))

	all := idx.All()
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].ID)
	assert.Equal(t, ld.DCTitle, all[0].Attributes[0].Label, "registry from the first pass is gone")
	assert.Equal(t, Stats{Quads: 1, Resources: 1}, p.Stats())
}

func TestPipeline_NoEndKeepsPartialIndex(t *testing.T) {
	idx := index.New(nil)
	p := NewPipeline(idx)

	assert.False(t, applyAll(p, quad("a", "p", "v", ld.Literal), ErrorEvent(errors.New("unexpected EOF"))))
	assert.Equal(t, 1, p.Stats().Quads)
	assert.Equal(t, 1, p.Stats().Errors)
	assert.Equal(t, 1, idx.Len())
}

func TestPipeline_AppliesEventsAsReceived(t *testing.T) {
	idx := index.New(nil)
	p := NewPipeline(idx)
	p.Begin()

	assert.False(t, p.Apply(quad("a", "p", "1", ld.Literal)))
	assert.Equal(t, 1, idx.Len(), "visible before end")
	assert.True(t, p.Apply(EndEvent()))
}

func TestScripted_UnknownSource(t *testing.T) {
	parser := Scripted{"known": {EndEvent()}}
	var kinds []EventKind
	for ev := range parser.Import(context.Background(), "unknown").Events() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventError, EventEnd}, kinds)
}

func TestManual_HandsOutStreams(t *testing.T) {
	m := NewManual()
	stream := m.Import(context.Background(), "doc")
	imp := <-m.Imports
	assert.Equal(t, "doc", imp.Source)

	require.True(t, imp.Push(EndEvent()))
	imp.Close()
	assert.False(t, imp.Push(EndEvent()))

	ev, ok := <-stream.Events()
	require.True(t, ok)
	assert.Equal(t, EventEnd, ev.Kind)
	_, ok = <-stream.Events()
	assert.False(t, ok)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "prefix", EventPrefix.String())
	assert.Equal(t, "event(9)", EventKind(9).String())
}
