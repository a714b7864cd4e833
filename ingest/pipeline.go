package ingest

import (
	"github.com/teranos/ldx/index"
)

// Stats counts what one pass applied.
type Stats struct {
	Quads     int `json:"quads"`
	Prefixes  int `json:"prefixes"`
	Ignored   int `json:"ignored_prefixes"`
	Errors    int `json:"errors"`
	Resources int `json:"resources"`
}

// Pipeline applies stream events to an index and its registry. It buffers
// nothing: each event is visible to readers of the index as soon as Apply
// returns.
type Pipeline struct {
	index    *index.Index
	registry *index.Registry
	stats    Stats
}

func NewPipeline(idx *index.Index) *Pipeline {
	return &Pipeline{index: idx, registry: idx.Registry()}
}

// Begin starts a new pass: resources and coercions from any earlier pass
// are discarded and the counters are zeroed.
func (p *Pipeline) Begin() {
	p.index.Reset()
	p.registry.Reset()
	p.stats = Stats{}
}

// Apply routes ev into the index or registry. It reports true for End.
// Error events are counted and otherwise ignored.
func (p *Pipeline) Apply(ev Event) bool {
	switch ev.Kind {
	case EventQuad:
		p.index.Apply(ev.Quad)
		p.stats.Quads++
	case EventPrefix:
		if p.registry.Register(ev.Prefix, ev.Namespace) {
			p.stats.Prefixes++
		} else {
			p.stats.Ignored++
		}
	case EventError:
		p.stats.Errors++
	case EventEnd:
		return true
	}
	return false
}

// Stats returns the counters for the current pass.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.Resources = p.index.Len()
	return s
}
