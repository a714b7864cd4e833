package index

import "github.com/teranos/ldx/ld"

// Index maps subject ids to resources, preserving first-insertion order.
type Index struct {
	registry *Registry
	order    []*ld.Resource
	byID     map[string]*ld.Resource
}

// New returns an empty index that compacts attribute labels with registry.
func New(registry *Registry) *Index {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Index{
		registry: registry,
		byID:     make(map[string]*ld.Resource),
	}
}

// Registry returns the registry used for label compaction.
func (x *Index) Registry() *Registry { return x.registry }

// Upsert returns the resource for id, creating an empty one if absent.
// The returned pointer is owned by the index; pass it to ApplyAttribute
// rather than mutating it directly.
func (x *Index) Upsert(id string) *ld.Resource {
	if r, ok := x.byID[id]; ok {
		return r
	}
	r := &ld.Resource{ID: id, Attributes: []ld.Attribute{}}
	x.byID[id] = r
	x.order = append(x.order, r)
	return r
}

// ApplyAttribute appends an attribute to r and updates Type or Title when
// predicate is one of the reserved predicates. The attribute is appended in
// either case.
func (x *Index) ApplyAttribute(r *ld.Resource, predicate, value string, kind ld.TermKind) {
	r.Attributes = append(r.Attributes, ld.Attribute{
		Key:   predicate,
		Label: x.registry.Compact(predicate),
		Value: value,
		Type:  kind,
	})
	switch predicate {
	case ld.RDFType:
		r.Type = value
	case ld.DCTitle:
		r.Title = value
	}
}

// Apply upserts q.Subject and records q as one of its attributes.
func (x *Index) Apply(q ld.Quad) *ld.Resource {
	r := x.Upsert(q.Subject)
	x.ApplyAttribute(r, q.Predicate, q.Object.Value, q.Object.Kind)
	return r
}

// Reset discards every resource. The registry is left alone.
func (x *Index) Reset() {
	x.order = nil
	x.byID = make(map[string]*ld.Resource)
}

func (x *Index) Len() int { return len(x.order) }

// All returns copies of every resource in insertion order.
func (x *Index) All() []ld.Resource {
	out := make([]ld.Resource, 0, len(x.order))
	for _, r := range x.order {
		out = append(out, r.Clone())
	}
	return out
}

// ByID returns a copy of the resource with the given id.
func (x *Index) ByID(id string) (ld.Resource, bool) {
	r, ok := x.byID[id]
	if !ok {
		return ld.Resource{}, false
	}
	return r.Clone(), true
}

// ByType returns copies of resources whose Type equals t, in insertion order.
// Untyped resources never match, so ByType("") is empty.
func (x *Index) ByType(t string) []ld.Resource {
	out := []ld.Resource{}
	if t == "" {
		return out
	}
	for _, r := range x.order {
		if r.Type == t {
			out = append(out, r.Clone())
		}
	}
	return out
}

// DistinctTypes returns the non-empty types in first-seen order.
func (x *Index) DistinctTypes() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range x.order {
		if r.Type == "" {
			continue
		}
		if _, dup := seen[r.Type]; dup {
			continue
		}
		seen[r.Type] = struct{}{}
		out = append(out, r.Type)
	}
	return out
}
