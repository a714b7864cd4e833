// Package ld holds the data model shared by the index, the processor and
// every transport: quads, resources, commands and responses.
package ld

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/teranos/ldx/errors"
)

// TermKind distinguishes literal objects from resource references.
// Values follow the RDF/JS termType names.
type TermKind string

const (
	NamedNode TermKind = "NamedNode"
	BlankNode TermKind = "BlankNode"
	Literal   TermKind = "Literal"
)

// Term is the object position of a quad.
type Term struct {
	Value string   `json:"value"`
	Kind  TermKind `json:"termType"`
}

// Quad is one subject–predicate–object statement produced by a parser.
// The graph label is not modelled.
type Quad struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Term   `json:"object"`
}

// Coercion is a prefix→namespace mapping observed during ingestion.
type Coercion struct {
	Prefix    string `json:"prefix"`
	Namespace string `json:"namespace"`
}

// Attribute records one predicate/object pair attached to a Resource.
type Attribute struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Value string   `json:"value"`
	Type  TermKind `json:"type"`
}

// Resource is the indexed entity for one subject.
// Type and Title are empty until an rdf:type or dc:title quad arrives.
type Resource struct {
	ID         string      `json:"id"`
	Type       string      `json:"type,omitempty"`
	Title      string      `json:"title,omitempty"`
	Attributes []Attribute `json:"attributes"`
}

// Clone returns a deep copy. Attributes is never nil in the copy.
func (r *Resource) Clone() Resource {
	out := *r
	out.Attributes = make([]Attribute, len(r.Attributes))
	copy(out.Attributes, r.Attributes)
	return out
}

// CommandKind selects the processor operation.
type CommandKind int

const (
	KindInit  CommandKind = 0
	KindFetch CommandKind = 1
)

func (k CommandKind) String() string {
	switch k {
	case KindInit:
		return "INIT"
	case KindFetch:
		return "FETCH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// Command is a request to the processor. ID is an optional correlation
// token echoed verbatim in the Response.
type Command struct {
	ID        string      `json:"id,omitempty"`
	Kind      CommandKind `json:"kind"`
	Arguments []string    `json:"arguments"`
}

// NewCommand builds a command with a fresh correlation id.
func NewCommand(kind CommandKind, args ...string) Command {
	if args == nil {
		args = []string{}
	}
	return Command{ID: uuid.NewString(), Kind: kind, Arguments: args}
}

// Init builds an INIT command carrying the JSON-LD source text.
func Init(source string) Command {
	return NewCommand(KindInit, source)
}

// Fetch builds a FETCH command; with no arguments the processor answers "all".
func Fetch(args ...string) Command {
	return NewCommand(KindFetch, args...)
}

// Arg returns argument i, or "" when absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Arguments) {
		return ""
	}
	return c.Arguments[i]
}

// Same reports whether o echoes c: same kind, arguments and id.
func (c Command) Same(o Command) bool {
	return c.ID == o.ID && c.Kind == o.Kind && slices.Equal(c.Arguments, o.Arguments)
}

// Summary is a loggable description that never includes the full INIT source.
func (c Command) Summary() string {
	if c.Kind == KindInit {
		return fmt.Sprintf("INIT (%d bytes)", len(c.Arg(0)))
	}
	return fmt.Sprintf("%s %v", c.Kind, c.Arguments)
}

// Response is the processor's reply to exactly one Command.
type Response struct {
	Command Command `json:"command"`
	Success bool    `json:"success"`
	Result  *Result `json:"result,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Succeeded builds a success response.
func Succeeded(cmd Command, result *Result, message string) Response {
	return Response{Command: cmd, Success: true, Result: result, Message: message}
}

// Failed builds a failure response carrying a human-readable reason.
func Failed(cmd Command, message string) Response {
	return Response{Command: cmd, Success: false, Message: message}
}

// ResultKind tags which member of Result is populated.
type ResultKind string

const (
	ResultResource  ResultKind = "resource"
	ResultResources ResultKind = "resources"
	ResultTypes     ResultKind = "types"
)

// Result is the payload of a successful FETCH.
type Result struct {
	Kind      ResultKind
	Resource  *Resource
	Resources []Resource
	Types     []string
}

func ResourceResult(r Resource) *Result {
	return &Result{Kind: ResultResource, Resource: &r}
}

func ResourcesResult(rs []Resource) *Result {
	if rs == nil {
		rs = []Resource{}
	}
	return &Result{Kind: ResultResources, Resources: rs}
}

func TypesResult(ts []string) *Result {
	if ts == nil {
		ts = []string{}
	}
	return &Result{Kind: ResultTypes, Types: ts}
}

type resultWire struct {
	Kind      ResultKind  `json:"kind"`
	Resource  *Resource   `json:"resource,omitempty"`
	Resources *[]Resource `json:"resources,omitempty"`
	Types     *[]string   `json:"types,omitempty"`
}

// MarshalJSON writes only the member named by Kind, always as a
// non-null value so empty sequences survive a round trip.
func (r Result) MarshalJSON() ([]byte, error) {
	w := resultWire{Kind: r.Kind}
	switch r.Kind {
	case ResultResource:
		if r.Resource == nil {
			return nil, errors.Newf("result kind %q without resource", r.Kind)
		}
		w.Resource = r.Resource
	case ResultResources:
		rs := r.Resources
		if rs == nil {
			rs = []Resource{}
		}
		w.Resources = &rs
	case ResultTypes:
		ts := r.Types
		if ts == nil {
			ts = []string{}
		}
		w.Types = &ts
	default:
		return nil, errors.Newf("unknown result kind %q", r.Kind)
	}
	return json.Marshal(w)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{Kind: w.Kind}
	switch w.Kind {
	case ResultResource:
		if w.Resource == nil {
			return errors.Newf("result kind %q without resource", w.Kind)
		}
		res := *w.Resource
		if res.Attributes == nil {
			res.Attributes = []Attribute{}
		}
		r.Resource = &res
	case ResultResources:
		r.Resources = []Resource{}
		if w.Resources != nil {
			r.Resources = *w.Resources
		}
		for i := range r.Resources {
			if r.Resources[i].Attributes == nil {
				r.Resources[i].Attributes = []Attribute{}
			}
		}
	case ResultTypes:
		r.Types = []string{}
		if w.Types != nil && *w.Types != nil {
			r.Types = *w.Types
		}
	default:
		return errors.Newf("unknown result kind %q", w.Kind)
	}
	return nil
}
