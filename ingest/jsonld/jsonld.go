// Package jsonld is the JSON-LD parser used by the processor. Documents
// are converted to RDF with json-gold and streamed as cayleygraph/quad
// statements; prefix events are read from the document's @context objects
// in declaration order.
package jsonld

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	gold "github.com/piprate/json-gold/ld"
	"go.uber.org/zap"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ingest"
	"github.com/teranos/ldx/internal/httpclient"
	"github.com/teranos/ldx/ld"
)

const (
	defaultBuffer = 256
	defaultGraph  = "@default"
)

// Parser implements ingest.Parser for JSON-LD source text.
type Parser struct {
	log    *zap.SugaredLogger
	client *httpclient.Client
	buffer int
}

// Option configures a Parser.
type Option func(*Parser)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Parser) { p.log = log }
}

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.buffer = n
		}
	}
}

// WithHTTPClient sets the client used to resolve remote @context
// references. The default client refuses loopback and private addresses.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(p *Parser) {
		if c != nil {
			p.client = c
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{log: zap.NewNop().Sugar(), buffer: defaultBuffer}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = httpclient.New(httpclient.DefaultTimeout)
	}
	return p
}

// Import starts parsing source on its own goroutine. Prefix events are
// delivered first, then quads, then End. A document that cannot be read
// at all yields one error event and the stream closes without End.
func (p *Parser) Import(ctx context.Context, source string) ingest.Stream {
	ch := make(chan ingest.Event, p.buffer)
	go p.run(ctx, source, ch)
	return ingest.ChanStream(ch)
}

func (p *Parser) run(ctx context.Context, source string, ch chan<- ingest.Event) {
	defer close(ch)

	send := func(ev ingest.Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	prefixes, err := Prefixes([]byte(source))
	if err != nil {
		send(ingest.ErrorEvent(err))
		return
	}
	for _, c := range prefixes {
		if !send(ingest.PrefixEvent(c.Prefix, c.Namespace)) {
			return
		}
	}

	quads, err := p.toRDF(ctx, source)
	if err != nil {
		send(ingest.ErrorEvent(errors.Wrap(err, "expand JSON-LD document")))
		return
	}

	n := 0
	for _, q := range quads {
		lq, err := convertQuad(q)
		if err != nil {
			if !send(ingest.ErrorEvent(err)) {
				return
			}
			continue
		}
		if !send(ingest.QuadEvent(lq)) {
			return
		}
		n++
	}

	p.log.Debugw("Parsed JSON-LD document", "quads", n, "prefixes", len(prefixes))
	send(ingest.EndEvent())
}

// toRDF converts source to statements. The default graph comes first,
// then named graphs sorted by name. Within a graph, subjects follow their
// first appearance in the document; blank nodes follow in label order.
func (p *Parser) toRDF(ctx context.Context, source string) ([]quad.Quad, error) {
	doc, err := gold.DocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	opts := gold.NewJsonLdOptions("")
	opts.DocumentLoader = &contextLoader{ctx: ctx, client: p.client, log: p.log}

	expanded, err := gold.NewJsonLdProcessor().Expand(doc, opts)
	if err != nil {
		return nil, err
	}
	dataset, err := gold.NewJsonLdApi().ToRDF(expanded, opts)
	if err != nil {
		return nil, err
	}

	order := map[string]int{}
	rankSubjects(expanded, order)

	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		if name != defaultGraph {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = append([]string{defaultGraph}, names...)

	var quads []quad.Quad
	for _, name := range names {
		var label quad.Value
		if name != defaultGraph {
			label = nodeValue(graphNode(name))
		}
		statements := slices.Clone(dataset.Graphs[name])
		slices.SortStableFunc(statements, func(a, b *gold.Quad) int {
			return compareSubjects(order, a.Subject.GetValue(), b.Subject.GetValue())
		})
		for _, q := range statements {
			quads = append(quads, quad.Quad{
				Subject:   nodeValue(q.Subject),
				Predicate: nodeValue(q.Predicate),
				Object:    nodeValue(q.Object),
				Label:     label,
			})
		}
	}
	return quads, nil
}

// rankSubjects records the first appearance of every IRI @id in an
// expanded document. Object keys are visited in sorted order.
func rankSubjects(v interface{}, order map[string]int) {
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			rankSubjects(item, order)
		}
	case map[string]interface{}:
		if id, ok := t["@id"].(string); ok && !strings.HasPrefix(id, "_:") {
			if _, seen := order[id]; !seen {
				order[id] = len(order)
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			rankSubjects(t[k], order)
		}
	}
}

func compareSubjects(order map[string]int, a, b string) int {
	ra, okA := order[a]
	rb, okB := order[b]
	switch {
	case okA && okB:
		return cmp.Compare(ra, rb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return cmp.Or(cmp.Compare(blankIndex(a), blankIndex(b)), cmp.Compare(a, b))
}

// blankIndex is N for an issued label "_:bN" and -1 otherwise.
func blankIndex(label string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(label, "_:b"))
	if err != nil || !strings.HasPrefix(label, "_:b") {
		return -1
	}
	return n
}

func graphNode(name string) gold.Node {
	if strings.HasPrefix(name, "_:") {
		return gold.NewBlankNode(name)
	}
	return gold.NewIRI(name)
}

// nodeValue keeps literals lexical: typed values are not converted to
// native Go values.
func nodeValue(n gold.Node) quad.Value {
	switch t := n.(type) {
	case *gold.IRI:
		return quad.IRI(t.Value)
	case *gold.BlankNode:
		return quad.BNode(strings.TrimPrefix(t.Attribute, "_:"))
	case *gold.Literal:
		switch {
		case t.Language != "":
			return quad.LangString{Value: quad.String(t.Value), Lang: t.Language}
		case t.Datatype != "" && t.Datatype != gold.XSDString:
			return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
		default:
			return quad.String(t.Value)
		}
	default:
		return nil
	}
}

// contextLoader resolves remote @context references through the address
// policy of httpclient, bound to the pass context.
type contextLoader struct {
	ctx    context.Context
	client *httpclient.Client
	log    *zap.SugaredLogger
}

func (l *contextLoader) LoadDocument(u string) (*gold.RemoteDocument, error) {
	body, err := l.client.Fetch(l.ctx, u)
	if err != nil {
		l.log.Debugw("Remote context refused", "url", u, "error", err)
		return nil, gold.NewJsonLdError(gold.LoadingDocumentFailed, err)
	}
	doc, err := gold.DocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &gold.RemoteDocument{DocumentURL: u, Document: doc}, nil
}

func convertQuad(q quad.Quad) (ld.Quad, error) {
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return ld.Quad{}, errors.Newf("incomplete statement %v", q)
	}
	subject := convertTerm(q.Subject)
	predicate := convertTerm(q.Predicate)
	if predicate.Kind != ld.NamedNode {
		return ld.Quad{}, errors.Newf("predicate %s is not an IRI", q.Predicate)
	}
	return ld.Quad{
		Subject:   subject.Value,
		Predicate: predicate.Value,
		Object:    convertTerm(q.Object),
	}, nil
}

func convertTerm(v quad.Value) ld.Term {
	switch t := v.(type) {
	case quad.IRI:
		return ld.Term{Value: string(t), Kind: ld.NamedNode}
	case quad.BNode:
		return ld.Term{Value: "_:" + string(t), Kind: ld.BlankNode}
	case quad.String:
		return ld.Term{Value: string(t), Kind: ld.Literal}
	case quad.TypedString:
		return ld.Term{Value: string(t.Value), Kind: ld.Literal}
	case quad.LangString:
		return ld.Term{Value: string(t.Value), Kind: ld.Literal}
	default:
		return ld.Term{Value: v.String(), Kind: ld.Literal}
	}
}
