// Package index holds the in-memory state built by ingestion: the namespace
// registry used for label compaction and the resource index itself.
//
// Neither type is safe for concurrent use. Both are owned by a single
// processor goroutine.
package index

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/teranos/ldx/ld"
)

// Registry accumulates prefix→namespace coercions for one ingestion pass.
type Registry struct {
	coercions []ld.Coercion
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a coercion unless prefix looks numeric. Parsers emit
// numeric synthetic prefixes for anonymous context entries; those never
// make useful labels.
func (r *Registry) Register(prefix, namespace string) bool {
	if looksNumeric(prefix) {
		return false
	}
	r.coercions = append(r.coercions, ld.Coercion{Prefix: prefix, Namespace: namespace})
	return true
}

// Compact rewrites predicate as "prefix:local" using the first registered
// coercion whose namespace is a prefix of it. Matching is first-match in
// registration order, not longest-match: when two namespaces share a stem
// the earlier registration wins. Unmatched predicates are returned as-is.
func (r *Registry) Compact(predicate string) string {
	for _, c := range r.coercions {
		if c.Namespace != "" && strings.HasPrefix(predicate, c.Namespace) {
			return c.Prefix + ":" + predicate[len(c.Namespace):]
		}
	}
	return predicate
}

// Coercions returns a copy of the registered coercions in registration order.
func (r *Registry) Coercions() []ld.Coercion {
	out := make([]ld.Coercion, len(r.coercions))
	copy(out, r.coercions)
	return out
}

func (r *Registry) Len() int { return len(r.coercions) }

func (r *Registry) Reset() { r.coercions = nil }

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// looksNumeric mirrors a JavaScript isNaN check: blank strings and anything
// Number() would accept count as numeric. That is decimal literals,
// [+-]Infinity and unsigned 0x/0o/0b integers; digit separators and hex
// float exponents are not numbers there.
func looksNumeric(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	if u := strings.TrimPrefix(strings.TrimPrefix(t, "-"), "+"); u == "Infinity" && len(t)-len(u) <= 1 {
		return true
	}
	if len(t) > 2 && t[0] == '0' {
		base := 0
		switch t[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			return validDigits(t[2:], base)
		}
	}
	return decimalLiteral.MatchString(t)
}

func validDigits(s string, base int) bool {
	for _, r := range s {
		d, err := strconv.ParseUint(string(r), base, 8)
		if err != nil || int(d) >= base {
			return false
		}
	}
	return s != ""
}
