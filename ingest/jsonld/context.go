package jsonld

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ld"
)

// Prefixes returns the term→IRI entries of every @context in doc, in
// declaration order. Top-level nodes, @graph members and nested node
// objects are visited depth-first. Keyword keys and remote context
// references are skipped; numeric keys are returned and left to the
// registry to reject.
func Prefixes(doc []byte) ([]ld.Coercion, error) {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "empty JSON-LD document")
	}
	if !json.Valid(doc) {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "JSON-LD document is not valid JSON")
	}
	var out []ld.Coercion
	if err := walkNode(json.RawMessage(doc), &out); err != nil {
		return nil, errors.Wrap(err, "read @context")
	}
	return out, nil
}

func walkNode(raw json.RawMessage, out *[]ld.Coercion) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		for _, item := range items {
			if err := walkNode(item, out); err != nil {
				return err
			}
		}
	case '{':
		obj := orderedmap.New[string, json.RawMessage]()
		if err := obj.UnmarshalJSON(raw); err != nil {
			return err
		}
		if ctx, ok := obj.Get("@context"); ok {
			if err := walkContext(ctx, out); err != nil {
				return err
			}
		}
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == "@context" {
				continue
			}
			if err := walkNode(pair.Value, out); err != nil {
				return err
			}
		}
	default:
		if !json.Valid(raw) {
			return errors.Newf("invalid JSON value %.32q", raw)
		}
	}
	return nil
}

func walkContext(raw json.RawMessage, out *[]ld.Coercion) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		for _, item := range items {
			if err := walkContext(item, out); err != nil {
				return err
			}
		}
	case '{':
		defs := orderedmap.New[string, json.RawMessage]()
		if err := defs.UnmarshalJSON(raw); err != nil {
			return err
		}
		for pair := defs.Oldest(); pair != nil; pair = pair.Next() {
			if len(pair.Key) > 0 && pair.Key[0] == '@' {
				continue
			}
			if iri, ok := termIRI(pair.Value); ok {
				*out = append(*out, ld.Coercion{Prefix: pair.Key, Namespace: iri})
			}
		}
	}
	// Strings are remote context references and null resets the context;
	// neither declares a prefix.
	return nil
}

// termIRI extracts the IRI of a term definition: either a bare string or
// an expanded definition with @id.
func termIRI(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != "" && s[0] != '@'
	}
	var def struct {
		ID string `json:"@id"`
	}
	if err := json.Unmarshal(raw, &def); err == nil && def.ID != "" && def.ID[0] != '@' {
		return def.ID, true
	}
	return "", false
}
