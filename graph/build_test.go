package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/ld"
)

const (
	foaf    = "http://xmlns.com/foaf/0.1/"
	knows   = foaf + "knows"
	name    = foaf + "name"
	person  = foaf + "Person"
	project = "http://example.org/Project"
)

func attr(key, label, value string, kind ld.TermKind) ld.Attribute {
	return ld.Attribute{Key: key, Label: label, Value: value, Type: kind}
}

func people() []ld.Resource {
	return []ld.Resource{
		{
			ID:    "http://example.org/bob",
			Type:  person,
			Title: "Bob",
			Attributes: []ld.Attribute{
				attr(ld.RDFType, "rdf:type", person, ld.NamedNode),
				attr(ld.DCTitle, "dc:title", "Bob", ld.Literal),
				attr(knows, "foaf:knows", "http://example.org/alice", ld.NamedNode),
				attr(knows, "foaf:knows", "http://example.org/alice", ld.NamedNode),
				attr(knows, "foaf:knows", "http://elsewhere.org/carol", ld.NamedNode),
				attr(name, "foaf:name", "Robert", ld.Literal),
				attr(name, "foaf:name", "Bobby", ld.Literal),
			},
		},
		{
			ID:   "http://example.org/alice",
			Type: person,
			Attributes: []ld.Attribute{
				attr(ld.RDFType, "rdf:type", person, ld.NamedNode),
				attr(knows, "foaf:knows", "http://example.org/bob", ld.NamedNode),
			},
		},
		{
			ID:   "http://example.org/ldx",
			Type: project,
			Attributes: []ld.Attribute{
				attr(ld.RDFType, "rdf:type", project, ld.NamedNode),
				attr("http://example.org/maintainer", "http://example.org/maintainer", "_:b0", ld.BlankNode),
			},
		},
		{ID: "_:b0", Attributes: []ld.Attribute{}},
	}
}

func TestBuild_Empty(t *testing.T) {
	g := Build(nil)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Links)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Links)
	assert.Zero(t, g.Meta.Stats.TotalNodes)
	assert.Empty(t, g.Meta.NodeTypes)
}

func TestBuild_Nodes(t *testing.T) {
	g := Build(people())
	require.Len(t, g.Nodes, 4)

	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"_:b0", "http://example.org/alice", "http://example.org/bob", "http://example.org/ldx"}, ids)

	blank, alice, bob, ldx := g.Nodes[0], g.Nodes[1], g.Nodes[2], g.Nodes[3]
	assert.Equal(t, "Bob", bob.Label, "title wins")
	assert.Equal(t, "alice", alice.Label, "local name fallback")
	assert.Equal(t, "_:b0", blank.Label)
	assert.Equal(t, untypedType, blank.Type)
	assert.Equal(t, person, bob.Type)
	assert.True(t, bob.Visible)

	assert.Equal(t, []string{"Robert", "Bobby"}, bob.Metadata["foaf:name"])
	assert.NotContains(t, bob.Metadata, "dc:title")
	assert.Nil(t, ldx.Metadata)
}

func TestBuild_LinksOnlyIndexedNamedNodes(t *testing.T) {
	g := Build(people())

	require.Len(t, g.Links, 2)
	assert.Equal(t, Link{
		Source: "http://example.org/alice",
		Target: "http://example.org/bob",
		Type:   "foaf:knows",
		Weight: defaultLinkWeight,
		Label:  "foaf:knows",
	}, g.Links[0])
	assert.Equal(t, "http://example.org/bob", g.Links[1].Source)
	assert.Equal(t, "http://example.org/alice", g.Links[1].Target)
	assert.Equal(t, defaultLinkWeight+linkWeightIncrement, g.Links[1].Weight, "repeated relationship")

	assert.Equal(t, 1, g.Meta.Stats.Dangling, "carol is not indexed")
	assert.Equal(t, 2, g.Meta.Stats.Literals)
	assert.Equal(t, 2, g.Meta.Stats.TotalEdges)
}

func TestBuild_Meta(t *testing.T) {
	g := Build(people())

	require.Len(t, g.Meta.NodeTypes, 3)
	assert.Equal(t, person, g.Meta.NodeTypes[0].Type)
	assert.Equal(t, "Person", g.Meta.NodeTypes[0].Label)
	assert.Equal(t, 2, g.Meta.NodeTypes[0].Count)
	assert.Equal(t, project, g.Meta.NodeTypes[1].Type)
	assert.Equal(t, untypedType, g.Meta.NodeTypes[2].Type)
	assert.Equal(t, defaultUntypedColor, g.Meta.NodeTypes[2].Color)

	for _, n := range g.Nodes {
		switch n.Type {
		case person:
			assert.Equal(t, 1, n.Group)
		case untypedType:
			assert.Equal(t, 3, n.Group)
		}
	}

	require.Len(t, g.Meta.RelationshipTypes, 1)
	assert.Equal(t, RelationshipTypeInfo{Type: "foaf:knows", Label: "foaf:knows", Count: 2}, g.Meta.RelationshipTypes[0])
}

func TestLocalName(t *testing.T) {
	tests := map[string]string{
		"http://example.org/alice":   "alice",
		"http://example.org/ns#Term": "Term",
		"urn:isbn:123":               "123",
		"http://example.org/":        "http://example.org/",
		"_:b0":                       "_:b0",
		"plain":                      "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, localName(in), in)
	}
}
