// Package graph projects indexed resources onto nodes and links for
// force-directed visualization.
package graph

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/teranos/ldx/ld"
)

// Build converts resources into a graph. Every resource becomes a node.
// NamedNode attributes whose target is itself one of the resources become
// links, with weight accumulating for repeated relationships. Literal
// attributes land in node metadata under their compacted label. rdf:type
// and dc:title are carried by the node itself and produce neither.
func Build(resources []ld.Resource) *Graph {
	g := &Graph{
		Nodes: []Node{},
		Links: []Link{},
		Meta:  Meta{GeneratedAt: time.Now()},
	}

	indexed := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		indexed[r.ID] = struct{}{}
	}

	nodeMap := make(map[string]*Node, len(resources))
	linkMap := make(map[linkKey]*Link)

	for _, r := range resources {
		node, exists := nodeMap[r.ID]
		if !exists {
			node = newNode(r)
			nodeMap[r.ID] = node
		}

		for _, attr := range r.Attributes {
			if attr.Key == ld.RDFType || attr.Key == ld.DCTitle {
				continue
			}
			switch attr.Type {
			case ld.Literal:
				addMetadata(node, attr.Label, attr.Value)
				g.Meta.Stats.Literals++
			case ld.NamedNode:
				if _, ok := indexed[attr.Value]; !ok {
					g.Meta.Stats.Dangling++
					continue
				}
				key := linkKey{source: r.ID, predicate: attr.Key, target: attr.Value}
				if link, ok := linkMap[key]; ok {
					link.Weight += linkWeightIncrement
					continue
				}
				linkMap[key] = &Link{
					Source: r.ID,
					Target: attr.Value,
					Type:   attr.Label,
					Weight: defaultLinkWeight,
					Label:  attr.Label,
				}
			}
		}
	}

	for _, id := range sortedKeys(nodeMap, strings.Compare) {
		g.Nodes = append(g.Nodes, *nodeMap[id])
	}
	for _, key := range sortedKeys(linkMap, linkKey.compare) {
		g.Links = append(g.Links, *linkMap[key])
	}

	g.Meta.Stats.TotalNodes = len(g.Nodes)
	g.Meta.Stats.TotalEdges = len(g.Links)
	g.Meta.NodeTypes = collectNodeTypeInfo(g.Nodes)
	assignGroups(g.Nodes, g.Meta.NodeTypes)
	g.Meta.RelationshipTypes = collectRelationshipTypeInfo(g.Links)

	return g
}

type linkKey struct {
	source, predicate, target string
}

func (k linkKey) compare(o linkKey) int {
	return cmp.Or(
		strings.Compare(k.source, o.source),
		strings.Compare(k.predicate, o.predicate),
		strings.Compare(k.target, o.target),
	)
}

func sortedKeys[K comparable, V any](m map[K]V, compare func(a, b K) int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

func newNode(r ld.Resource) *Node {
	node := &Node{
		ID:         r.ID,
		Type:       r.Type,
		TypeSource: "typed",
		Label:      r.Title,
		Visible:    true,
	}
	if node.Type == "" {
		node.Type = untypedType
		node.TypeSource = untypedType
	}
	if node.Label == "" {
		node.Label = localName(r.ID)
	}
	return node
}

// addMetadata stores value under key. A repeated key collects its values
// in document order.
func addMetadata(node *Node, key, value string) {
	if node.Metadata == nil {
		node.Metadata = make(map[string]interface{})
	}
	switch existing := node.Metadata[key].(type) {
	case nil:
		node.Metadata[key] = value
	case string:
		node.Metadata[key] = []string{existing, value}
	case []string:
		node.Metadata[key] = append(existing, value)
	}
}

// localName returns the part of an IRI after its last '#', '/' or ':'.
// Blank node labels and IRIs ending in a separator come back unchanged.
func localName(id string) string {
	if strings.HasPrefix(id, "_:") {
		return id
	}
	i := strings.LastIndexAny(id, "#/:")
	if i < 0 || i == len(id)-1 {
		return id
	}
	return id[i+1:]
}

// collectNodeTypeInfo lists node types by count, most common first, with
// ties broken by name. Untyped nodes are listed last whatever their count.
func collectNodeTypeInfo(nodes []Node) []NodeTypeInfo {
	typeCounts := make(map[string]int)
	for _, node := range nodes {
		typeCounts[node.Type]++
	}

	nodeTypes := make([]NodeTypeInfo, 0, len(typeCounts))
	for nodeType, count := range typeCounts {
		nodeTypes = append(nodeTypes, NodeTypeInfo{Type: nodeType, Label: localName(nodeType), Count: count})
	}
	slices.SortFunc(nodeTypes, func(a, b NodeTypeInfo) int {
		if (a.Type == untypedType) != (b.Type == untypedType) {
			if a.Type == untypedType {
				return 1
			}
			return -1
		}
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Type, b.Type))
	})

	for i := range nodeTypes {
		if nodeTypes[i].Type == untypedType {
			nodeTypes[i].Label = defaultUntypedLabel
			nodeTypes[i].Color = defaultUntypedColor
			continue
		}
		nodeTypes[i].Color = typePalette[i%len(typePalette)]
	}
	return nodeTypes
}

func assignGroups(nodes []Node, nodeTypes []NodeTypeInfo) {
	group := make(map[string]int, len(nodeTypes))
	for i, info := range nodeTypes {
		group[info.Type] = i + 1
	}
	for i := range nodes {
		nodes[i].Group = group[nodes[i].Type]
	}
}

func collectRelationshipTypeInfo(links []Link) []RelationshipTypeInfo {
	typeCounts := make(map[string]int)
	for _, link := range links {
		typeCounts[link.Type]++
	}

	relationshipTypes := make([]RelationshipTypeInfo, 0, len(typeCounts))
	for linkType, count := range typeCounts {
		relationshipTypes = append(relationshipTypes, RelationshipTypeInfo{Type: linkType, Label: linkType, Count: count})
	}
	slices.SortFunc(relationshipTypes, func(a, b RelationshipTypeInfo) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Type, b.Type))
	})
	return relationshipTypes
}
