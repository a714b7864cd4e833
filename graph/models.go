package graph

import (
	"time"
)

// Graph is a force-layout friendly projection of the resource index
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Meta  Meta   `json:"meta"`
}

// Node is one indexed resource
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`            // rdf:type of the resource, or "untyped"
	TypeSource string                 `json:"-"`               // "typed" or "untyped"
	Label      string                 `json:"label"`           // Title when present, else the IRI's local name
	Visible    bool                   `json:"visible"`         // Server-controlled visibility
	Group      int                    `json:"group,omitempty"` // 1-based index into Meta.NodeTypes order
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Link is a NamedNode-valued attribute pointing at another indexed resource
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`  // Compacted predicate, e.g. "foaf:knows"
	Weight float64 `json:"value"` // D3 uses "value"
	Label  string  `json:"label,omitempty"`
}

// Meta describes the projection
type Meta struct {
	GeneratedAt       time.Time              `json:"generated_at"`
	Stats             Stats                  `json:"stats"`
	NodeTypes         []NodeTypeInfo         `json:"node_types"`
	RelationshipTypes []RelationshipTypeInfo `json:"relationship_types"`
}

type NodeTypeInfo struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
	Count int    `json:"count,omitempty"`
}

type RelationshipTypeInfo struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Count int    `json:"count,omitempty"`
}

// Stats provides graph statistics
type Stats struct {
	TotalNodes int `json:"total_nodes,omitempty"`
	TotalEdges int `json:"total_edges,omitempty"`
	Literals   int `json:"literals,omitempty"` // Literal attributes folded into node metadata
	Dangling   int `json:"dangling,omitempty"` // Node-valued attributes whose target is not indexed
}
