package workflow

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMalformedDocument is returned when a document lacks its node or edge
// collections.
var ErrMalformedDocument = errors.New("malformed workflow document")

// Document is the serialized form of a workflow graph.
type Document struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Nodes     []Node     `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	Variables []Variable `json:"variables"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

type rawDocument struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Nodes     *[]Node    `json:"nodes"`
	Edges     *[]Edge    `json:"edges"`
	Variables []Variable `json:"variables"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

// DecodeDocument parses a serialized document. The nodes and edges arrays are
// required; id, name and variables may be absent.
func DecodeDocument(data []byte) (Document, error) {
	var raw rawDocument
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if raw.Nodes == nil || raw.Edges == nil {
		return Document{}, fmt.Errorf("%w: nodes and edges are required", ErrMalformedDocument)
	}
	for i, v := range raw.Variables {
		if v.Name == "" {
			return Document{}, fmt.Errorf("%w: variable %d has no name", ErrMalformedDocument, i)
		}
		if v.Scope == "" {
			raw.Variables[i].Scope = ScopeGlobal
		}
		if v.Type == "" {
			raw.Variables[i].Type = InferType(v.Value)
		}
	}
	return Document{
		ID:        raw.ID,
		Name:      raw.Name,
		Nodes:     *raw.Nodes,
		Edges:     *raw.Edges,
		Variables: raw.Variables,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}, nil
}

// EncodeDocument renders doc as indented JSON. Nil collections are written as
// empty arrays so the output always decodes.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	if doc.Variables == nil {
		doc.Variables = []Variable{}
	}
	out, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow document: %w", err)
	}
	return out, nil
}

// MinCorner returns the top-left corner of the nodes' bounding box. It
// returns the zero position for an empty slice.
func MinCorner(nodes []Node) Position {
	if len(nodes) == 0 {
		return Position{}
	}
	corner := nodes[0].Position
	for _, n := range nodes[1:] {
		corner.X = min(corner.X, n.Position.X)
		corner.Y = min(corner.Y, n.Position.Y)
	}
	return corner
}
