package graphstore

import (
	"github.com/vk/flowbridge/internal/workflow"
)

// Merge imports a serialized document into the live graph. Incoming nodes get
// fresh ids and, when anchor is set, are translated so their top-left corner
// lands on it. Incoming variables are added by name and never overwrite an
// existing one. A malformed document changes nothing and Merge reports false.
func (s *Store) Merge(data []byte, anchor *workflow.Position) bool {
	doc, err := workflow.DecodeDocument(data)
	if err != nil {
		s.logger.Debug("Rejecting merge of malformed document.", "error", err)
		return false
	}
	return s.MergeDocument(doc, anchor)
}

// MergeDocument is Merge for an already decoded document.
func (s *Store) MergeDocument(doc workflow.Document, anchor *workflow.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var offset workflow.Position
	if anchor != nil && len(doc.Nodes) > 0 {
		offset = anchor.Sub(workflow.MinCorner(doc.Nodes))
	}

	s.checkpointLocked()

	nodes, edges := s.remapLocked(doc.Nodes, doc.Edges, offset)
	s.nodes = append(s.nodes, nodes...)
	s.edges = append(s.edges, edges...)

	for _, v := range doc.Variables {
		if s.variableIndexLocked(v.Name) >= 0 {
			continue
		}
		if v.Scope == "" {
			v.Scope = workflow.ScopeGlobal
		}
		s.variables = append(s.variables, v.Clone())
	}

	s.touchLocked()
	s.logger.Debug("Document merged.", "nodes", len(nodes), "edges", len(edges))
	return true
}
