package graphstore

import (
	"github.com/vk/flowbridge/internal/workflow"
)

type clipboardSet struct {
	nodes []workflow.Node
	edges []workflow.Edge
}

// Copy captures the named nodes and the edges running between them. Edges
// crossing the selection boundary are left out. It returns the number of
// nodes captured; when none of the ids exist the clipboard is unchanged.
func (s *Store) Copy(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	picked := make(map[string]bool, len(ids))
	var set clipboardSet
	for _, id := range ids {
		i := s.nodeIndexLocked(id)
		if i < 0 || picked[id] {
			continue
		}
		picked[id] = true
		set.nodes = append(set.nodes, s.nodes[i].Clone())
	}
	if len(set.nodes) == 0 {
		return 0
	}
	for _, e := range s.edges {
		if picked[e.Source] && picked[e.Target] {
			set.edges = append(set.edges, e.Clone())
		}
	}
	s.clipboard = &set
	return len(set.nodes)
}

// CopySelection copies the current selection.
func (s *Store) CopySelection() int {
	return s.Copy(s.SelectedIDs())
}

// HasClipboard reports whether Paste has anything to insert.
func (s *Store) HasClipboard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard != nil
}

// Paste inserts a fresh copy of the clipboard and selects it. With a target
// the copy's top-left corner lands on it; without one the copy is offset by
// DefaultPasteOffset on both axes. It returns the new node ids.
func (s *Store) Paste(target *workflow.Position) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clipboard == nil || len(s.clipboard.nodes) == 0 {
		return nil
	}

	offset := workflow.Position{X: DefaultPasteOffset, Y: DefaultPasteOffset}
	if target != nil {
		offset = target.Sub(workflow.MinCorner(s.clipboard.nodes))
	}

	s.checkpointLocked()

	nodes, edges := s.remapLocked(s.clipboard.nodes, s.clipboard.edges, offset)
	s.nodes = append(s.nodes, nodes...)
	s.edges = append(s.edges, edges...)

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	s.selection = append([]string(nil), ids...)
	s.touchLocked()
	return ids
}

// remapLocked copies nodes and edges with fresh ids, translating every node
// by offset. Edges with an endpoint outside nodes are dropped.
func (s *Store) remapLocked(nodes []workflow.Node, edges []workflow.Edge, offset workflow.Position) ([]workflow.Node, []workflow.Edge) {
	idMap := make(map[string]string, len(nodes))
	outNodes := make([]workflow.Node, 0, len(nodes))
	for _, n := range nodes {
		c := n.Clone()
		c.ID = s.newID()
		c.Position = c.Position.Add(offset)
		idMap[n.ID] = c.ID
		outNodes = append(outNodes, c)
	}

	outEdges := make([]workflow.Edge, 0, len(edges))
	for _, e := range edges {
		src, okSrc := idMap[e.Source]
		dst, okDst := idMap[e.Target]
		if !okSrc || !okDst {
			s.logger.Debug("Dropping edge with an endpoint outside the inserted set.", "edge_id", e.ID)
			continue
		}
		c := e.Clone()
		c.ID = s.newID()
		c.Source = src
		c.Target = dst
		outEdges = append(outEdges, c)
	}
	return outNodes, outEdges
}
