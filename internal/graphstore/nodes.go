package graphstore

import (
	"github.com/vk/flowbridge/internal/workflow"
)

// Default dimensions and colors of canvas annotations.
var annotationDefaults = map[workflow.Kind]struct {
	style map[string]any
	data  map[string]any
}{
	workflow.KindGroup: {
		style: map[string]any{"width": 300.0, "height": 200.0},
		data:  map[string]any{"color": "#3b82f6"},
	},
	workflow.KindNote: {
		style: map[string]any{"width": 200.0, "height": 120.0},
		data:  map[string]any{"color": "#fef08a", "content": ""},
	},
}

// AddNode appends a node of the given kind at pos and returns its id. An
// invalid kind adds nothing and returns the empty string.
func (s *Store) AddNode(kind workflow.Kind, pos workflow.Position) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !kind.Valid() {
		s.logger.Debug("Rejecting node of unknown kind.", "kind", kind)
		return ""
	}

	s.checkpointLocked()

	n := workflow.Node{
		ID:       s.newID(),
		Kind:     kind,
		Position: pos,
		Label:    kind.Label(),
	}
	if d, ok := annotationDefaults[kind]; ok {
		n.Style = cloneMap(d.style)
		n.Data = cloneMap(d.data)
	}
	if defaults := s.kindDefaults[kind]; len(defaults) > 0 {
		n.Merge(defaults)
	}

	s.nodes = append(s.nodes, n)
	s.touchLocked()
	s.logger.Debug("Node added.", "node_id", n.ID, "kind", kind)
	return n.ID
}

// UpdateNodeData shallow-merges partial into the node's configuration. It is
// not a history boundary. Unknown ids are ignored.
func (s *Store) UpdateNodeData(id string, partial map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.nodeIndexLocked(id)
	if i < 0 {
		s.logger.Debug("Ignoring update of unknown node.", "node_id", id)
		return
	}
	s.nodes[i].Merge(partial)
	s.touchLocked()
}

// DeleteNode removes the node and every edge touching it. Unknown ids are
// ignored.
func (s *Store) DeleteNode(id string) {
	s.DeleteNodes([]string{id})
}

// DeleteNodes removes several nodes behind a single history snapshot.
func (s *Store) DeleteNodes(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if s.nodeIndexLocked(id) >= 0 {
			doomed[id] = true
		} else {
			s.logger.Debug("Ignoring deletion of unknown node.", "node_id", id)
		}
	}
	if len(doomed) == 0 {
		return
	}

	s.checkpointLocked()

	nodes := s.nodes[:0]
	for _, n := range s.nodes {
		if !doomed[n.ID] {
			nodes = append(nodes, n)
		}
	}
	s.nodes = nodes

	edges := s.edges[:0]
	for _, e := range s.edges {
		if !doomed[e.Source] && !doomed[e.Target] {
			edges = append(edges, e)
		}
	}
	s.edges = edges

	for id := range doomed {
		s.deselectLocked(id)
		delete(s.dragging, id)
	}
	s.touchLocked()
}

// MoveNode sets the node's position. A drag gesture is a sequence of calls
// with dragging set followed by one without; only the first frame of the
// gesture records a snapshot. A standalone move records one as well.
func (s *Store) MoveNode(id string, pos workflow.Position, dragging bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.nodeIndexLocked(id)
	if i < 0 {
		s.logger.Debug("Ignoring move of unknown node.", "node_id", id)
		return
	}

	inGesture := s.dragging[id]
	if !inGesture {
		s.checkpointLocked()
	}
	if dragging {
		s.dragging[id] = true
	} else {
		delete(s.dragging, id)
	}

	s.nodes[i].Position = pos
	s.touchLocked()
}

// ToggleDisabled flips the disabled flag of every known node in ids.
func (s *Store) ToggleDisabled(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range ids {
		i := s.nodeIndexLocked(id)
		if i < 0 {
			continue
		}
		if !changed {
			s.checkpointLocked()
			changed = true
		}
		s.nodes[i].Disabled = !s.nodes[i].Disabled
	}
	if changed {
		s.touchLocked()
	}
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (workflow.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.nodeIndexLocked(id)
	if i < 0 {
		return workflow.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// Nodes returns a deep copy of every node in insertion order.
func (s *Store) Nodes() []workflow.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]workflow.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return workflow.Node{Data: m}.Clone().Data
}
