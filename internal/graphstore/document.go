package graphstore

import (
	"github.com/vk/flowbridge/internal/history"
	"github.com/vk/flowbridge/internal/workflow"
)

// ID returns the workflow id.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID adopts an id issued by the workflow API.
func (s *Store) SetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && id != s.id {
		s.id = id
		s.touchLocked()
	}
}

func (s *Store) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Store) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.touchLocked()
}

// Clear starts a new empty workflow with a fresh id and a reset timeline.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = s.newID()
	s.name = ""
	s.createdAt = s.timestamp()
	s.nodes = nil
	s.edges = nil
	s.variables = nil
	s.selection = nil
	s.dragging = make(map[string]bool)
	s.status = workflow.StatusPending
	s.currentNode = ""
	s.logs = nil
	s.preview = nil
	s.history.Reset(history.Snapshot{})
	s.touchLocked()
}

// Load replaces the whole workflow with doc. Edges referencing missing nodes
// and repeated node ids are discarded. The timeline is reset to one snapshot
// of the loaded graph.
func (s *Store) Load(doc workflow.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(doc)
}

// Import replaces the workflow with a serialized document. A malformed
// document changes nothing and Import reports false.
func (s *Store) Import(data []byte) bool {
	doc, err := workflow.DecodeDocument(data)
	if err != nil {
		s.logger.Debug("Rejecting import of malformed document.", "error", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(doc)
	return true
}

// Document returns a deep copy of the workflow in serialized form.
func (s *Store) Document() workflow.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	return workflow.Document{
		ID:        s.id,
		Name:      s.name,
		Nodes:     snap.Nodes,
		Edges:     snap.Edges,
		Variables: cloneVariables(s.variables),
		CreatedAt: s.createdAt,
		UpdatedAt: s.timestamp(),
	}
}

// Export encodes the workflow as a JSON document.
func (s *Store) Export() ([]byte, error) {
	return workflow.EncodeDocument(s.Document())
}

func (s *Store) loadLocked(doc workflow.Document) {
	s.id = doc.ID
	if s.id == "" {
		s.id = s.newID()
	}
	s.name = doc.Name
	s.createdAt = doc.CreatedAt
	if s.createdAt == "" {
		s.createdAt = s.timestamp()
	}

	known := make(map[string]bool, len(doc.Nodes))
	s.nodes = make([]workflow.Node, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if known[n.ID] {
			s.logger.Debug("Skipping repeated node id.", "node_id", n.ID)
			continue
		}
		known[n.ID] = true
		s.nodes = append(s.nodes, n.Clone())
	}
	s.edges = make([]workflow.Edge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		if !known[e.Source] || !known[e.Target] {
			s.logger.Debug("Skipping dangling edge.", "edge_id", e.ID)
			continue
		}
		s.edges = append(s.edges, e.Clone())
	}

	s.variables = nil
	for _, v := range doc.Variables {
		if v.Scope == "" {
			v.Scope = workflow.ScopeGlobal
		}
		if s.variableIndexLocked(v.Name) >= 0 {
			continue
		}
		s.variables = append(s.variables, v.Clone())
	}

	s.selection = nil
	s.dragging = make(map[string]bool)
	s.history.Reset(s.snapshotLocked())
	s.touchLocked()
}
