package graphstore

import (
	"errors"
	"fmt"

	"github.com/vk/flowbridge/internal/workflow"
)

var (
	// ErrUnknownNode is returned when an edge endpoint does not exist.
	ErrUnknownNode = errors.New("unknown node")
	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("edge source and target are the same node")
)

// EdgeSpec describes a connection to create.
type EdgeSpec struct {
	Source       string
	Target       string
	SourceHandle *string
	TargetHandle *string
}

// Connect inserts an edge after validating both endpoints. Connecting the
// same endpoints through the same handles twice returns the existing edge id
// without recording history.
func (s *Store) Connect(spec EdgeSpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodeIndexLocked(spec.Source) < 0 {
		return "", fmt.Errorf("source %q: %w", spec.Source, ErrUnknownNode)
	}
	if s.nodeIndexLocked(spec.Target) < 0 {
		return "", fmt.Errorf("target %q: %w", spec.Target, ErrUnknownNode)
	}
	if spec.Source == spec.Target {
		return "", fmt.Errorf("node %q: %w", spec.Source, ErrSelfLoop)
	}

	edge := workflow.Edge{
		Source:       spec.Source,
		Target:       spec.Target,
		SourceHandle: spec.SourceHandle,
		TargetHandle: spec.TargetHandle,
	}.Clone()
	for _, e := range s.edges {
		if e.SameConnection(edge) {
			return e.ID, nil
		}
	}

	s.checkpointLocked()

	edge.ID = s.newID()
	s.edges = append(s.edges, edge)
	s.touchLocked()
	return edge.ID, nil
}

// DeleteEdge removes one edge. Unknown ids are ignored.
func (s *Store) DeleteEdge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.edges {
		if e.ID != id {
			continue
		}
		s.checkpointLocked()
		s.edges = append(s.edges[:i], s.edges[i+1:]...)
		s.touchLocked()
		return
	}
	s.logger.Debug("Ignoring deletion of unknown edge.", "edge_id", id)
}

// Edges returns a copy of every edge in insertion order.
func (s *Store) Edges() []workflow.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]workflow.Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.Clone()
	}
	return out
}
