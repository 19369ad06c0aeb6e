// Package history implements the linear undo/redo timeline of graph
// snapshots. A Manager is not safe for concurrent use; the graph store
// guards it with its own lock.
package history

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/vk/flowbridge/internal/workflow"
)

// DefaultCapacity is the number of snapshots retained before the oldest is
// evicted.
const DefaultCapacity = 50

// Snapshot is a deep copy of the graph structure. Selection, variables and
// runtime state are not historied.
type Snapshot struct {
	Nodes []workflow.Node
	Edges []workflow.Edge
}

// NewSnapshot deep-copies nodes and edges into a snapshot.
func NewSnapshot(nodes []workflow.Node, edges []workflow.Edge) Snapshot {
	return Snapshot{Nodes: nodes, Edges: edges}.Clone()
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]workflow.Node, len(s.Nodes)),
		Edges: make([]workflow.Edge, len(s.Edges)),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, e := range s.Edges {
		out.Edges[i] = e.Clone()
	}
	return out
}

// Equal reports structural equality. Nil and empty collections are equal.
func (s Snapshot) Equal(o Snapshot) bool {
	return cmp.Equal(s, o, cmpopts.EquateEmpty())
}

// Manager holds the snapshot timeline and its cursor.
type Manager struct {
	snapshots []Snapshot
	cursor    int
	capacity  int
}

// New creates a timeline holding one empty snapshot. A capacity below 1
// falls back to DefaultCapacity.
func New(capacity int) *Manager {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Manager{
		snapshots: []Snapshot{{}},
		capacity:  capacity,
	}
}

// Push records s after the cursor. A snapshot identical to the one at the
// cursor is discarded and Push reports false. Otherwise forward history is
// truncated, s is appended, the oldest entry is evicted past capacity and the
// cursor moves to the new last index.
func (m *Manager) Push(s Snapshot) bool {
	if m.snapshots[m.cursor].Equal(s) {
		return false
	}
	m.snapshots = append(m.snapshots[:m.cursor+1], s.Clone())
	if over := len(m.snapshots) - m.capacity; over > 0 {
		m.snapshots = append([]Snapshot(nil), m.snapshots[over:]...)
	}
	m.cursor = len(m.snapshots) - 1
	return true
}

// Undo moves the cursor back and returns a copy of the snapshot there.
func (m *Manager) Undo() (Snapshot, bool) {
	if m.cursor == 0 {
		return Snapshot{}, false
	}
	m.cursor--
	return m.snapshots[m.cursor].Clone(), true
}

// Redo moves the cursor forward and returns a copy of the snapshot there.
func (m *Manager) Redo() (Snapshot, bool) {
	if m.cursor >= len(m.snapshots)-1 {
		return Snapshot{}, false
	}
	m.cursor++
	return m.snapshots[m.cursor].Clone(), true
}

func (m *Manager) CanUndo() bool { return m.cursor > 0 }

func (m *Manager) CanRedo() bool { return m.cursor < len(m.snapshots)-1 }

// Current returns a copy of the snapshot at the cursor.
func (m *Manager) Current() Snapshot {
	return m.snapshots[m.cursor].Clone()
}

// Truncate drops every snapshot after the cursor.
func (m *Manager) Truncate() {
	m.snapshots = m.snapshots[:m.cursor+1]
}

// Reset replaces the timeline with the single snapshot s.
func (m *Manager) Reset(s Snapshot) {
	m.snapshots = []Snapshot{s.Clone()}
	m.cursor = 0
}

func (m *Manager) Len() int { return len(m.snapshots) }

func (m *Manager) Cursor() int { return m.cursor }
