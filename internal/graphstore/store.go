// Package graphstore owns the editable workflow graph: nodes, edges,
// variables, selection, clipboard, undo/redo history and the runtime state
// reported by the engine (status, logs and a capped result preview).
//
// A Store is an explicit object, never a package global. Every exported method
// is one atomic mutation or read under the store's lock, and history
// snapshots are taken inside the same critical section as the mutation they
// guard.
package graphstore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowbridge/internal/history"
	"github.com/vk/flowbridge/internal/workflow"
)

const (
	// MaxLogs bounds the execution log ring.
	MaxLogs = 100
	// MaxPreviewRows bounds the live result preview.
	MaxPreviewRows = 20
	// DefaultPasteOffset is applied when pasting without a target position.
	DefaultPasteOffset = 50.0
)

// Store is the in-memory workflow graph. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	logger       *slog.Logger
	newID        func() string
	now          func() time.Time
	kindDefaults map[workflow.Kind]map[string]any
	historyCap   int

	id        string
	name      string
	createdAt string
	nodes     []workflow.Node
	edges     []workflow.Edge
	variables []workflow.Variable

	selection []string
	clipboard *clipboardSet
	history   *history.Manager
	dragging  map[string]bool
	revision  uint64

	status      workflow.ExecutionStatus
	currentNode string
	verbose     bool
	logs        []workflow.LogEntry
	preview     []workflow.DataRow
	statusHooks []func(workflow.ExecutionStatus)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces the uuid generator, mainly for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithKindDefaults sets configuration applied to newly added nodes per kind.
func WithKindDefaults(defaults map[workflow.Kind]map[string]any) Option {
	return func(s *Store) { s.kindDefaults = defaults }
}

// WithHistoryCapacity overrides the number of retained snapshots.
func WithHistoryCapacity(n int) Option {
	return func(s *Store) { s.historyCap = n }
}

// New creates an empty store with a fresh workflow id.
func New(opts ...Option) *Store {
	s := &Store{
		logger:     slog.Default(),
		newID:      uuid.NewString,
		now:        time.Now,
		historyCap: history.DefaultCapacity,
		status:     workflow.StatusPending,
		dragging:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = history.New(s.historyCap)
	s.id = s.newID()
	s.createdAt = s.timestamp()
	return s
}

// OnStatusChange registers fn to be called after every status transition.
// Hooks run outside the store lock.
func (s *Store) OnStatusChange(fn func(workflow.ExecutionStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusHooks = append(s.statusHooks, fn)
}

// Revision increases on every change to the persisted document.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Undo restores the previous snapshot and clears the selection. The live
// graph is recorded first when it has diverged from the cursor, so the
// newest state can always be redone.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Push(s.snapshotLocked())
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restoreLocked(snap)
	return true
}

// Redo re-applies the next snapshot and clears the selection.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restoreLocked(snap)
	return true
}

// CanUndo reports whether Undo would change the graph.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo() || !s.history.Current().Equal(s.snapshotLocked())
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// Select makes id the only selected node. An empty id clears the selection;
// an unknown id is ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.selection = nil
		return
	}
	if s.nodeIndexLocked(id) < 0 {
		s.logger.Debug("Ignoring selection of unknown node.", "node_id", id)
		return
	}
	s.selection = []string{id}
}

// SelectMany replaces the selection with the known ids among ids.
func (s *Store) SelectMany(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = nil
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || s.nodeIndexLocked(id) < 0 {
			continue
		}
		seen[id] = true
		s.selection = append(s.selection, id)
	}
}

// Selected returns a copy of the primary selected node.
func (s *Store) Selected() (workflow.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selection) == 0 {
		return workflow.Node{}, false
	}
	i := s.nodeIndexLocked(s.selection[0])
	if i < 0 {
		return workflow.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// SelectedIDs returns the ids of every selected node in selection order.
func (s *Store) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// checkpointLocked records the pre-mutation graph. Any pending redo branch is
// discarded even when the snapshot itself was a duplicate.
func (s *Store) checkpointLocked() {
	s.history.Push(s.snapshotLocked())
	s.history.Truncate()
}

func (s *Store) snapshotLocked() history.Snapshot {
	return history.NewSnapshot(s.nodes, s.edges)
}

func (s *Store) restoreLocked(snap history.Snapshot) {
	s.nodes = snap.Nodes
	s.edges = snap.Edges
	s.selection = nil
	s.dragging = make(map[string]bool)
	s.touchLocked()
}

func (s *Store) touchLocked() {
	s.revision++
}

func (s *Store) nodeIndexLocked(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) deselectLocked(id string) {
	out := s.selection[:0]
	for _, sel := range s.selection {
		if sel != id {
			out = append(out, sel)
		}
	}
	s.selection = out
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
