package workflow

// Edge is a directed connection between two nodes. Handles select among
// multiple outputs or inputs, e.g. the true and false arms of a condition.
type Edge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle,omitempty"`
}

// Handle is a convenience for building optional handle tags.
func Handle(s string) *string {
	return &s
}

// Clone returns a copy of e that shares no pointers with it.
func (e Edge) Clone() Edge {
	if e.SourceHandle != nil {
		e.SourceHandle = Handle(*e.SourceHandle)
	}
	if e.TargetHandle != nil {
		e.TargetHandle = Handle(*e.TargetHandle)
	}
	return e
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// SameConnection reports whether e and o join the same endpoints through the
// same handles.
func (e Edge) SameConnection(o Edge) bool {
	return e.Source == o.Source &&
		e.Target == o.Target &&
		handleEqual(e.SourceHandle, o.SourceHandle) &&
		handleEqual(e.TargetHandle, o.TargetHandle)
}

func handleEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
