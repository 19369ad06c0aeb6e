package workflow

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the offset that moves o onto p.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Reserved keys of a node's data object. They are lifted into typed fields
// on decode and written back on encode.
const (
	dataLabel      = "label"
	dataModuleType = "moduleType"
	dataDisabled   = "disabled"
)

// Well-known configuration fields exposed through accessors.
const (
	FieldName          = "name"
	FieldTimeout       = "timeout"
	FieldTimeoutAction = "timeoutAction"
	FieldRetryCount    = "retryCount"
)

// Node is one configured workflow step, or a canvas annotation when its kind
// is group or note.
type Node struct {
	ID       string
	Kind     Kind
	Position Position
	Label    string
	Disabled bool
	// Data holds the free-form configuration keyed by field name.
	Data map[string]any
	// Style carries renderer hints such as width and height.
	Style map[string]any
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	n.Data = cloneMap(n.Data)
	n.Style = cloneMap(n.Style)
	return n
}

// Merge applies partial on top of the node's configuration. The label and
// disabled keys update the typed fields; the kind cannot be changed.
func (n *Node) Merge(partial map[string]any) {
	for k, v := range partial {
		switch k {
		case dataLabel:
			if s, ok := v.(string); ok {
				n.Label = s
			}
		case dataDisabled:
			if b, ok := v.(bool); ok {
				n.Disabled = b
			}
		case dataModuleType:
		default:
			if n.Data == nil {
				n.Data = make(map[string]any)
			}
			n.Data[k] = cloneValue(v)
		}
	}
}

// CustomName returns the user-assigned step name, if any.
func (n Node) CustomName() string {
	s, _ := n.Data[FieldName].(string)
	return s
}

// Timeout returns the per-step timeout. Documents store it in milliseconds.
func (n Node) Timeout() (time.Duration, bool) {
	ms, ok := toFloat(n.Data[FieldTimeout])
	if !ok || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}

// TimeoutAction returns what the engine does when the timeout fires.
func (n Node) TimeoutAction() string {
	s, _ := n.Data[FieldTimeoutAction].(string)
	return s
}

// RetryCount returns how many times the engine retries the step.
func (n Node) RetryCount() int {
	f, ok := toFloat(n.Data[FieldRetryCount])
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

type wireNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Position       `json:"position"`
	Style    map[string]any `json:"style,omitempty"`
	Data     map[string]any `json:"data"`
}

// MarshalJSON writes the node in document form, folding label, kind and the
// disabled flag into the data object.
func (n Node) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(n.Data)+3)
	for k, v := range n.Data {
		data[k] = v
	}
	data[dataLabel] = n.Label
	data[dataModuleType] = string(n.Kind)
	if n.Disabled {
		data[dataDisabled] = true
	}
	return sonic.Marshal(wireNode{
		ID:       n.ID,
		Type:     n.Kind.RenderType(),
		Position: n.Position,
		Style:    n.Style,
		Data:     data,
	})
}

// UnmarshalJSON reads the document form. The kind comes from data.moduleType,
// falling back to the renderer type for groups and notes.
func (n *Node) UnmarshalJSON(b []byte) error {
	var w wireNode
	if err := sonic.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("node is missing an id")
	}

	rawKind, _ := w.Data[dataModuleType].(string)
	if rawKind == "" {
		switch w.Type {
		case "groupNode":
			rawKind = string(KindGroup)
		case "noteNode":
			rawKind = string(KindNote)
		default:
			rawKind = w.Type
		}
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		return fmt.Errorf("node %s: %w", w.ID, err)
	}

	label, _ := w.Data[dataLabel].(string)
	disabled, _ := w.Data[dataDisabled].(bool)
	delete(w.Data, dataLabel)
	delete(w.Data, dataModuleType)
	delete(w.Data, dataDisabled)
	if len(w.Data) == 0 {
		w.Data = nil
	}

	*n = Node{
		ID:       w.ID,
		Kind:     kind,
		Position: w.Position,
		Label:    label,
		Disabled: disabled,
		Data:     w.Data,
		Style:    w.Style,
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
