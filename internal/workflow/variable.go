package workflow

import (
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Variable scopes.
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// Variable is a named, dynamically typed workflow value.
type Variable struct {
	Name  string  `json:"name"`
	Value any     `json:"value"`
	Type  VarType `json:"type"`
	Scope string  `json:"scope"`
}

// Clone returns a deep copy of v.
func (v Variable) Clone() Variable {
	v.Value = cloneValue(v.Value)
	return v
}

// VarType is the declared type tag of a variable.
type VarType string

const (
	TypeString  VarType = "string"
	TypeNumber  VarType = "number"
	TypeBoolean VarType = "boolean"
	TypeArray   VarType = "array"
	TypeObject  VarType = "object"
)

// ParseVarType validates a type tag.
func ParseVarType(s string) (VarType, error) {
	switch t := VarType(s); t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return t, nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// InferType derives a type tag from a decoded value. Unknown shapes are
// treated as strings.
func InferType(v any) VarType {
	switch v.(type) {
	case bool:
		return TypeBoolean
	case float64, float32, int, int32, int64:
		return TypeNumber
	case []any, []string:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeString
	}
}

// Coerce converts v to the Go representation of tag t. Primitive conversions
// follow cty's rules, so "42" becomes 42 and "true" becomes true. Arrays and
// objects may be given as JSON text.
func Coerce(v any, t VarType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeString, TypeNumber, TypeBoolean:
		return coercePrimitive(v, t)
	case TypeArray:
		parsed, err := parseComposite(v)
		if err != nil {
			return nil, err
		}
		switch x := parsed.(type) {
		case []any:
			return x, nil
		case []string:
			out := make([]any, len(x))
			for i, s := range x {
				out[i] = s
			}
			return out, nil
		}
		return nil, fmt.Errorf("cannot use %T as array", v)
	case TypeObject:
		parsed, err := parseComposite(v)
		if err != nil {
			return nil, err
		}
		if m, ok := parsed.(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("cannot use %T as object", v)
	}
	return nil, fmt.Errorf("unknown variable type %q", t)
}

func coercePrimitive(v any, t VarType) (any, error) {
	var src cty.Value
	switch x := v.(type) {
	case string:
		src = cty.StringVal(x)
	case bool:
		src = cty.BoolVal(x)
	case []any, []string, map[string]any:
		if t != TypeString {
			return nil, fmt.Errorf("cannot use %T as %s", v, t)
		}
		s, err := sonic.MarshalString(x)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value: %w", err)
		}
		return s, nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("unsupported value of type %T", v)
		}
		src = cty.NumberFloatVal(f)
	}

	var target cty.Type
	switch t {
	case TypeString:
		target = cty.String
	case TypeNumber:
		target = cty.Number
	default:
		target = cty.Bool
	}

	out, err := convert.Convert(src, target)
	if err != nil {
		return nil, fmt.Errorf("cannot convert to %s: %w", t, err)
	}

	switch t {
	case TypeString:
		return out.AsString(), nil
	case TypeNumber:
		f, _ := out.AsBigFloat().Float64()
		if math.IsInf(f, 0) {
			return nil, fmt.Errorf("number %s is out of range", out.AsBigFloat().String())
		}
		return f, nil
	default:
		return out.True(), nil
	}
}

func parseComposite(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return cloneValue(v), nil
	}
	var out any
	if err := sonic.UnmarshalString(s, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	return out, nil
}
