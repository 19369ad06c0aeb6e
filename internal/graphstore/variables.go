package graphstore

import (
	"fmt"

	"github.com/vk/flowbridge/internal/workflow"
)

// AddVariable upserts v by name. A missing type tag is inferred from the
// value and a declared tag coerces the value. An empty scope means global.
func (s *Store) AddVariable(v workflow.Variable) error {
	if v.Name == "" {
		return fmt.Errorf("variable name is required")
	}
	if v.Type == "" {
		v.Type = workflow.InferType(v.Value)
	} else {
		coerced, err := workflow.Coerce(v.Value, v.Type)
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.Name, err)
		}
		v.Value = coerced
	}
	if v.Scope == "" {
		v.Scope = workflow.ScopeGlobal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(v.Clone())
	return nil
}

// UpdateVariable replaces the value of an existing variable, coercing it to
// the declared type. Unknown names are ignored.
func (s *Store) UpdateVariable(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.variableIndexLocked(name)
	if i < 0 {
		s.logger.Debug("Ignoring update of unknown variable.", "name", name)
		return nil
	}
	coerced, err := workflow.Coerce(value, s.variables[i].Type)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	s.variables[i].Value = coerced
	s.touchLocked()
	return nil
}

// SetVariableValue stores a value reported by the engine as-is, creating the
// variable when it does not exist yet.
func (s *Store) SetVariableValue(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.variableIndexLocked(name); i >= 0 {
		s.variables[i].Value = value
		s.touchLocked()
		return
	}
	s.upsertLocked(workflow.Variable{
		Name:  name,
		Value: value,
		Type:  workflow.InferType(value),
		Scope: workflow.ScopeGlobal,
	})
}

// DeleteVariable removes a variable. Unknown names are ignored.
func (s *Store) DeleteVariable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.variableIndexLocked(name)
	if i < 0 {
		return
	}
	s.variables = append(s.variables[:i], s.variables[i+1:]...)
	s.touchLocked()
}

// Variable returns a copy of the named variable.
func (s *Store) Variable(name string) (workflow.Variable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.variableIndexLocked(name)
	if i < 0 {
		return workflow.Variable{}, false
	}
	return s.variables[i].Clone(), true
}

// Variables returns a copy of the variable table.
func (s *Store) Variables() []workflow.Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneVariables(s.variables)
}

func (s *Store) upsertLocked(v workflow.Variable) {
	if i := s.variableIndexLocked(v.Name); i >= 0 {
		s.variables[i] = v
	} else {
		s.variables = append(s.variables, v)
	}
	s.touchLocked()
}

func (s *Store) variableIndexLocked(name string) int {
	for i := range s.variables {
		if s.variables[i].Name == name {
			return i
		}
	}
	return -1
}

func cloneVariables(vars []workflow.Variable) []workflow.Variable {
	out := make([]workflow.Variable, len(vars))
	for i, v := range vars {
		out[i] = v.Clone()
	}
	return out
}
