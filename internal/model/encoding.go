package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/omereliy/macq-implementSAA/internal/sorts"
)

// document is the serialized form of a Model.
type document struct {
	Fluents     []LearnedLiftedFluent `json:"fluents" yaml:"fluents"`
	Actions     []LearnedLiftedAction `json:"actions" yaml:"actions"`
	Sorts       []sorts.Sort          `json:"sorts,omitempty" yaml:"sorts,omitempty"`
	ObjectSorts map[string]string     `json:"object_sorts,omitempty" yaml:"object_sorts,omitempty"`
}

func (m *Model) document() document {
	return document{Fluents: m.fluents, Actions: m.actions, Sorts: m.Sorts, ObjectSorts: m.ObjectSorts}
}

func (m *Model) load(d document) error {
	actions := make([]LearnedLiftedAction, 0, len(d.Actions))
	for _, a := range d.Actions {
		v, err := NewLearnedLiftedAction(a.Name, a.Schema, a.ParamSorts, a.Precond, a.Add, a.Delete)
		if err != nil {
			return fmt.Errorf("failed to load action %s: %w", a.Name, err)
		}
		if len(a.Bindings) > 0 {
			if v, err = v.WithBindings(a.Bindings); err != nil {
				return fmt.Errorf("failed to load action %s: %w", a.Name, err)
			}
		}
		actions = append(actions, v)
	}
	*m = *New(d.Fluents, actions, d.Sorts, d.ObjectSorts)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.document())
}

// UnmarshalJSON implements json.Unmarshaler. Actions are re-validated.
func (m *Model) UnmarshalJSON(data []byte) error {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	return m.load(d)
}

// MarshalYAML implements yaml.Marshaler.
func (m *Model) MarshalYAML() (interface{}, error) {
	return m.document(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Model) UnmarshalYAML(value *yaml.Node) error {
	var d document
	if err := value.Decode(&d); err != nil {
		return err
	}
	return m.load(d)
}
