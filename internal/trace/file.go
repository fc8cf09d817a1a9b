package trace

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a trace list. JSON files decode through the
// same struct since YAML accepts JSON documents.
//
//	objects:
//	  a: block
//	fluents: ["(on a b)", "(clear a)"]
//	traces:
//	  - - state: ["(clear a)"]
//	      action: "(pickup a)"
//	    - state: ["(holding a)"]
//
// States are closed-world: every fluent of the universe that a state does
// not list is false. The universe is the fluents list plus every atom
// mentioned in any state.
type File struct {
	Objects map[string]string `yaml:"objects,omitempty" json:"objects,omitempty"`
	Fluents []string          `yaml:"fluents,omitempty" json:"fluents,omitempty"`
	Traces  [][]FileStep      `yaml:"traces" json:"traces"`
}

// FileStep is one step of a trace file.
type FileStep struct {
	State  []string `yaml:"state" json:"state"`
	Action string   `yaml:"action,omitempty" json:"action,omitempty"`
}

// ReadFile loads a trace list from a YAML or JSON file.
func ReadFile(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a trace list from r.
func Decode(r io.Reader) (*List, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse trace file: %w", err)
	}
	return file.List()
}

// List converts the file form into a trace list without a generator.
func (f File) List() (*List, error) {
	universe := make(map[string]Fluent)
	var order []string
	addAtom := func(s string) (Fluent, error) {
		fl, err := f.parseFluent(s)
		if err != nil {
			return Fluent{}, err
		}
		if _, ok := universe[fl.Key()]; !ok {
			universe[fl.Key()] = fl
			order = append(order, fl.Key())
		}
		return fl, nil
	}

	for _, s := range f.Fluents {
		if _, err := addAtom(s); err != nil {
			return nil, err
		}
	}
	for ti, steps := range f.Traces {
		for si, step := range steps {
			for _, s := range step.State {
				if _, err := addAtom(s); err != nil {
					return nil, fmt.Errorf("trace %d step %d: %w", ti, si, err)
				}
			}
		}
	}
	all := make([]Fluent, len(order))
	for i, k := range order {
		all[i] = universe[k]
	}

	list := NewList(nil)
	for ti, steps := range f.Traces {
		if len(steps) == 0 {
			continue
		}
		states := make([]State, len(steps))
		var actions []Action
		for si, step := range steps {
			var holds []Fluent
			for _, s := range step.State {
				fl, _ := f.parseFluent(s)
				holds = append(holds, fl)
			}
			states[si] = StateOf(all, holds...)
			if step.Action == "" {
				if si != len(steps)-1 {
					return nil, fmt.Errorf("trace %d step %d: only the last step may omit its action", ti, si)
				}
				continue
			}
			if si == len(steps)-1 {
				return nil, fmt.Errorf("trace %d: last step must not have an action (no resulting state)", ti)
			}
			name, objs, err := f.parseAtom(step.Action)
			if err != nil {
				return nil, fmt.Errorf("trace %d step %d: %w", ti, si, err)
			}
			actions = append(actions, NewAction(name, objs...))
		}
		t, err := NewTrace(states, actions)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", ti, err)
		}
		list.Append(t)
	}
	return list, nil
}

// Encode writes l in the file form. Object sorts are written when known.
func Encode(w io.Writer, l *List) error {
	file := FileOf(l)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode trace file: %w", err)
	}
	return enc.Close()
}

// FileOf converts a trace list into its file form.
func FileOf(l *List) File {
	file := File{Objects: make(map[string]string)}
	universe := make(map[string]bool)
	note := func(objs []Object) {
		for _, o := range objs {
			if o.Sort != "" {
				file.Objects[o.Name] = o.Sort
			}
		}
	}
	for _, t := range l.Traces {
		var steps []FileStep
		for _, s := range t.Steps {
			fs := FileStep{State: []string{}}
			for _, f := range s.State.Fluents() {
				note(f.Objects)
				if !universe[f.String()] {
					universe[f.String()] = true
					file.Fluents = append(file.Fluents, f.String())
				}
				if v, _ := s.State.Lookup(f); v {
					fs.State = append(fs.State, f.String())
				}
			}
			if s.Action != nil {
				note(s.Action.Params)
				fs.Action = s.Action.String()
			}
			steps = append(steps, fs)
		}
		file.Traces = append(file.Traces, steps)
	}
	sort.Strings(file.Fluents)
	if len(file.Objects) == 0 {
		file.Objects = nil
	}
	return file
}

func (f File) parseFluent(s string) (Fluent, error) {
	name, objs, err := f.parseAtom(s)
	if err != nil {
		return Fluent{}, err
	}
	return NewFluent(name, objs...), nil
}

// parseAtom accepts "(name a b)" or "name a b".
func (f File) parseAtom(s string) (string, []Object, error) {
	body := strings.TrimSpace(s)
	if strings.HasPrefix(body, "(") {
		if !strings.HasSuffix(body, ")") {
			return "", nil, fmt.Errorf("unbalanced atom %q", s)
		}
		body = strings.TrimSpace(body[1 : len(body)-1])
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty atom %q", s)
	}
	for _, field := range fields {
		if strings.ContainsAny(field, "()"+keySep) {
			return "", nil, fmt.Errorf("invalid token %q in atom %q", field, s)
		}
	}
	objs := make([]Object, len(fields)-1)
	for i, name := range fields[1:] {
		objs[i] = NewObject(name, f.Objects[name])
	}
	return fields[0], objs, nil
}
