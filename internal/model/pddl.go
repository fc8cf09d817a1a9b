package model

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/sorts"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// WriteDomain writes the model as a typed STRIPS PDDL domain.
func (m *Model) WriteDomain(w io.Writer, name string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "(define (domain %s)\n", name)
	fmt.Fprintf(bw, "  (:requirements :strips :typing)\n")

	if types := m.typeLines(); len(types) > 0 {
		fmt.Fprintf(bw, "  (:types\n")
		for _, t := range types {
			fmt.Fprintf(bw, "    %s\n", t)
		}
		fmt.Fprintf(bw, "  )\n")
	}

	fmt.Fprintf(bw, "  (:predicates\n")
	for _, f := range m.fluents {
		fmt.Fprintf(bw, "    (%s%s)\n", f.Name, typedParams(f.ParamSorts))
	}
	fmt.Fprintf(bw, "  )\n")

	for _, a := range m.actions {
		fmt.Fprintf(bw, "  (:action %s\n", a.Name)
		fmt.Fprintf(bw, "    :parameters (%s)\n", strings.TrimPrefix(typedParams(a.ParamSorts), " "))
		fmt.Fprintf(bw, "    :precondition (and%s)\n", atoms(a.Precond, false))
		fmt.Fprintf(bw, "    :effect (and%s%s)\n", atoms(a.Add, false), atoms(a.Delete, true))
		fmt.Fprintf(bw, "  )\n")
	}
	fmt.Fprintf(bw, ")\n")
	return bw.Flush()
}

// WriteProblem writes a PDDL problem over the given objects. Objects
// without a sort take it from the model's ObjectSorts.
func (m *Model) WriteProblem(w io.Writer, domain, problem string, objects []trace.Object, init, goal []trace.Fluent) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "(define (problem %s)\n", problem)
	fmt.Fprintf(bw, "  (:domain %s)\n", domain)

	bySort := make(map[string][]string)
	for _, o := range objects {
		s := o.Sort
		if s == "" {
			s = m.ObjectSorts[o.Name]
		}
		if s == "" {
			s = sorts.Universal
		}
		bySort[s] = append(bySort[s], o.Name)
	}
	sortNames := make([]string, 0, len(bySort))
	for s := range bySort {
		sortNames = append(sortNames, s)
	}
	sort.Strings(sortNames)
	fmt.Fprintf(bw, "  (:objects\n")
	for _, s := range sortNames {
		names := bySort[s]
		sort.Strings(names)
		fmt.Fprintf(bw, "    %s - %s\n", strings.Join(names, " "), s)
	}
	fmt.Fprintf(bw, "  )\n")

	fmt.Fprintf(bw, "  (:init\n")
	for _, f := range init {
		fmt.Fprintf(bw, "    %s\n", f)
	}
	fmt.Fprintf(bw, "  )\n")
	fmt.Fprintf(bw, "  (:goal (and")
	for _, f := range goal {
		fmt.Fprintf(bw, " %s", f)
	}
	fmt.Fprintf(bw, "))\n")
	fmt.Fprintf(bw, ")\n")
	return bw.Flush()
}

// typeLines lists "child - parent" declarations: the hierarchy when the
// model has one, else every non-universal sort the model mentions.
func (m *Model) typeLines() []string {
	var out []string
	if len(m.Sorts) > 0 {
		for _, s := range m.Sorts {
			p := s.Parent
			if p == "" {
				p = sorts.Universal
			}
			out = append(out, s.Name+" - "+p)
		}
		return out
	}
	seen := make(map[string]bool)
	note := func(ss []string) {
		for _, s := range ss {
			if s != sorts.Universal && !seen[s] {
				seen[s] = true
				out = append(out, s+" - "+sorts.Universal)
			}
		}
	}
	for _, f := range m.fluents {
		note(f.ParamSorts)
	}
	for _, a := range m.actions {
		note(a.ParamSorts)
	}
	sort.Strings(out)
	return out
}

func typedParams(ss []string) string {
	var b strings.Builder
	for i, s := range ss {
		fmt.Fprintf(&b, " ?x%d - %s", i, s)
	}
	return b.String()
}

func atoms(lits []lift.Literal, negate bool) string {
	var b strings.Builder
	for _, l := range lits {
		var atom strings.Builder
		atom.WriteString("(" + l.Predicate)
		for _, idx := range l.Indices {
			fmt.Fprintf(&atom, " ?x%d", idx)
		}
		atom.WriteString(")")
		if negate {
			fmt.Fprintf(&b, " (not %s)", atom.String())
		} else {
			b.WriteString(" " + atom.String())
		}
	}
	return b.String()
}
