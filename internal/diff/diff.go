// Package diff compares learned models, both per proxy action and as
// line hunks over their PDDL rendering.
package diff

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/model"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged context line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

func (t LineType) prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Line is one line of a hunk.
type Line struct {
	Content string
	Type    LineType
}

// Hunk represents a group of changes
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// ChangeKind classifies an action-level change.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

// ActionChange is one proxy action that differs between two models.
type ActionChange struct {
	Name string
	Kind ChangeKind
}

// Result is the difference between two models.
type Result struct {
	Actions []ActionChange
	Hunks   []Hunk
}

// Empty reports whether the models are the same.
func (r *Result) Empty() bool { return len(r.Actions) == 0 && len(r.Hunks) == 0 }

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Models compares before against after. Both are rendered as PDDL
// domains named domain before the line diff.
func Models(before, after *model.Model, domain string) (*Result, error) {
	var a, b bytes.Buffer
	if err := before.WriteDomain(&a, domain); err != nil {
		return nil, err
	}
	if err := after.WriteDomain(&b, domain); err != nil {
		return nil, err
	}
	return &Result{
		Actions: actionChanges(before, after),
		Hunks:   Lines(a.String(), b.String(), DefaultContext),
	}, nil
}

func actionChanges(before, after *model.Model) []ActionChange {
	prev := make(map[string]string)
	for _, a := range before.Actions() {
		prev[a.Name] = fingerprint(a)
	}
	var out []ActionChange
	seen := make(map[string]bool)
	for _, a := range after.Actions() {
		seen[a.Name] = true
		fp, ok := prev[a.Name]
		switch {
		case !ok:
			out = append(out, ActionChange{Name: a.Name, Kind: Added})
		case fp != fingerprint(a):
			out = append(out, ActionChange{Name: a.Name, Kind: Changed})
		}
	}
	for _, a := range before.Actions() {
		if !seen[a.Name] {
			out = append(out, ActionChange{Name: a.Name, Kind: Removed})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func fingerprint(a model.LearnedLiftedAction) string {
	var b strings.Builder
	b.WriteString(strings.Join(a.ParamSorts, " "))
	for _, set := range [][]lift.Literal{a.Precond, a.Add, a.Delete} {
		b.WriteString("|")
		for _, l := range set {
			b.WriteString(l.String())
		}
	}
	fmt.Fprint(&b, "|", a.Bindings)
	return b.String()
}

// operation is a single line with its position in either side; -1 when
// the line is absent from that side.
type operation struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

// Lines diffs two texts line by line and groups the changes into hunks
// with the given number of context lines.
func Lines(oldText, newText string, context int) []Hunk {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	var enc lineEncoder
	a, b := enc.encode(oldText), enc.encode(newText)
	return group(operations(enc.decode(dmp.DiffMainRunes(a, b, false))), context)
}

// lineEncoder maps each distinct line, newline included, to one rune so
// the rune diff is a line diff. The library's own line mode joins line
// indexes with commas and then diffs the digits.
type lineEncoder struct {
	lines []string
	index map[string]rune
}

// runeOf skips the surrogate range, which does not survive a round trip
// through string.
func runeOf(i int) rune {
	if i >= 0xD800 {
		i += 0x800
	}
	return rune(i)
}

func indexOf(r rune) int {
	if r >= 0xE000 {
		return int(r) - 0x800
	}
	return int(r)
}

func (e *lineEncoder) encode(text string) []rune {
	if e.index == nil {
		e.index = make(map[string]rune)
	}
	var out []rune
	for len(text) > 0 {
		n := strings.IndexByte(text, '\n') + 1
		if n == 0 {
			n = len(text)
		}
		line := text[:n]
		text = text[n:]
		r, ok := e.index[line]
		if !ok {
			r = runeOf(len(e.lines))
			e.index[line] = r
			e.lines = append(e.lines, line)
		}
		out = append(out, r)
	}
	return out
}

func (e *lineEncoder) decode(diffs []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	for i, d := range diffs {
		var b strings.Builder
		for _, r := range d.Text {
			b.WriteString(e.lines[indexOf(r)])
		}
		diffs[i].Text = b.String()
	}
	return diffs
}

func operations(diffs []diffmatchpatch.Diff) []operation {
	var ops []operation
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, operation{LineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, operation{LineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, operation{LineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

// group merges every change with its surrounding context; changes whose
// context windows touch share a hunk.
func group(ops []operation, context int) []Hunk {
	var hunks []Hunk
	for i := 0; i < len(ops); {
		if ops[i].typ == LineContext {
			i++
			continue
		}
		start := max(i-context, 0)
		end := i
		for j := i; j < len(ops); j++ {
			if ops[j].typ != LineContext {
				end = j
			} else if j-end > 2*context {
				break
			}
		}
		stop := min(end+context+1, len(ops))
		hunks = append(hunks, hunk(ops[start:stop]))
		i = stop
	}
	return hunks
}

func hunk(ops []operation) Hunk {
	h := Hunk{OldStart: -1, NewStart: -1}
	for _, op := range ops {
		h.Lines = append(h.Lines, Line{Content: op.content, Type: op.typ})
		if op.oldLine >= 0 {
			if h.OldStart < 0 {
				h.OldStart = op.oldLine + 1
			}
			h.OldCount++
		}
		if op.newLine >= 0 {
			if h.NewStart < 0 {
				h.NewStart = op.newLine + 1
			}
			h.NewCount++
		}
	}
	// an empty side starts at 0, as in unified diffs
	h.OldStart = max(h.OldStart, 0)
	h.NewStart = max(h.NewStart, 0)
	return h
}

// WriteUnified writes the action summary followed by the hunks in
// unified diff form.
func (r *Result) WriteUnified(w io.Writer, oldName, newName string) error {
	for _, c := range r.Actions {
		if _, err := fmt.Fprintf(w, "%s %s\n", c.Kind, c.Name); err != nil {
			return err
		}
	}
	if len(r.Hunks) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "--- %s\n+++ %s\n", oldName, newName); err != nil {
		return err
	}
	for _, h := range r.Hunks {
		if _, err := fmt.Fprintf(w, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount); err != nil {
			return err
		}
		for _, l := range h.Lines {
			if _, err := fmt.Fprintf(w, "%s%s\n", l.Type.prefix(), l.Content); err != nil {
				return err
			}
		}
	}
	return nil
}
