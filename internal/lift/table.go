package lift

import "sort"

// Builder collects distinct literals before ids are assigned.
type Builder struct {
	lits map[string]Literal
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{lits: make(map[string]Literal)}
}

// Add records literals, ignoring duplicates.
func (b *Builder) Add(lits ...Literal) {
	for _, l := range lits {
		if _, ok := b.lits[l.Key()]; !ok {
			b.lits[l.Key()] = l
		}
	}
}

// Len returns the number of distinct literals collected.
func (b *Builder) Len() int { return len(b.lits) }

// Freeze assigns ids 1..N in key order and returns the read-only table.
func (b *Builder) Freeze() *Table {
	keys := make([]string, 0, len(b.lits))
	for k := range b.lits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &Table{ids: make(map[string]int, len(keys)), lits: make([]Literal, len(keys))}
	for i, k := range keys {
		t.ids[k] = i + 1
		t.lits[i] = b.lits[k]
	}
	return t
}

// Table is a frozen bijection between literals and ids 1..N.
type Table struct {
	ids  map[string]int
	lits []Literal
}

// Len returns N.
func (t *Table) Len() int { return len(t.lits) }

// ID returns the id of l.
func (t *Table) ID(l Literal) (int, bool) {
	id, ok := t.ids[l.Key()]
	return id, ok
}

// Literal returns the literal with id. It panics when id is out of range.
func (t *Table) Literal(id int) Literal {
	return t.lits[id-1]
}

// Literals returns every literal in id order.
func (t *Table) Literals() []Literal {
	return append([]Literal(nil), t.lits...)
}
