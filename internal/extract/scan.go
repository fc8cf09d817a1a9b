package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// effectVar is a signed literal id: +id reads "id is an add effect", -id
// reads "id is a delete effect".
type effectVar int

func addVar(id int) effectVar { return effectVar(id) }
func delVar(id int) effectVar { return effectVar(-id) }

func (v effectVar) id() int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

func (v effectVar) isDelete() bool { return v < 0 }

// schemaScan is the per-schema state the transition scan accumulates.
type schemaScan struct {
	name  string
	arity int
	sorts []string

	candidates map[int]bool // every literal id liftable from the schema
	pre        map[int]bool // surviving precondition candidates
	clauses    [][]effectVar
	clauseKeys map[string]bool
	forget     map[effectVar]bool

	adds, deletes map[int]bool // every binding of every observed flip
	occurrences   int
}

func newSchemaScan(name string, arity int, sorts []string) *schemaScan {
	return &schemaScan{
		name:       name,
		arity:      arity,
		sorts:      sorts,
		candidates: make(map[int]bool),
		pre:        make(map[int]bool),
		clauseKeys: make(map[string]bool),
		forget:     make(map[effectVar]bool),
		adds:       make(map[int]bool),
		deletes:    make(map[int]bool),
	}
}

func (s *schemaScan) addClause(c []effectVar) {
	sort.Slice(c, func(i, j int) bool { return c[i] < c[j] })
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(int(v))
	}
	k := strings.Join(parts, " ")
	if s.clauseKeys[k] {
		return
	}
	s.clauseKeys[k] = true
	s.clauses = append(s.clauses, c)
}

// surePreconditions returns the surviving candidates, ascending.
func (s *schemaScan) surePreconditions() []int {
	return sortedIDs(s.pre)
}

// scanner runs lifting and the transition scan over one observation set.
type scanner struct {
	table     *lift.Table
	schemas   []*schemaScan
	byName    map[string]*schemaScan
	predSorts map[string][]string
	debug     bool
	liftLog   *zap.Logger
	scanLog   *zap.Logger
}

// lift interns every literal liftable from every (action, fluent) pair and
// records per-schema candidate sets.
func (sc *scanner) lift(actions []trace.Action, fluents []trace.Fluent, actionSorts map[string][]string) {
	builder := lift.NewBuilder()
	perSchema := make(map[string][]lift.Literal)
	for _, f := range fluents {
		for _, a := range actions {
			if !a.Binds(f) {
				continue
			}
			lits := lift.Lift(a, f, actionSorts[a.Name], sc.predSorts)
			builder.Add(lits...)
			perSchema[a.Name] = append(perSchema[a.Name], lits...)
		}
	}
	sc.table = builder.Freeze()
	for _, s := range sc.schemas {
		for _, l := range perSchema[s.name] {
			id, _ := sc.table.ID(l)
			s.candidates[id] = true
			s.pre[id] = true
		}
		sc.liftLog.Debug("schema candidates", zap.String("schema", s.name), zap.Int("literals", len(s.candidates)))
	}
	sc.liftLog.Info("literals interned", zap.Int("literals", sc.table.Len()), zap.Int("schemas", len(sc.schemas)))
}

// scan prunes preconditions and builds clauses from every transition, then
// derives the forget sets from every post-state.
func (sc *scanner) scan(obs Observations) error {
	transitions := obs.Transitions()
	for _, at := range transitions {
		s := sc.byName[at.Action.Name]
		for _, p := range at.Pairs {
			s.occurrences++
			if err := sc.prune(s, at.Action, p.Pre); err != nil {
				return err
			}
			sc.flips(s, at.Action, p.Pre, p.Post)
		}
	}
	for _, at := range transitions {
		s := sc.byName[at.Action.Name]
		for _, p := range at.Pairs {
			if err := sc.nonEffects(s, at.Action, p.Post); err != nil {
				return err
			}
		}
	}
	for _, s := range sc.schemas {
		sc.scanLog.Info("schema scanned",
			zap.String("schema", s.name),
			zap.Int("occurrences", s.occurrences),
			zap.Int("sure_preconditions", len(s.pre)),
			zap.Int("clauses", len(s.clauses)),
			zap.Int("forget", len(s.forget)))
	}
	return nil
}

// prune drops every candidate precondition whose grounding is unknown or
// false in pre.
func (sc *scanner) prune(s *schemaScan, a trace.Action, pre trace.State) error {
	for id := range s.pre {
		g, err := lift.Ground(sc.table.Literal(id), a)
		if err != nil {
			return fmt.Errorf("failed to ground precondition of %s: %w", a, err)
		}
		if !pre.Holds(g) {
			delete(s.pre, id)
		}
	}
	return nil
}

// flips adds one clause per fluent whose value differs between pre and
// post: the disjunction of every lifted reading of the change.
func (sc *scanner) flips(s *schemaScan, a trace.Action, pre, post trace.State) {
	for _, f := range pre.Fluents() {
		if !a.Binds(f) {
			continue
		}
		before, _ := pre.Lookup(f)
		after, known := post.Lookup(f)
		if !known || after == before {
			continue
		}
		lits := lift.Lift(a, f, s.sorts, sc.predSorts)
		clause := make([]effectVar, 0, len(lits))
		for _, l := range lits {
			id, _ := sc.table.ID(l)
			if before {
				clause = append(clause, delVar(id))
				s.deletes[id] = true
			} else {
				clause = append(clause, addVar(id))
				s.adds[id] = true
			}
		}
		if sc.debug {
			sc.scanLog.Debug("flip", zap.String("action", a.String()), zap.String("fluent", f.String()),
				zap.Bool("before", before), zap.Int("bindings", len(clause)))
		}
		s.addClause(clause)
	}
}

// nonEffects marks, for every candidate grounded in post, the variable the
// post value rules out: false after means not an add, true after means not
// a delete.
func (sc *scanner) nonEffects(s *schemaScan, a trace.Action, post trace.State) error {
	for id := range s.candidates {
		g, err := lift.Ground(sc.table.Literal(id), a)
		if err != nil {
			return fmt.Errorf("failed to ground candidate of %s: %w", a, err)
		}
		v, known := post.Lookup(g)
		if !known {
			continue
		}
		if v {
			s.forget[delVar(id)] = true
		} else {
			s.forget[addVar(id)] = true
		}
	}
	return nil
}

func sortedIDs(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
