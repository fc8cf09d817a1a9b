// Package mangle runs a Google Mangle Datalog program over an in-memory
// fact store. Facts go in as Go values and come back out the same way.
package mangle

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"
)

// Config holds engine limits.
type Config struct {
	FactLimit int `json:"fact_limit" yaml:"fact_limit"` // 0 means unbounded
}

// DefaultConfig returns the limits the audit runs with.
func DefaultConfig() Config {
	return Config{FactLimit: 1_000_000}
}

// Engine is one analyzed program plus its fact store.
type Engine struct {
	limit  int
	logger *zap.Logger

	mu       sync.RWMutex
	store    factstore.ConcurrentFactStore
	units    []parse.SourceUnit
	program  *analysis.ProgramInfo
	preds    map[string]ast.PredicateSym
	inserted int
}

// Fact is a single fact with Go-typed arguments: strings, int64 numbers
// and "/"-prefixed names.
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

// String returns the Datalog form of the fact.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		switch v := arg.(type) {
		case string:
			if strings.HasPrefix(v, "/") {
				args[i] = v
			} else {
				args[i] = fmt.Sprintf("%q", v)
			}
		default:
			args[i] = fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// NewEngine creates an engine with an empty store and no program.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if cfg.FactLimit < 0 {
		return nil, fmt.Errorf("invalid fact limit %d", cfg.FactLimit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		limit:  cfg.FactLimit,
		logger: logger,
		store:  factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore()),
		preds:  make(map[string]ast.PredicateSym),
	}, nil
}

// Load parses source and adds it to the program, which is re-analyzed as
// a whole. A source that fails analysis is not kept.
func (e *Engine) Load(source string) error {
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse program: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var merged parse.SourceUnit
	for _, u := range append(e.units, unit) {
		merged.Clauses = append(merged.Clauses, u.Clauses...)
		merged.Decls = append(merged.Decls, u.Decls...)
	}
	program, err := analysis.AnalyzeOneUnit(merged, nil)
	if err != nil {
		return fmt.Errorf("failed to analyze program: %w", err)
	}
	e.units = append(e.units, unit)
	e.program = program
	e.preds = make(map[string]ast.PredicateSym, len(program.Decls))
	for sym := range program.Decls {
		e.preds[sym.Symbol] = sym
	}
	return nil
}

// Insert adds facts to the store. Rules are not evaluated until Eval.
func (e *Engine) Insert(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.program == nil {
		return fmt.Errorf("no program loaded")
	}
	for _, f := range facts {
		atom, err := e.atomLocked(f)
		if err != nil {
			return err
		}
		if e.store.Contains(atom) {
			continue
		}
		if e.limit > 0 && e.inserted >= e.limit {
			return fmt.Errorf("fact limit exceeded: %d", e.limit)
		}
		e.store.Add(atom)
		e.inserted++
	}
	return nil
}

// Eval evaluates every rule to a fixpoint over the current store.
func (e *Engine) Eval() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.program == nil {
		return fmt.Errorf("no program loaded")
	}
	stats, err := mengine.EvalProgramWithStats(e.program, e.store)
	if err != nil {
		return fmt.Errorf("failed to evaluate rules: %w", err)
	}
	e.logger.Debug("rules evaluated",
		zap.Int("facts", e.store.EstimateFactCount()),
		zap.Int("strata", len(stats.Strata)))
	return nil
}

func (e *Engine) atomLocked(f Fact) (ast.Atom, error) {
	sym, ok := e.preds[f.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared", f.Predicate)
	}
	if len(f.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", f.Predicate, sym.Arity, len(f.Args))
	}
	args := make([]ast.BaseTerm, len(f.Args))
	for i, raw := range f.Args {
		term, err := toTerm(raw)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", f.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

func toTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, "/") {
			return ast.Name(v)
		}
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", v)
	}
}

func fromTerm(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	switch c.Type {
	case ast.StringType, ast.NameType:
		return c.Symbol
	case ast.NumberType:
		return c.NumValue
	default:
		return c.String()
	}
}

// Query returns every fact of predicate, inserted or derived, sorted by
// Datalog form.
func (e *Engine) Query(predicate string) ([]Fact, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sym, ok := e.preds[predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}
	var out []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]interface{}, len(atom.Args))
		for i, arg := range atom.Args {
			args[i] = fromTerm(arg)
		}
		out = append(out, Fact{Predicate: predicate, Args: args})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Counts returns the number of stored facts per predicate.
func (e *Engine) Counts() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[string]int)
	for _, sym := range e.store.ListPredicates() {
		n := 0
		_ = e.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[sym.Symbol] = n
	}
	return counts
}
