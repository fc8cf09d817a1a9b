// Package audit checks a learned model against observed traces. Every
// applicable proxy is grounded at every occurrence of its schema and the
// resulting facts are evaluated by a Mangle program that derives the
// disagreements.
package audit

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/lift"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/mangle"
	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/observation"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// ErrNoStates is returned for observations that hide states.
var ErrNoStates = errors.New("observations carry no states")

// Kind classifies a finding.
type Kind string

const (
	// Precondition: a proxy requires a fluent that was false before.
	Precondition Kind = "precondition"
	// ContradictedAdd: a proxy adds a fluent that was false after.
	ContradictedAdd Kind = "add"
	// ContradictedDelete: a proxy deletes a fluent that was true after.
	ContradictedDelete Kind = "delete"
	// Unexplained: an observed change no applicable proxy produces.
	Unexplained Kind = "unexplained"
)

// Finding is one disagreement between the model and an occurrence.
type Finding struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Occurrence string `json:"occurrence" yaml:"occurrence"`
	Action     string `json:"action" yaml:"action"`
	Proxy      string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Fluent     string `json:"fluent" yaml:"fluent"`
}

func (f Finding) String() string {
	if f.Proxy == "" {
		return fmt.Sprintf("%s %s %s: %s", f.Occurrence, f.Action, f.Kind, f.Fluent)
	}
	return fmt.Sprintf("%s %s %s via %s: %s", f.Occurrence, f.Action, f.Kind, f.Proxy, f.Fluent)
}

// Report is the outcome of an audit.
type Report struct {
	Occurrences int       `json:"occurrences" yaml:"occurrences"`
	Groundings  int       `json:"groundings" yaml:"groundings"` // applicable (proxy, occurrence) pairs
	Findings    []Finding `json:"findings" yaml:"findings"`
}

// Clean reports whether the audit found nothing.
func (r *Report) Clean() bool { return len(r.Findings) == 0 }

// Count returns the number of findings of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

const schema = `
Decl holds_before(Occ, Fluent).
Decl holds_after(Occ, Fluent).
Decl flip_add(Occ, Fluent).
Decl flip_delete(Occ, Fluent).
Decl requires(Proxy, Occ, Fluent).
Decl adds(Proxy, Occ, Fluent).
Decl deletes(Proxy, Occ, Fluent).

Decl violated_precondition(Proxy, Occ, Fluent).
Decl contradicted_add(Proxy, Occ, Fluent).
Decl contradicted_delete(Proxy, Occ, Fluent).
Decl explained(Occ, Fluent).
Decl unexplained(Occ, Fluent).

violated_precondition(P, O, F) :- requires(P, O, F), !holds_before(O, F).
contradicted_add(P, O, F) :- adds(P, O, F), !holds_after(O, F).
contradicted_delete(P, O, F) :- deletes(P, O, F), holds_after(O, F).

explained(O, F) :- flip_add(O, F), adds(_, O, F).
explained(O, F) :- flip_delete(O, F), deletes(_, O, F).
unexplained(O, F) :- flip_add(O, F), !explained(O, F).
unexplained(O, F) :- flip_delete(O, F), !explained(O, F).
`

// occurrence is one observed (pre, action, post) step.
type occurrence struct {
	id     string
	order  int
	action trace.Action
	pre    trace.State
	post   trace.State
}

func occurrences(obs *observation.List) []occurrence {
	var out []occurrence
	for ti, steps := range obs.Traces {
		for i := 0; i+1 < len(steps); i++ {
			o := steps[i]
			if o.Action == nil || o.State == nil || steps[i+1].State == nil {
				continue
			}
			out = append(out, occurrence{
				id:     fmt.Sprintf("%d:%d", ti, o.Index),
				order:  len(out),
				action: *o.Action,
				pre:    *o.State,
				post:   *steps[i+1].State,
			})
		}
	}
	return out
}

// Run audits m against obs.
func Run(m *model.Model, obs *observation.List, cfg mangle.Config, logger *zap.Logger) (*Report, error) {
	if !obs.HasStates() {
		return nil, ErrNoStates
	}
	log := logging.For(logger, logging.CategoryAudit)

	engine, err := mangle.NewEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := engine.Load(schema); err != nil {
		return nil, err
	}

	occs := occurrences(obs)
	byID := make(map[string]occurrence, len(occs))
	report := &Report{Occurrences: len(occs)}
	var facts []mangle.Fact
	add := func(pred string, args ...interface{}) {
		facts = append(facts, mangle.Fact{Predicate: pred, Args: args})
	}

	for _, o := range occs {
		byID[o.id] = o
		for _, f := range o.pre.True() {
			add("holds_before", o.id, f.String())
		}
		for _, f := range o.post.True() {
			add("holds_after", o.id, f.String())
		}
		for _, f := range o.pre.Fluents() {
			before := o.pre.Holds(f)
			after, known := o.post.Lookup(f)
			switch {
			case !known || before == after:
			case after:
				add("flip_add", o.id, f.String())
			default:
				add("flip_delete", o.id, f.String())
			}
		}

		for _, p := range m.ActionsOf(o.action.Name) {
			bound, ok := p.Bind(o.action)
			if !ok {
				continue
			}
			report.Groundings++
			for _, set := range []struct {
				pred string
				lits []lift.Literal
			}{{"requires", p.Precond}, {"adds", p.Add}, {"deletes", p.Delete}} {
				for _, l := range set.lits {
					g, err := lift.Ground(l, bound)
					if err != nil {
						return nil, fmt.Errorf("failed to ground %s of %s: %w", l, p.Name, err)
					}
					add(set.pred, p.Name, o.id, g.String())
				}
			}
		}
	}

	if err := engine.Insert(facts); err != nil {
		return nil, fmt.Errorf("failed to load audit facts: %w", err)
	}
	if err := engine.Eval(); err != nil {
		return nil, err
	}
	if ce := log.Check(zap.DebugLevel, "audit facts"); ce != nil {
		ce.Write(zap.Any("counts", engine.Counts()))
	}

	for _, q := range []struct {
		pred string
		kind Kind
	}{
		{"violated_precondition", Precondition},
		{"contradicted_add", ContradictedAdd},
		{"contradicted_delete", ContradictedDelete},
	} {
		rows, err := engine.Query(q.pred)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			o := byID[r.Args[1].(string)]
			report.Findings = append(report.Findings, Finding{
				Kind: q.kind, Occurrence: o.id, Action: o.action.String(),
				Proxy: r.Args[0].(string), Fluent: r.Args[2].(string),
			})
		}
	}
	rows, err := engine.Query("unexplained")
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		o := byID[r.Args[0].(string)]
		report.Findings = append(report.Findings, Finding{
			Kind: Unexplained, Occurrence: o.id, Action: o.action.String(),
			Fluent: r.Args[1].(string),
		})
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if oa, ob := byID[a.Occurrence].order, byID[b.Occurrence].order; oa != ob {
			return oa < ob
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Proxy != b.Proxy {
			return a.Proxy < b.Proxy
		}
		return a.Fluent < b.Fluent
	})

	log.Info("audit finished",
		zap.Int("occurrences", report.Occurrences),
		zap.Int("groundings", report.Groundings),
		zap.Int("findings", len(report.Findings)))
	return report, nil
}
