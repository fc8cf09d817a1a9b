package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/omereliy/macq-implementSAA/internal/audit"
	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/observation"
	"github.com/omereliy/macq-implementSAA/internal/trace"
)

// errFindings is returned when an audit is not clean.
var errFindings = errors.New("audit found problems")

var auditJSON bool

var (
	cleanStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	findingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// auditCmd checks a model against a trace file
var auditCmd = &cobra.Command{
	Use:   "audit [model] [trace-file]",
	Short: "Check a learned model against traces",
	Long: `Grounds every proxy action of a model against each observed occurrence
and derives, with Mangle rules, the preconditions that do not hold, the
effects the next state contradicts and the flips no proxy explains.

The model is a path to a .json/.yaml file written by "learn", or an id or
name from the catalog.`,
	Args: cobra.ExactArgs(2),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print the report as JSON")
}

func runAudit(cmd *cobra.Command, args []string) error {
	m, err := resolveModel(args[0])
	if err != nil {
		return err
	}
	list, err := trace.ReadFile(args[1])
	if err != nil {
		return err
	}
	obs, err := observation.Tokenize(list, observation.Identity)
	if err != nil {
		return err
	}

	report, err := audit.Run(m, obs, cfg.Mangle, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if auditJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintf(out, "occurrences: %d\ngroundings:  %d\n", report.Occurrences, report.Groundings)
		for _, k := range []audit.Kind{audit.Precondition, audit.ContradictedAdd, audit.ContradictedDelete, audit.Unexplained} {
			fmt.Fprintf(out, "%-12s %d\n", string(k)+":", report.Count(k))
		}
		for _, f := range report.Findings {
			fmt.Fprintln(out, f)
		}
		if report.Clean() {
			fmt.Fprintln(out, cleanStyle.Render("clean"))
		} else {
			fmt.Fprintln(out, findingStyle.Render(fmt.Sprintf("%d findings", len(report.Findings))))
		}
	}
	if !report.Clean() {
		return fmt.Errorf("%w: %d findings", errFindings, len(report.Findings))
	}
	return nil
}

// resolveModel reads ref as a model file when it names one, and as a
// catalog reference otherwise.
func resolveModel(ref string) (*model.Model, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return readModelFile(ref)
	}
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()
	m, _, err := s.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", ref, err)
	}
	return m, nil
}
