package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/omereliy/macq-implementSAA/internal/audit"
	"github.com/omereliy/macq-implementSAA/internal/extract"
	"github.com/omereliy/macq-implementSAA/internal/logging"
	"github.com/omereliy/macq-implementSAA/internal/model"
	"github.com/omereliy/macq-implementSAA/internal/observation"
	"github.com/omereliy/macq-implementSAA/internal/trace"
	"github.com/omereliy/macq-implementSAA/internal/watch"
)

var (
	learnAlgorithm string
	learnPolicy    string
	learnWorkers   int
	learnUntyped   bool
	learnFormat    string
	learnOutput    string
	learnDomain    string
	learnSave      string
	learnAudit     bool
	learnWatch     bool
)

// Output formats accepted by --format.
var formats = []string{"pddl", "json", "yaml", "text"}

// learnCmd learns a model from a trace file
var learnCmd = &cobra.Command{
	Use:   "learn [trace-file]",
	Short: "Learn a lifted action model from a trace file",
	Long: `Reads a YAML or JSON trace file, observes it with the configured token
and learns a lifted STRIPS model.

Example:
  samlearn learn traces.yaml --format pddl --domain blocks --save blocks`,
	Args: cobra.ExactArgs(1),
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&learnAlgorithm, "algorithm", "", "Learner: esam or sam (default from config)")
	learnCmd.Flags().StringVar(&learnPolicy, "policy", "", "Precondition policy: sure or esam (default from config)")
	learnCmd.Flags().IntVar(&learnWorkers, "workers", -1, "Concurrent schemas (default from config)")
	learnCmd.Flags().BoolVar(&learnUntyped, "untyped", false, "Collapse every object to a single sort")
	learnCmd.Flags().StringVarP(&learnFormat, "format", "f", "pddl", "Output format: pddl, json, yaml or text")
	learnCmd.Flags().StringVarP(&learnOutput, "output", "o", "", "Write the model to a file instead of stdout")
	learnCmd.Flags().StringVar(&learnDomain, "domain", "", "PDDL domain name (default: trace file name)")
	learnCmd.Flags().StringVar(&learnSave, "save", "", "Store the model in the catalog under this name")
	learnCmd.Flags().BoolVar(&learnAudit, "audit", false, "Audit the learned model against the traces")
	learnCmd.Flags().BoolVarP(&learnWatch, "watch", "w", false, "Learn again whenever the trace file changes")
}

func runLearn(cmd *cobra.Command, args []string) error {
	if err := learnOnce(cmd, args[0]); err != nil {
		return err
	}
	if !learnWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w, err := watch.New(args[0], watch.DefaultDebounce, logging.For(logger, logging.CategoryWatch))
	if err != nil {
		return err
	}
	defer w.Close()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (interrupt to stop)\n", args[0])
	return w.Run(ctx, func(context.Context) error { return learnOnce(cmd, args[0]) })
}

// learnOnce reads the trace file, learns and emits one model.
func learnOnce(cmd *cobra.Command, path string) error {
	list, err := trace.ReadFile(path)
	if err != nil {
		return err
	}
	token, err := cfg.Token()
	if err != nil {
		return err
	}
	obs, err := observation.Tokenize(list, token)
	if err != nil {
		return err
	}

	algorithm := cfg.Extract.Algorithm
	if learnAlgorithm != "" {
		algorithm = learnAlgorithm
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	if learnPolicy != "" {
		if opts.Precondition, err = extract.ParsePolicy(learnPolicy); err != nil {
			return err
		}
	}
	if learnWorkers >= 0 {
		opts.Workers = learnWorkers
	}
	if learnUntyped {
		opts.Untyped = true
	}
	opts.Logger = logger

	if err := checkFormat(learnFormat); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	var res *extract.Result
	switch algorithm {
	case "esam":
		res, err = extract.ESAM(ctx, obs, opts)
	case "sam":
		res, err = extract.SAM(ctx, obs, opts)
	default:
		return fmt.Errorf("unknown algorithm %q (valid: esam, sam)", algorithm)
	}
	if err != nil {
		return fmt.Errorf("learning failed: %w", err)
	}
	for _, s := range res.EmptySchemas {
		logger.Warn("schema has no consistent effect model", zap.String("schema", s))
	}
	logger.Info("model learned",
		zap.String("algorithm", algorithm),
		zap.Int("actions", len(res.Model.Actions())),
		zap.Int("fluents", len(res.Model.Fluents())))

	domain := learnDomain
	if domain == "" {
		domain = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := emitModel(cmd, res.Model, learnFormat, domain, learnOutput); err != nil {
		return err
	}

	if learnAudit {
		report, err := audit.Run(res.Model, obs, cfg.Mangle, logger)
		if err != nil {
			return err
		}
		if !report.Clean() {
			logger.Warn("audit found problems", zap.Int("findings", len(report.Findings)))
			for _, f := range report.Findings {
				fmt.Fprintln(cmd.ErrOrStderr(), f)
			}
		}
	}

	if learnSave != "" {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.Save(ctx, learnSave, algorithm, res.Model)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s as %s\n", learnSave, id)
	}
	return nil
}

func checkFormat(format string) error {
	for _, f := range formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(formats, ", "))
}

// emitModel writes m to path, or to the command output when path is empty.
func emitModel(cmd *cobra.Command, m *model.Model, format, domain, path string) error {
	if path == "" {
		return writeModel(cmd.OutOrStdout(), m, format, domain)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeModel(f, m, format, domain); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeModel(w io.Writer, m *model.Model, format, domain string) error {
	switch format {
	case "pddl":
		return m.WriteDomain(w, domain)
	case "json":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode model: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode model: %w", err)
		}
		return enc.Close()
	case "text":
		_, err := fmt.Fprintln(w, m.Details())
		return err
	default:
		return checkFormat(format)
	}
}

// readModelFile decodes a model written with --format json or yaml.
func readModelFile(path string) (*model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	m := &model.Model{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, m)
	default:
		return nil, fmt.Errorf("cannot read model from %s: want .json, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	return m, nil
}
