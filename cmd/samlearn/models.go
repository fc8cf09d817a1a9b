package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/omereliy/macq-implementSAA/internal/diff"
)

var showFormat string

// modelsCmd manages the model catalog
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show [id-or-name]",
	Short: "Print a stored model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsShow,
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsDelete,
}

var modelsDiffCmd = &cobra.Command{
	Use:   "diff [before] [after]",
	Short: "Compare two models",
	Long: `Lists the proxy actions added, removed or changed between two models and
prints a unified diff of their PDDL. Each model is a file or a catalog
id or name.`,
	Args: cobra.ExactArgs(2),
	RunE: runModelsDiff,
}

func init() {
	modelsShowCmd.Flags().StringVarP(&showFormat, "format", "f", "pddl", "Output format: pddl, json, yaml or text")
	modelsCmd.AddCommand(modelsListCmd, modelsShowCmd, modelsDeleteCmd, modelsDiffCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no models stored")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tALGORITHM\tACTIONS\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Name, e.Algorithm, e.Actions, e.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runModelsShow(cmd *cobra.Command, args []string) error {
	if err := checkFormat(showFormat); err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()
	m, e, err := s.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load model %q: %w", args[0], err)
	}
	return writeModel(cmd.OutOrStdout(), m, showFormat, e.Name)
}

func runModelsDelete(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if err := s.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runModelsDiff(cmd *cobra.Command, args []string) error {
	before, err := resolveModel(args[0])
	if err != nil {
		return err
	}
	after, err := resolveModel(args[1])
	if err != nil {
		return err
	}
	res, err := diff.Models(before, after, "model")
	if err != nil {
		return err
	}
	if res.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "models are identical")
		return nil
	}
	return res.WriteUnified(cmd.OutOrStdout(), args[0], args[1])
}
