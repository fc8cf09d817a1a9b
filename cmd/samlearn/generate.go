package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/trace"
	"github.com/omereliy/macq-implementSAA/internal/trace/tracetest"
)

var (
	genBlocks []string
	genTraces int
	genSteps  int
	genSeed   int64
	genOutput string
)

// generateCmd writes random blocks-world walks as a trace file
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write random blocks-world traces",
	Long: `Generates random walks through a four-operator blocks world and writes
them in the trace file format "learn" reads. Equal seeds give equal files.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVar(&genBlocks, "blocks", []string{"a", "b", "c"}, "Block names")
	generateCmd.Flags().IntVar(&genTraces, "traces", 3, "Number of traces")
	generateCmd.Flags().IntVar(&genSteps, "steps", 20, "Actions per trace")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write to a file instead of stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if len(genBlocks) == 0 {
		return fmt.Errorf("at least one block is required")
	}
	if genTraces < 1 || genSteps < 0 {
		return fmt.Errorf("need --traces >= 1 and --steps >= 0, got %d and %d", genTraces, genSteps)
	}
	list, err := tracetest.NewBlocks(genSeed, genBlocks...).List(genTraces, genSteps)
	if err != nil {
		return err
	}

	if genOutput == "" {
		return trace.Encode(cmd.OutOrStdout(), list)
	}
	f, err := os.Create(genOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", genOutput, err)
	}
	if err := trace.Encode(f, list); err != nil {
		f.Close()
		return err
	}
	logger.Info("traces written", zap.String("path", genOutput), zap.Int("traces", genTraces), zap.Int("steps", genSteps))
	return f.Close()
}
