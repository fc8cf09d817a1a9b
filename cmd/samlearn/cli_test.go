package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omereliy/macq-implementSAA/internal/config"
	"github.com/omereliy/macq-implementSAA/internal/store"
)

// setup points the globals at a fresh workspace and resets every flag.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg = config.DefaultConfig()
	cfg.Store.Path = filepath.Join(dir, "models.db")
	logger = zap.NewNop()
	timeout = time.Minute

	learnAlgorithm, learnPolicy, learnFormat = "", "", "pddl"
	learnWorkers = -1
	learnUntyped, learnAudit, learnWatch = false, false, false
	learnOutput, learnDomain, learnSave = "", "", ""
	auditJSON = false
	showFormat = "pddl"
	genBlocks, genTraces, genSteps, genSeed, genOutput = []string{"a", "b", "c"}, 3, 20, 1, ""
	return dir
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}

func writeTraces(t *testing.T, dir string) string {
	t.Helper()
	genOutput = filepath.Join(dir, "blocks.yaml")
	cmd, _ := testCmd()
	require.NoError(t, runGenerate(cmd, nil))
	genOutput = ""
	return filepath.Join(dir, "blocks.yaml")
}

func TestGenerateDeterministic(t *testing.T) {
	setup(t)
	cmd, first := testCmd()
	require.NoError(t, runGenerate(cmd, nil))
	cmd, second := testCmd()
	require.NoError(t, runGenerate(cmd, nil))

	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "traces:")
	assert.Contains(t, first.String(), "a: block")

	genTraces = 0
	assert.Error(t, runGenerate(cmd, nil))
}

func TestLearnWritesPDDL(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)

	cmd, out := testCmd()
	require.NoError(t, runLearn(cmd, []string{traces}))

	pddl := out.String()
	assert.True(t, strings.HasPrefix(pddl, "(define (domain blocks)"), pddl)
	for _, op := range []string{"pickup_1", "putdown_1", "stack_1", "unstack_1"} {
		assert.Contains(t, pddl, "(:action "+op)
	}
}

func TestLearnFormats(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)

	for _, tt := range []struct {
		format string
		want   string
	}{
		{"json", `"actions"`},
		{"yaml", "actions:"},
		{"text", "Model:"},
	} {
		t.Run(tt.format, func(t *testing.T) {
			learnFormat = tt.format
			cmd, out := testCmd()
			require.NoError(t, runLearn(cmd, []string{traces}))
			assert.Contains(t, out.String(), tt.want)
		})
	}

	learnFormat = "xml"
	cmd, _ := testCmd()
	assert.Error(t, runLearn(cmd, []string{traces}))
}

func TestLearnSAMAndFlags(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)

	learnAlgorithm = "sam"
	learnWorkers = 2
	learnDomain = "bw"
	cmd, out := testCmd()
	require.NoError(t, runLearn(cmd, []string{traces}))
	assert.Contains(t, out.String(), "(define (domain bw)")

	learnAlgorithm = "graphplan"
	assert.Error(t, runLearn(cmd, []string{traces}))

	learnAlgorithm = ""
	learnPolicy = "optimistic"
	assert.Error(t, runLearn(cmd, []string{traces}))
}

func TestLearnThenAuditFile(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)

	for _, ext := range []string{"json", "yaml"} {
		t.Run(ext, func(t *testing.T) {
			learnFormat = ext
			learnOutput = filepath.Join(dir, "model."+ext)
			cmd, _ := testCmd()
			require.NoError(t, runLearn(cmd, []string{traces}))

			cmd, out := testCmd()
			require.NoError(t, runAudit(cmd, []string{learnOutput, traces}))
			assert.Contains(t, out.String(), "occurrences: 60")
			assert.Contains(t, out.String(), "unexplained: 0")
		})
	}
}

const violatingTraces = `
objects: {a: block, b: block}
fluents: ["(clear a)"]
traces:
  - - state: ["(on b a)", "(ontable a)", "(handempty)", "(clear b)"]
      action: "(pickup a)"
    - state: ["(holding a)", "(on b a)", "(clear b)"]
`

func TestAuditReportsFindings(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)
	learnFormat = "json"
	learnOutput = filepath.Join(dir, "model.json")
	cmd, _ := testCmd()
	require.NoError(t, runLearn(cmd, []string{traces}))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(violatingTraces), 0644))

	auditJSON = true
	cmd, out := testCmd()
	err := runAudit(cmd, []string{learnOutput, bad})
	assert.True(t, errors.Is(err, errFindings), "got %v", err)
	assert.Contains(t, out.String(), `"kind": "precondition"`)
	assert.Contains(t, out.String(), "(clear a)")
}

func TestLearnSaveAndModels(t *testing.T) {
	dir := setup(t)
	traces := writeTraces(t, dir)

	learnSave = "blocks"
	learnAudit = true
	cmd, _ := testCmd()
	require.NoError(t, runLearn(cmd, []string{traces}))
	// identical model under the same name is not stored twice
	require.NoError(t, runLearn(cmd, []string{traces}))

	cmd, out := testCmd()
	require.NoError(t, runModelsList(cmd, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "blocks")
	assert.Contains(t, lines[1], "esam")
	id := strings.Fields(lines[1])[0]

	cmd, out = testCmd()
	require.NoError(t, runModelsShow(cmd, []string{"blocks"}))
	assert.Contains(t, out.String(), "(define (domain blocks)")

	cmd, out = testCmd()
	require.NoError(t, runAudit(cmd, []string{id, traces}))
	assert.Contains(t, out.String(), "groundings:  60")

	cmd, _ = testCmd()
	require.NoError(t, runModelsDelete(cmd, []string{id}))
	assert.ErrorIs(t, runModelsDelete(cmd, []string{id}), store.ErrNotFound)
	assert.ErrorIs(t, runModelsShow(cmd, []string{id}), store.ErrNotFound)

	cmd, out = testCmd()
	require.NoError(t, runModelsList(cmd, nil))
	assert.Equal(t, "no models stored\n", out.String())
}

func TestModelsDiff(t *testing.T) {
	dir := setup(t)
	full := writeTraces(t, dir)
	genOutput = filepath.Join(dir, "short.yaml")
	genTraces, genSteps = 1, 2
	cmd, _ := testCmd()
	require.NoError(t, runGenerate(cmd, nil))

	learnFormat = "json"
	learnOutput = filepath.Join(dir, "full.json")
	require.NoError(t, runLearn(cmd, []string{full}))
	learnOutput = filepath.Join(dir, "short.json")
	require.NoError(t, runLearn(cmd, []string{genOutput}))

	cmd, out := testCmd()
	require.NoError(t, runModelsDiff(cmd, []string{filepath.Join(dir, "full.json"), filepath.Join(dir, "short.json")}))
	assert.Contains(t, out.String(), "removed ")
	assert.Contains(t, out.String(), "@@ ")

	cmd, out = testCmd()
	require.NoError(t, runModelsDiff(cmd, []string{learnOutput, learnOutput}))
	assert.Equal(t, "models are identical\n", out.String())
}

func TestRootCommandLoadsConfig(t *testing.T) {
	dir := setup(t)
	confFile := filepath.Join(dir, "samlearn.yaml")
	conf := config.DefaultConfig()
	conf.Store.Path = filepath.Join(dir, "catalog.db")
	conf.Extract.Algorithm = "sam"
	conf.Logging.OutputPath = filepath.Join(dir, "samlearn.log")
	require.NoError(t, conf.Save(confFile))

	out := filepath.Join(dir, "gen.yaml")
	rootCmd.SetArgs([]string{"--config", confFile, "generate", "--seed", "4", "--steps", "5", "-o", out})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "sam", cfg.Extract.Algorithm)
	assert.Equal(t, conf.Store.Path, cfg.Store.Path)
	assert.FileExists(t, out)

	conf.Extract.Algorithm = "bogus"
	require.NoError(t, conf.Save(confFile))
	rootCmd.SetArgs([]string{"--config", confFile, "models", "list"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	rootCmd.SetArgs(nil)
}
