package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesEnabledCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samlearn.log")
	logger, err := New(Config{
		Level:      "debug",
		JSONFormat: true,
		Categories: map[string]bool{"scan": false, "lift": true},
		OutputPath: path,
	})
	require.NoError(t, err)

	For(logger, CategoryLift).Debug("interned", zap.Int("literals", 4))
	For(logger, CategoryScan).Info("clause added")
	For(logger, CategoryMinimize).Warn("too many models")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"logger":"lift"`)
	assert.Contains(t, out, `"literals":4`)
	assert.Contains(t, out, "too many models")
	assert.NotContains(t, out, "clause added")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestForNilParent(t *testing.T) {
	l := For(nil, CategoryBoot)
	require.NotNil(t, l)
	l.Info("dropped")
	assert.NotNil(t, OrNop(nil))
}

func TestCategoryCoreFiltersNestedNames(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	core := categoryCore{Core: obs, disabled: map[string]bool{"unify": true}}
	root := zap.New(core)

	For(root, CategoryUnify).Named("classes").Info("hidden")
	For(root, CategoryAssemble).With(zap.String("schema", "stack")).Info("shown")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "assemble", entries[0].LoggerName)
	assert.True(t, strings.HasPrefix(entries[0].Message, "shown"))
}

func TestCategoriesAreDistinct(t *testing.T) {
	seen := make(map[Category]bool)
	for _, c := range Categories {
		assert.False(t, seen[c], "duplicate category %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, len(Categories))
	assert.True(t, seen[CategoryWatch])
}
