package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func start(t *testing.T, path string, onChange func(context.Context) error) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(path, 50*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, onChange) }()
	return w, cancel, done
}

func TestRunFiresAfterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.yaml")
	require.NoError(t, os.WriteFile(path, []byte("traces: []\n"), 0644))

	fired := make(chan struct{}, 16)
	w, cancel, done := start(t, path, func(context.Context) error {
		fired <- struct{}{}
		return errors.New("bad traces")
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("traces: [[]]\n"), 0644))
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change was not reported")
	}

	cancel()
	require.NoError(t, <-done)
	st := w.Stats()
	assert.GreaterOrEqual(t, st.Events, 1)
	assert.GreaterOrEqual(t, st.Changes, 1)
	assert.Equal(t, st.Changes, st.Errors, "every failed rerun is counted")
	assert.False(t, st.LastEventTime.IsZero())
}

func TestRunIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traces.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	fired := make(chan struct{}, 1)
	w, cancel, done := start(t, path, func(context.Context) error {
		fired <- struct{}{}
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))
	select {
	case <-fired:
		t.Fatal("unrelated file triggered a rerun")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, w.Stats().Events)
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "traces.yaml"), 0, nil)
	assert.Error(t, err)
}

func TestRunTinyDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.yaml")
	w, err := New(path, time.Nanosecond, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, func(context.Context) error { return nil }))
}
