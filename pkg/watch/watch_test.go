package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/codeflow/pkg/graph"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReloadReportsOnlyChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	write(t, path, `{"nodes":[{"id":"a"}]}`)

	var got []graph.Snapshot
	var errs []error
	w, err := New(path, func(s graph.Snapshot) { got = append(got, s) },
		WithErrorHandler(func(err error) { errs = append(errs, err) }))
	require.NoError(t, err)

	assert.False(t, w.Reload(), "baseline content is not reported")

	write(t, path, `{"nodes":[{"id":"a"},{"id":"b"}]}`)
	assert.True(t, w.Reload())
	require.Len(t, got, 1)
	assert.Len(t, got[0].Nodes, 2)

	assert.False(t, w.Reload(), "same hash is not reported twice")

	write(t, path, `{"nodes":[`)
	assert.False(t, w.Reload())
	assert.Len(t, errs, 1)
}

func TestRunDebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	write(t, path, `{"nodes":[]}`)

	changes := make(chan graph.Snapshot, 8)
	w, err := New(path, func(s graph.Snapshot) { changes <- s }, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	write(t, path, `{"nodes":[{"id":"x"}]}`)
	write(t, path, `{"nodes":[{"id":"x"},{"id":"y"}]}`)

	select {
	case s := <-changes:
		assert.Len(t, s.Nodes, 2, "burst collapses to the final content")
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, changes)
}

func TestRunIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	write(t, path, `{"nodes":[]}`)

	changes := make(chan graph.Snapshot, 1)
	w, err := New(path, func(s graph.Snapshot) { changes <- s }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(dir, "other.json"), `{"nodes":[{"id":"z"}]}`)

	select {
	case <-changes:
		t.Fatal("sibling file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
