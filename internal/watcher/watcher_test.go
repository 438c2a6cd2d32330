package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidecraft/guidecraft/internal/logging"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNew(t *testing.T) {
	fw, err := New(100*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	assert.NotNil(t, fw.watcher)
	assert.Empty(t, fw.filters)
	assert.Empty(t, fw.scopes)
	assert.Equal(t, 1, cap(fw.notify))
}

func TestAddFilter(t *testing.T) {
	fw, err := New(100*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(MarkdownFilter)
	assert.Len(t, fw.filters, 1)

	fw.AddFilter(NoHiddenFilter)
	assert.Len(t, fw.filters, 2)
}

func TestMarkdownFilter(t *testing.T) {
	assert.True(t, MarkdownFilter("docs/guides/python.md"))
	assert.False(t, MarkdownFilter("docs/guides/python.txt"))
	assert.False(t, MarkdownFilter("site/index.html"))
}

func TestNoHiddenFilter(t *testing.T) {
	assert.True(t, NoHiddenFilter("docs/README.md"))
	assert.False(t, NoHiddenFilter("docs/.README.md.swp"))
	assert.False(t, NoHiddenFilter("docs/README.md~"))
}

func TestDebounceCollapsesBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("initial"), 0o644))

	fw, err := New(80*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchFile(file))

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		rebuilds.Add(1)
	})

	time.Sleep(50 * time.Millisecond)

	// Five writes well inside one debounce window
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf("rev %d", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rebuilds.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)

	// No trailing rebuild once the burst has settled
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), rebuilds.Load())
}

func TestSpacedChangesRebuildEach(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("initial"), 0o644))

	fw, err := New(40*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchFile(file))

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		rebuilds.Add(1)
	})

	time.Sleep(50 * time.Millisecond)

	// Each write settles before the next arrives
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf("rev %d", i)), 0o644))
		time.Sleep(150 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rebuilds.Load() == 3
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	sibling := filepath.Join(dir, "CHANGELOG.md")
	require.NoError(t, os.WriteFile(file, []byte("initial"), 0o644))
	require.NoError(t, os.WriteFile(sibling, []byte("initial"), 0o644))

	fw, err := New(40*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchFile(file))

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		rebuilds.Add(1)
	})

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(sibling, []byte("changed"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), rebuilds.Load())

	require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))
	require.Eventually(t, func() bool {
		return rebuilds.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHiddenFilesFiltered(t *testing.T) {
	dir := t.TempDir()

	fw, err := New(40*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(NoHiddenFilter)
	require.NoError(t, fw.WatchDir(dir))

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		rebuilds.Add(1)
	})

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".README.md.swp"), []byte("swap"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md~"), []byte("backup"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), rebuilds.Load())
}

func TestWatchDirMissingIsFine(t *testing.T) {
	fw, err := New(40*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchDir(filepath.Join(t.TempDir(), "does-not-exist")))
}

func TestRebuildsNeverOverlap(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("initial"), 0o644))

	fw, err := New(30*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchFile(file))

	var active, overlaps, total atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(80 * time.Millisecond)
		active.Add(-1)
		total.Add(1)
	})

	time.Sleep(50 * time.Millisecond)

	// Bursts keep settling while earlier rebuilds are still running
	for i := 0; i < 6; i++ {
		require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf("rev %d", i)), 0o644))
		time.Sleep(50 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return total.Load() >= 2
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, int32(0), overlaps.Load())
}

func TestLatestWinsQueue(t *testing.T) {
	fw, err := New(20*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	var mu sync.Mutex
	var bursts [][]ChangeEvent
	gate := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		mu.Lock()
		bursts = append(bursts, events)
		mu.Unlock()
		<-gate
	})

	// First burst occupies the rebuild goroutine
	fw.enqueue(ChangeEvent{Type: EventTypeModified, Path: "a.md"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bursts) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Two more bursts settle while the rebuild is blocked; they merge into
	// a single queued follow-up.
	fw.enqueue(ChangeEvent{Type: EventTypeModified, Path: "b.md"})
	time.Sleep(60 * time.Millisecond)
	fw.enqueue(ChangeEvent{Type: EventTypeDeleted, Path: "c.md"})
	time.Sleep(60 * time.Millisecond)

	close(gate)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bursts) == 2
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bursts, 2)

	paths := make([]string, 0, len(bursts[1]))
	for _, e := range bursts[1] {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"b.md", "c.md"}, paths)
}

func TestMergeEvents(t *testing.T) {
	stale := []ChangeEvent{
		{Type: EventTypeCreated, Path: "a.md"},
		{Type: EventTypeModified, Path: "b.md"},
	}
	fresh := []ChangeEvent{
		{Type: EventTypeDeleted, Path: "b.md"},
		{Type: EventTypeModified, Path: "c.md"},
	}

	merged := mergeEvents(stale, fresh)
	require.Len(t, merged, 3)

	byPath := make(map[string]EventType)
	for _, e := range merged {
		byPath[e.Path] = e.Type
	}
	assert.Equal(t, EventTypeCreated, byPath["a.md"])
	assert.Equal(t, EventTypeDeleted, byPath["b.md"])
	assert.Equal(t, EventTypeModified, byPath["c.md"])
}

func TestStopIdempotent(t *testing.T) {
	fw, err := New(40*time.Millisecond, logging.Nop())
	require.NoError(t, err)

	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}

func TestContextCancellationStopsRebuilds(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("initial"), 0o644))

	fw, err := New(30*time.Millisecond, logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, fw.WatchFile(file))

	var rebuilds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	fw.Start(ctx, func(ctx context.Context, events []ChangeEvent) {
		rebuilds.Add(1)
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), rebuilds.Load())
}
