package dropfolder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case batch, ok := <-batches:
		require.True(t, ok, "channel closed unexpectedly")
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for batch")
		return nil
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New("/tmp/drop", 0)

	assert.Equal(t, "/tmp/drop", w.Dir())
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_DeliversPDF(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 50*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	assert.Equal(t, []string{path}, receiveBatch(t, batches))
}

func TestWatcher_BatchesWithinDebounce(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 200*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	first := filepath.Join(dir, "a.pdf")
	second := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(first, []byte("%PDF-1.4"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("%PDF-1.4"), 0o600))

	batch := receiveBatch(t, batches)
	assert.Equal(t, []string{first, second}, batch)
}

func TestWatcher_LateWritesDoNotRedeliver(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 30*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "slow.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	assert.Equal(t, []string{path}, receiveBatch(t, batches))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("\nmore bytes")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case batch := <-batches:
		t.Fatalf("unexpected second batch: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_RedeliversAfterRemove(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 30*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "again.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	assert.Equal(t, []string{path}, receiveBatch(t, batches))

	require.NoError(t, os.Remove(path))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	assert.Equal(t, []string{path}, receiveBatch(t, batches))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 50*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o700))

	pdf := filepath.Join(dir, "real.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600))

	assert.Equal(t, []string{pdf}, receiveBatch(t, batches))
}

func TestWatcher_ContextCancelClosesChannel(t *testing.T) {
	w := New(t.TempDir(), 50*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	batches, err := w.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-batches:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestWatcher_CloseClosesChannel(t *testing.T) {
	w := New(t.TempDir(), 50*time.Millisecond)

	batches, err := w.Watch(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-batches:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel did not close after Close")
	}
}

func TestWatcher_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		w := New(filepath.Join(t.TempDir(), "missing"), 0)

		batches, err := w.Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, batches)
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))

		_, err := New(file, 0).Watch(context.Background())

		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("closed watcher", func(t *testing.T) {
		w := New(t.TempDir(), 0)
		require.NoError(t, w.Close())

		_, err := w.Watch(context.Background())

		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("second watch", func(t *testing.T) {
		w := New(t.TempDir(), 0)
		defer w.Close()

		_, err := w.Watch(context.Background())
		require.NoError(t, err)

		_, err = w.Watch(context.Background())
		assert.ErrorContains(t, err, "already watching")
	})
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "doc.pdf")
	upper := filepath.Join(dir, "DOC2.PDF")
	txt := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(pdf, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(upper, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

	w := New(dir, 0)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create pdf", fsnotify.Event{Name: pdf, Op: fsnotify.Create}, true},
		{"write pdf", fsnotify.Event{Name: pdf, Op: fsnotify.Write}, true},
		{"write and chmod", fsnotify.Event{Name: pdf, Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"uppercase extension", fsnotify.Event{Name: upper, Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: pdf, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: pdf, Op: fsnotify.Remove}, false},
		{"rename away", fsnotify.Event{Name: pdf, Op: fsnotify.Rename}, false},
		{"text file", fsnotify.Event{Name: txt, Op: fsnotify.Create}, false},
		{"vanished", fsnotify.Event{Name: filepath.Join(dir, "gone.pdf"), Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := w.handleFsEvent(tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.event.Name, path)
			}
		})
	}
}
