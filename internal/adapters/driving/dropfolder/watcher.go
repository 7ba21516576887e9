// Package dropfolder turns a watched directory into a file picker.
// PDFs that land in the directory are delivered in debounced batches,
// which the terminal UI forwards to the pipeline as a file selection.
package dropfolder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbprep/internal/logger"
)

// DefaultDebounce is how long the watcher waits for more files before
// delivering a batch.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("dropfolder: watcher closed")

// Watcher delivers batches of PDF paths dropped into a directory.
type Watcher struct {
	dir      string
	debounce time.Duration

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	closed  bool
	started bool
}

// New creates a watcher for dir. A zero debounce uses DefaultDebounce.
func New(dir string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watch starts watching and returns a channel of batches.
// The channel is closed when ctx is cancelled or Close is called.
// Only one Watch may be active per Watcher.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop folder: %s is not a directory", w.dir)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.started {
		return nil, errors.New("dropfolder: already watching")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fs = fsw
	w.started = true

	out := make(chan []string)
	go w.loop(ctx, fsw, out)

	logger.Debug("watching drop folder %s", w.dir)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)
	defer fsw.Close()

	// emitted holds delivered paths until they leave the folder, so late
	// writes to a file that was already delivered do not deliver it again.
	var (
		pending []string
		seen    = make(map[string]bool)
		emitted = make(map[string]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)

	flush := func() bool {
		batch := pending
		for _, path := range batch {
			emitted[path] = true
		}
		pending = nil
		seen = make(map[string]bool)
		fire = nil

		select {
		case out <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(emitted, event.Name)
				continue
			}
			path, ok := w.handleFsEvent(event)
			if !ok || emitted[path] {
				continue
			}
			// Further writes to a pending file extend the window.
			if !seen[path] {
				seen[path] = true
				pending = append(pending, path)
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("drop folder watcher error: %v", err)

		case <-fire:
			if len(pending) == 0 {
				fire = nil
				continue
			}
			if !flush() {
				return
			}
		}
	}
}

// handleFsEvent returns the path of a PDF that arrived in the folder.
// Writes count as arrivals so files copied in slowly are still seen.
// A file is delivered once until it is removed or renamed away.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	return event.Name, true
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}
