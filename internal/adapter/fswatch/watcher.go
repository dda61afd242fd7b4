// Package fswatch notices when the external prediction pipeline rewrites a
// handoff file and announces the new dataset.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// Refresher re-reads a dataset and announces it. pipeline.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, kind domain.Kind, source string) (domain.DatasetEvent, error)
}

// Watcher watches the handoff files and calls Refresher once a file has been
// quiet for the debounce interval. Events for other files in the directory,
// including the store's temporary files, are ignored.
type Watcher struct {
	watcher   *fsnotify.Watcher
	files     map[string]domain.Kind
	refresher Refresher
	debounce  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[domain.Kind]time.Time
	running bool

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New creates a Watcher for the given kind-to-path mapping.
func New(files map[domain.Kind]string, refresher Refresher, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	byPath := make(map[string]domain.Kind, len(files))
	for kind, p := range files {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close() //nolint:errcheck,gosec // path error takes precedence
			return nil, fmt.Errorf("resolve %s path: %w", kind, err)
		}
		byPath[abs] = kind
	}

	return &Watcher{
		watcher:   fw,
		files:     byPath,
		refresher: refresher,
		debounce:  debounce,
		logger:    logger,
		pending:   make(map[domain.Kind]time.Time),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start watches the directories holding the handoff files, creating them if
// needed, and processes events until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dirs := make(map[string]struct{})
	for p := range w.files {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watch dir: %w", err)
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Info("watching data directory", "dir", dir)
	}

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		w.closeOnce.Do(func() { close(w.stopCh) })
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("close watcher", "error", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	kind, ok := w.files[filepath.Clean(event.Name)]
	if !ok {
		return
	}

	w.logger.Debug("handoff file changed", "kind", kind, "op", event.Op.String())
	w.mu.Lock()
	w.pending[kind] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var due []domain.Kind

	w.mu.Lock()
	for kind, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			due = append(due, kind)
			delete(w.pending, kind)
		}
	}
	w.mu.Unlock()

	for _, kind := range due {
		if _, err := w.refresher.Refresh(ctx, kind, domain.SourceWatch); err != nil {
			w.logger.Error("refresh dataset", "kind", kind, "error", err)
		}
	}
}
