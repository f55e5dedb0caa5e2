// Package watch re-runs draft detection on files after they stop changing.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Handler processes one settled file. Calls are serialized: at most one
// runs at a time.
type Handler func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	Debounce   time.Duration
	Extensions []string
	Ignore     []string
}

// DefaultOptions returns the stock watch settings.
func DefaultOptions() Options {
	return Options{
		Debounce:   300 * time.Millisecond,
		Extensions: []string{".tex", ".latex"},
		Ignore:     []string{".git", "*.swp", "*.tmp", "*~"},
	}
}

// Watcher watches a directory tree and hands each enabled file to a Handler
// once it has been quiet for the debounce interval.
type Watcher struct {
	root    string
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[string]*Debouncer
	ready    chan string
	queued   map[string]bool
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a Watcher rooted at root.
func New(root string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, eris.New("watch: handler is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "watch: create watcher")
	}
	return &Watcher{
		root:    root,
		opts:    opts,
		handler: handler,
		fsw:     fsw,
		pending: make(map[string]*Debouncer),
		ready:   make(chan string, 64),
		queued:  make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Enabled reports whether path has one of the watched extensions and is not
// ignored.
func (w *Watcher) Enabled(path string) bool {
	if w.ignored(path) {
		return false
	}
	return HasExtension(path, w.opts.Extensions)
}

// HasExtension reports whether path ends in one of exts, case-insensitively.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Files lists the enabled files under the root.
func (w *Watcher) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && w.ignored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Enabled(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, eris.Wrap(err, "watch: list files")
}

// Run watches until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	zap.L().Info("watch: started", zap.String("root", w.root), zap.Duration("debounce", w.opts.Debounce))

	go w.process(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Close() //nolint:errcheck
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("watch: fsnotify error", zap.Error(err))
		}
	}
}

// Close stops watching and discards every pending fire.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, d := range w.pending {
			d.Stop()
		}
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return eris.Wrap(err, "watch: close")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if err := w.addRecursive(event.Name); err != nil {
			zap.L().Warn("watch: add directory", zap.String("path", event.Name), zap.Error(err))
		}
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !w.Enabled(event.Name) {
		return
	}
	w.touch(event.Name)
}

// touch resets the debouncer of path.
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	d, ok := w.pending[path]
	if !ok {
		d = NewDebouncer(w.opts.Debounce, func() { w.enqueue(path) })
		w.pending[path] = d
	}
	w.mu.Unlock()
	d.Trigger()
}

// enqueue hands a settled path to the run loop. A path already waiting is
// not queued twice.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	if w.queued[path] {
		w.mu.Unlock()
		return
	}
	w.queued[path] = true
	w.mu.Unlock()

	select {
	case w.ready <- path:
	case <-w.done:
	}
}

func (w *Watcher) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.ready:
			w.mu.Lock()
			delete(w.queued, path)
			w.mu.Unlock()
			w.handler(ctx, path)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	return eris.Wrapf(err, "watch: add %s", root)
}

// ignored matches the base name of path against the ignore patterns, by
// exact name or glob.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.Ignore {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
