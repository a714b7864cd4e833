package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/logger"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the new document content.
type ChangeFunc func(doc string)

// Watcher reloads a document when it changes on disk and hands the new
// content to a callback. The parent directory is watched so editors that
// save by rename keep triggering. Content identical to the last delivery
// is not delivered again.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange ChangeFunc
	log      *zap.SugaredLogger

	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	last           string
	stopped        bool

	wg sync.WaitGroup
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debouncePeriod = d }
}

func WithWatcherLogger(log *zap.SugaredLogger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher watches path. initial is the content already delivered to
// the consumer, if any; a change back to it is still suppressed.
func NewWatcher(path, initial string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	if path == Stdin || IsRemote(path) {
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("cannot watch %s", path),
			"only local files can be watched",
		)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, errors.Wrapf(err, "watch %s", path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch directory of %s", path)
	}

	w := &Watcher{
		path:           abs,
		watcher:        fw,
		onChange:       onChange,
		log:            zap.NewNop().Sugar(),
		debouncePeriod: DefaultDebounce,
		last:           initial,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugw("Document watcher detected change",
				logger.FieldSource, event.Name,
				"op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Document watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.reload)
}

func (w *Watcher) reload() {
	doc, err := Load(context.Background(), w.path)
	if err != nil {
		// A rename-based save leaves the file briefly missing; the Create
		// that follows schedules another reload.
		w.log.Debugw("Document reload skipped", logger.FieldSource, w.path, logger.FieldError, err)
		return
	}

	w.mu.Lock()
	if w.stopped || doc == w.last {
		w.mu.Unlock()
		return
	}
	w.last = doc
	w.mu.Unlock()

	w.log.Infow("Document changed", logger.FieldSource, w.path, "bytes", len(doc))
	w.onChange(doc)
}

// Stop ends watching. A reload already running may still deliver.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
