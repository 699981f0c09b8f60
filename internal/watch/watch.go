// Package watch reports changes to a single file.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// DefaultDebounce is used when New gets a non-positive debounce.
const DefaultDebounce = 250 * time.Millisecond

// Watcher sends the file path on Changes once writes to it have been quiet
// for the debounce interval. The parent directory is watched so editors that
// replace the file through a rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	fw       *fsnotify.Watcher
	log      *zap.Logger

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New starts watching path.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		debounce: debounce,
		fw:       fw,
		log:      logger.Named("watch"),
		changes:  make(chan string, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	w.log.Info("watching", zap.String("file", abs), zap.Duration("debounce", debounce))
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers the path after each burst of writes. A change that
// arrives while the previous one is still unread is merged into it.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	armed := false

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("file event", zap.String("op", ev.Op.String()))
			if armed {
				timer.Stop()
			}
			timer.Reset(w.debounce)
			armed = true

		case <-timer.C:
			armed = false
			select {
			case w.changes <- w.path:
			default:
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
