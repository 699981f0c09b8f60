// Package loader reads model files off the frame thread.
package loader

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// ReadFunc reads a whole file. os.ReadFile is used when nil.
type ReadFunc func(path string) ([]byte, error)

// File is one finished read.
type File struct {
	Seq  uint64
	Path string
	Name string
	Data []byte
	Err  error
}

// Loader runs one goroutine per Open and hands the results back through
// Drain. Only the most recent request is delivered: a read that finishes
// after a newer Open is dropped, so a slow large file never replaces the
// file the user picked after it.
type Loader struct {
	read ReadFunc
	log  *zap.Logger

	mu      sync.Mutex
	latest  uint64
	closed  bool
	pending atomic.Int64

	results chan File
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a loader that reads with read.
func New(read ReadFunc) *Loader {
	if read == nil {
		read = os.ReadFile
	}
	return &Loader{
		read:    read,
		log:     logger.Named("loader"),
		results: make(chan File, 4),
		done:    make(chan struct{}),
	}
}

// Open starts reading path and returns its sequence number. It returns 0
// after Close.
func (l *Loader) Open(path string) uint64 {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}
	l.latest++
	seq := l.latest
	l.wg.Add(1)
	l.mu.Unlock()

	l.pending.Add(1)
	go func() {
		defer l.wg.Done()
		data, err := l.read(path)
		f := File{Seq: seq, Path: path, Name: filepath.Base(path), Data: data, Err: err}
		select {
		case l.results <- f:
		case <-l.done:
		}
	}()
	return seq
}

// Latest returns the sequence number of the newest request.
func (l *Loader) Latest() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest
}

// Pending returns the number of reads not yet collected by Drain.
func (l *Loader) Pending() int {
	return int(l.pending.Load())
}

// Drain passes each finished read that is still the newest request to fn
// and drops the rest. It never blocks and returns the number delivered.
func (l *Loader) Drain(fn func(File)) int {
	delivered := 0
	for {
		select {
		case f := <-l.results:
			l.pending.Add(-1)
			if latest := l.Latest(); f.Seq != latest {
				l.log.Debug("dropped superseded read",
					zap.String("file", f.Path),
					zap.Uint64("seq", f.Seq),
					zap.Uint64("latest", latest),
				)
				continue
			}
			fn(f)
			delivered++
		default:
			return delivered
		}
	}
}

// Close abandons reads in flight and waits for their goroutines.
func (l *Loader) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.done)
		l.wg.Wait()
	})
}
